package core

import (
	"errors"
)

var (
	ErrSwapchainOutOfDate = errors.New("swapchain resized or recreated, booting")
	ErrFenceTimeout       = errors.New("fence wait timed out")
	ErrUnknown            = errors.New("unknown")
)
