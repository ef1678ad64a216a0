package core

import (
	"fmt"

	"github.com/google/uuid"
)

// DebugName returns name unchanged when it is non-empty, otherwise it
// generates a unique name for the resource kind. Unnamed GPU resources
// (textures, buffers, framebuffers) get one of these so log lines and
// native-object debug labels stay distinguishable.
func DebugName(kind, name string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s-%s", kind, uuid.New().String())
}
