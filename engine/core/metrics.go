package core

import "sync"

const avgCount = 30

// MetricsState accumulates frame timing: a rolling frame-time average and a
// frames-per-second counter updated once per wall-clock second.
type MetricsState struct {
	frameAvgCounter    int
	msTimes            [avgCount]float64
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
}

var onceMetrics sync.Once
var metricsState *MetricsState

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{}
	})
	return nil
}

// MetricsUpdate records one frame of frameElapsed seconds.
func MetricsUpdate(frameElapsed float64) {
	frameMS := frameElapsed * 1000.0
	metricsState.msTimes[metricsState.frameAvgCounter] = frameMS
	if metricsState.frameAvgCounter == avgCount-1 {
		sum := 0.0
		for i := 0; i < avgCount; i++ {
			sum += metricsState.msTimes[i]
		}
		metricsState.msAvg = sum / float64(avgCount)
	}
	metricsState.frameAvgCounter = (metricsState.frameAvgCounter + 1) % avgCount

	metricsState.accumulatedFrameMS += frameMS
	if metricsState.accumulatedFrameMS > 1000 {
		metricsState.fps = float64(metricsState.frames)
		metricsState.accumulatedFrameMS -= 1000
		metricsState.frames = 0
	}
	metricsState.frames++
}

func MetricsFPS() float64 {
	return metricsState.fps
}

func MetricsFrameTime() float64 {
	return metricsState.msAvg
}

func MetricsFrame() (float64, float64) {
	return metricsState.fps, metricsState.msAvg
}
