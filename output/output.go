// Package output provides the audio sinks the synth engine renders into.
// The default build plays through oto; building with the headless tag
// swaps in a sink that consumes audio at real-time pace and discards it.
package output

import (
	"math"
	"time"
)

// DefaultBuffer is the device buffer length, the dominant output latency
const DefaultBuffer = 40 * time.Millisecond

// bytesPerFrame is one float32 mono sample
const bytesPerFrame = 4

// BufferBytes is the size in bytes of buffer worth of float32 mono PCM,
// at least one frame
func BufferBytes(sampleRate int, buffer time.Duration) int {
	frames := int(math.Round(buffer.Seconds() * float64(sampleRate)))
	return max(frames, 1) * bytesPerFrame
}
