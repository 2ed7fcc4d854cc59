package waveform

import (
	"math"
	"math/rand"
	"time"

	"github.com/capitalize-ai/call-monitor/internal/model"
)

const (
	// Frequency is the speech pattern angular rate per elapsed millisecond.
	Frequency = 0.02
	// ScaleFactor maps a unit amplitude to a fraction of the surface height.
	ScaleFactor = 0.4
	// MaxNoise bounds the random perturbation added to every sample.
	MaxNoise = 0.1
)

// NoiseFunc returns a perturbation in [0, MaxNoise].
type NoiseFunc func() float64

// RandomNoise draws uniform noise in [0, MaxNoise).
func RandomNoise() float64 {
	return rand.Float64() * MaxNoise
}

// Amplitude derives the pseudo-amplitude for one frame. It is a visual stand-in
// for a speech envelope, not an acoustic model.
func Amplitude(elapsed time.Duration, intensity, noise, scale float64) float64 {
	ms := float64(elapsed) / float64(time.Millisecond)
	return (math.Sin(ms*Frequency)*intensity + noise) * scale
}

// Level normalizes an amplitude against scale into [0,1].
func Level(amplitude, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	l := math.Abs(amplitude) / scale
	if math.IsNaN(l) {
		return 0
	}
	return math.Min(l, 1)
}

// ActiveTurn returns the turn being spoken at elapsed. The timeline must be
// sorted by offset; when turns overlap the lowest offset wins.
func ActiveTurn(sorted model.Timeline[model.ConversationTurn], elapsed time.Duration) (model.ConversationTurn, bool) {
	for _, ev := range sorted {
		if ev.Offset() > elapsed {
			break
		}
		if ev.Covers(elapsed) {
			return ev.Payload, true
		}
	}
	return model.ConversationTurn{}, false
}
