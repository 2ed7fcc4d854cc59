package waveform

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/capitalize-ai/call-monitor/internal/model"
)

// ErrDetached is returned by a surface that is not attached to a view.
var ErrDetached = errors.New("surface detached")

// Gradient is a left-to-right stroke color pair.
type Gradient struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Palette colors.
var (
	CallerGradient    = Gradient{From: "#10b981", To: "#34d399"}
	AssistantGradient = Gradient{From: "#3b82f6", To: "#60a5fa"}
	IdleGradient      = Gradient{From: "#6b7280", To: "#9ca3af"}
)

const (
	backgroundColor = "#111827"
	centerLineColor = "#374151"
)

// GradientFor picks the stroke colors for a speaker.
func GradientFor(s model.Speaker) Gradient {
	switch s {
	case model.SpeakerCaller, model.SpeakerPatient:
		return CallerGradient
	case model.SpeakerAssistant:
		return AssistantGradient
	default:
		return IdleGradient
	}
}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame is one rendered waveform.
type Frame struct {
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Samples  []float64     `json:"samples"`
	Speaker  model.Speaker `json:"speaker,omitempty"`
	Level    float64       `json:"level"`
	Gradient Gradient      `json:"gradient"`
}

// Trace returns the mirrored polylines above and below the center line.
func (f Frame) Trace() (upper, lower []Point) {
	mid := float64(f.Height) / 2
	upper = make([]Point, len(f.Samples))
	lower = make([]Point, len(f.Samples))
	for i, v := range f.Samples {
		upper[i] = Point{X: float64(i), Y: mid - v}
		lower[i] = Point{X: float64(i), Y: mid + v}
	}
	return upper, lower
}

// SVG encodes the frame as a standalone SVG document.
func (f Frame) SVG() string {
	upper, lower := f.Trace()
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, f.Width, f.Height, f.Width, f.Height)
	fmt.Fprintf(&b, `<defs><linearGradient id="wave" x1="0" y1="0" x2="1" y2="0"><stop offset="0" stop-color="%s"/><stop offset="1" stop-color="%s"/></linearGradient></defs>`, f.Gradient.From, f.Gradient.To)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, f.Width, f.Height, backgroundColor)
	for _, line := range [][]Point{upper, lower} {
		b.WriteString(`<polyline fill="none" stroke="url(#wave)" stroke-width="2" points="`)
		for i, p := range line {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%.1f,%.2f", p.X, p.Y)
		}
		b.WriteString(`"/>`)
	}
	fmt.Fprintf(&b, `<line x1="0" y1="%g" x2="%d" y2="%g" stroke="%s" stroke-width="1"/>`, float64(f.Height)/2, f.Width, float64(f.Height)/2, centerLineColor)
	b.WriteString(`</svg>`)
	return b.String()
}

// Surface receives rendered frames.
type Surface interface {
	Draw(Frame) error
}

// FrameBuffer is a Surface that keeps the latest frame for readers on other
// goroutines.
type FrameBuffer struct {
	mu       sync.RWMutex
	frame    Frame
	has      bool
	detached bool
}

// NewFrameBuffer creates an attached frame buffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Draw stores f.
func (b *FrameBuffer) Draw(f Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.detached {
		return ErrDetached
	}
	b.frame = f
	b.has = true
	return nil
}

// Latest returns the most recent frame.
func (b *FrameBuffer) Latest() (Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.frame, b.has
}

// Detach makes subsequent draws fail with ErrDetached.
func (b *FrameBuffer) Detach() {
	b.mu.Lock()
	b.detached = true
	b.mu.Unlock()
}
