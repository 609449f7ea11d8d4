package ui

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Slider picks a value in [Min, Max] by dragging across its track.
type Slider struct {
	Label    string
	Value    float64
	Min, Max float64
	X, Y     float64
	W, H     float64
	// Format renders the value next to the label, "%.2f" when empty.
	Format string
}

func NewSlider(x, y, w float64, label string, min, max, value float64) *Slider {
	s := &Slider{Label: label, Min: min, Max: max, X: x, Y: y, W: w, H: 14}
	s.Set(value)
	return s
}

// Set clamps v into range.
func (s *Slider) Set(v float64) {
	s.Value = max(s.Min, min(s.Max, v))
}

func (s *Slider) ratio() float64 {
	if s.Max == s.Min {
		return 0
	}
	return (s.Value - s.Min) / (s.Max - s.Min)
}

// Update checks for mouse interaction
func (s *Slider) Update() {
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) || !cursorIn(s.X, s.Y, s.W, s.H) {
		return
	}
	mx, _ := ebiten.CursorPosition()
	s.Set(s.Min + (float64(mx)-s.X)/s.W*(s.Max-s.Min))
}

// Draw renders the label, the value and the track.
func (s *Slider) Draw(screen *ebiten.Image) {
	f := s.Format
	if f == "" {
		f = "%.2f"
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s: "+f, s.Label, s.Value), int(s.X), int(s.Y-16))
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W), float32(s.H), colorTrack, true)
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W*s.ratio()), float32(s.H), colorBorder, true)
}

func (s *Slider) Height() float64 { return s.H + 25 }

func (s *Slider) MoveTo(x, y float64) { s.X, s.Y = x, y+16 }
