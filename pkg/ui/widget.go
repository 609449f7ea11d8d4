// Package ui holds the small immediate-mode widgets of the HUD panel.
package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// Widget is anything the panel can stack vertically.
type Widget interface {
	Update()
	Draw(screen *ebiten.Image)
	Height() float64
	// MoveTo places the widget's top-left corner, used when the panel scrolls.
	MoveTo(x, y float64)
}

var (
	colorBorder = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	colorTrack  = color.RGBA{R: 80, G: 80, B: 80, A: 255}
	colorFill   = color.RGBA{R: 100, G: 200, B: 100, A: 255}
)

// cursorIn reports whether the mouse is over the rectangle.
func cursorIn(x, y, w, h float64) bool {
	mx, my := ebiten.CursorPosition()
	return float64(mx) >= x && float64(mx) <= x+w &&
		float64(my) >= y && float64(my) <= y+h
}

// press tracks a left click so it fires once per press, not once per tick.
type press struct {
	down bool
}

// clicked returns true on the first tick the button is held over the area.
func (p *press) clicked(over bool) bool {
	if over && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if !p.down {
			p.down = true
			return true
		}
		return false
	}
	p.down = false
	return false
}
