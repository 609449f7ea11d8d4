package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Label is a line of text recomputed every frame.
type Label struct {
	X, Y float64
	Text func() string
}

func (l *Label) Update() {}

func (l *Label) Draw(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, l.Text(), int(l.X), int(l.Y))
}

func (l *Label) Height() float64 { return 18 }

func (l *Label) MoveTo(x, y float64) { l.X, l.Y = x, y }

type section struct {
	title string
	start int // first widget index
}

// Panel stacks widgets under section headers in a scrollable box.
type Panel struct {
	X, Y          float64
	Width, Height float64
	Title         string
	ScrollOffset  float64
	// Hidden panels neither draw nor take input.
	Hidden bool

	BGColor     color.RGBA
	BorderColor color.RGBA

	widgets  []Widget
	sections []section
}

// NewPanel creates a new UI panel
func NewPanel(x, y, width, height float64, title string) *Panel {
	return &Panel{
		X:           x,
		Y:           y,
		Width:       width,
		Height:      height,
		Title:       title,
		BGColor:     color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor: color.RGBA{R: 100, G: 100, B: 110, A: 255},
	}
}

// AddSection starts a new titled group; widgets added next belong to it.
func (p *Panel) AddSection(title string) {
	p.sections = append(p.sections, section{title: title, start: len(p.widgets)})
}

func (p *Panel) add(w Widget) {
	p.widgets = append(p.widgets, w)
	p.layout()
}

func (p *Panel) AddSlider(label string, min, max, value float64) *Slider {
	s := NewSlider(0, 0, p.Width-20, label, min, max, value)
	p.add(s)
	return s
}

func (p *Panel) AddCheckbox(label string, value bool) *Checkbox {
	c := NewCheckbox(0, 0, label, value)
	p.add(c)
	return c
}

func (p *Panel) AddButton(label string, onClick func()) *Button {
	b := NewButton(0, 0, p.Width-20, 22, label, onClick)
	p.add(b)
	return b
}

func (p *Panel) AddLabel(text func() string) *Label {
	l := &Label{Text: text}
	p.add(l)
	return l
}

// layout positions every widget for the current scroll offset and returns
// the content height.
func (p *Panel) layout() float64 {
	y := p.Y + 30 - p.ScrollOffset
	next := 0
	for i, w := range p.widgets {
		for next < len(p.sections) && p.sections[next].start == i {
			y += 25
			next++
		}
		w.MoveTo(p.X+10, y)
		y += w.Height()
	}
	y += 25 * float64(len(p.sections)-next)
	return y + p.ScrollOffset - p.Y
}

// Contains reports whether the cursor is over the visible panel.
func (p *Panel) Contains() bool {
	return !p.Hidden && cursorIn(p.X, p.Y, p.Width, p.Height)
}

// Update handles scrolling and input for all widgets
func (p *Panel) Update() {
	if p.Hidden {
		return
	}
	if _, dy := ebiten.Wheel(); dy != 0 && p.Contains() {
		maxScroll := max(0, p.layout()-p.Height+10)
		p.ScrollOffset = max(0, min(maxScroll, p.ScrollOffset-dy*20))
		p.layout()
	}
	for _, w := range p.widgets {
		w.Update()
	}
}

// Draw renders the panel and all widgets
func (p *Panel) Draw(screen *ebiten.Image) {
	if p.Hidden {
		return
	}
	vector.FillRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		p.BGColor, true)
	vector.StrokeRect(screen,
		float32(p.X), float32(p.Y),
		float32(p.Width), float32(p.Height),
		2, p.BorderColor, true)
	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+10), int(p.Y+5))

	y := p.Y + 30 - p.ScrollOffset
	next := 0
	visible := func(top, h float64) bool {
		return top >= p.Y+25 && top+h <= p.Y+p.Height
	}
	for i, w := range p.widgets {
		for next < len(p.sections) && p.sections[next].start == i {
			if visible(y, 20) {
				vector.FillRect(screen,
					float32(p.X+5), float32(y),
					float32(p.Width-10), 20,
					color.RGBA{R: 60, G: 60, B: 70, A: 255}, true)
				ebitenutil.DebugPrintAt(screen, p.sections[next].title, int(p.X+10), int(y+2))
			}
			y += 25
			next++
		}
		if visible(y, w.Height()) {
			w.Draw(screen)
		}
		y += w.Height()
	}
}
