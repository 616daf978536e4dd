package sim

import (
	"image"
	"io"

	"github.com/fogleman/gg"
)

const (
	cellWidth  = 14
	cellHeight = 22
	margin     = 12
)

// Render draws the display as a green backlit panel.
func (l *LCD) Render() image.Image {
	return l.draw().Image()
}

// EncodePNG writes the rendered display to w.
func (l *LCD) EncodePNG(w io.Writer) error {
	return l.draw().EncodePNG(w)
}

func (l *LCD) draw() *gg.Context {
	l.mu.Lock()
	rows := make([]string, l.height)
	for r := range rows {
		rows[r] = l.text(r)
	}
	on := l.displayOn
	l.mu.Unlock()

	dc := gg.NewContext(margin*2+l.width*cellWidth, margin*2+l.height*cellHeight)
	dc.SetRGB(0.12, 0.16, 0.10)
	dc.Clear()
	for r, text := range rows {
		y := float64(margin + r*cellHeight)
		for c := 0; c < len(text); c++ {
			x := float64(margin + c*cellWidth)
			if on {
				dc.SetRGB(0.56, 0.76, 0.22)
			} else {
				dc.SetRGB(0.30, 0.40, 0.14)
			}
			dc.DrawRectangle(x+1, y+1, cellWidth-2, cellHeight-2)
			dc.Fill()
			if !on || text[c] < 0x20 || text[c] > 0x7e {
				continue
			}
			dc.SetRGB(0.08, 0.12, 0.04)
			dc.DrawStringAnchored(text[c:c+1], x+cellWidth/2, y+cellHeight/2, 0.5, 0.35)
		}
	}
	return dc
}
