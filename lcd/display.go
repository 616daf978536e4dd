// Package lcd keeps a character display in sync with a set of text rows.
//
// A Panel remembers what every row currently shows and only rewrites rows
// that changed. Each byte on a parallel HD44780 costs a few milliseconds, so
// redrawing a 16x2 screen on every poll would stall the loop.
//
// Example usage:
//
//	panel := lcd.NewPanel(display, 2, 16)
//	err := panel.Show(lcd.Text("Rope Measurer", "0.000 m"))
//	if err != nil {
//	    logger.Warn("lcd:show-failed", slog.Any("reason", err))
//	}
package lcd

// Screen is a character display addressed by row and column.
type Screen interface {
	SetCursorPosition(row, column uint8) error
	WriteBytes(b []byte)
}

// Message holds the text of each row, top to bottom.
type Message struct {
	Lines [][]byte
}

// Text builds a Message from strings.
func Text(lines ...string) Message {
	msg := Message{Lines: make([][]byte, len(lines))}
	for i, l := range lines {
		msg.Lines[i] = []byte(l)
	}
	return msg
}

// Panel draws Messages on a Screen.
type Panel struct {
	screen  Screen
	rows    int
	columns int
	shown   [][]byte
	valid   []bool
	line    []byte
}

// NewPanel creates a Panel for a rows x columns screen.
func NewPanel(screen Screen, rows, columns int) *Panel {
	p := &Panel{
		screen:  screen,
		rows:    rows,
		columns: columns,
		shown:   make([][]byte, rows),
		valid:   make([]bool, rows),
		// Preallocated so a redraw does not allocate.
		line: make([]byte, columns),
	}
	for i := range p.shown {
		p.shown[i] = make([]byte, columns)
	}
	return p
}

// Show draws every row of msg. Rows missing from msg are blanked and text
// past the last column is dropped. It returns the first cursor error; the
// other rows are still drawn.
func (p *Panel) Show(msg Message) error {
	var first error
	for row := 0; row < p.rows; row++ {
		var text []byte
		if row < len(msg.Lines) {
			text = msg.Lines[row]
		}
		if err := p.SetLine(row, text); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetLine draws text on row, padded with spaces to the full width, and parks
// the cursor past the end of the last row. Nothing is sent when the row
// already shows text.
func (p *Panel) SetLine(row int, text []byte) error {
	if len(text) > p.columns {
		text = text[:p.columns]
	}
	n := copy(p.line, text)
	for i := n; i < p.columns; i++ {
		p.line[i] = ' '
	}

	if row >= 0 && row < p.rows && p.valid[row] && string(p.shown[row]) == string(p.line) {
		return nil
	}

	if err := p.screen.SetCursorPosition(uint8(row), 0); err != nil {
		return err
	}
	p.screen.WriteBytes(p.line)
	if row < p.rows {
		copy(p.shown[row], p.line)
		p.valid[row] = true
	}
	return p.screen.SetCursorPosition(uint8(p.rows-1), uint8(p.columns))
}

// Invalidate makes the next Show or SetLine redraw every row, for use after
// the display was cleared or power cycled.
func (p *Panel) Invalidate() {
	for i := range p.valid {
		p.valid[i] = false
	}
}

// Rows returns the screen height.
func (p *Panel) Rows() int { return p.rows }

// Columns returns the screen width.
func (p *Panel) Columns() int { return p.columns }
