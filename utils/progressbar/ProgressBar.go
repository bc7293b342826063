// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar prints a textual progress bar. Updates are synchronous:
// each Increment call redraws the bar in place, so the bar is suitable
// for loops whose iterations are long relative to the cost of a
// redraw, such as sequences of linear-program solves.
type ProgressBar struct {
	out io.Writer

	// width is the number of characters between the bar's delimiters.
	width int

	// max is the number of Increment calls that bring the bar to 100%.
	max int

	current int
	started time.Time
	closed  bool
}

// New returns a progress bar that is width characters wide and reaches
// 100% after max Increment calls, drawing to out.
func New(out io.Writer, width, max int) *ProgressBar {
	return &ProgressBar{
		out:     out,
		width:   width,
		max:     max,
		started: time.Now(),
	}
}

// Increment advances the bar by one step and redraws it.
func (p *ProgressBar) Increment() {
	if p.closed || p.current >= p.max {
		return
	}
	p.current++
	p.draw()
}

// Close finishes the bar, jumping to the next terminal line. Further
// Increment calls are ignored.
func (p *ProgressBar) Close() {
	if p.closed {
		return
	}
	p.closed = true
	fmt.Fprintln(p.out)
}

func (p *ProgressBar) draw() {
	filled := p.current * p.width / p.max

	var bar strings.Builder
	bar.WriteString("|")
	bar.WriteString(strings.Repeat("█", filled))
	bar.WriteString(strings.Repeat(" ", p.width-filled))
	bar.WriteString(fmt.Sprintf("| [%.2f%% | elapsed: %v]",
		float64(p.current)/float64(p.max)*100,
		time.Since(p.started).Round(time.Second)))

	fmt.Fprintf(p.out, "\r\033[K%v", bar.String())
}
