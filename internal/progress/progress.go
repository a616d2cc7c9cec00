// Package progress draws terminal progress bars for long per-item loops.
package progress

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

// Bar counts completed items. A nil *Bar is valid and does nothing, so
// callers can disable progress by never starting one.
type Bar struct {
	bar *pb.ProgressBar
}

// Start begins a bar of total items labelled with prefix, drawn on w.
// It returns nil when w is nil.
func Start(w io.Writer, prefix string, total int) *Bar {
	if w == nil {
		return nil
	}
	bar := pb.Full.New(total)
	bar.SetWriter(w)
	bar.Set("prefix", prefix+" ")
	bar.Start()
	return &Bar{bar: bar}
}

// Increment marks one item done.
func (b *Bar) Increment() {
	if b == nil {
		return
	}
	b.bar.Increment()
}

// Current returns the number of items marked done.
func (b *Bar) Current() int64 {
	if b == nil {
		return 0
	}
	return b.bar.Current()
}

// Finish stops redrawing the bar.
func (b *Bar) Finish() {
	if b == nil {
		return
	}
	b.bar.Finish()
}
