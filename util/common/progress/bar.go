package progress

import (
	"fmt"
	"io"

	"github.com/octandevelopment/mvnpub/util/common"
	"github.com/pterm/pterm"
)

// countingWriter advances a bar by the bytes passing through a TeeReader.
type countingWriter struct {
	bar *pterm.ProgressbarPrinter
}

func (w countingWriter) Write(p []byte) (int, error) {
	w.bar.Add(len(p))
	return len(p), nil
}

// Reader draws an upload bar for one file while reader is consumed. The
// bar is titled with the file name and size and disappears when stop is
// called. If the bar cannot start the reader is returned unwrapped.
func Reader(size int64, reader io.Reader, name string) (r io.Reader, stop func()) {
	bar := pterm.DefaultProgressbar.
		WithTitle(fmt.Sprintf("%s (%s)", name, common.GetSize(size))).
		WithRemoveWhenDone(true).
		WithShowCount(false)
	if size > 0 {
		bar = bar.WithTotal(int(size))
	}

	started, err := bar.Start()
	if err != nil {
		return reader, func() {}
	}
	return io.TeeReader(reader, countingWriter{started}), func() { _, _ = started.Stop() }
}
