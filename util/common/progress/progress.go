// Package progress reports the stages of a publish run to the user.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/octandevelopment/mvnpub/util/common"
)

// Reporter receives the stages of a run. Start opens a run, Step begins a
// stage and Success or Error closes it.
type Reporter interface {
	Start(message string)
	Step(message string)
	Error(message string)
	Success(message string)
	End()
}

// lineFormat renders one kind of progress line.
type lineFormat func(message string) string

type theme struct {
	start, step, success, failure lineFormat
	elapsed                       func(d time.Duration) string
}

var plainTheme = theme{
	start:   func(m string) string { return "==> " + m },
	step:    func(m string) string { return "  - " + m + "..." },
	success: func(m string) string { return "  ok " + m },
	failure: func(m string) string { return "  failed: " + m },
	elapsed: func(d time.Duration) string { return " (" + common.GetDuration(d) + ")" },
}

// LineReporter writes one line per event and appends the duration of the
// current step to its outcome.
type LineReporter struct {
	mu        sync.Mutex
	out       io.Writer
	theme     theme
	stepStart time.Time
	now       func() time.Time
}

// NewWriterReporter reports plain lines to w, for logs and pipes.
func NewWriterReporter(w io.Writer) *LineReporter {
	return &LineReporter{out: w, theme: plainTheme, now: time.Now}
}

func (r *LineReporter) println(line string) {
	fmt.Fprintln(r.out, line)
}

func (r *LineReporter) Start(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.println(r.theme.start(message))
}

func (r *LineReporter) Step(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stepStart = r.now()
	r.println(r.theme.step(message))
}

func (r *LineReporter) Success(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.println(r.theme.success(message) + r.stepElapsed())
}

func (r *LineReporter) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.println(r.theme.failure(message) + r.stepElapsed())
}

func (r *LineReporter) End() {}

func (r *LineReporter) stepElapsed() string {
	if r.stepStart.IsZero() {
		return ""
	}
	d := r.now().Sub(r.stepStart)
	r.stepStart = time.Time{}
	return r.theme.elapsed(d)
}

// NopReporter discards every event.
type NopReporter struct{}

func NewNopReporter() *NopReporter {
	return &NopReporter{}
}

func (r *NopReporter) Start(message string)   {}
func (r *NopReporter) Step(message string)    {}
func (r *NopReporter) Error(message string)   {}
func (r *NopReporter) Success(message string) {}
func (r *NopReporter) End()                   {}
