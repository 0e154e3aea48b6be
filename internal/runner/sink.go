package runner

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Stream identifies which pipe a line was read from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one line of subprocess output without its trailing newline.
type Line struct {
	Stream Stream
	Text   string
	Time   time.Time
}

// Sink receives output lines. Runner calls Line from one goroutine at a time.
type Sink interface {
	Line(Line)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Line)

func (f SinkFunc) Line(l Line) { f(l) }

// Discard drops every line.
var Discard Sink = SinkFunc(func(Line) {})

// WriterSink writes stdout lines to Out and stderr lines to Err, passing each
// through Mask first when set.
type WriterSink struct {
	Out  io.Writer
	Err  io.Writer
	Mask func(string) string
}

func (w WriterSink) Line(l Line) {
	text := l.Text
	if w.Mask != nil {
		text = w.Mask(text)
	}
	dst := w.Out
	if l.Stream == Stderr && w.Err != nil {
		dst = w.Err
	}
	if dst != nil {
		_, _ = fmt.Fprintln(dst, text)
	}
}

// Recorder keeps every line in arrival order. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	lines []Line
}

func (r *Recorder) Line(l Line) {
	r.mu.Lock()
	r.lines = append(r.lines, l)
	r.mu.Unlock()
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Line(nil), r.lines...)
}

// Texts returns the recorded lines of one stream.
func (r *Recorder) Texts(stream Stream) []string {
	var out []string
	for _, l := range r.Lines() {
		if l.Stream == stream {
			out = append(out, l.Text)
		}
	}
	return out
}

// Tee fans a line out to several sinks in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(l Line) {
		for _, s := range sinks {
			if s != nil {
				s.Line(l)
			}
		}
	})
}
