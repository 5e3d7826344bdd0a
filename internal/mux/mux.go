// Package mux fans the output of many concurrent workers into one
// line-tagged aggregate stream. Lines from different workers (or from the
// two channels of one worker) may interleave arbitrarily, but every line
// is written as a single atomic unit — never split, never merged.
package mux

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Channel tags for per-worker lines.
const (
	TagOut = "OUT" // worker stdout
	TagErr = "ERR" // worker stderr
	TagSys = "SYS" // orchestrator lifecycle lines
)

// Sink is the shared aggregate output. Worker lines go to Out;
// orchestrator-level failures go to Err. A single mutex guarantees
// line atomicity across all writers.
type Sink struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer
}

// NewSink creates a Sink writing worker lines to out and [ERROR] lines to err.
func NewSink(out, err io.Writer) *Sink {
	return &Sink{out: out, err: err}
}

// Line writes one tagged worker line: [<device>][<tag>] <text>.
func (s *Sink) Line(device, tag, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "[%s][%s] %s\n", device, tag, text)
}

// Errorf writes one orchestrator-level failure line: [ERROR] <message>.
func (s *Sink) Errorf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.err, "[ERROR] "+format+"\n", args...)
}

// Pipe reads r line by line until EOF, writing each complete line to the
// sink tagged with the device and channel. Undecodable byte sequences are
// replaced with U+FFFD rather than aborting the read. A final line without
// a trailing newline is still emitted.
func Pipe(r io.Reader, sink *Sink, device, tag string) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			text := strings.TrimRight(line, "\r\n")
			sink.Line(device, tag, strings.ToValidUTF8(text, "�"))
		}
		if err != nil {
			// EOF, or the pipe was torn down under us; either way
			// this channel is drained.
			return
		}
	}
}
