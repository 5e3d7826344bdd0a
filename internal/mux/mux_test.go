package mux

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// syncBuffer serializes writes so the test can inspect output safely.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLine_Format(t *testing.T) {
	var out, errw bytes.Buffer
	s := NewSink(&out, &errw)
	s.Line("devA", TagOut, "hello")
	s.Line("devA", TagSys, "exit=0 duration=1.2s")

	want := "[devA][OUT] hello\n[devA][SYS] exit=0 duration=1.2s\n"
	if out.String() != want {
		t.Errorf("out = %q, want %q", out.String(), want)
	}
	if errw.Len() != 0 {
		t.Errorf("err = %q, want empty", errw.String())
	}
}

func TestErrorf_RoutesToErr(t *testing.T) {
	var out, errw bytes.Buffer
	s := NewSink(&out, &errw)
	s.Errorf("no task for device %q", "d9")

	if out.Len() != 0 {
		t.Errorf("out = %q, want empty", out.String())
	}
	if want := "[ERROR] no task for device \"d9\"\n"; errw.String() != want {
		t.Errorf("err = %q, want %q", errw.String(), want)
	}
}

func TestPipe_TagsAndOrder(t *testing.T) {
	var out, errw bytes.Buffer
	s := NewSink(&out, &errw)
	Pipe(strings.NewReader("one\ntwo\r\nthree\n"), s, "d1", TagErr)

	want := "[d1][ERR] one\n[d1][ERR] two\n[d1][ERR] three\n"
	if out.String() != want {
		t.Errorf("out = %q, want %q", out.String(), want)
	}
}

func TestPipe_UnterminatedFinalLine(t *testing.T) {
	var out, errw bytes.Buffer
	s := NewSink(&out, &errw)
	Pipe(strings.NewReader("partial"), s, "d1", TagOut)

	if want := "[d1][OUT] partial\n"; out.String() != want {
		t.Errorf("out = %q, want %q", out.String(), want)
	}
}

func TestPipe_InvalidUTF8Replaced(t *testing.T) {
	var out, errw bytes.Buffer
	s := NewSink(&out, &errw)
	Pipe(strings.NewReader("ok \xff\xfe bytes\n"), s, "d1", TagOut)

	got := out.String()
	if strings.Contains(got, "\xff") {
		t.Errorf("out = %q, invalid bytes not replaced", got)
	}
	if !strings.Contains(got, "�") {
		t.Errorf("out = %q, want replacement character", got)
	}
}

// Many goroutines writing through one sink must never split or merge lines.
func TestSink_LineAtomicity(t *testing.T) {
	out := &syncBuffer{}
	s := NewSink(out, out)

	const workers = 8
	const lines = 200

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		device := fmt.Sprintf("dev%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < lines; j++ {
				Pipe(strings.NewReader(fmt.Sprintf("stdout line %d from %s\n", j, device)), s, device, TagOut)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < lines; j++ {
				s.Line(device, TagErr, fmt.Sprintf("stderr line %d from %s", j, device))
			}
		}()
	}
	wg.Wait()

	got := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(got) != workers*lines*2 {
		t.Fatalf("got %d lines, want %d", len(got), workers*lines*2)
	}
	for _, ln := range got {
		// Every line must be exactly one well-formed tagged line naming
		// the same device in prefix and payload.
		if !strings.HasPrefix(ln, "[dev") {
			t.Fatalf("malformed line %q", ln)
		}
		end := strings.Index(ln, "]")
		device := ln[1:end]
		rest := ln[end+1:]
		if !strings.HasPrefix(rest, "[OUT] ") && !strings.HasPrefix(rest, "[ERR] ") {
			t.Fatalf("malformed tag in %q", ln)
		}
		if strings.Count(ln, " from ") != 1 {
			t.Fatalf("line %q merged with another line", ln)
		}
		if !strings.HasSuffix(ln, " from "+device) {
			t.Fatalf("line %q mixes devices (prefix %q)", ln, device)
		}
	}
}
