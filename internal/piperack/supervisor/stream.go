package supervisor

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/piperack/piperack/internal/piperack/event"
)

// scanLinesKeepCR is like bufio.ScanLines but does not strip a trailing
// \r: carriage-return handling is a display concern, so the supervision
// layer must preserve it in-line.
func scanLinesKeepCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[0:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// readStream is the background task per (child, stream): it emits
// one Output event per line and, for a log-regex readiness check, fires
// Ready on the first matching line.
func (s *Supervisor) readStream(name string, attempt uint64, mp *managedProcess, stream event.Stream, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLinesKeepCR)

	for scanner.Scan() {
		line := strings.ToValidUTF8(string(scanner.Bytes()), "�")
		s.emit(event.Output{ID: name, Attempt: attempt, Line: line, Stream: stream})

		if mp.readyRegex != nil && mp.readyRegex.MatchString(line) {
			s.fireReady(name, attempt, mp)
		}
	}
}

// fireReady emits Ready at most once per attempt.
func (s *Supervisor) fireReady(name string, attempt uint64, mp *managedProcess) {
	mp.mu.Lock()
	if mp.readyFired || mp.attempt != attempt {
		mp.mu.Unlock()
		return
	}
	mp.readyFired = true
	mp.mu.Unlock()
	s.emit(event.Ready{ID: name, Attempt: attempt})
}
