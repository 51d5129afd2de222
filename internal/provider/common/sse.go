package common

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

var errIdleTimeout = fmt.Errorf("SSE read idle timeout")

// TimedReader wraps an io.Reader and fails a Read that blocks longer than
// timeout, so a stalled upstream connection doesn't hang a streaming call
// forever. Grounded on the teacher's openai/sse.go timedReader.
type TimedReader struct {
	R       io.Reader
	Timeout time.Duration
}

func (t *TimedReader) Read(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := t.R.Read(p)
		ch <- result{n, err}
	}()

	select {
	case res := <-ch:
		return res.n, res.err
	case <-time.After(t.Timeout):
		return 0, errIdleTimeout
	}
}

// IsIdleTimeoutErr reports whether err is TimedReader's idle-timeout sentinel.
func IsIdleTimeoutErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SSE read idle timeout")
}

// NewSSEScanner returns a bufio.Scanner over an idle-timeout-guarded
// reader, sized for typical chat-completion SSE lines.
func NewSSEScanner(r io.Reader, idleTimeout time.Duration) *bufio.Scanner {
	tr := &TimedReader{R: r, Timeout: idleTimeout}
	scanner := bufio.NewScanner(tr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
