package push

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrStreamingUnsupported indicates the response writer cannot flush, which
// SSE requires.
var ErrStreamingUnsupported = errors.New("streaming unsupported by response writer")

// ErrClientClosed is returned by Send after the client has been closed.
var ErrClientClosed = errors.New("push client is closed")

// SSEClient adapts an http.ResponseWriter into a hub Client speaking the
// Server-Sent Events wire format. Each message becomes one "data:" frame,
// flushed immediately.
type SSEClient struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewSSEClient wraps the response writer for SSE streaming and writes the
// stream headers. Returns ErrStreamingUnsupported when the writer cannot
// flush.
func NewSSEClient(w http.ResponseWriter) (*SSEClient, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &SSEClient{
		w:       w,
		flusher: flusher,
		done:    make(chan struct{}),
	}, nil
}

// Send writes one SSE data frame and flushes it to the client.
func (c *SSEClient) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", data); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// Close marks the client closed and releases Done waiters. Safe to call more
// than once.
func (c *SSEClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// Done is closed when the client is closed, letting the HTTP handler return
// and release the connection.
func (c *SSEClient) Done() <-chan struct{} {
	return c.done
}

var _ Client = (*SSEClient)(nil)
