package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/taskspring/taskspring-api/internal/domain/auth"
	"github.com/taskspring/taskspring-api/internal/push"
)

// flushRecorder records SSE frames as they are flushed.
type flushRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func newFlushRecorder() *flushRecorder {
	return &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
}

func (f *flushRecorder) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ResponseRecorder.Write(b)
}

func (f *flushRecorder) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ResponseRecorder.Body.String()
}

func newStreamFixture(t *testing.T) (*push.Hub, *StreamHandlers) {
	t.Helper()
	hub := push.NewHub(push.HubOptions{Logger: slog.New(slog.DiscardHandler)})
	return hub, &StreamHandlers{Hub: hub, Logger: slog.New(slog.DiscardHandler)}
}

func identityRequest(ctx context.Context, userID string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/jobs/events", nil)
	ctx = SetIdentityInContext(ctx, domainauth.Identity{UserID: userID})
	return r.WithContext(ctx)
}

func TestStreamEvents_DeliversHubMessages(t *testing.T) {
	hub, handler := newStreamFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	w := newFlushRecorder()

	done := make(chan struct{})
	go func() {
		handler.Events(w, identityRequest(ctx, "u1"))
		close(done)
	}()

	require.Eventually(t, func() bool {
		return hub.ClientCount("u1") == 1
	}, time.Second, time.Millisecond)

	hub.Send("u1", map[string]string{"type": "job", "job_id": "j1"})
	hub.Send("other-owner", map[string]string{"type": "job", "job_id": "j2"})

	require.Eventually(t, func() bool {
		return strings.Contains(w.body(), `"job_id":"j1"`)
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after context cancel")
	}

	body := w.body()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, `data: {"type":"connected"}`)
	assert.NotContains(t, body, "j2")
	assert.Equal(t, 0, hub.ClientCount("u1"))
}

func TestStreamEvents_Unauthenticated(t *testing.T) {
	_, handler := newStreamFixture(t)

	w := httptest.NewRecorder()
	handler.Events(w, httptest.NewRequest(http.MethodGet, "/api/jobs/events", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// noStreamWriter implements http.ResponseWriter without http.Flusher.
type noStreamWriter struct {
	header http.Header
	code   int
	body   []byte
}

func (w *noStreamWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *noStreamWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return len(b), nil
}

func (w *noStreamWriter) WriteHeader(code int) { w.code = code }

func TestStreamEvents_StreamingUnsupported(t *testing.T) {
	_, handler := newStreamFixture(t)

	w := &noStreamWriter{}
	handler.Events(w, identityRequest(context.Background(), "u1"))

	assert.Equal(t, http.StatusInternalServerError, w.code)
	assert.Contains(t, string(w.body), "streaming_unsupported")
}
