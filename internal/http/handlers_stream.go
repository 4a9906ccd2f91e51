package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/taskspring/taskspring-api/internal/push"
)

// StreamHandlers provides the SSE endpoint that streams job state changes to
// the owning user.
type StreamHandlers struct {
	Hub    *push.Hub
	Logger *slog.Logger
}

// Events subscribes the caller to their job event stream. The connection is
// held open until the client disconnects.
func (h *StreamHandlers) Events(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeMissingIdentity(w)
		return
	}

	client, err := push.NewSSEClient(w)
	if err != nil {
		if errors.Is(err, push.ErrStreamingUnsupported) {
			WriteError(w, ErrorParams{
				Code:    http.StatusInternalServerError,
				ErrCode: "streaming_unsupported",
				Err:     errors.New("response writer does not support streaming"),
			})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "stream_failed", Err: err})
		return
	}

	if err := h.Hub.AddClient(identity.UserID, client); err != nil {
		h.logger().Debug("sse subscribe failed", "owner_id", identity.UserID, "error", err)
		return
	}

	h.logger().Debug("sse client connected", "owner_id", identity.UserID)

	select {
	case <-r.Context().Done():
	case <-client.Done():
	}

	h.Hub.RemoveClient(identity.UserID, client)
	h.logger().Debug("sse client disconnected", "owner_id", identity.UserID)
}

func (h *StreamHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
