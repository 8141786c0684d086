package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jaekwang-park/todo-local/internal/model"
	"github.com/jaekwang-park/todo-local/internal/service"
)

// eventBuffer bounds how far a slow client may fall behind before its stream
// is closed. A reconnecting client starts again from a reset.
const eventBuffer = 64

type EventsHandler struct {
	svc       *service.ListController
	keepAlive time.Duration
}

func NewEventsHandler(svc *service.ListController) *EventsHandler {
	return &EventsHandler{svc: svc, keepAlive: 25 * time.Second}
}

type eventPayload struct {
	Kind    string       `json:"kind"`
	Index   *int         `json:"index,omitempty"`
	Item    *model.Todo  `json:"item,omitempty"`
	Items   []model.Todo `json:"items,omitempty"`
	IsEmpty *bool        `json:"is_empty,omitempty"`
	IsBusy  *bool        `json:"is_busy,omitempty"`
}

func newEventPayload(ev service.Event) eventPayload {
	p := eventPayload{Kind: ev.Kind.String()}
	switch ev.Kind {
	case service.EventReset:
		p.Items = ev.Items
		if p.Items == nil {
			p.Items = []model.Todo{}
		}
	case service.EventInsert, service.EventRemove, service.EventReplace:
		idx, item := ev.Index, ev.Item
		p.Index, p.Item = &idx, &item
	case service.EventEmptyChanged:
		empty := ev.Empty
		p.IsEmpty = &empty
	case service.EventBusyChanged:
		busy := ev.Busy
		p.IsBusy = &busy
	}
	return p
}

// ServeHTTP streams controller events as server-sent events. The first event
// is always a reset carrying the current list.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only GET is allowed")
		return
	}

	rc := http.NewResponseController(w)
	// The server's write timeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	events := make(chan service.Event, eventBuffer)
	lagged := make(chan struct{})
	var overflowed bool
	unsubscribe := h.svc.Subscribe(func(ev service.Event) {
		if overflowed {
			return
		}
		select {
		case events <- ev:
		default:
			overflowed = true
			close(lagged)
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := writeEvent(w, ev); err != nil {
				slog.DebugContext(r.Context(), "event stream write failed", "error", err)
				return
			}
		case <-lagged:
			slog.WarnContext(r.Context(), "event stream client fell behind, closing")
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev service.Event) error {
	data, err := json.Marshal(newEventPayload(ev))
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}
