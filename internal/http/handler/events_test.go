package handler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jaekwang-park/todo-local/internal/http/handler"
	"github.com/jaekwang-park/todo-local/internal/model"
)

type sseFrame struct {
	event string
	data  map[string]json.RawMessage
}

// readFrame reads one event frame, skipping keep-alive comments.
func readFrame(t *testing.T, sc *bufio.Scanner) sseFrame {
	t.Helper()
	var f sseFrame
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if f.event != "" {
				return f
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			f.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &f.data); err != nil {
				t.Fatalf("bad data line %q: %v", line, err)
			}
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return f
}

func TestEventsHandler_Stream(t *testing.T) {
	ctl := newController(t, seeded(model.Todo{ID: 1, Title: "A", CreatedAt: now}))
	srv := httptest.NewServer(handler.NewEventsHandler(ctl))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected Content-Type text/event-stream, got %s", ct)
	}

	sc := bufio.NewScanner(resp.Body)

	reset := readFrame(t, sc)
	if reset.event != "reset" {
		t.Fatalf("expected first event reset, got %s", reset.event)
	}
	var items []model.Todo
	if err := json.Unmarshal(reset.data["items"], &items); err != nil {
		t.Fatalf("decode reset items: %v", err)
	}
	if len(items) != 1 || items[0].Title != "A" {
		t.Errorf("unexpected reset items: %+v", items)
	}

	if _, err := ctl.Add(context.Background(), "B"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var kinds []string
	for len(kinds) < 3 {
		kinds = append(kinds, readFrame(t, sc).event)
	}
	want := []string{"busy_changed", "insert", "busy_changed"}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, kinds)
		}
	}
}

func TestEventsHandler_MethodNotAllowed(t *testing.T) {
	h := handler.NewEventsHandler(newController(t, seeded()))

	w := do(h, http.MethodPost, "/api/v1/events", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}
