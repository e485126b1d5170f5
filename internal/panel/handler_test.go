package panel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/multi-agent/reasonspace/internal/config"
	"github.com/multi-agent/reasonspace/internal/stream"
	"github.com/multi-agent/reasonspace/internal/workspace"
)

func init() { gin.SetMode(gin.TestMode) }

// doneStreamer 立即回放一条 done 帧。
type doneStreamer struct{ block chan struct{} }

func (d *doneStreamer) Stream(ctx context.Context, _ stream.SendRequest, handler stream.FrameHandler) error {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	raw, _ := json.Marshal(stream.DoneData{MessageID: "m-1"})
	handler(stream.Frame{Type: stream.FrameContentDelta, Data: []byte(`{"delta":"ok"}`)})
	handler(stream.Frame{Type: stream.FrameDone, Data: raw})
	return nil
}

func newTestServer(st stream.Streamer) *Server {
	cfg := &config.Config{
		FirstTokenTimeoutSec:   2,
		StreamTimeoutSec:       5,
		SectionRecentWindowSec: 5,
		SectionStaleWindowSec:  60,
		BriefPollIntervalSec:   1,
		BriefPollStableTicks:   3,
		BriefPollMaxFailures:   3,
	}
	bus := NewEventBus()
	hub := workspace.NewHub(cfg, st, nil, nil, bus)
	return NewServer(cfg, hub, bus, nil, nil, nil)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestSendEndpoint(t *testing.T) {
	s := newTestServer(&doneStreamer{})

	w := doJSON(t, s, http.MethodPost, "/api/threads/T/send", `{"content":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "sessionId") {
		t.Fatalf("body missing sessionId: %s", w.Body.String())
	}
}

func TestSendMissingContent(t *testing.T) {
	s := newTestServer(&doneStreamer{})
	w := doJSON(t, s, http.MethodPost, "/api/threads/T/send", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSendBusyConflict(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	s := newTestServer(&doneStreamer{block: block})

	if w := doJSON(t, s, http.MethodPost, "/api/threads/T/send", `{"content":"a"}`); w.Code != http.StatusOK {
		t.Fatalf("first send status = %d", w.Code)
	}
	w := doJSON(t, s, http.MethodPost, "/api/threads/T/send", `{"content":"b"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("second send status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestTimelineEndpoint(t *testing.T) {
	s := newTestServer(&doneStreamer{})
	doJSON(t, s, http.MethodPost, "/api/threads/T/send", `{"content":"hello"}`)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := doJSON(t, s, http.MethodGet, "/api/threads/T/timeline", "")
		if strings.Contains(w.Body.String(), `"m-1"`) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timeline never showed reconciled durable id")
}

func TestDismissUnknownCard(t *testing.T) {
	s := newTestServer(&doneStreamer{})
	w := doJSON(t, s, http.MethodPost, "/api/threads/T/cards/card-x/dismiss", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestStoreBackedRoutesWithoutStores(t *testing.T) {
	s := newTestServer(&doneStreamer{})
	for _, path := range []string{"/api/threads", "/api/briefs", "/api/messages/search"} {
		w := doJSON(t, s, http.MethodGet, path, "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s status = %d, want 404 without store", path, w.Code)
		}
	}
}

func TestEventBusDropsSlowSubscriber(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe("slow")
	defer bus.Unsubscribe("slow")

	// 填满缓冲后继续发布不得阻塞。
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish("timeline", i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on slow subscriber")
	}
	if len(ch) == 0 {
		t.Fatal("subscriber received nothing")
	}
}
