package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/sitetime/internal/shared"
	"github.com/ashureev/sitetime/internal/tracker"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

type fakeSink struct {
	mu        sync.Mutex
	events    []tracker.Event
	shutdowns int
	err       error
	shutdown  chan struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{shutdown: make(chan struct{}, 4)}
}

func (f *fakeSink) Handle(_ context.Context, ev tracker.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakeSink) Shutdown(context.Context) error {
	f.mu.Lock()
	f.shutdowns++
	f.mu.Unlock()
	f.shutdown <- struct{}{}
	return nil
}

func (f *fakeSink) recorded() []tracker.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tracker.Event(nil), f.events...)
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"tab activated", Message{Type: "tab_activated", TabID: 4, URL: "https://github.com"}, false},
		{"url changed", Message{Type: "url_changed", TabID: 4, URL: "https://github.com/x"}, false},
		{"focus lost", Message{Type: "focus_lost"}, false},
		{"focus gained", Message{Type: "focus_gained", TabID: 2, URL: "https://a.com"}, false},
		{"shutdown", Message{Type: "shutdown"}, false},
		{"ping", Message{Type: "ping"}, false},
		{"missing type", Message{TabID: 1}, true},
		{"unknown type", Message{Type: "scroll"}, true},
		{"checkpoint is internal", Message{Type: "checkpoint"}, true},
		{"url change without tab", Message{Type: "url_changed", URL: "https://a.com"}, true},
		{"activation without tab", Message{Type: "tab_activated", URL: "https://a.com"}, true},
		{"negative tab", Message{Type: "focus_gained", TabID: -1}, true},
		{"huge url", Message{Type: "url_changed", TabID: 1, URL: "https://a.com/" + strings.Repeat("x", 9000)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageEvent(t *testing.T) {
	msg := Message{Type: "url_changed", TabID: 7, WindowID: 2, URL: "https://go.dev", At: 1_700_000_000_000}
	ev, err := msg.Event()
	if err != nil {
		t.Fatalf("Event() error = %v", err)
	}
	if ev.Kind != tracker.URLChanged || ev.TabID != 7 || ev.WindowID != 2 || ev.URL != "https://go.dev" {
		t.Errorf("unexpected event %+v", ev)
	}
	if !ev.At.Equal(time.UnixMilli(1_700_000_000_000)) {
		t.Errorf("At = %v", ev.At)
	}

	ev, _ = Message{Type: "focus_lost"}.Event()
	if !ev.At.IsZero() {
		t.Errorf("missing timestamp must stay zero, got %v", ev.At)
	}
}

func newRouter(sink EventSink) (*Handler, http.Handler) {
	h := NewHandler(sink, nil, nil, []string{"*"})
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return h, r
}

func postEvent(t *testing.T, router http.Handler, body string) (*httptest.ResponseRecorder, Reply) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var reply Reply
	_ = json.NewDecoder(w.Body).Decode(&reply)
	return w, reply
}

func TestPostEvent(t *testing.T) {
	sink := newFakeSink()
	_, router := newRouter(sink)

	w, reply := postEvent(t, router, `{"type":"tab_activated","tabId":3,"url":"https://github.com"}`)
	if w.Code != http.StatusOK || reply.Type != "ack" {
		t.Fatalf("expected ack, got %d %+v", w.Code, reply)
	}
	if got := sink.recorded(); len(got) != 1 || got[0].Kind != tracker.TabActivated || got[0].TabID != 3 {
		t.Errorf("unexpected events %+v", got)
	}

	w, reply = postEvent(t, router, `{"type":"ping"}`)
	if w.Code != http.StatusOK || reply.Type != "pong" {
		t.Errorf("expected pong, got %d %+v", w.Code, reply)
	}
	if len(sink.recorded()) != 1 {
		t.Error("ping must not reach the tracker")
	}
}

func TestPostEventRejects(t *testing.T) {
	sink := newFakeSink()
	_, router := newRouter(sink)

	for _, body := range []string{
		`{"type":`,
		`{"type":"teleport"}`,
		`{"type":"url_changed","url":"https://a.com"}`,
	} {
		if w, _ := postEvent(t, router, body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}

	big := `{"type":"url_changed","tabId":1,"url":"` + strings.Repeat("x", maxEventBody) + `"}`
	if w, _ := postEvent(t, router, big); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
	if len(sink.recorded()) != 0 {
		t.Error("rejected events must not reach the tracker")
	}

	sink.err = errors.New("store down")
	if w, _ := postEvent(t, router, `{"type":"focus_lost"}`); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/events", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) Reply {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var reply Reply
	if err := json.Unmarshal(data, &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return reply
}

func waitShutdown(t *testing.T, sink *fakeSink) {
	t.Helper()
	select {
	case <-sink.shutdown:
	case <-time.After(5 * time.Second):
		t.Fatal("expected close-out after disconnect")
	}
}

func TestWebSocketSession(t *testing.T) {
	sink := newFakeSink()
	h, router := newRouter(sink)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dial(t, srv)

	if r := roundTrip(t, conn, `{"type":"tab_activated","tabId":1,"url":"https://github.com"}`); r.Type != "ack" {
		t.Errorf("expected ack, got %+v", r)
	}
	if r := roundTrip(t, conn, `{"type":"ping"}`); r.Type != "pong" {
		t.Errorf("expected pong, got %+v", r)
	}
	if r := roundTrip(t, conn, `not json`); r.Type != "error" || r.Error != "malformed JSON" {
		t.Errorf("expected malformed JSON error, got %+v", r)
	}
	if r := roundTrip(t, conn, `{"type":"url_changed","url":"https://a.com"}`); r.Type != "error" {
		t.Errorf("expected validation error, got %+v", r)
	}
	if h.Clients().Count() != 1 {
		t.Errorf("expected one registered client, got %d", h.Clients().Count())
	}

	_ = conn.Close(websocket.StatusNormalClosure, "")
	waitShutdown(t, sink)

	if got := sink.recorded(); len(got) != 1 || got[0].Kind != tracker.TabActivated {
		t.Errorf("unexpected events %+v", got)
	}
}

func TestWebSocketExplicitShutdown(t *testing.T) {
	sink := newFakeSink()
	_, router := newRouter(sink)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.CloseNow()

	if r := roundTrip(t, conn, `{"type":"shutdown"}`); r.Type != "ack" {
		t.Errorf("expected ack, got %+v", r)
	}

	// The server ends the session; the next read sees the close frame.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Errorf("expected normal closure, got %v", err)
	}

	got := sink.recorded()
	if len(got) != 1 || got[0].Kind != tracker.Shutdown {
		t.Errorf("expected a single shutdown event, got %+v", got)
	}
	select {
	case <-sink.shutdown:
		t.Error("explicit shutdown must not trigger a second close-out")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientManagerCloseAll(t *testing.T) {
	sink := newFakeSink()
	h, router := newRouter(sink)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.CloseNow()
	// Wait for registration.
	if r := roundTrip(t, conn, `{"type":"ping"}`); r.Type != "pong" {
		t.Fatalf("expected pong, got %+v", r)
	}

	// The close handshake needs the client to be reading.
	readErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _, err := conn.Read(ctx)
		readErr <- err
	}()

	h.Clients().CloseAll("server shutting down")
	if h.Clients().Count() != 0 {
		t.Errorf("expected no clients, got %d", h.Clients().Count())
	}

	if err := <-readErr; websocket.CloseStatus(err) != websocket.StatusGoingAway {
		t.Errorf("expected going away, got %v", err)
	}
	waitShutdown(t, sink)
}

func waitForClients(t *testing.T, h *Handler, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.Clients().Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, h.Clients().Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestReconnectKeepsSessionArmed(t *testing.T) {
	clock := shared.NewManualClock(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	var mu sync.Mutex
	var visits []time.Duration
	tr := tracker.New(tracker.RecorderFunc(func(_ context.Context, _ string, elapsed time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		visits = append(visits, elapsed)
		return nil
	}), tracker.WithClock(clock))

	h, router := newRouter(tr)
	srv := httptest.NewServer(router)
	defer srv.Close()

	stale := dial(t, srv)
	defer stale.CloseNow()
	live := dial(t, srv)
	defer live.CloseNow()
	if r := roundTrip(t, stale, `{"type":"ping"}`); r.Type != "pong" {
		t.Fatalf("expected pong, got %+v", r)
	}
	if r := roundTrip(t, live, `{"type":"tab_activated","tabId":1,"url":"https://github.com"}`); r.Type != "ack" {
		t.Fatalf("expected ack, got %+v", r)
	}

	clock.Advance(10 * time.Second)
	_ = stale.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, h, 1)

	if st := tr.Snapshot(); !st.Armed {
		t.Fatalf("dropping a second connection must not disarm the session: %+v", st)
	}

	clock.Advance(50 * time.Second)
	if r := roundTrip(t, live, `{"type":"url_changed","tabId":1,"url":"https://github.com/pulls"}`); r.Type != "ack" {
		t.Fatalf("expected ack, got %+v", r)
	}
	mu.Lock()
	got := append([]time.Duration(nil), visits...)
	mu.Unlock()
	if len(got) != 1 || got[0] != time.Minute {
		t.Errorf("expected one 60s visit, got %v", got)
	}

	// The last connection going away closes the session out.
	clock.Advance(5 * time.Second)
	_ = live.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, h, 0)
	deadline := time.Now().Add(5 * time.Second)
	for tr.Snapshot().Armed {
		if time.Now().After(deadline) {
			t.Fatal("expected close-out after the last client left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// lockedBuffer is written by server goroutines while the test reads it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestClientManagerLogsCloseErrors(t *testing.T) {
	var buf lockedBuffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	_, router := newRouter(newFakeSink())
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dial(t, srv)
	_ = conn.CloseNow()

	m := NewClientManager()
	m.Register("stale", conn)
	m.CloseAll("server shutting down")

	if m.Count() != 0 {
		t.Errorf("expected no clients, got %d", m.Count())
	}
	logs := buf.String()
	found := false
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, `"msg":"Failed to close websocket","error"`) && strings.Contains(line, `"client_id":"stale"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a debug log for the failed close, got:\n%s", logs)
	}
}
