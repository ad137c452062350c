package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"

	"voxelview.ai/internal/observerproto"
	"voxelview.ai/internal/render/terrain"
	"voxelview.ai/internal/render/world"
)

func testBootstrap() observerproto.BootstrapResponse {
	return observerproto.BootstrapResponse{RunID: "run-1", Frame: 3, ViewerParams: observerproto.ViewerParams{ChunkSize: terrain.ChunkSize}}
}

func sampleFrame(frame uint64) observerproto.FrameMsg {
	st := world.FrameStats{Frame: frame, ChunksVisited: 12, DrawList: 2, GroupsInView: 1, Groups: 2, PrepareTime: 1500 * time.Microsecond}
	draw := []world.DrawGroup{{Pos: terrain.GroupPos{X: 1}, InFrustum: true}, {Pos: terrain.GroupPos{Y: -1}}}
	return FrameFromStats("run-1", [3]float32{1, 2, 3}, st, draw)
}

func dial(t *testing.T, srv *httptest.Server, sub observerproto.SubscribeMsg) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	return conn
}

func waitSessions(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Sessions() != n {
		if time.Now().After(deadline) {
			t.Fatalf("sessions = %d want %d", s.Sessions(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestServer(s *Server) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/observer/ws", s.WSHandler())
	mux.HandleFunc("/observer/bootstrap", s.BootstrapHandler())
	return httptest.NewServer(mux)
}

func TestSubscribeAndReceiveFrames(t *testing.T) {
	s := NewServer(testBootstrap, nil, nil)
	srv := newTestServer(s)
	defer srv.Close()

	withDraw := dial(t, srv, observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, DrawList: true})
	defer withDraw.Close()
	everyOther := dial(t, srv, observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, EveryN: 2})
	defer everyOther.Close()
	waitSessions(t, s, 2)

	for f := uint64(1); f <= 2; f++ {
		if !s.Publish(sampleFrame(f)) {
			t.Fatalf("publish throttled without limiter")
		}
	}

	_ = withDraw.SetReadDeadline(time.Now().Add(2 * time.Second))
	for want := uint64(1); want <= 2; want++ {
		var got observerproto.FrameMsg
		if err := withDraw.ReadJSON(&got); err != nil {
			t.Fatalf("read: %v", err)
		}
		if got.Frame != want || len(got.DrawGroups) != 2 || !got.DrawGroups[0].InFrustum || got.PrepareMs != 1.5 {
			t.Fatalf("frame %d: %+v", want, got)
		}
	}

	_ = everyOther.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got observerproto.FrameMsg
	if err := everyOther.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Frame != 2 || got.DrawGroups != nil {
		t.Fatalf("every_n=2 session got %+v", got)
	}
}

func TestBadSubscribeCloses(t *testing.T) {
	s := NewServer(testBootstrap, nil, nil)
	srv := newTestServer(s)
	defer srv.Close()

	conn := dial(t, srv, observerproto.SubscribeMsg{Type: "HELLO", ProtocolVersion: observerproto.Version})
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy close, got %v", err)
	}
	if s.Sessions() != 0 {
		t.Fatalf("rejected client registered")
	}
}

func TestPublishRateLimited(t *testing.T) {
	s := NewServer(testBootstrap, rate.NewLimiter(rate.Every(time.Hour), 2), nil)
	for f := uint64(1); f <= 5; f++ {
		s.Publish(sampleFrame(f))
	}
	st := s.Stats()
	if st.Published != 2 || st.Throttled != 3 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestBootstrapLoopbackOnly(t *testing.T) {
	s := NewServer(testBootstrap, nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/observer/bootstrap", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote bootstrap code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/observer/bootstrap", nil)
	req.RemoteAddr = "[::1]:5555"
	s.BootstrapHandler()(rec, req)
	var resp observerproto.BootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ProtocolVersion != observerproto.Version || resp.RunID != "run-1" || resp.ViewerParams.ChunkSize != terrain.ChunkSize {
		t.Fatalf("bootstrap = %+v", resp)
	}
}

func TestMessagesMatchSchemas(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		s, err := jsonschema.Compile(filepath.Join("..", "..", "..", "schemas", name))
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		b, _ := json.Marshal(v)
		var doc any
		_ = json.Unmarshal(b, &doc)
		if err := s.Validate(doc); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}

	frame := compile("frame.schema.json")
	validate(frame, sampleFrame(7))
	slim := sampleFrame(8)
	slim.DrawGroups = nil
	validate(frame, slim)

	validate(compile("subscribe.schema.json"), observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, EveryN: 3})
}
