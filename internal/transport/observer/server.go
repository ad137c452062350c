package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"voxelview.ai/internal/observerproto"
	"voxelview.ai/internal/render/world"
)

// Server streams frame summaries to loopback observers over websockets.
// Publish is called from the frame loop and never blocks on a slow client.
type Server struct {
	log       *log.Logger
	bootstrap func() observerproto.BootstrapResponse
	limiter   *rate.Limiter

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu       sync.Mutex
	sessions map[string]*session

	published atomic.Int64
	throttled atomic.Int64
	dropped   atomic.Int64
}

type session struct {
	id  string
	out chan []byte

	everyN   int
	drawList bool
	seen     int
}

// NewServer builds a server. limiter caps the rate of published frames; nil
// publishes every frame.
func NewServer(bootstrap func() observerproto.BootstrapResponse, limiter *rate.Limiter, logger *log.Logger) *Server {
	return &Server{
		log:       logger,
		bootstrap: bootstrap,
		limiter:   limiter,
		sessions:  make(map[string]*session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only anyway
		},
	}
}

// FrameFromStats builds the wire message for one rendered frame.
func FrameFromStats(runID string, camera [3]float32, st world.FrameStats, draw []world.DrawGroup) observerproto.FrameMsg {
	msg := observerproto.FrameMsg{
		Type:            observerproto.TypeFrame,
		ProtocolVersion: observerproto.Version,
		RunID:           runID,
		Frame:           st.Frame,
		Camera:          camera,
		ChunksVisited:   st.ChunksVisited,
		DrawList:        st.DrawList,
		GroupsInView:    st.GroupsInView,
		Groups:          st.Groups,
		JobsInFlight:    st.JobsInFlight,
		MeshesDrained:   st.MeshesDrained,
		Draws:           st.Device.Draws,
		Indices:         st.Device.Indices,
		PrepareMs:       float64(st.PrepareTime.Microseconds()) / 1000,
	}
	if len(draw) > 0 {
		msg.DrawGroups = make([]observerproto.DrawGroup, len(draw))
		for i, d := range draw {
			msg.DrawGroups[i] = observerproto.DrawGroup{Pos: [3]int{d.Pos.X, d.Pos.Y, d.Pos.Z}, InFrustum: d.InFrustum}
		}
	}
	return msg
}

// Publish fans msg out to every session. It returns false when the frame was
// throttled by the limiter.
func (s *Server) Publish(msg observerproto.FrameMsg) bool {
	if s.limiter != nil && !s.limiter.Allow() {
		s.throttled.Add(1)
		return false
	}
	s.published.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) == 0 {
		return true
	}
	var full, slim []byte
	for _, sess := range s.sessions {
		sess.seen++
		if sess.everyN > 1 && sess.seen%sess.everyN != 0 {
			continue
		}
		var b []byte
		if sess.drawList {
			if full == nil {
				full, _ = json.Marshal(msg)
			}
			b = full
		} else {
			if slim == nil {
				m := msg
				m.DrawGroups = nil
				slim, _ = json.Marshal(m)
			}
			b = slim
		}
		select {
		case sess.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
	return true
}

func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type Stats struct {
	Sessions  int   `json:"sessions"`
	Published int64 `json:"published"`
	Throttled int64 `json:"throttled"`
	Dropped   int64 `json:"dropped"`
}

func (s *Server) Stats() Stats {
	return Stats{
		Sessions:  s.Sessions(),
		Published: s.published.Load(),
		Throttled: s.throttled.Load(),
		Dropped:   s.dropped.Load(),
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := s.bootstrap()
		resp.ProtocolVersion = observerproto.Version
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := parseSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sess := &session{
			id:  fmt.Sprintf("O%d", s.nextID.Add(1)),
			out: make(chan []byte, 16),
		}
		applySubscribe(sess, sub)
		s.mu.Lock()
		s.sessions[sess.id] = sess
		s.mu.Unlock()
		if s.log != nil {
			s.log.Printf("observer %s connected from %s", sess.id, r.RemoteAddr)
		}
		defer func() {
			s.mu.Lock()
			delete(s.sessions, sess.id)
			s.mu.Unlock()
			if s.log != nil {
				s.log.Printf("observer %s disconnected", sess.id)
			}
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if sub, ok := parseSubscribe(msg); ok {
				s.mu.Lock()
				applySubscribe(sess, sub)
				s.mu.Unlock()
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func parseSubscribe(b []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(b, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	return sub, true
}

func applySubscribe(sess *session, sub observerproto.SubscribeMsg) {
	n := sub.EveryN
	if n < 1 {
		n = 1
	}
	if n > 1000 {
		n = 1000
	}
	sess.everyN = n
	sess.drawList = sub.DrawList
	sess.seen = 0
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
