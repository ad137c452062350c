package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxelview.ai/internal/observerproto"
)

func main() {
	var (
		url      = flag.String("url", "ws://127.0.0.1:8080/observer/ws", "observer ws url")
		everyN   = flag.Int("every", 1, "print one frame in N")
		drawList = flag.Bool("draw_list", false, "request and print the per-group draw list")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)

	if boot, err := fetchBootstrap(*url); err != nil {
		logger.Printf("bootstrap: %v", err)
	} else {
		p := boot.ViewerParams
		logger.Printf("run=%s frame=%d chunk=%d group=%d grid=%v region=%v distance=%d mesher=%s seed=%d",
			boot.RunID, boot.Frame, p.ChunkSize, p.RenderGroupSize, p.RegionGrid, p.RegionSize, p.RenderDistance, p.Mesher, p.Seed)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		EveryN:          *everyN,
		DrawList:        *drawList,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f observerproto.FrameMsg
		if err := json.Unmarshal(msg, &f); err != nil || f.Type != observerproto.TypeFrame {
			continue
		}
		logger.Printf("frame=%d cam=(%.1f,%.1f,%.1f) visited=%d draw=%d in_view=%d groups=%d jobs=%d drained=%d prepare=%.2fms",
			f.Frame, f.Camera[0], f.Camera[1], f.Camera[2], f.ChunksVisited, f.DrawList, f.GroupsInView, f.Groups, f.JobsInFlight, f.MeshesDrained, f.PrepareMs)
		for _, g := range f.DrawGroups {
			mark := " "
			if g.InFrustum {
				mark = "*"
			}
			logger.Printf("  %s group %v", mark, g.Pos)
		}
	}
}

func fetchBootstrap(wsURL string) (observerproto.BootstrapResponse, error) {
	var out observerproto.BootstrapResponse
	u := strings.Replace(wsURL, "ws://", "http://", 1)
	u = strings.Replace(u, "wss://", "https://", 1)
	u = strings.TrimSuffix(u, "/ws") + "/bootstrap"
	c := http.Client{Timeout: 5 * time.Second}
	resp, err := c.Get(u)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return out, &httpStatusError{code: resp.StatusCode}
	}
	err = json.NewDecoder(resp.Body).Decode(&out)
	return out, err
}

type httpStatusError struct{ code int }

func (e *httpStatusError) Error() string { return "bootstrap: " + http.StatusText(e.code) }
