package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"voxelview.ai/internal/render/terrain/store"
	"voxelview.ai/internal/transport/observer"
)

func startHTTP(addr, runID string, latest *latestFrame, obs *observer.Server, mem *store.MemStore, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, runID, latest, obs, mem)
	})
	mux.HandleFunc("/debug/frame", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(latest.get())
	})
	mux.HandleFunc("/observer/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/observer/ws", obs.WSHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Printf("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("ListenAndServe: %v", err)
		}
	}()
	return srv
}

func writeMetrics(rw io.Writer, runID string, latest *latestFrame, obs *observer.Server, mem *store.MemStore) {
	st := latest.get()
	gauge := func(name, help string, v any) {
		fmt.Fprintf(rw, "# HELP %s %s\n", name, help)
		fmt.Fprintf(rw, "# TYPE %s gauge\n", name)
		fmt.Fprintf(rw, "%s{run=%q} %v\n", name, runID, v)
	}
	// Minimal Prometheus exposition format.
	gauge("voxelview_frame", "Last rendered frame.", st.Frame)
	gauge("voxelview_loaded_chunks", "Chunks resident in the terrain store.", mem.Len())
	gauge("voxelview_chunks_visited", "Chunks reached by the visibility search last frame.", st.ChunksVisited)
	gauge("voxelview_draw_list", "Groups in the last draw list.", st.DrawList)
	gauge("voxelview_groups_in_view", "Groups drawn last frame.", st.GroupsInView)
	gauge("voxelview_groups", "Render groups alive.", st.Groups)
	gauge("voxelview_jobs_in_flight", "Mesh jobs tracked by the scheduler.", st.JobsInFlight)
	gauge("voxelview_resident_indices", "Indices uploaded across all group buffers.", st.Device.ResidentIndices)
	gauge("voxelview_prepare_ms", "Last prepare duration in milliseconds.", fmt.Sprintf("%.3f", float64(st.PrepareTime.Microseconds())/1000))

	fmt.Fprintf(rw, "# HELP voxelview_mesh_jobs Mesh jobs submitted last frame by class.\n")
	fmt.Fprintf(rw, "# TYPE voxelview_mesh_jobs gauge\n")
	fmt.Fprintf(rw, "voxelview_mesh_jobs{run=%q,class=%q} %d\n", runID, "generation", st.Scheduler.Generation)
	fmt.Fprintf(rw, "voxelview_mesh_jobs{run=%q,class=%q} %d\n", runID, "optimization", st.Scheduler.Optimization)

	if obs != nil {
		ost := obs.Stats()
		gauge("voxelview_observer_sessions", "Connected observers.", ost.Sessions)
		gauge("voxelview_observer_throttled", "Frames skipped by the observer rate limit.", ost.Throttled)
		gauge("voxelview_observer_dropped", "Frames dropped for slow observers.", ost.Dropped)
	}
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
