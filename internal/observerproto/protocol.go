package observerproto

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeFrame     = "FRAME"
)

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// EveryN forwards one frame in N. 0 and 1 forward every frame the
	// server publishes.
	EveryN int `json:"every_n,omitempty"`
	// DrawList asks for the per-group draw list on each frame.
	DrawList bool `json:"draw_list,omitempty"`
}

// HTTP response for GET /observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string       `json:"protocol_version"`
	RunID           string       `json:"run_id"`
	Frame           uint64       `json:"frame"`
	ViewerParams    ViewerParams `json:"viewer_params"`
}

type ViewerParams struct {
	ChunkSize       int    `json:"chunk_size"`
	RenderGroupSize int    `json:"render_group_size"`
	RegionGrid      [3]int `json:"region_grid"`
	RegionSize      [3]int `json:"region_size"`
	RenderDistance  int    `json:"render_distance"`
	Mesher          string `json:"mesher"`
	Seed            int64  `json:"seed"`
}

// Server -> Client. Sent for published frames.
type FrameMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	RunID           string     `json:"run_id"`
	Frame           uint64     `json:"frame"`
	Camera          [3]float32 `json:"camera"`

	ChunksVisited int     `json:"chunks_visited"`
	DrawList      int     `json:"draw_list"`
	GroupsInView  int     `json:"groups_in_view"`
	Groups        int     `json:"groups"`
	JobsInFlight  int     `json:"jobs_in_flight"`
	MeshesDrained int     `json:"meshes_drained"`
	Draws         int     `json:"draws"`
	Indices       int     `json:"indices"`
	PrepareMs     float64 `json:"prepare_ms"`

	DrawGroups []DrawGroup `json:"draw_groups,omitempty"`
}

type DrawGroup struct {
	Pos       [3]int `json:"pos"`
	InFrustum bool   `json:"in_frustum"`
}
