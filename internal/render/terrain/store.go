package terrain

type EventKind uint8

const (
	ChunkLoaded EventKind = iota + 1
	ChunkUnloaded
	// ChunkModified is emitted when a block of a loaded chunk changes.
	ChunkModified
)

func (k EventKind) String() string {
	switch k {
	case ChunkLoaded:
		return "loaded"
	case ChunkUnloaded:
		return "unloaded"
	case ChunkModified:
		return "modified"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind EventKind
	Pos  ChunkPos
	// Local is the changed block for ChunkModified.
	Local LocalPos
}

// Store is the terrain the renderer queries. Returned chunks are immutable.
type Store interface {
	Chunk(pos ChunkPos) (*Chunk, bool)
	HasChunk(pos ChunkPos) bool
	// DrainEvents returns the events queued since the previous call, in
	// arrival order.
	DrainEvents() []Event
}
