package terrain

// Face is one of the six axis-aligned directions.
type Face uint8

const (
	FacePosX Face = iota
	FacePosY
	FacePosZ
	FaceNegX
	FaceNegY
	FaceNegZ

	FaceCount = 6
)

var faceNames = [FaceCount]string{"+x", "+y", "+z", "-x", "-y", "-z"}

var faceOffsets = [FaceCount]Vec3i{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
	{-1, 0, 0},
	{0, -1, 0},
	{0, 0, -1},
}

// AllFaces lists every face in index order.
var AllFaces = [FaceCount]Face{FacePosX, FacePosY, FacePosZ, FaceNegX, FaceNegY, FaceNegZ}

func (f Face) Opposite() Face { return (f + 3) % FaceCount }
func (f Face) Offset() Vec3i  { return faceOffsets[f] }
func (f Face) Negative() bool { return f >= FaceNegX }

// Axis returns 0, 1 or 2 for x, y or z.
func (f Face) Axis() int { return int(f % 3) }

func (f Face) String() string {
	if int(f) < FaceCount {
		return faceNames[f]
	}
	return "?"
}
