package mesh

import "voxelview.ai/internal/render/terrain"

// Culled skips hidden faces but emits one quad per visible block face.
// Meshing is fast, the result is large.
func Culled(in *Input) MeshData {
	var out MeshData
	for _, f := range terrain.AllFaces {
		culledFaces(&out, in, f)
	}
	return out
}

func culledFaces(dst *MeshData, in *Input, f terrain.Face) {
	axis := f.Axis()
	opp := f.Opposite()

	var visible [n2]bool
	in.initialVisibility(f, &visible)

	for v := 0; v < n; v++ {
		for u := 0; u < n; u++ {
			vis := visible[v*n+u]
			for layer := 0; layer < n; layer++ {
				w := layerDepth(f, layer)
				id := in.block(axis, u, v, w)
				if vis && id.HasFace(f) {
					addQuad(dst, f, cellOrigin(in, axis, u, v, w), 1, 1, id.Texture(f))
				}
				vis = !id.HasFace(opp)
			}
		}
	}
}
