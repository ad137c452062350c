package mesh

import "voxelview.ai/internal/render/terrain"

const (
	n  = terrain.ChunkSize
	n2 = terrain.ChunkSizeSquared
)

// Greedy skips hidden faces and merges adjacent faces with the same texture
// into rectangles. It is slower than Culled but the meshes are much smaller.
func Greedy(in *Input) MeshData {
	var out MeshData
	for _, f := range terrain.AllFaces {
		greedyFaces(&out, in, f)
	}
	return out
}

// greedyFaces emits the merged faces pointing in direction f.
//
// U and V are the tangent axes of the face (see terrain.FaceLocal). The
// chunk is walked layer by layer from the face inward and visible tracks,
// per (u, v), whether the block in the layer already walked has no face
// pointing back at the current layer.
func greedyFaces(dst *MeshData, in *Input, f terrain.Face) {
	axis := f.Axis()
	opp := f.Opposite()

	var visible [n2]bool
	in.initialVisibility(f, &visible)

	for layer := 0; layer < n; layer++ {
		w := layerDepth(f, layer)
		var merged [n2]bool

		for v := 0; v < n; v++ {
			for u := 0; u < n; u++ {
				i := v*n + u
				if merged[i] {
					continue
				}
				id := in.block(axis, u, v, w)
				wasVisible := visible[i]
				visible[i] = !id.HasFace(opp)
				if !wasVisible || !id.HasFace(f) {
					continue
				}
				tex := id.Texture(f)

				// Grow along U.
				su := 1
				for cu := u + 1; cu < n; cu++ {
					ci := v*n + cu
					cid := in.block(axis, cu, v, w)
					if !visible[ci] || !sameFace(cid, f, tex) {
						break
					}
					su++
					merged[ci] = true
					visible[ci] = !cid.HasFace(opp)
				}

				// Grow along V one full row at a time.
				sv := 1
			rows:
				for cv := v + 1; cv < n; cv++ {
					var next uint32
					for cu := u; cu < u+su; cu++ {
						ci := cv*n + cu
						cid := in.block(axis, cu, cv, w)
						if !visible[ci] || !sameFace(cid, f, tex) {
							break rows
						}
						if !cid.HasFace(opp) {
							next |= 1 << uint(cu)
						}
					}
					sv++
					for cu := u; cu < u+su; cu++ {
						ci := cv*n + cu
						merged[ci] = true
						visible[ci] = next&(1<<uint(cu)) != 0
					}
				}

				addQuad(dst, f, cellOrigin(in, axis, u, v, w), su, sv, tex)
			}
		}
	}
}

func sameFace(id terrain.BlockID, f terrain.Face, tex uint32) bool {
	return id.HasFace(f) && id.Texture(f) == tex
}
