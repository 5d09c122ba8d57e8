// Package export writes decoded assets out as interchange files: OBJ
// text for meshes, PNG for rasters, plain byte dumps for everything
// else.
package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/crowbyte/idres/pkg/formats"
	"github.com/crowbyte/idres/pkg/vec"
)

// MeshOptions control the transforms applied while writing a submesh.
// The decoder preserves the stored coordinate convention; these options
// convert it for the target tool.
type MeshOptions struct {
	RotateXNeg90  bool // map Y-up geometry to Z-up
	FlipUV        bool // invert the V coordinate
	FlipWinding   bool // reverse face orientation
	SmoothNormals bool // generate area-weighted vertex normals
}

// DefaultMeshOptions matches the conversion most DCC tools expect.
func DefaultMeshOptions() MeshOptions {
	return MeshOptions{
		RotateXNeg90:  true,
		FlipUV:        true,
		FlipWinding:   true,
		SmoothNormals: true,
	}
}

// WriteOBJ writes one submesh as an OBJ document.
func WriteOBJ(w io.Writer, sub *formats.Submesh, opts MeshOptions) error {
	bw := bufio.NewWriter(w)

	positions := make([]vec.Vec3, len(sub.Positions))
	for i, p := range sub.Positions {
		v := vec.Vec3{X: p[0], Y: p[1], Z: p[2]}
		if opts.RotateXNeg90 {
			v = v.RotateXNeg90()
		}
		positions[i] = v
	}

	uvs := make([][2]float32, len(sub.UVs))
	for i, uv := range sub.UVs {
		if opts.FlipUV {
			uv[1] = 1.0 - uv[1]
		}
		uvs[i] = uv
	}

	faces := make([][3]uint16, 0, len(sub.Indices)/3)
	for i := 0; i+2 < len(sub.Indices); i += 3 {
		f := [3]uint16{sub.Indices[i], sub.Indices[i+1], sub.Indices[i+2]}
		if opts.FlipWinding {
			f[1], f[2] = f[2], f[1]
		}
		faces = append(faces, f)
	}

	var normals []vec.Vec3
	switch {
	case opts.SmoothNormals:
		normals = smoothNormals(positions, faces)
	case sub.Normals != nil:
		normals = make([]vec.Vec3, len(sub.Normals))
		for i, n := range sub.Normals {
			v := vec.Vec3{X: n[0], Y: n[1], Z: n[2]}
			if opts.RotateXNeg90 {
				v = v.RotateXNeg90()
			}
			normals[i] = v
		}
	}

	fmt.Fprintf(bw, "# vertices: %d\n", len(positions))
	fmt.Fprintf(bw, "# faces: %d\n", len(faces))
	if sub.Material != "" {
		fmt.Fprintf(bw, "# material: %s\n", sub.Material)
	}
	fmt.Fprintln(bw)

	for _, v := range positions {
		fmt.Fprintf(bw, "v %.6f %.6f %.6f\n", v.X, v.Y, v.Z)
	}
	if normals != nil {
		fmt.Fprintln(bw)
		for _, n := range normals {
			fmt.Fprintf(bw, "vn %.6f %.6f %.6f\n", n.X, n.Y, n.Z)
		}
	}
	if len(uvs) > 0 {
		fmt.Fprintln(bw)
		for _, uv := range uvs {
			fmt.Fprintf(bw, "vt %.6f %.6f\n", uv[0], uv[1])
		}
	}
	fmt.Fprintln(bw)

	hasUV := len(uvs) > 0
	for _, f := range faces {
		a, b, c := int(f[0])+1, int(f[1])+1, int(f[2])+1
		switch {
		case hasUV && normals != nil:
			fmt.Fprintf(bw, "f %d/%d/%d %d/%d/%d %d/%d/%d\n", a, a, a, b, b, b, c, c, c)
		case hasUV:
			fmt.Fprintf(bw, "f %d/%d %d/%d %d/%d\n", a, a, b, b, c, c)
		case normals != nil:
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, a, b, b, c, c)
		default:
			fmt.Fprintf(bw, "f %d %d %d\n", a, b, c)
		}
	}

	return bw.Flush()
}

// smoothNormals accumulates area-weighted face normals per vertex and
// normalizes the sums, the way most DCC tools shade smooth.
func smoothNormals(positions []vec.Vec3, faces [][3]uint16) []vec.Vec3 {
	acc := make([]vec.Vec3, len(positions))

	for _, f := range faces {
		v0, v1, v2 := positions[f[0]], positions[f[1]], positions[f[2]]
		n := v1.Sub(v0).Cross(v2.Sub(v0))
		for _, idx := range f {
			acc[idx] = acc[idx].Add(n)
		}
	}

	for i, n := range acc {
		if n.Length() > 0 {
			acc[i] = n.Normalize()
		} else {
			acc[i] = vec.Vec3{Z: 1} // degenerate vertex, point up
		}
	}
	return acc
}
