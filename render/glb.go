package render

import (
	"fmt"
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/soypat/fermisurf"
	"github.com/soypat/glgl/math/ms3"
	"gonum.org/v1/gonum/spatial/r3"
)

// WriteGLB writes bands as a binary glTF scene with one node, mesh and
// material per band. Placeholder and empty bands are omitted. A non-empty
// outline is added as a line segment node named "zone".
func WriteGLB(w io.Writer, bands []fermisurf.Band, outline [][2]r3.Vec) error {
	doc, err := bandsDocument(bands, outline)
	if err != nil {
		return err
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	return enc.Encode(doc)
}

// SaveGLB writes bands to a .glb file at path.
func SaveGLB(path string, bands []fermisurf.Band, outline [][2]r3.Vec) error {
	doc, err := bandsDocument(bands, outline)
	if err != nil {
		return err
	}
	return gltf.SaveBinary(doc, path)
}

func bandsDocument(bands []fermisurf.Band, outline [][2]r3.Vec) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "fermisurf"
	for _, band := range bands {
		if band.IsPlaceholder() || len(band.Cells) == 0 {
			continue
		}
		rgba, err := fermisurf.ParseHexColor(band.Color)
		if err != nil {
			return nil, fmt.Errorf("band %q: %w", band.Name, err)
		}
		flat := band.Flat()
		positions, normals := vertexAttributes(flat)
		indices := make([]uint32, 0, 3*len(flat.I))
		for i := range flat.I {
			indices = append(indices, flat.I[i], flat.J[i], flat.K[i])
		}
		posAccessor := modeler.WritePosition(doc, positions)
		normalAccessor := modeler.WriteNormal(doc, normals)
		indicesAccessor := modeler.WriteIndices(doc, indices)

		color := [4]float64{float64(rgba[0]), float64(rgba[1]), float64(rgba[2]), float64(rgba[3])}
		material := &gltf.Material{
			Name: band.Name,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &color,
				MetallicFactor:  gltf.Float(0),
				RoughnessFactor: gltf.Float(1),
			},
			AlphaMode:   gltf.AlphaOpaque,
			DoubleSided: true,
		}
		if rgba[3] < 1 {
			material.AlphaMode = gltf.AlphaBlend
		}
		doc.Materials = append(doc.Materials, material)
		prim := &gltf.Primitive{
			Attributes: gltf.PrimitiveAttributes{
				gltf.POSITION: posAccessor,
				gltf.NORMAL:   normalAccessor,
			},
			Indices:  gltf.Index(indicesAccessor),
			Material: gltf.Index(len(doc.Materials) - 1),
		}
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: band.Name, Primitives: []*gltf.Primitive{prim}})
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: band.Name, Mesh: gltf.Index(len(doc.Meshes) - 1)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}
	if len(outline) > 0 {
		ends := make([][3]float32, 0, 2*len(outline))
		for _, seg := range outline {
			ends = append(ends, f32From3(seg[0]), f32From3(seg[1]))
		}
		prim := &gltf.Primitive{
			Mode:       gltf.PrimitiveLines,
			Attributes: gltf.PrimitiveAttributes{gltf.POSITION: modeler.WritePosition(doc, ends)},
		}
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: "zone", Primitives: []*gltf.Primitive{prim}})
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "zone", Mesh: gltf.Index(len(doc.Meshes) - 1)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	}
	return doc, nil
}

// vertexAttributes returns positions and area weighted vertex normals.
func vertexAttributes(f fermisurf.FlatMesh) (positions, normals [][3]float32) {
	verts := make([]ms3.Vec, len(f.X))
	for i := range verts {
		verts[i] = ms3.Vec{X: f.X[i], Y: f.Y[i], Z: f.Z[i]}
	}
	acc := make([]ms3.Vec, len(verts))
	for c := range f.I {
		i, j, k := f.I[c], f.J[c], f.K[c]
		n := ms3.Cross(ms3.Sub(verts[j], verts[i]), ms3.Sub(verts[k], verts[i]))
		acc[i] = ms3.Add(acc[i], n)
		acc[j] = ms3.Add(acc[j], n)
		acc[k] = ms3.Add(acc[k], n)
	}
	positions = make([][3]float32, len(verts))
	normals = make([][3]float32, len(verts))
	for i, v := range verts {
		positions[i] = [3]float32{v.X, v.Y, v.Z}
		n := acc[i]
		if l := ms3.Norm(n); l > 0 {
			n = ms3.Scale(1/l, n)
		} else {
			n = ms3.Vec{Z: 1}
		}
		normals[i] = [3]float32{n.X, n.Y, n.Z}
	}
	return positions, normals
}
