// Package mdl builds indexed triangle meshes from parsed Wavefront geometry
// and encodes them in the MDL binary layout consumed by the engine:
//
//	u32    vertex count
//	u32    index count
//	[n]    interleaved vertices, 32 bytes each:
//	       position (3 x f32), texcoord (2 x f32), normal (3 x f32)
//	[m]    u16 indices
//
// All fields are little-endian with no padding.
package mdl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Faultbox/mdlc/pkg/math"
	"github.com/Faultbox/mdlc/pkg/wavefront"
)

// Build errors.
var (
	ErrIndexOutOfRange = errors.New("attribute index out of range")
	ErrTooManyVertices = errors.New("mesh exceeds 65535 unique vertices")
)

// Decode errors.
var (
	ErrTruncatedData  = errors.New("truncated MDL data")
	ErrLengthMismatch = errors.New("MDL data longer than declared counts")
)

const (
	headerSize = 8
	vertexSize = 32
	indexSize  = 2

	maxVertices = 0xFFFF // indices are u16
)

// Vertex is one interleaved vertex record.
type Vertex struct {
	Position math.Vec3
	TexCoord math.Vec2
	Normal   math.Vec3
}

// Model is a deduplicated, indexed triangle mesh. Vertices appear in
// first-seen order; every index references a vertex, and the index count is
// a multiple of 3.
type Model struct {
	Name     string
	Vertices []Vertex
	Indices  []uint16
}

// builder deduplicates corner references while assembling a Model. The map
// key is the raw index triple, with wavefront.NoIndex preserved so "no
// texcoord" never collides with "texcoord 0".
type builder struct {
	doc   *wavefront.Document
	model *Model
	seen  map[wavefront.Corner]uint16
}

// Build resolves one object of a parsed document into a Model. Faces with
// more than 3 corners are fan-triangulated around their first corner,
// preserving source winding. For identical input the output is exactly
// reproducible.
func Build(doc *wavefront.Document, obj *wavefront.Object) (*Model, error) {
	b := &builder{
		doc:   doc,
		model: &Model{Name: obj.Name},
		seen:  make(map[wavefront.Corner]uint16),
	}

	for _, face := range obj.Faces {
		if err := b.addFace(face); err != nil {
			return nil, err
		}
	}
	return b.model, nil
}

func (b *builder) addFace(face wavefront.Face) error {
	corners := face.Corners

	first, err := b.index(corners[0])
	if err != nil {
		return err
	}
	prev, err := b.index(corners[1])
	if err != nil {
		return err
	}

	for _, corner := range corners[2:] {
		next, err := b.index(corner)
		if err != nil {
			return err
		}
		b.model.Indices = append(b.model.Indices, first, prev, next)
		prev = next
	}
	return nil
}

// index returns the vertex buffer position for a corner, resolving and
// appending a new vertex on first sight.
func (b *builder) index(corner wavefront.Corner) (uint16, error) {
	if idx, ok := b.seen[corner]; ok {
		return idx, nil
	}

	vertex, err := b.resolve(corner)
	if err != nil {
		return 0, err
	}
	if len(b.model.Vertices) >= maxVertices {
		return 0, ErrTooManyVertices
	}

	idx := uint16(len(b.model.Vertices))
	b.model.Vertices = append(b.model.Vertices, vertex)
	b.seen[corner] = idx
	return idx, nil
}

// resolve looks up the attribute values for a corner. Absent texcoords and
// normals default to zero.
func (b *builder) resolve(corner wavefront.Corner) (Vertex, error) {
	var v Vertex

	if corner.Position < 0 || corner.Position >= len(b.doc.Positions) {
		return v, fmt.Errorf("%w: position %d of %d", ErrIndexOutOfRange, corner.Position, len(b.doc.Positions))
	}
	v.Position = b.doc.Positions[corner.Position]

	if corner.TexCoord != wavefront.NoIndex {
		if corner.TexCoord < 0 || corner.TexCoord >= len(b.doc.TexCoords) {
			return v, fmt.Errorf("%w: texcoord %d of %d", ErrIndexOutOfRange, corner.TexCoord, len(b.doc.TexCoords))
		}
		v.TexCoord = b.doc.TexCoords[corner.TexCoord]
	}
	if corner.Normal != wavefront.NoIndex {
		if corner.Normal < 0 || corner.Normal >= len(b.doc.Normals) {
			return v, fmt.Errorf("%w: normal %d of %d", ErrIndexOutOfRange, corner.Normal, len(b.doc.Normals))
		}
		v.Normal = b.doc.Normals[corner.Normal]
	}
	return v, nil
}

// Encode serializes the model. The full byte slice is built in memory so a
// failed conversion never leaves a truncated file behind.
func (m *Model) Encode() ([]byte, error) {
	if len(m.Vertices) > maxVertices {
		return nil, ErrTooManyVertices
	}

	buf := new(bytes.Buffer)
	buf.Grow(headerSize + len(m.Vertices)*vertexSize + len(m.Indices)*indexSize)

	binary.Write(buf, binary.LittleEndian, uint32(len(m.Vertices)))
	binary.Write(buf, binary.LittleEndian, uint32(len(m.Indices)))
	for _, v := range m.Vertices {
		binary.Write(buf, binary.LittleEndian, v)
	}
	for _, idx := range m.Indices {
		binary.Write(buf, binary.LittleEndian, idx)
	}
	return buf.Bytes(), nil
}

// Decode parses MDL data back into a Model. Validation is limited to length
// consistency: the declared counts must match the remaining byte length
// exactly.
func Decode(data []byte) (*Model, error) {
	if len(data) < headerSize {
		return nil, ErrTruncatedData
	}

	r := bytes.NewReader(data)

	var vertexCount, indexCount uint32
	binary.Read(r, binary.LittleEndian, &vertexCount)
	binary.Read(r, binary.LittleEndian, &indexCount)

	expected := headerSize + uint64(vertexCount)*vertexSize + uint64(indexCount)*indexSize
	if uint64(len(data)) < expected {
		return nil, ErrTruncatedData
	}
	if uint64(len(data)) > expected {
		return nil, ErrLengthMismatch
	}

	model := &Model{}
	if vertexCount > 0 {
		model.Vertices = make([]Vertex, vertexCount)
		binary.Read(r, binary.LittleEndian, model.Vertices)
	}
	if indexCount > 0 {
		model.Indices = make([]uint16, indexCount)
		binary.Read(r, binary.LittleEndian, model.Indices)
	}
	return model, nil
}
