package mdl

import (
	"bytes"
	"encoding/binary"
	"errors"
	stdmath "math"
	"reflect"
	"testing"

	"github.com/Faultbox/mdlc/pkg/math"
	"github.com/Faultbox/mdlc/pkg/wavefront"
)

func parse(t *testing.T, input string) *wavefront.Document {
	t.Helper()
	doc, err := wavefront.Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return doc
}

func build(t *testing.T, input string) *Model {
	t.Helper()
	doc := parse(t, input)
	if len(doc.Objects) != 1 {
		t.Fatalf("expected 1 object, got %d", len(doc.Objects))
	}
	model, err := Build(doc, &doc.Objects[0])
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return model
}

func TestBuild_SingleTriangle(t *testing.T) {
	model := build(t, `v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
f 1/1 2/2 3/3
`)

	if len(model.Vertices) != 3 {
		t.Fatalf("vertex count = %d, want 3", len(model.Vertices))
	}
	if !reflect.DeepEqual(model.Indices, []uint16{0, 1, 2}) {
		t.Errorf("indices = %v, want [0 1 2]", model.Indices)
	}

	// Absent normals default to zero
	for i, v := range model.Vertices {
		if v.Normal != (math.Vec3{}) {
			t.Errorf("vertex %d normal = %v, want zero", i, v.Normal)
		}
	}
	if model.Vertices[1].Position != (math.Vec3{X: 1}) {
		t.Errorf("vertex 1 position = %v", model.Vertices[1].Position)
	}
	if model.Vertices[2].TexCoord != (math.Vec2{Y: 1}) {
		t.Errorf("vertex 2 texcoord = %v", model.Vertices[2].TexCoord)
	}
}

func TestBuild_Deduplication(t *testing.T) {
	// Two triangles sharing an edge: corners 1/1/1 and 3/3/1 repeat exactly.
	model := build(t, `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1
f 1/1/1 3/3/1 4/4/1
`)

	if len(model.Vertices) != 4 {
		t.Fatalf("vertex count = %d, want 4 (shared corners deduplicated)", len(model.Vertices))
	}
	want := []uint16{0, 1, 2, 0, 2, 3}
	if !reflect.DeepEqual(model.Indices, want) {
		t.Errorf("indices = %v, want %v", model.Indices, want)
	}
}

func TestBuild_AbsentDistinctFromZero(t *testing.T) {
	// Same position with texcoord 1 vs absent texcoord must stay two vertices.
	model := build(t, `v 0 0 0
v 1 0 0
v 0 1 0
vt 0.5 0.5
f 1/1 2/1 3/1
f 1 2 3
`)

	if len(model.Vertices) != 6 {
		t.Errorf("vertex count = %d, want 6 (absent texcoord is not index 0)", len(model.Vertices))
	}
}

func TestBuild_FanTriangulation(t *testing.T) {
	// Quad [A,B,C,D] fans to [A,B,C] then [A,C,D], winding preserved.
	model := build(t, `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`)

	want := []uint16{0, 1, 2, 0, 2, 3}
	if !reflect.DeepEqual(model.Indices, want) {
		t.Errorf("indices = %v, want %v", model.Indices, want)
	}
}

func TestBuild_Pentagon(t *testing.T) {
	model := build(t, `v 0 0 0
v 1 0 0
v 2 1 0
v 1 2 0
v 0 2 0
f 1 2 3 4 5
`)

	want := []uint16{0, 1, 2, 0, 2, 3, 0, 3, 4}
	if !reflect.DeepEqual(model.Indices, want) {
		t.Errorf("indices = %v, want %v", model.Indices, want)
	}
}

func TestBuild_IndexValidity(t *testing.T) {
	model := build(t, `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
f 4 3 2 1
`)

	if len(model.Indices)%3 != 0 {
		t.Errorf("index count %d is not a multiple of 3", len(model.Indices))
	}
	for i, idx := range model.Indices {
		if int(idx) >= len(model.Vertices) {
			t.Errorf("index %d = %d out of range (%d vertices)", i, idx, len(model.Vertices))
		}
	}
}

func TestBuild_IndexOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"position", "v 0 0 0\nf 1 2 3\n"},
		{"texcoord", "v 0 0 0\nv 1 0 0\nv 0 1 0\nvt 0 0\nf 1/1 2/2 3/1\n"},
		{"normal", "v 0 0 0\nv 1 0 0\nv 0 1 0\nvn 0 0 1\nf 1//1 2//2 3//1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.input)
			_, err := Build(doc, &doc.Objects[0])
			if !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("got error %v, want ErrIndexOutOfRange", err)
			}
		})
	}
}

func TestBuild_Determinism(t *testing.T) {
	input := `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 1
vn 0 0 1
f 1/1/1 2/2/1 3/1/1 4/2/1
f 4/2/1 3/1/1 2/2/1 1/1/1
`
	first := build(t, input)
	a, err := first.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	second := build(t, input)
	b, err := second.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if !bytes.Equal(a, b) {
		t.Error("identical input produced different output bytes")
	}
}

func TestEncode_Layout(t *testing.T) {
	model := &Model{
		Vertices: []Vertex{
			{
				Position: math.Vec3{X: 1, Y: 2, Z: 3},
				TexCoord: math.Vec2{X: 0.25, Y: 0.75},
				Normal:   math.Vec3{X: 0, Y: 1, Z: 0},
			},
		},
		Indices: []uint16{0, 0, 0},
	}

	data, err := model.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	wantLen := 8 + 32 + 3*2
	if len(data) != wantLen {
		t.Fatalf("encoded length = %d, want %d", len(data), wantLen)
	}

	if got := binary.LittleEndian.Uint32(data[0:4]); got != 1 {
		t.Errorf("vertex count word = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(data[4:8]); got != 3 {
		t.Errorf("index count word = %d, want 3", got)
	}

	// Vertex fields in position, texcoord, normal order
	wantFloats := []float32{1, 2, 3, 0.25, 0.75, 0, 1, 0}
	for i, want := range wantFloats {
		bits := binary.LittleEndian.Uint32(data[8+i*4 : 12+i*4])
		if got := stdmath.Float32frombits(bits); got != want {
			t.Errorf("vertex float %d = %v, want %v", i, got, want)
		}
	}

	if got := binary.LittleEndian.Uint16(data[40:42]); got != 0 {
		t.Errorf("first index = %d, want 0", got)
	}
}

func TestRoundTrip(t *testing.T) {
	model := build(t, `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`)

	data, err := model.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if !reflect.DeepEqual(decoded.Vertices, model.Vertices) {
		t.Errorf("vertices differ after round trip:\n got %+v\nwant %+v", decoded.Vertices, model.Vertices)
	}
	if !reflect.DeepEqual(decoded.Indices, model.Indices) {
		t.Errorf("indices differ after round trip: got %v, want %v", decoded.Indices, model.Indices)
	}
}

func TestRoundTrip_EmptyModel(t *testing.T) {
	data, err := (&Model{}).Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != 8 {
		t.Fatalf("empty model length = %d, want 8", len(data))
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(decoded.Vertices) != 0 || len(decoded.Indices) != 0 {
		t.Errorf("decoded empty model = %+v", decoded)
	}
}

func TestDecode_Errors(t *testing.T) {
	valid, err := (&Model{
		Vertices: []Vertex{{}},
		Indices:  []uint16{0, 0, 0},
	}).Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, ErrTruncatedData},
		{"short header", valid[:6], ErrTruncatedData},
		{"truncated payload", valid[:len(valid)-2], ErrTruncatedData},
		{"trailing bytes", append(append([]byte{}, valid...), 0xAA), ErrLengthMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncode_TooManyVertices(t *testing.T) {
	model := &Model{Vertices: make([]Vertex, maxVertices+1)}
	if _, err := model.Encode(); !errors.Is(err, ErrTooManyVertices) {
		t.Errorf("got error %v, want ErrTooManyVertices", err)
	}
}
