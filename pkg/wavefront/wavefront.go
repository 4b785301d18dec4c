// Package wavefront parses Wavefront OBJ text into attribute tables and
// per-object face lists. Only the geometry subset of the format is handled:
// positions (v), texture coordinates (vt), normals (vn), faces (f), and
// object splits (o). Material statements, groups, and free-form geometry
// are ignored.
package wavefront

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/mdlc/pkg/math"
)

// Parse errors. A failure is reported as a *ParseError wrapping one of these.
var (
	ErrInvalidNumber  = errors.New("invalid numeric field")
	ErrInvalidIndex   = errors.New("invalid attribute index")
	ErrDegenerateFace = errors.New("face has fewer than 3 corners")
	ErrUnexpectedEOF  = errors.New("record ends before its required fields")
	ErrMissingName    = errors.New("object record has no name")
)

// ParseError reports a parse failure at a 1-based source line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func errAt(line int, err error) error {
	return &ParseError{Line: line, Err: err}
}

// NoIndex marks an absent texture coordinate or normal reference in a
// corner. It is distinct from index 0, which is a valid table position.
const NoIndex = -1

// Corner references one attribute combination of a face corner. Indices are
// 0-based positions into the Document tables; TexCoord and Normal may be
// NoIndex.
type Corner struct {
	Position int
	TexCoord int
	Normal   int
}

// Face is an ordered list of at least 3 corners, in source winding order.
type Face struct {
	Corners []Corner
}

// Object is a named group of faces. Files without any "o" statement yield a
// single object with an empty name.
type Object struct {
	Name  string
	Faces []Face
}

// Document holds the attribute tables of one OBJ file and its objects.
// Tables are file-global: every object's corners index into the same three
// tables, in file order.
type Document struct {
	Positions []math.Vec3
	TexCoords []math.Vec2
	Normals   []math.Vec3
	Objects   []Object
}

// Parse reads the full text of one OBJ file. It is a single forward pass
// over the input; the returned Document should be treated as immutable.
func Parse(data []byte) (*Document, error) {
	doc := &Document{}
	current := -1 // index into doc.Objects, -1 until the first face or "o"

	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		lineNo := i + 1
		fields := strings.Fields(raw)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			p, err := parseVec3(fields[1:], lineNo)
			if err != nil {
				return nil, err
			}
			doc.Positions = append(doc.Positions, p)
		case "vn":
			n, err := parseVec3(fields[1:], lineNo)
			if err != nil {
				return nil, err
			}
			doc.Normals = append(doc.Normals, n)
		case "vt":
			tc, err := parseVec2(fields[1:], lineNo)
			if err != nil {
				return nil, err
			}
			doc.TexCoords = append(doc.TexCoords, tc)
		case "f":
			face, err := parseFace(fields[1:], lineNo)
			if err != nil {
				return nil, err
			}
			if current < 0 {
				doc.Objects = append(doc.Objects, Object{})
				current = 0
			}
			obj := &doc.Objects[current]
			obj.Faces = append(obj.Faces, face)
		case "o":
			if len(fields) < 2 {
				return nil, errAt(lineNo, ErrMissingName)
			}
			doc.Objects = append(doc.Objects, Object{Name: fields[1]})
			current = len(doc.Objects) - 1
		}
	}

	return doc, nil
}

// parseVec3 reads the first 3 fields as float32. Extra fields (such as the
// optional w component) are ignored.
func parseVec3(fields []string, line int) (math.Vec3, error) {
	if len(fields) < 3 {
		return math.Vec3{}, errAt(line, ErrUnexpectedEOF)
	}
	var out [3]float32
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return math.Vec3{}, errAt(line, fmt.Errorf("%w: %q", ErrInvalidNumber, fields[i]))
		}
		out[i] = float32(f)
	}
	return math.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

func parseVec2(fields []string, line int) (math.Vec2, error) {
	if len(fields) < 2 {
		return math.Vec2{}, errAt(line, ErrUnexpectedEOF)
	}
	var out [2]float32
	for i := 0; i < 2; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return math.Vec2{}, errAt(line, fmt.Errorf("%w: %q", ErrInvalidNumber, fields[i]))
		}
		out[i] = float32(f)
	}
	return math.Vec2{X: out[0], Y: out[1]}, nil
}

// parseFace reads whitespace-separated corner tokens of the forms
// "p", "p/t", "p/t/n", or "p//n".
func parseFace(tokens []string, line int) (Face, error) {
	if len(tokens) < 3 {
		return Face{}, errAt(line, ErrDegenerateFace)
	}
	corners := make([]Corner, 0, len(tokens))
	for _, tok := range tokens {
		c, err := parseCorner(tok, line)
		if err != nil {
			return Face{}, err
		}
		corners = append(corners, c)
	}
	return Face{Corners: corners}, nil
}

func parseCorner(token string, line int) (Corner, error) {
	parts := strings.Split(token, "/")
	if len(parts) > 3 {
		return Corner{}, errAt(line, fmt.Errorf("%w: %q", ErrInvalidIndex, token))
	}

	c := Corner{TexCoord: NoIndex, Normal: NoIndex}

	pos, err := parseIndex(parts[0], line)
	if err != nil {
		return Corner{}, err
	}
	c.Position = pos

	if len(parts) > 1 && parts[1] != "" {
		if c.TexCoord, err = parseIndex(parts[1], line); err != nil {
			return Corner{}, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.Normal, err = parseIndex(parts[2], line); err != nil {
			return Corner{}, err
		}
	}
	return c, nil
}

// parseIndex converts a 1-based source index to 0-based. Zero and negative
// (relative) indices are rejected as unsupported input.
func parseIndex(s string, line int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errAt(line, fmt.Errorf("%w: %q", ErrInvalidIndex, s))
	}
	if n < 1 {
		return 0, errAt(line, fmt.Errorf("%w: %d", ErrInvalidIndex, n))
	}
	return n - 1, nil
}
