// Package collision derives walkable-surface and wall data from model
// geometry and encodes it in the CSN binary layout:
//
//	u32      version (currently 1)
//	6 x f32  extents: x min/max, y min/max, z min/max
//	u32      traction surface count, then 48-byte surfaces
//	u32      sliding surface count, then 48-byte surfaces
//	u32      wall count, then 36-byte walls
//
// All fields are little-endian with no padding.
package collision

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	stdmath "math"

	"github.com/Faultbox/mdlc/pkg/math"
)

// Version is the CSN file version written by Encode.
const Version uint32 = 1

// Decode errors.
var (
	ErrTruncatedData  = errors.New("truncated CSN data")
	ErrLengthMismatch = errors.New("CSN data longer than declared counts")
	ErrBadVersion     = errors.New("unsupported CSN version")
)

// Triangles are classified by the elevation angle of their averaged normal:
// near-horizontal normals are walls, moderately tilted ones are sliding
// surfaces, the rest carry traction.
const (
	wallElevationMin  = -0.0873 // about 5 degrees below horizontal
	wallElevationMax  = 0.0873
	slideElevationMin = -0.6981 // about 40 degrees
	slideElevationMax = 0.6981
)

// Duplicate walls and merged quad corners match within this distance.
const weldTolerance = 0.01

// Surface is a triangle with its averaged normal stored alongside.
type Surface struct {
	A, B, C math.Vec3
	Normal  math.Vec3
}

// Wall is an upright rectangle given by two opposite corners, with an
// outward normal derived from its bottom edge.
type Wall struct {
	BottomLeft math.Vec3
	TopRight   math.Vec3
	Normal     math.Vec3
}

// NewWall builds a wall between two opposite corners, deriving the normal
// as the horizontal perpendicular of the bottom edge.
func NewWall(bottomLeft, topRight math.Vec3) Wall {
	bottomEdge := math.Vec3{X: topRight.X - bottomLeft.X, Z: topRight.Z - bottomLeft.Z}
	up := math.Vec3{Y: 1}
	return Wall{
		BottomLeft: bottomLeft,
		TopRight:   topRight,
		Normal:     bottomEdge.Cross(up).Normalize(),
	}
}

// Map is the collision data of one model.
type Map struct {
	Name    string
	ExtentX [2]float32
	ExtentY [2]float32
	ExtentZ [2]float32

	Traction []Surface
	Sliding  []Surface
	Walls    []Wall
}

// Corner is one resolved face corner fed to AddPolygon.
type Corner struct {
	Position math.Vec3
	Normal   math.Vec3
}

// NewMap returns an empty collision map.
func NewMap(name string) *Map {
	return &Map{Name: name}
}

// AddPolygon classifies a convex polygon's triangles into walls, sliding
// surfaces, or traction surfaces. A quad whose two triangles are both
// wall-oriented becomes a single rectangular wall spanning its horizontal
// extremes; source quads are often stored as triangle pairs, so Finish
// merges the leftover duplicates.
func (m *Map) AddPolygon(corners []Corner) {
	if len(corners) < 3 {
		return
	}

	type classified struct {
		surface   Surface
		elevation float32
	}

	triangles := make([]classified, 0, len(corners)-2)
	for i := 0; i < len(corners)-2; i++ {
		c0, c1, c2 := corners[0], corners[i+1], corners[i+2]
		normal := c0.Normal.Add(c1.Normal).Add(c2.Normal).Scale(1.0 / 3.0)
		surface := Surface{A: c0.Position, B: c1.Position, C: c2.Position, Normal: normal}
		triangles = append(triangles, classified{surface, elevation(normal)})
	}

	// A quad whose halves both face sideways is one wall, not two.
	if len(triangles) == 2 && isWallAngle(triangles[0].elevation) && isWallAngle(triangles[1].elevation) {
		s0, s1 := triangles[0].surface, triangles[1].surface
		points := []math.Vec3{s0.A, s0.B, s1.B, s1.C}
		normal := s0.Normal.Add(s1.Normal).Scale(0.5)
		m.Walls = append(m.Walls, wallFromPoints(points, normal))
		return
	}

	for _, tri := range triangles {
		switch {
		case isWallAngle(tri.elevation):
			points := []math.Vec3{tri.surface.A, tri.surface.B, tri.surface.C}
			m.Walls = append(m.Walls, wallFromPoints(points, tri.surface.Normal))
		case tri.elevation > slideElevationMin && tri.elevation < slideElevationMax:
			m.Sliding = append(m.Sliding, tri.surface)
		default:
			m.Traction = append(m.Traction, tri.surface)
		}
	}
}

// elevation returns the angle of a normal above the horizontal plane, in
// radians. Zero-length normals yield NaN, which classifies as traction.
func elevation(normal math.Vec3) float32 {
	return float32(stdmath.Asin(float64(normal.Y / normal.Length())))
}

func isWallAngle(elevation float32) bool {
	return elevation > wallElevationMin && elevation < wallElevationMax
}

// wallFromPoints spans a wall across the horizontal extremes of a point
// set, from its lowest to its highest elevation.
func wallFromPoints(points []math.Vec3, normal math.Vec3) Wall {
	flat := normal
	flat.Y = 0
	left := math.Vec3{X: -flat.Z, Z: flat.X}
	right := math.Vec3{X: flat.Z, Z: -flat.X}

	bottomLeft := points[extremeInDirection(points, left)]
	topRight := points[extremeInDirection(points, right)]
	bottomLeft.Y, topRight.Y = minMaxY(points)
	return NewWall(bottomLeft, topRight)
}

// extremeInDirection returns the index of the point furthest along dir.
func extremeInDirection(points []math.Vec3, dir math.Vec3) int {
	best := 0
	bestDot := points[0].Dot(dir)
	for i, p := range points[1:] {
		if d := p.Dot(dir); d > bestDot {
			best = i + 1
			bestDot = d
		}
	}
	return best
}

func minMaxY(points []math.Vec3) (min, max float32) {
	min, max = points[0].Y, points[0].Y
	for _, p := range points[1:] {
		if p.Y < min {
			min = p.Y
		}
		if p.Y > max {
			max = p.Y
		}
	}
	return min, max
}

// Finish removes duplicate walls and computes the extents. Call once after
// all polygons have been added.
func (m *Map) Finish() {
	m.dedupeWalls()
	m.findExtents()
}

// dedupeWalls drops walls whose corners coincide with an earlier wall's
// within the weld tolerance. Triangulated quads produce such pairs when
// both halves were emitted individually.
func (m *Map) dedupeWalls() {
	if len(m.Walls) < 2 {
		return
	}
	kept := m.Walls[:0]
	for i, wall := range m.Walls {
		duplicate := false
		for j := i + 1; j < len(m.Walls); j++ {
			if wallsCoincide(wall, m.Walls[j]) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, wall)
		}
	}
	m.Walls = kept
}

func wallsCoincide(a, b Wall) bool {
	if absDiff(a.BottomLeft.Y, b.BottomLeft.Y) > weldTolerance {
		return false
	}
	if absDiff(a.TopRight.Y, b.TopRight.Y) > weldTolerance {
		return false
	}
	left := a.BottomLeft.Sub(b.BottomLeft)
	left.Y = 0
	if left.Length() > weldTolerance {
		return false
	}
	right := a.TopRight.Sub(b.TopRight)
	right.Y = 0
	return right.Length() <= weldTolerance
}

func absDiff(a, b float32) float32 {
	if a > b {
		return a - b
	}
	return b - a
}

// findExtents computes axis-aligned bounds over all surfaces and walls.
// Bounds are seeded at the origin, matching the runtime's expectation that
// models are authored around it.
func (m *Map) findExtents() {
	m.ExtentX = [2]float32{}
	m.ExtentY = [2]float32{}
	m.ExtentZ = [2]float32{}

	grow := func(p math.Vec3) {
		if p.X < m.ExtentX[0] {
			m.ExtentX[0] = p.X
		}
		if p.X > m.ExtentX[1] {
			m.ExtentX[1] = p.X
		}
		if p.Y < m.ExtentY[0] {
			m.ExtentY[0] = p.Y
		}
		if p.Y > m.ExtentY[1] {
			m.ExtentY[1] = p.Y
		}
		if p.Z < m.ExtentZ[0] {
			m.ExtentZ[0] = p.Z
		}
		if p.Z > m.ExtentZ[1] {
			m.ExtentZ[1] = p.Z
		}
	}

	for _, s := range m.Traction {
		grow(s.A)
		grow(s.B)
		grow(s.C)
	}
	for _, s := range m.Sliding {
		grow(s.A)
		grow(s.B)
		grow(s.C)
	}
	for _, w := range m.Walls {
		grow(w.BottomLeft)
		grow(w.TopRight)
	}
}

const (
	csnHeaderSize = 4 + 6*4
	surfaceSize   = 48 // 4 x Vec3
	wallSize      = 36 // 3 x Vec3
)

// Encode serializes the collision map. The full byte slice is built in
// memory before any write happens.
func (m *Map) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Grow(csnHeaderSize + 12 + len(m.Traction)*surfaceSize + len(m.Sliding)*surfaceSize + len(m.Walls)*wallSize)

	binary.Write(buf, binary.LittleEndian, Version)
	binary.Write(buf, binary.LittleEndian, m.ExtentX)
	binary.Write(buf, binary.LittleEndian, m.ExtentY)
	binary.Write(buf, binary.LittleEndian, m.ExtentZ)

	binary.Write(buf, binary.LittleEndian, uint32(len(m.Traction)))
	for _, s := range m.Traction {
		binary.Write(buf, binary.LittleEndian, s)
	}
	binary.Write(buf, binary.LittleEndian, uint32(len(m.Sliding)))
	for _, s := range m.Sliding {
		binary.Write(buf, binary.LittleEndian, s)
	}
	binary.Write(buf, binary.LittleEndian, uint32(len(m.Walls)))
	for _, w := range m.Walls {
		binary.Write(buf, binary.LittleEndian, w)
	}
	return buf.Bytes(), nil
}

// Decode parses CSN data back into a Map. Beyond the version check,
// validation is limited to length consistency.
func Decode(data []byte) (*Map, error) {
	if len(data) < csnHeaderSize+12 {
		return nil, ErrTruncatedData
	}

	r := bytes.NewReader(data)

	var version uint32
	binary.Read(r, binary.LittleEndian, &version)
	if version != Version {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrBadVersion, version, Version)
	}

	m := &Map{}
	binary.Read(r, binary.LittleEndian, &m.ExtentX)
	binary.Read(r, binary.LittleEndian, &m.ExtentY)
	binary.Read(r, binary.LittleEndian, &m.ExtentZ)

	var tractionCount uint32
	binary.Read(r, binary.LittleEndian, &tractionCount)
	if err := checkRemaining(r, uint64(tractionCount)*surfaceSize+8); err != nil {
		return nil, err
	}
	if tractionCount > 0 {
		m.Traction = make([]Surface, tractionCount)
		binary.Read(r, binary.LittleEndian, m.Traction)
	}

	var slidingCount uint32
	binary.Read(r, binary.LittleEndian, &slidingCount)
	if err := checkRemaining(r, uint64(slidingCount)*surfaceSize+4); err != nil {
		return nil, err
	}
	if slidingCount > 0 {
		m.Sliding = make([]Surface, slidingCount)
		binary.Read(r, binary.LittleEndian, m.Sliding)
	}

	var wallCount uint32
	binary.Read(r, binary.LittleEndian, &wallCount)
	if uint64(r.Len()) < uint64(wallCount)*wallSize {
		return nil, ErrTruncatedData
	}
	if uint64(r.Len()) > uint64(wallCount)*wallSize {
		return nil, ErrLengthMismatch
	}
	if wallCount > 0 {
		m.Walls = make([]Wall, wallCount)
		binary.Read(r, binary.LittleEndian, m.Walls)
	}
	return m, nil
}

// checkRemaining verifies that need bytes (payload plus the trailing count
// words still expected) fit in the reader.
func checkRemaining(r *bytes.Reader, need uint64) error {
	if uint64(r.Len()) < need {
		return ErrTruncatedData
	}
	return nil
}
