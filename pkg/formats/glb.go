// Package formats provides parsers for 3-D model container formats.
package formats

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// GLB container constants.
const (
	GLBMagic     uint32 = 0x46546C67 // "glTF"
	GLBChunkJSON uint32 = 0x4E4F534A // "JSON"
	GLBChunkBIN  uint32 = 0x004E4942 // "BIN\0"

	glbHeaderSize      = 12
	glbChunkHeaderSize = 8
)

// DracoExtension is the primitive extension that marks compressed geometry.
const DracoExtension = "KHR_draco_mesh_compression"

// Accessor component and element types understood by the position reader.
const (
	ComponentFloat = 5126
	TypeVec3       = "VEC3"
)

// GLB format errors.
var (
	ErrInvalidGLBMagic    = errors.New("invalid GLB magic: expected 'glTF'")
	ErrTruncatedGLB       = errors.New("truncated GLB data")
	ErrUnexpectedChunk    = errors.New("unexpected GLB chunk type")
	ErrMalformedMetadata  = errors.New("malformed glTF metadata")
	ErrNoGeometry         = errors.New("no position geometry in model")
	errPositionOutOfRange = fmt.Errorf("%w: position data exceeds BIN chunk", ErrTruncatedGLB)
)

// IsPermanent reports whether a GLB error describes the content itself
// (wrong format, missing geometry) rather than a damaged transfer. Permanent
// errors are not worth fetching the same asset again.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidGLBMagic) ||
		errors.Is(err, ErrUnexpectedChunk) ||
		errors.Is(err, ErrNoGeometry)
}

// GLTFDocument is the subset of the glTF JSON document the parser reads.
type GLTFDocument struct {
	Asset       GLTFAsset    `json:"asset"`
	Meshes      []Mesh       `json:"meshes"`
	Accessors   []Accessor   `json:"accessors"`
	BufferViews []BufferView `json:"bufferViews"`
	Buffers     []Buffer     `json:"buffers,omitempty"`

	ExtensionsUsed     []string `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string `json:"extensionsRequired,omitempty"`
}

// GLTFAsset holds the asset header of a glTF document.
type GLTFAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

// Mesh is a glTF mesh.
type Mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
}

// Primitive is a glTF mesh primitive.
type Primitive struct {
	Attributes map[string]int             `json:"attributes"`
	Indices    *int                       `json:"indices,omitempty"`
	Mode       *int                       `json:"mode,omitempty"`
	Extensions map[string]json.RawMessage `json:"extensions,omitempty"`
}

// HasExtension reports whether the primitive declares the named extension.
func (p *Primitive) HasExtension(name string) bool {
	_, ok := p.Extensions[name]
	return ok
}

// Accessor describes a typed view into a buffer view.
type Accessor struct {
	BufferView    *int      `json:"bufferView,omitempty"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float32 `json:"min,omitempty"`
	Max           []float32 `json:"max,omitempty"`
}

// Bounds returns the accessor's declared bounding box, defaulting to the
// unit cube [-1,1] on any axis that is not declared.
func (a *Accessor) Bounds() (min, max [3]float32) {
	min = [3]float32{-1, -1, -1}
	max = [3]float32{1, 1, 1}
	if len(a.Min) >= 3 {
		copy(min[:], a.Min[:3])
	}
	if len(a.Max) >= 3 {
		copy(max[:], a.Max[:3])
	}
	return min, max
}

// BufferView is a slice of the binary payload.
type BufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset,omitempty"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride,omitempty"`
}

// Buffer declares a binary buffer. In a GLB the first buffer is the BIN chunk.
type Buffer struct {
	ByteLength int    `json:"byteLength"`
	URI        string `json:"uri,omitempty"`
}

// GLB represents a parsed GLB container.
type GLB struct {
	Version  uint32       // Container version (2 for glTF 2.0)
	Length   uint32       // Declared total length
	Document GLTFDocument // Decoded JSON chunk
	Binary   []byte       // BIN chunk payload
}

// ParseGLB parses a GLB (binary glTF) container from a byte slice. Only the
// data needed to pull the POSITION attribute of the first primitive of the
// first mesh is interpreted.
func ParseGLB(data []byte) (*GLB, error) {
	if len(data) < 4 {
		return nil, ErrTruncatedGLB
	}
	if binary.LittleEndian.Uint32(data[0:]) != GLBMagic {
		return nil, ErrInvalidGLBMagic
	}
	if len(data) < glbHeaderSize+glbChunkHeaderSize {
		return nil, ErrTruncatedGLB
	}

	glb := &GLB{
		Version: binary.LittleEndian.Uint32(data[4:]),
		Length:  binary.LittleEndian.Uint32(data[8:]),
	}

	// JSON chunk
	offset := glbHeaderSize
	jsonPayload, next, err := readChunk(data, offset, GLBChunkJSON)
	if err != nil {
		return nil, fmt.Errorf("JSON chunk: %w", err)
	}
	if err := json.Unmarshal(jsonPayload, &glb.Document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}

	// BIN chunk
	glb.Binary, _, err = readChunk(data, next, GLBChunkBIN)
	if err != nil {
		return nil, fmt.Errorf("BIN chunk: %w", err)
	}

	return glb, nil
}

// readChunk reads the chunk starting at offset, checks its type tag and
// returns its payload and the offset just past it.
func readChunk(data []byte, offset int, wantType uint32) ([]byte, int, error) {
	if offset+glbChunkHeaderSize > len(data) {
		return nil, 0, ErrTruncatedGLB
	}
	length := int(binary.LittleEndian.Uint32(data[offset:]))
	chunkType := binary.LittleEndian.Uint32(data[offset+4:])
	if chunkType != wantType {
		return nil, 0, fmt.Errorf("%w: got 0x%08X, want 0x%08X", ErrUnexpectedChunk, chunkType, wantType)
	}

	start := offset + glbChunkHeaderSize
	if length < 0 || start+length > len(data) {
		return nil, 0, ErrTruncatedGLB
	}
	return data[start : start+length], start + length, nil
}

// PositionAccessor locates the POSITION accessor of the first primitive of
// the first mesh.
func (g *GLB) PositionAccessor() (*Accessor, *Primitive, error) {
	doc := &g.Document
	if len(doc.Meshes) == 0 {
		return nil, nil, fmt.Errorf("%w: no meshes", ErrNoGeometry)
	}
	if len(doc.Meshes[0].Primitives) == 0 {
		return nil, nil, fmt.Errorf("%w: mesh has no primitives", ErrNoGeometry)
	}
	prim := &doc.Meshes[0].Primitives[0]

	idx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, nil, fmt.Errorf("%w: primitive has no POSITION attribute", ErrNoGeometry)
	}
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, nil, fmt.Errorf("%w: accessor %d out of range", ErrNoGeometry, idx)
	}
	return &doc.Accessors[idx], prim, nil
}

// Compressed reports whether the position primitive uses Draco compression.
func (g *GLB) Compressed() bool {
	_, prim, err := g.PositionAccessor()
	return err == nil && prim.HasExtension(DracoExtension)
}

// Positions returns the flattened xyz vertex positions of the model.
// Draco compressed primitives cannot be decoded, so a procedural stand-in
// filling the accessor's declared bounds is returned instead.
func (g *GLB) Positions() ([]float32, error) {
	acc, prim, err := g.PositionAccessor()
	if err != nil {
		return nil, err
	}

	if prim.HasExtension(DracoExtension) {
		if acc.Count > MaxProceduralVertices {
			return nil, fmt.Errorf("%w: compressed primitive declares %d vertices, limit %d",
				ErrNoGeometry, acc.Count, MaxProceduralVertices)
		}
		min, max := acc.Bounds()
		return ProceduralPositions(min, max, acc.Count), nil
	}

	if acc.ComponentType != 0 && acc.ComponentType != ComponentFloat {
		return nil, fmt.Errorf("%w: component type %d", ErrNoGeometry, acc.ComponentType)
	}
	if acc.Type != "" && acc.Type != TypeVec3 {
		return nil, fmt.Errorf("%w: accessor type %s", ErrNoGeometry, acc.Type)
	}
	if acc.BufferView == nil {
		return nil, fmt.Errorf("%w: accessor has no buffer view", ErrNoGeometry)
	}
	bvIdx := *acc.BufferView
	if bvIdx < 0 || bvIdx >= len(g.Document.BufferViews) {
		return nil, fmt.Errorf("%w: buffer view %d out of range", ErrNoGeometry, bvIdx)
	}
	bv := g.Document.BufferViews[bvIdx]

	stride := bv.ByteStride
	if stride < 12 {
		stride = 12
	}
	offset := bv.ByteOffset + acc.ByteOffset
	if acc.Count < 0 || offset < 0 {
		return nil, errPositionOutOfRange
	}
	if acc.Count == 0 {
		return []float32{}, nil
	}
	// Compare by division so a hostile count cannot overflow the range.
	avail := len(g.Binary) - offset - 12
	if avail < 0 || acc.Count > avail/stride+1 {
		return nil, errPositionOutOfRange
	}

	positions := make([]float32, 0, acc.Count*3)
	for i := 0; i < acc.Count; i++ {
		p := offset + i*stride
		positions = append(positions,
			math.Float32frombits(binary.LittleEndian.Uint32(g.Binary[p:])),
			math.Float32frombits(binary.LittleEndian.Uint32(g.Binary[p+4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(g.Binary[p+8:])),
		)
	}
	return positions, nil
}

// Procedural stand-in layout.
const (
	proceduralLayers = 30
	proceduralTurns  = 80
)

// MaxProceduralVertices bounds the stand-in generated for a compressed
// primitive. The count comes from the file, not from decoded data.
const MaxProceduralVertices = 1 << 21

// ProceduralPositions generates count points spiralling up through layered
// rings inside the box [min,max]. Rings narrow towards the top so the
// result reads as a tapering structure. count is capped at
// MaxProceduralVertices.
func ProceduralPositions(min, max [3]float32, count int) []float32 {
	if count <= 0 {
		return []float32{}
	}
	if count > MaxProceduralVertices {
		count = MaxProceduralVertices
	}

	var center, size [3]float64
	for i := 0; i < 3; i++ {
		center[i] = float64(min[i]+max[i]) / 2
		size[i] = float64(max[i] - min[i])
	}

	positions := make([]float32, 0, count*3)
	for i := 0; i < count; i++ {
		t := float64(i) / float64(count)
		layer := math.Floor(t*proceduralLayers) / proceduralLayers
		radius := 0.25 + 0.45*(1-layer)
		angle := t*math.Pi*2*proceduralTurns + layer*math.Pi*0.3

		positions = append(positions,
			float32(center[0]+math.Cos(angle)*radius*size[0]),
			float32(float64(min[1])+layer*size[1]),
			float32(center[2]+math.Sin(angle)*radius*size[2]),
		)
	}
	return positions
}

// VertexCount returns the declared POSITION vertex count, or 0 when the
// model has no usable position accessor.
func (g *GLB) VertexCount() int {
	acc, _, err := g.PositionAccessor()
	if err != nil {
		return 0
	}
	return acc.Count
}
