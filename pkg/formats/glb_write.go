package formats

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// Primitive modes.
const (
	ModePoints    = 0
	ModeTriangles = 4
)

// EncodeGLB serializes a document and binary payload into a GLB container.
// Both chunks are padded to 4-byte alignment as glTF requires.
func EncodeGLB(doc *GLTFDocument, bin []byte) ([]byte, error) {
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding glTF document: %w", err)
	}
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}
	binLen := len(bin) + (4-len(bin)%4)%4

	total := glbHeaderSize + glbChunkHeaderSize + len(js) + glbChunkHeaderSize + binLen
	data := make([]byte, total)

	binary.LittleEndian.PutUint32(data[0:], GLBMagic)
	binary.LittleEndian.PutUint32(data[4:], 2)
	binary.LittleEndian.PutUint32(data[8:], uint32(total))

	offset := glbHeaderSize
	binary.LittleEndian.PutUint32(data[offset:], uint32(len(js)))
	binary.LittleEndian.PutUint32(data[offset+4:], GLBChunkJSON)
	offset += glbChunkHeaderSize
	copy(data[offset:], js)
	offset += len(js)

	binary.LittleEndian.PutUint32(data[offset:], uint32(binLen))
	binary.LittleEndian.PutUint32(data[offset+4:], GLBChunkBIN)
	offset += glbChunkHeaderSize
	copy(data[offset:], bin)

	return data, nil
}

// PointModel builds a GLB holding a single point-list mesh with the given
// flattened xyz positions.
func PointModel(name string, positions []float32) ([]byte, error) {
	count := len(positions) / 3
	bin := make([]byte, count*12)
	for i := 0; i < count*3; i++ {
		binary.LittleEndian.PutUint32(bin[i*4:], math.Float32bits(positions[i]))
	}

	min := []float32{0, 0, 0}
	max := []float32{0, 0, 0}
	for i := 0; i < count; i++ {
		for axis := 0; axis < 3; axis++ {
			v := positions[i*3+axis]
			if i == 0 || v < min[axis] {
				min[axis] = v
			}
			if i == 0 || v > max[axis] {
				max[axis] = v
			}
		}
	}

	view := 0
	mode := ModePoints
	doc := &GLTFDocument{
		Asset: GLTFAsset{Version: "2.0", Generator: "pointmorph"},
		Meshes: []Mesh{{
			Name: name,
			Primitives: []Primitive{{
				Attributes: map[string]int{"POSITION": 0},
				Mode:       &mode,
			}},
		}},
		Accessors: []Accessor{{
			BufferView:    &view,
			ComponentType: ComponentFloat,
			Count:         count,
			Type:          TypeVec3,
			Min:           min,
			Max:           max,
		}},
		BufferViews: []BufferView{{Buffer: 0, ByteLength: len(bin)}},
		Buffers:     []Buffer{{ByteLength: len(bin)}},
	}
	return EncodeGLB(doc, bin)
}
