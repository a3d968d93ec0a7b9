package main

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/pointmorph/pkg/formats"
	pmath "github.com/Faultbox/pointmorph/pkg/math"
)

// modelInfo summarizes a GLB for display.
type modelInfo struct {
	Version    uint32     `yaml:"version"`
	Length     uint32     `yaml:"length"`
	Generator  string     `yaml:"generator,omitempty"`
	Meshes     int        `yaml:"meshes"`
	Accessors  int        `yaml:"accessors"`
	BinBytes   int        `yaml:"bin_bytes"`
	Extensions []string   `yaml:"extensions,omitempty"`
	Vertices   int        `yaml:"vertices"`
	Compressed bool       `yaml:"compressed"`
	Bounds     *boundsRep `yaml:"bounds,omitempty"`
	Error      string     `yaml:"error,omitempty"`
}

type boundsRep struct {
	Min  [3]float32 `yaml:"min,flow"`
	Max  [3]float32 `yaml:"max,flow"`
	Span float32    `yaml:"span"`
}

func boundsOf(points []float32) *boundsRep {
	box := pmath.BoxOf(points)
	if box.Empty() {
		return nil
	}
	return &boundsRep{
		Min:  [3]float32{box.Min.X, box.Min.Y, box.Min.Z},
		Max:  [3]float32{box.Max.X, box.Max.Y, box.Max.Z},
		Span: box.MaxExtent(),
	}
}

// inspect parses data and reports what the position reader sees. A model
// without usable positions still yields a report with Error set.
func inspect(data []byte) (*modelInfo, error) {
	glb, err := formats.ParseGLB(data)
	if err != nil {
		return nil, err
	}

	doc := &glb.Document
	info := &modelInfo{
		Version:    glb.Version,
		Length:     glb.Length,
		Generator:  doc.Asset.Generator,
		Meshes:     len(doc.Meshes),
		Accessors:  len(doc.Accessors),
		BinBytes:   len(glb.Binary),
		Extensions: doc.ExtensionsUsed,
		Vertices:   glb.VertexCount(),
		Compressed: glb.Compressed(),
	}

	positions, err := glb.Positions()
	if err != nil {
		info.Error = err.Error()
		return info, nil
	}
	info.Bounds = boundsOf(positions)
	return info, nil
}

func writeInfo(w io.Writer, info *modelInfo, format string) error {
	if format == "yaml" {
		return yaml.NewEncoder(w).Encode(info)
	}

	fmt.Fprintf(w, "Version:    %d\n", info.Version)
	fmt.Fprintf(w, "Length:     %d bytes\n", info.Length)
	if info.Generator != "" {
		fmt.Fprintf(w, "Generator:  %s\n", info.Generator)
	}
	fmt.Fprintf(w, "Meshes:     %d\n", info.Meshes)
	fmt.Fprintf(w, "Accessors:  %d\n", info.Accessors)
	fmt.Fprintf(w, "BIN:        %d bytes\n", info.BinBytes)
	if len(info.Extensions) > 0 {
		fmt.Fprintf(w, "Extensions: %s\n", strings.Join(info.Extensions, ", "))
	}
	fmt.Fprintf(w, "Vertices:   %d\n", info.Vertices)
	fmt.Fprintf(w, "Compressed: %v\n", info.Compressed)
	if info.Bounds != nil {
		writeBounds(w, info.Bounds)
	}
	if info.Error != "" {
		fmt.Fprintf(w, "Positions:  unusable (%s)\n", info.Error)
	}
	return nil
}

func writeBounds(w io.Writer, b *boundsRep) {
	fmt.Fprintf(w, "Min:        %.4f %.4f %.4f\n", b.Min[0], b.Min[1], b.Min[2])
	fmt.Fprintf(w, "Max:        %.4f %.4f %.4f\n", b.Max[0], b.Max[1], b.Max[2])
	fmt.Fprintf(w, "Span:       %.4f\n", b.Span)
}
