// Package formats provides parsers for 3-D model container formats.
package formats

// Note: GLB (binary glTF) is implemented in glb.go. Only vertex positions are
// extracted; materials, skins and animation are ignored.
