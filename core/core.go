// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core holds the engine services shared by the renderer,
// the game and the commands: configuration, logging, time keeping
// and asset access.
package core

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

func (s ShaderType) String() string {
	switch s {
	case VertexShaderType:
		return "vertex"
	case FragmentShaderType:
		return "fragment"
	default:
		return "unknown"
	}
}

// Assets is a read-only source of named files, such as
// compiled shaders and the texture atlas.
type Assets interface {
	// ReadFile returns the whole contents of the named asset.
	ReadFile(name string) ([]byte, error)

	// Close releases whatever the source holds open.
	Close() error
}
