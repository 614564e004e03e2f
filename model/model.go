// Package model holds the vertex and instance layouts shared by the
// game and the renderer.
package model

import (
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ErrInstanceOverflow is returned when instances do not fit the
// destination buffer.
var ErrInstanceOverflow = errors.New("instance buffer overflow")

// QuadVertex is one corner of the unit quad.
type QuadVertex struct {
	Pos glm.Vec2
	UV  glm.Vec2
}

// QuadInstance is everything needed to place one quad on screen.
// Position.Z orders quads, lower is closer.
type QuadInstance struct {
	Color     glm.Vec4
	Position  glm.Vec3
	Scale     glm.Vec2
	TexOffset glm.Vec2
	TexScale  glm.Vec2
}

// Uniform is the per-frame uniform block.
type Uniform struct {
	Projection glm.Mat4
}

// Layout sizes in bytes
const (
	VertexSize   = int(unsafe.Sizeof(QuadVertex{}))
	InstanceSize = int(unsafe.Sizeof(QuadInstance{}))
	UniformSize  = int(unsafe.Sizeof(Uniform{}))
)

// QuadVertices is a unit quad centered on the origin.
var QuadVertices = []QuadVertex{
	{Pos: glm.Vec2{-0.5, -0.5}, UV: glm.Vec2{0, 1}},
	{Pos: glm.Vec2{0.5, -0.5}, UV: glm.Vec2{1, 1}},
	{Pos: glm.Vec2{0.5, 0.5}, UV: glm.Vec2{1, 0}},
	{Pos: glm.Vec2{-0.5, 0.5}, UV: glm.Vec2{0, 0}},
}

// QuadIndices draw QuadVertices as two triangles.
var QuadIndices = []uint16{0, 1, 2, 2, 3, 0}

// CopyInstances copies the raw bytes of src into dst and returns the
// number of bytes written.
func CopyInstances(dst []byte, src []QuadInstance) (int, error) {
	need := len(src) * InstanceSize
	if need > len(dst) {
		return 0, errors.Wrapf(ErrInstanceOverflow, "%d instances need %d bytes, have %d", len(src), need, len(dst))
	}
	return copy(dst, InstanceBytes(src)), nil
}

// InstanceBytes views instances as bytes without copying.
func InstanceBytes(src []QuadInstance) []byte {
	if len(src) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), len(src)*InstanceSize)
}

// VertexBytes views vertices as bytes without copying.
func VertexBytes(src []QuadVertex) []byte {
	if len(src) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), len(src)*VertexSize)
}

// IndexBytes views indices as bytes without copying.
func IndexBytes(src []uint16) []byte {
	if len(src) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&src[0])), len(src)*2)
}

// UniformBytes views the uniform block as bytes.
func UniformBytes(u *Uniform) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), UniformSize)
}
