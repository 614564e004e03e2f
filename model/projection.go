package model

import (
	glm "github.com/go-gl/mathgl/mgl32"
)

// Projection maps world space onto Vulkan clip space for a surface of
// the given size. The shorter side spans -1..1 so quads stay square,
// +Y points up and Z passes through unchanged into the 0..1 depth range.
func Projection(width, height uint32) glm.Mat4 {
	if width == 0 || height == 0 {
		return glm.Ident4()
	}
	ax, ay := float32(1), float32(1)
	aspect := float32(width) / float32(height)
	if aspect >= 1 {
		ax = aspect
	} else {
		ay = 1 / aspect
	}
	return glm.Scale3D(1/ax, -1/ay, 1)
}

// ScreenToWorld converts normalized device coordinates (Y down) back
// into world space.
func ScreenToWorld(projection glm.Mat4, ndc glm.Vec2) glm.Vec2 {
	world := projection.Inv().Mul4x1(glm.Vec4{ndc.X(), ndc.Y(), 0, 1})
	return glm.Vec2{world.X(), world.Y()}
}

// Extent returns the half width and half height of the visible world.
func Extent(width, height uint32) glm.Vec2 {
	p := Projection(width, height)
	return glm.Vec2{1 / p[0], 1 / glm.Abs(p[5])}
}
