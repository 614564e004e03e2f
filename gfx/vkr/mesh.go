package vkr

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tilesweep/model"
)

// quadMesh is the shared unit quad every instance is drawn with.
type quadMesh struct {
	vertices Buffer
	indices  Buffer
}

func newQuadMesh(d *Device, pool vk.CommandPool) (*quadMesh, error) {
	vertices, err := d.upload(pool, model.VertexBytes(model.QuadVertices), vk.BufferUsageVertexBufferBit)
	if err != nil {
		return nil, err
	}
	indices, err := d.upload(pool, model.IndexBytes(model.QuadIndices), vk.BufferUsageIndexBufferBit)
	if err != nil {
		vertices.Release()
		return nil, err
	}
	return &quadMesh{vertices: vertices, indices: indices}, nil
}

func (m *quadMesh) indexCount() uint32 {
	return uint32(len(model.QuadIndices))
}

func (m *quadMesh) Release() {
	m.indices.Release()
	m.vertices.Release()
}
