package render

import (
	"fmt"
)

// Buffer is a cached GPU buffer with the element count it was created from.
type Buffer struct {
	ID    BufferID
	Count int
}

// Cache owns the vertex and index buffers shared by every level or patch of a terrain.
// It is created by the terrain driver, filled once during construction and released with it.
type Cache struct {
	dev     Device
	buffers map[string]Buffer
}

// NewCache creates an empty cache on the given device.
func NewCache(dev Device) *Cache {
	return &Cache{
		dev:     dev,
		buffers: make(map[string]Buffer),
	}
}

// Device returns the device the cache allocates on.
func (c *Cache) Device() Device {
	return c.dev
}

// Indices returns the index buffer stored under key, creating it from build on first use.
func (c *Cache) Indices(key string, build func() []uint16) (Buffer, error) {
	if b, ok := c.buffers[key]; ok {
		return b, nil
	}
	indices := build()
	id, err := c.dev.CreateIndexBuffer(indices)
	if err != nil {
		return Buffer{}, fmt.Errorf("index buffer %s: %w", key, err)
	}
	b := Buffer{ID: id, Count: len(indices)}
	c.buffers[key] = b
	return b, nil
}

// GridVertices returns the grid vertex buffer stored under key, creating it on first use.
func (c *Cache) GridVertices(key string, build func() []GridVertex) (Buffer, error) {
	if b, ok := c.buffers[key]; ok {
		return b, nil
	}
	vertices := build()
	id, err := c.dev.CreateGridVertexBuffer(vertices)
	if err != nil {
		return Buffer{}, fmt.Errorf("vertex buffer %s: %w", key, err)
	}
	b := Buffer{ID: id, Count: len(vertices)}
	c.buffers[key] = b
	return b, nil
}

// Len returns the number of cached buffers.
func (c *Cache) Len() int {
	return len(c.buffers)
}

// Release deletes every cached buffer.
func (c *Cache) Release() {
	for key, b := range c.buffers {
		c.dev.DeleteBuffer(b.ID)
		delete(c.buffers, key)
	}
}
