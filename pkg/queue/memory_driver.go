package queue

import (
	"context"
	"fmt"
)

// MemoryDriver is a buffered channel. Jobs are lost on restart.
type MemoryDriver struct {
	ch chan []byte
}

func NewMemoryDriver(size int) *MemoryDriver {
	return &MemoryDriver{ch: make(chan []byte, size)}
}

// Push fails instead of blocking when the buffer is full.
func (d *MemoryDriver) Push(_ context.Context, payload []byte) error {
	select {
	case d.ch <- payload:
		return nil
	default:
		return fmt.Errorf("queue/memory: buffer full (%d jobs)", cap(d.ch))
	}
}

func (d *MemoryDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload := <-d.ch:
		return payload, nil
	}
}

// Len is the number of jobs waiting.
func (d *MemoryDriver) Len() int { return len(d.ch) }
