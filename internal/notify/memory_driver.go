package notify

import "context"

const defaultMemoryQueueSize = 256

// MemoryDriver: очередь в памяти процесса на буферизованном канале.
type MemoryDriver struct {
	ch chan []byte
}

// NewMemoryDriver создаёт очередь в памяти; size <= 0 означает размер по умолчанию.
func NewMemoryDriver(size int) *MemoryDriver {
	if size <= 0 {
		size = defaultMemoryQueueSize
	}
	return &MemoryDriver{ch: make(chan []byte, size)}
}

// Push кладёт задание в очередь, ожидая свободного места до отмены контекста.
func (d *MemoryDriver) Push(ctx context.Context, payload []byte) error {
	select {
	case d.ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop ждёт задание до отмены контекста.
func (d *MemoryDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-d.ch:
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len возвращает число заданий в очереди.
func (d *MemoryDriver) Len() int {
	return len(d.ch)
}
