package bus

import (
	"context"
	"sync"

	"github.com/yungbote/studydeck-backend/internal/realtime"
)

// LocalBus delivers in-process. It serves single-instance deployments and tests.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []func(realtime.SSEMessage)
}

func NewLocalBus() *LocalBus { return &LocalBus{} }

func (b *LocalBus) Publish(_ context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(msg)
	}
	return nil
}

func (b *LocalBus) StartForwarder(_ context.Context, onMsg func(m realtime.SSEMessage)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, onMsg)
	return nil
}

func (b *LocalBus) Close() error { return nil }
