package service

import (
	"sync"

	"github.com/google/uuid"

	"fakearchive/internal/model"
)

// pendingSaves holds messages captured from inbox pages until the user
// clicks their store link. Oldest entries are evicted beyond limit.
type pendingSaves struct {
	mu    sync.Mutex
	limit int
	items map[string]model.Message
	order []string
}

func newPendingSaves(limit int) *pendingSaves {
	if limit <= 0 {
		limit = 256
	}
	return &pendingSaves{limit: limit, items: make(map[string]model.Message)}
}

func (p *pendingSaves) put(msg model.Message) string {
	token := uuid.NewString()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[token] = msg
	p.order = append(p.order, token)
	for len(p.order) > p.limit {
		delete(p.items, p.order[0])
		p.order = p.order[1:]
	}
	return token
}

func (p *pendingSaves) get(token string) (model.Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg, ok := p.items[token]
	return msg, ok
}

func (p *pendingSaves) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
