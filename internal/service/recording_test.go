package service_test

import (
	"context"
	"sync"

	"github.com/MikeMC777/cozy-cafe/internal/memstore"
	"github.com/MikeMC777/cozy-cafe/internal/menu"
	"github.com/MikeMC777/cozy-cafe/internal/service"
)

// recordingStore notes which menu rows a transaction locks and which writes touch stock.
type recordingStore struct {
	*memstore.Store

	mu        sync.Mutex
	locked    []string
	setStocks []string
}

type recordingMenu struct {
	menu.Repository
	rec *recordingStore
}

func (m recordingMenu) GetForUpdate(ctx context.Context, id string) (*menu.Item, error) {
	m.rec.mu.Lock()
	m.rec.locked = append(m.rec.locked, id)
	m.rec.mu.Unlock()
	return m.Repository.GetForUpdate(ctx, id)
}

func (m recordingMenu) SetStock(ctx context.Context, id string, stock int) error {
	m.rec.mu.Lock()
	m.rec.setStocks = append(m.rec.setStocks, id)
	m.rec.mu.Unlock()
	return m.Repository.SetStock(ctx, id, stock)
}

func (s *recordingStore) Do(ctx context.Context, fn func(ctx context.Context, r service.Repos) error) error {
	return s.Store.Do(ctx, func(ctx context.Context, r service.Repos) error {
		r.Menu = recordingMenu{Repository: r.Menu, rec: s}
		return fn(ctx, r)
	})
}

func (s *recordingStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked, s.setStocks = nil, nil
}

// lockOrder is the order in which distinct rows were first locked.
func (s *recordingStore) lockOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, id := range s.locked {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
