package snapshots

import (
	"context"
	"sync"

	"github.com/mrtmm/manila-ui/internal/api"
	"github.com/mrtmm/manila-ui/internal/models"
)

// ShareLookup запоминает ресурсы, полученные в рамках одного запроса.
// Действия строк снапшотов одного ресурса обращаются к сервису один раз.
type ShareLookup struct {
	client api.Client

	mu     sync.Mutex
	shares map[string]*models.Share
	errs   map[string]error
}

// NewShareLookup создает кэш ресурсов для одного запроса.
func NewShareLookup(client api.Client) *ShareLookup {
	return &ShareLookup{
		client: client,
		shares: make(map[string]*models.Share),
		errs:   make(map[string]error),
	}
}

// Get возвращает ресурс по ID. Ошибка получения тоже запоминается.
func (l *ShareLookup) Get(ctx context.Context, id string) (*models.Share, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if share, ok := l.shares[id]; ok {
		return share, nil
	}
	if err, ok := l.errs[id]; ok {
		return nil, err
	}

	share, err := l.client.GetShare(ctx, id)
	if err != nil {
		l.errs[id] = err
		return nil, err
	}
	l.shares[id] = share
	return share, nil
}

// Seed добавляет уже полученные ресурсы, например из списка ресурсов проекта.
func (l *ShareLookup) Seed(shares []models.Share) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range shares {
		share := shares[i]
		l.shares[share.ID] = &share
	}
}
