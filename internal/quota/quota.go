package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrtmm/manila-ui/internal/api"
	"github.com/mrtmm/manila-ui/internal/auth"
	"github.com/mrtmm/manila-ui/internal/models"
)

// Provider возвращает использование квот проекта текущего пользователя.
type Provider interface {
	Usages(ctx context.Context) (models.QuotaUsages, error)
}

// APIProvider получает квоты из сервиса файловых ресурсов.
type APIProvider struct {
	client api.Client
}

var _ Provider = (*APIProvider)(nil)

// NewAPIProvider создает провайдер квот поверх API клиента.
func NewAPIProvider(client api.Client) *APIProvider {
	return &APIProvider{client: client}
}

// Usages получает квоты проекта пользователя из контекста.
func (p *APIProvider) Usages(ctx context.Context) (models.QuotaUsages, error) {
	creds, ok := auth.FromContext(ctx)
	if !ok || creds.ProjectID == "" {
		return nil, ErrNoProject
	}
	usages, err := p.client.GetQuotaUsages(ctx, creds.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения квот: %w", err)
	}
	return usages, nil
}

// Static возвращает заранее заданные квоты.
type Static models.QuotaUsages

// Usages возвращает копию заданных квот.
func (s Static) Usages(context.Context) (models.QuotaUsages, error) {
	usages := make(models.QuotaUsages, len(s))
	for name, usage := range s {
		usages[name] = usage
	}
	return usages, nil
}

// Кастомные ошибки пакета.
var (
	ErrNoProject = errors.New("проект пользователя не определен")
)
