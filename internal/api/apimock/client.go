// Package apimock содержит мок API клиента сервиса файловых ресурсов для тестов.
package apimock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mrtmm/manila-ui/internal/api"
	"github.com/mrtmm/manila-ui/internal/models"
)

// Client - мок api.Client на основе testify/mock.
type Client struct {
	mock.Mock
}

var _ api.Client = (*Client)(nil)

func (m *Client) GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*models.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) ListSnapshots(ctx context.Context) ([]models.Snapshot, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.([]models.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) CreateSnapshot(ctx context.Context, req models.CreateSnapshotRequest) (*models.Snapshot, error) {
	args := m.Called(ctx, req)
	if s := args.Get(0); s != nil {
		return s.(*models.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) UpdateSnapshot(ctx context.Context, id string, req models.UpdateSnapshotRequest) error {
	args := m.Called(ctx, id, req)
	return args.Error(0)
}

func (m *Client) DeleteSnapshot(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Client) ListSnapshotRules(ctx context.Context, snapshotID string) ([]models.Rule, error) {
	args := m.Called(ctx, snapshotID)
	if r := args.Get(0); r != nil {
		return r.([]models.Rule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) AllowSnapshotAccess(
	ctx context.Context,
	snapshotID string,
	req models.AllowAccessRequest,
) (*models.Rule, error) {
	args := m.Called(ctx, snapshotID, req)
	if r := args.Get(0); r != nil {
		return r.(*models.Rule), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) DenySnapshotAccess(ctx context.Context, snapshotID, ruleID string) error {
	args := m.Called(ctx, snapshotID, ruleID)
	return args.Error(0)
}

func (m *Client) GetShare(ctx context.Context, id string) (*models.Share, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*models.Share), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) ListShares(ctx context.Context) ([]models.Share, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.([]models.Share), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) CreateShare(ctx context.Context, req models.CreateShareRequest) (*models.Share, error) {
	args := m.Called(ctx, req)
	if s := args.Get(0); s != nil {
		return s.(*models.Share), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) GetQuotaUsages(ctx context.Context, projectID string) (models.QuotaUsages, error) {
	args := m.Called(ctx, projectID)
	if q := args.Get(0); q != nil {
		return q.(models.QuotaUsages), args.Error(1)
	}
	return nil, args.Error(1)
}
