package snapshots

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mrtmm/manila-ui/internal/api"
	"github.com/mrtmm/manila-ui/internal/models"
	"github.com/mrtmm/manila-ui/internal/policy"
	"github.com/mrtmm/manila-ui/internal/quota"
	"github.com/mrtmm/manila-ui/internal/tables"
	"github.com/mrtmm/manila-ui/internal/urls"
)

// Статусы, в которых снапшот можно удалить.
var deletableStates = []string{models.StatusAvailable, models.StatusError}

// Статусы ресурса и снапшота, в которых с ними можно работать.
var activeStates = []string{models.StatusAvailable, models.StatusInUse}

// Подстроки ошибки сервиса, означающие, что от снапшота зависят ресурсы.
var dependencyMarkers = []string{"snapshots", "dependent"}

// Правила политик действий.
var (
	ruleCreateSnapshot = policy.Rule{Service: "share", Action: "share:create_snapshot"}
	ruleDeleteSnapshot = policy.Rule{Service: "share", Action: "share:delete_snapshot"}
	ruleCreateShare    = policy.Rule{Service: "share", Action: "share:create"}
	ruleAccessGetAll   = policy.Rule{Service: "share", Action: "share:access_get_all"}
	ruleAllowAccess    = policy.Rule{Service: "share", Action: "share:allow_access"}
	ruleDenyAccess     = policy.Rule{Service: "share", Action: "share:deny_access"}
)

const (
	createSnapshotLabel = "Create Snapshot"
	quotaExceededSuffix = "(Quota exceeded)"
)

// CreateSnapshot - ссылка на форму создания снапшота ресурса.
type CreateSnapshot struct {
	quota quota.Provider
}

var (
	_ tables.Action[models.Share]         = (*CreateSnapshot)(nil)
	_ tables.PolicyTargeter[models.Share] = (*CreateSnapshot)(nil)
	_ tables.Linker[models.Share]         = (*CreateSnapshot)(nil)
)

// NewCreateSnapshot создает действие создания снапшота.
func NewCreateSnapshot(quotas quota.Provider) *CreateSnapshot {
	return &CreateSnapshot{quota: quotas}
}

// Meta возвращает описание действия.
func (a *CreateSnapshot) Meta() tables.Meta {
	return tables.Meta{
		Name:        "snapshots",
		VerboseName: createSnapshotLabel,
		Classes:     []string{"ajax-modal", "btn-camera"},
		PolicyRules: []policy.Rule{ruleCreateSnapshot},
		Kind:        tables.KindLink,
	}
}

// PolicyTarget возвращает проект ресурса.
func (a *CreateSnapshot) PolicyTarget(share *models.Share) policy.Target {
	return projectTarget(share)
}

// Allowed разрешает создание снапшота активного ресурса с поддержкой снапшотов.
// Если квота снапшотов исчерпана, действие показывается неактивным.
func (a *CreateSnapshot) Allowed(ctx context.Context, share *models.Share) (tables.ActionState, error) {
	usages, err := a.quota.Usages(ctx)
	if err != nil {
		return tables.ActionState{}, fmt.Errorf("ошибка проверки квоты снапшотов: %w", err)
	}

	var state tables.ActionState
	if usage, ok := usages[models.QuotaSnapshots]; ok && usage.Exhausted() {
		state.Label = createSnapshotLabel + " " + quotaExceededSuffix
		state.ExtraClasses = []string{tables.ClassDisabled}
	}

	state.Allowed = share != nil && slices.Contains(activeStates, share.Status) && share.SnapshotSupport
	return state, nil
}

// LinkURL возвращает адрес формы создания снапшота ресурса.
func (a *CreateSnapshot) LinkURL(share *models.Share) string {
	return urls.CreateSnapshot(share.ID)
}

// DeleteSnapshot - пакетное удаление снапшотов.
type DeleteSnapshot struct {
	client api.Client
}

var (
	_ tables.Action[models.Snapshot]         = (*DeleteSnapshot)(nil)
	_ tables.PolicyTargeter[models.Snapshot] = (*DeleteSnapshot)(nil)
	_ tables.Deleter                         = (*DeleteSnapshot)(nil)
)

// NewDeleteSnapshot создает действие удаления снапшотов.
func NewDeleteSnapshot(client api.Client) *DeleteSnapshot {
	return &DeleteSnapshot{client: client}
}

// Meta возвращает описание действия.
func (a *DeleteSnapshot) Meta() tables.Meta {
	return tables.Meta{
		Name:        "delete",
		Classes:     []string{"btn-danger"},
		PolicyRules: []policy.Rule{ruleDeleteSnapshot},
		Kind:        tables.KindBatch,
	}
}

// PolicyTarget возвращает проект снапшота.
func (a *DeleteSnapshot) PolicyTarget(snapshot *models.Snapshot) policy.Target {
	if snapshot == nil {
		return policy.Target{policy.TargetProjectID: ""}
	}
	return policy.Target{policy.TargetProjectID: snapshot.ProjectID}
}

// Allowed разрешает удаление снапшотов в статусах available и error.
// Без снапшота (действие таблицы) удаление разрешено.
func (a *DeleteSnapshot) Allowed(_ context.Context, snapshot *models.Snapshot) (tables.ActionState, error) {
	if snapshot == nil {
		return tables.Enabled(true), nil
	}
	return tables.Enabled(slices.Contains(deletableStates, snapshot.Status)), nil
}

// Delete удаляет снапшот. Если от снапшота зависят ресурсы, возвращает *tables.UserError.
func (a *DeleteSnapshot) Delete(ctx context.Context, id, display string) error {
	err := a.client.DeleteSnapshot(ctx, id)
	if err == nil {
		return nil
	}
	if hasDependencyMarker(err) {
		return &tables.UserError{
			Message: fmt.Sprintf(`Unable to delete snapshot "%s". One or more shares depend on it.`, display),
			Err:     err,
		}
	}
	return err
}

// Present возвращает название действия.
func (a *DeleteSnapshot) Present(n int) string {
	return plural(n, "Delete Snapshot", "Delete Snapshots")
}

// Past возвращает название выполненного действия.
func (a *DeleteSnapshot) Past(n int) string {
	return plural(n, "Deleted Snapshot", "Deleted Snapshots")
}

// hasDependencyMarker проверяет сообщение ошибки сервиса на признаки зависимых ресурсов.
func hasDependencyMarker(err error) bool {
	var svcErr *api.ServiceError
	if !errors.As(err, &svcErr) {
		return false
	}
	for _, marker := range dependencyMarkers {
		if strings.Contains(svcErr.Message, marker) {
			return true
		}
	}
	return false
}

// CreateShareFromSnapshot - ссылка на форму создания ресурса из снапшота.
type CreateShareFromSnapshot struct {
	shares *ShareLookup
}

var (
	_ tables.Action[models.Snapshot] = (*CreateShareFromSnapshot)(nil)
	_ tables.Linker[models.Snapshot] = (*CreateShareFromSnapshot)(nil)
)

// NewCreateShareFromSnapshot создает действие создания ресурса из снапшота.
func NewCreateShareFromSnapshot(shares *ShareLookup) *CreateShareFromSnapshot {
	return &CreateShareFromSnapshot{shares: shares}
}

// Meta возвращает описание действия.
func (a *CreateShareFromSnapshot) Meta() tables.Meta {
	return tables.Meta{
		Name:        "create_from_snapshot",
		VerboseName: "Create Share",
		Classes:     []string{"ajax-modal", "btn-camera"},
		PolicyRules: []policy.Rule{ruleCreateShare},
		Kind:        tables.KindLink,
	}
}

// Allowed разрешает действие, если исходный ресурс снапшота доступен.
func (a *CreateShareFromSnapshot) Allowed(ctx context.Context, snapshot *models.Snapshot) (tables.ActionState, error) {
	if snapshot == nil {
		return tables.Enabled(false), nil
	}
	share, err := a.shares.Get(ctx, snapshot.ShareID)
	if err != nil {
		return tables.ActionState{}, fmt.Errorf("ошибка получения ресурса снапшота %s: %w", snapshot.ID, err)
	}
	return tables.Enabled(share.Status == models.StatusAvailable), nil
}

// LinkURL возвращает адрес формы создания ресурса с параметром snapshot_id.
func (a *CreateShareFromSnapshot) LinkURL(snapshot *models.Snapshot) string {
	return urls.ShareCreate(snapshot.ID)
}

// EditSnapshot - ссылка на форму изменения снапшота.
type EditSnapshot struct{}

var (
	_ tables.Action[models.Snapshot] = EditSnapshot{}
	_ tables.Linker[models.Snapshot] = EditSnapshot{}
)

// Meta возвращает описание действия.
func (EditSnapshot) Meta() tables.Meta {
	return tables.Meta{
		Name:        "edit_snapshot",
		VerboseName: "Edit Snapshot",
		Classes:     []string{"ajax-modal", "btn-camera"},
		Kind:        tables.KindLink,
	}
}

// Allowed всегда разрешает изменение.
func (EditSnapshot) Allowed(context.Context, *models.Snapshot) (tables.ActionState, error) {
	return tables.Enabled(true), nil
}

// LinkURL возвращает адрес формы изменения снапшота.
func (EditSnapshot) LinkURL(snapshot *models.Snapshot) string {
	return urls.SnapshotEdit(snapshot.ID)
}

// ManageRules - ссылка на правила доступа к снапшоту.
type ManageRules struct {
	shares *ShareLookup
}

var (
	_ tables.Action[models.Snapshot] = (*ManageRules)(nil)
	_ tables.Linker[models.Snapshot] = (*ManageRules)(nil)
)

// NewManageRules создает действие управления правилами доступа.
func NewManageRules(shares *ShareLookup) *ManageRules {
	return &ManageRules{shares: shares}
}

// Meta возвращает описание действия.
func (a *ManageRules) Meta() tables.Meta {
	return tables.Meta{
		Name:        "snapshot_manage_rules",
		VerboseName: "Manage Rules",
		Classes:     []string{"btn-edit"},
		PolicyRules: []policy.Rule{ruleAccessGetAll},
		Kind:        tables.KindLink,
	}
}

// Allowed разрешает действие, если ресурс снапшота поддерживает монтирование снапшотов.
func (a *ManageRules) Allowed(ctx context.Context, snapshot *models.Snapshot) (tables.ActionState, error) {
	if snapshot == nil {
		return tables.Enabled(false), nil
	}
	share, err := a.shares.Get(ctx, snapshot.ShareID)
	if err != nil {
		return tables.ActionState{}, fmt.Errorf("ошибка получения ресурса снапшота %s: %w", snapshot.ID, err)
	}
	return tables.Enabled(share.MountSnapshotSupport), nil
}

// LinkURL возвращает адрес таблицы правил снапшота.
func (a *ManageRules) LinkURL(snapshot *models.Snapshot) string {
	return urls.SnapshotRules(snapshot.ID)
}

func projectTarget(share *models.Share) policy.Target {
	if share == nil {
		return policy.Target{policy.TargetProjectID: ""}
	}
	return policy.Target{policy.TargetProjectID: share.ProjectID}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
