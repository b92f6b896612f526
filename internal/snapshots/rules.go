package snapshots

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/mrtmm/manila-ui/internal/api"
	"github.com/mrtmm/manila-ui/internal/messages"
	"github.com/mrtmm/manila-ui/internal/models"
	"github.com/mrtmm/manila-ui/internal/policy"
	"github.com/mrtmm/manila-ui/internal/tables"
	"github.com/mrtmm/manila-ui/internal/urls"
)

// Статусы правил доступа, остальные считаются промежуточными.
var ruleStatusChoices = map[string]tables.Status{
	"active": tables.StatusGood,
	"error":  tables.StatusBad,
}

// NewRulesTable создает таблицу правил доступа к снапшоту snapshotID.
func NewRulesTable(client api.Client, snapshotID string) *tables.Table[models.Rule] {
	deleteAction := NewDeleteRule(client, snapshotID)

	return &tables.Table[models.Rule]{
		Name:        "rules",
		VerboseName: "Rules",
		Columns: []*tables.Column[models.Rule]{
			{
				Name:        "access_type",
				VerboseName: "Access Type",
				Accessor:    func(r *models.Rule) string { return r.AccessType },
			},
			{
				Name:        "access_to",
				VerboseName: "Access to",
				Accessor:    func(r *models.Rule) string { return r.AccessTo },
			},
			{
				Name:          "status",
				VerboseName:   "Status",
				Accessor:      func(r *models.Rule) string { return r.State },
				StatusChoices: ruleStatusChoices,
			},
		},
		ObjectID:      func(r *models.Rule) string { return r.ID },
		ObjectDisplay: func(r *models.Rule) string { return r.ID },
		StatusColumn:  "status",
		TableActions:  []tables.Action[models.Rule]{NewAddRule(client, snapshotID), deleteAction},
		RowActions:    []tables.Action[models.Rule]{deleteAction},
		RowURL: func(ruleID string) string {
			return urls.RuleRow(snapshotID, ruleID)
		},
	}
}

// UpdateRuleRow получает актуальные данные строки правила.
// Правило ищется в списке правил снапшота, отсутствующее правило дает tables.ErrNotFound.
func UpdateRuleRow(ctx context.Context, client api.Client, snapshotID, ruleID string) (*models.Rule, error) {
	rules, err := client.ListSnapshotRules(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, fmt.Errorf("снапшот %s: %w", snapshotID, tables.ErrNotFound)
		}
		return nil, err
	}
	for i := range rules {
		if rules[i].ID == ruleID {
			return &rules[i], nil
		}
	}
	return nil, fmt.Errorf("правило %s снапшота %s: %w", ruleID, snapshotID, tables.ErrNotFound)
}

// AddRule - ссылка на форму добавления правила доступа.
type AddRule struct {
	client     api.Client
	snapshotID string
}

var (
	_ tables.Action[models.Rule] = (*AddRule)(nil)
	_ tables.Linker[models.Rule] = (*AddRule)(nil)
)

// NewAddRule создает действие добавления правила для снапшота snapshotID.
func NewAddRule(client api.Client, snapshotID string) *AddRule {
	return &AddRule{client: client, snapshotID: snapshotID}
}

// Meta возвращает описание действия.
func (a *AddRule) Meta() tables.Meta {
	return tables.Meta{
		Name:        "snapshot_rule_add",
		VerboseName: "Add rule",
		Classes:     []string{"ajax-modal", "btn-create"},
		Icon:        "plus",
		PolicyRules: []policy.Rule{ruleAllowAccess},
		Kind:        tables.KindLink,
	}
}

// Allowed заново получает снапшот и разрешает действие в статусах available и in-use.
func (a *AddRule) Allowed(ctx context.Context, _ *models.Rule) (tables.ActionState, error) {
	snapshot, err := a.client.GetSnapshot(ctx, a.snapshotID)
	if err != nil {
		return tables.ActionState{}, fmt.Errorf("ошибка получения снапшота %s: %w", a.snapshotID, err)
	}
	return tables.Enabled(slices.Contains(activeStates, snapshot.Status)), nil
}

// LinkURL возвращает адрес формы добавления правила.
func (a *AddRule) LinkURL(*models.Rule) string {
	return urls.RuleAdd(a.snapshotID)
}

// DeleteRule - пакетное удаление правил доступа.
type DeleteRule struct {
	client     api.Client
	snapshotID string
}

var (
	_ tables.Action[models.Rule] = (*DeleteRule)(nil)
	_ tables.Deleter             = (*DeleteRule)(nil)
)

// NewDeleteRule создает действие удаления правил снапшота snapshotID.
func NewDeleteRule(client api.Client, snapshotID string) *DeleteRule {
	return &DeleteRule{client: client, snapshotID: snapshotID}
}

// Meta возвращает описание действия.
func (a *DeleteRule) Meta() tables.Meta {
	return tables.Meta{
		Name:        "delete",
		Classes:     []string{"btn-danger"},
		PolicyRules: []policy.Rule{ruleDenyAccess},
		Kind:        tables.KindBatch,
	}
}

// Allowed всегда разрешает удаление.
func (a *DeleteRule) Allowed(context.Context, *models.Rule) (tables.ActionState, error) {
	return tables.Enabled(true), nil
}

// Delete удаляет правило. Ошибка показывается пользователю и дальше не передается.
func (a *DeleteRule) Delete(ctx context.Context, id, _ string) error {
	if err := a.client.DenySnapshotAccess(ctx, a.snapshotID, id); err != nil {
		log.Printf("[DeleteRule] Ошибка удаления правила %s снапшота %s: %v", id, a.snapshotID, err)
		messages.Error(ctx, fmt.Sprintf(`Unable to delete snapshot rule "%s".`, id))
	}
	return nil
}

// Present возвращает название действия.
func (a *DeleteRule) Present(n int) string {
	return plural(n, "Delete Rule", "Delete Rules")
}

// Past возвращает название выполненного действия.
func (a *DeleteRule) Past(n int) string {
	return plural(n, "Deleted Rule", "Deleted Rules")
}
