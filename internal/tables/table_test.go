package tables_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtmm/manila-ui/internal/messages"
	"github.com/mrtmm/manila-ui/internal/policy"
	"github.com/mrtmm/manila-ui/internal/tables"
)

type item struct {
	ID        string
	Name      string
	Status    string
	ProjectID string
}

// projectChecker разрешает действия только над объектами проекта project.
type projectChecker struct {
	project string
}

func (c projectChecker) Check(_ context.Context, _ []policy.Rule, target policy.Target) bool {
	p := target[policy.TargetProjectID]
	return p == "" || p == c.project
}

// deleteItem - пакетное удаление элементов.
type deleteItem struct {
	deleted []string
	fail    map[string]error
}

func (a *deleteItem) Meta() tables.Meta {
	return tables.Meta{
		Name:        "delete",
		Classes:     []string{"btn-danger"},
		PolicyRules: []policy.Rule{{Service: "share", Action: "share:delete"}},
		Kind:        tables.KindBatch,
	}
}

func (a *deleteItem) Allowed(_ context.Context, datum *item) (tables.ActionState, error) {
	if datum == nil {
		return tables.Enabled(true), nil
	}
	return tables.Enabled(datum.Status == "available" || datum.Status == "error"), nil
}

func (a *deleteItem) PolicyTarget(datum *item) policy.Target {
	if datum == nil {
		return policy.Target{policy.TargetProjectID: ""}
	}
	return policy.Target{policy.TargetProjectID: datum.ProjectID}
}

func (a *deleteItem) Delete(_ context.Context, id, _ string) error {
	if err, ok := a.fail[id]; ok {
		return err
	}
	a.deleted = append(a.deleted, id)
	return nil
}

func (a *deleteItem) Present(n int) string {
	if n == 1 {
		return "Delete Item"
	}
	return "Delete Items"
}

func (a *deleteItem) Past(n int) string {
	if n == 1 {
		return "Deleted Item"
	}
	return "Deleted Items"
}

// editItem - ссылка, недоступная для элементов в ошибке и неактивная для "locked".
type editItem struct{}

func (editItem) Meta() tables.Meta {
	return tables.Meta{Name: "edit", VerboseName: "Edit", Classes: []string{"ajax-modal"}}
}

func (editItem) Allowed(_ context.Context, datum *item) (tables.ActionState, error) {
	switch datum.Status {
	case "error":
		return tables.Enabled(false), nil
	case "locked":
		return tables.ActionState{Allowed: true, Label: "Edit (Locked)", ExtraClasses: []string{tables.ClassDisabled}}, nil
	case "broken":
		return tables.ActionState{}, errors.New("boom")
	}
	return tables.Enabled(true), nil
}

func (editItem) LinkURL(datum *item) string {
	return "/items/" + datum.ID + "/edit"
}

func newTable(del *deleteItem) *tables.Table[item] {
	return &tables.Table[item]{
		Name:          "items",
		VerboseName:   "Items",
		ObjectID:      func(i *item) string { return i.ID },
		ObjectDisplay: func(i *item) string { return i.Name },
		StatusColumn:  "status",
		Columns: []*tables.Column[item]{
			{
				Name:        "name",
				VerboseName: "Name",
				Accessor:    func(i *item) string { return i.Name },
				Link:        func(i *item) string { return "/items/" + i.ID + "/" },
			},
			statusColumn(),
		},
		TableActions: []tables.Action[item]{del},
		RowActions:   []tables.Action[item]{editItem{}, del},
		Filter:       &tables.NameFilter[item]{Name: func(i *item) string { return i.Name }},
		RowURL:       func(id string) string { return "/items/" + id + "/row" },
	}
}

func TestTable_Render(t *testing.T) {
	data := []item{
		{ID: "1", Name: "alpha", Status: "available", ProjectID: "p1"},
		{ID: "2", Name: "beta", Status: "creating", ProjectID: "p1"},
		{ID: "3", Name: "gamma", Status: "error", ProjectID: "p2"},
		{ID: "4", Name: "delta", Status: "locked", ProjectID: "p1"},
	}
	ctx, _ := messages.WithCollector(context.Background())

	view, err := newTable(&deleteItem{}).Render(ctx, projectChecker{project: "p1"}, data, "")
	require.NoError(t, err)

	assert.Equal(t, "items", view.Name)
	assert.True(t, view.Multiselect)
	require.Len(t, view.TableActions, 1)
	assert.Equal(t, "Delete Items", view.TableActions[0].Label)
	assert.Equal(t, "delete", view.TableActions[0].FormValue())
	require.Len(t, view.Rows, 4)

	t.Run("Доступная строка", func(t *testing.T) {
		row := view.Rows[0]
		assert.Equal(t, "good", row.Status)
		assert.False(t, row.Ajax)
		assert.Equal(t, "/items/1/", row.Cells[0].Link)
		assert.Equal(t, "Available", row.Cells[1].Value)
		require.Len(t, row.Actions, 2)
		assert.Equal(t, "/items/1/edit", row.Actions[0].URL)
		assert.Equal(t, "Delete Item", row.Actions[1].Label)
		assert.Equal(t, "delete__1", row.Actions[1].FormValue())
	})

	t.Run("Ожидающая строка обновляется", func(t *testing.T) {
		row := view.Rows[1]
		assert.Equal(t, "pending", row.Status)
		assert.True(t, row.Ajax)
		assert.Equal(t, "/items/2/row", row.UpdateURL)
		// Удаление недоступно для creating
		assert.Len(t, row.Actions, 1)
	})

	t.Run("Чужой проект и ошибка", func(t *testing.T) {
		row := view.Rows[2]
		assert.Equal(t, "bad", row.Status)
		// edit скрыт Allowed, delete скрыт политикой
		assert.Empty(t, row.Actions)
	})

	t.Run("Неактивное действие", func(t *testing.T) {
		row := view.Rows[3]
		require.NotEmpty(t, row.Actions)
		edit := row.Actions[0]
		assert.True(t, edit.Disabled)
		assert.Equal(t, "Edit (Locked)", edit.Label)
		assert.Equal(t, "ajax-modal disabled", edit.Class())
	})
}

func TestTable_Render_Filter(t *testing.T) {
	data := []item{
		{ID: "1", Name: "Nightly", Status: "available"},
		{ID: "2", Name: "weekly", Status: "available"},
	}
	view, err := newTable(&deleteItem{}).Render(context.Background(), policy.AllowAll{}, data, " NIGHT ")
	require.NoError(t, err)

	require.Len(t, view.Rows, 1)
	assert.Equal(t, "1", view.Rows[0].ID)
	assert.Equal(t, &tables.FilterView{Param: "q", Query: " NIGHT "}, view.Filter)
}

func TestTable_Render_ActionError(t *testing.T) {
	data := []item{
		{ID: "1", Name: "a", Status: "broken"},
		{ID: "2", Name: "b", Status: "broken"},
	}
	ctx, collector := messages.WithCollector(context.Background())

	view, err := newTable(&deleteItem{}).Render(ctx, policy.AllowAll{}, data, "")
	require.NoError(t, err)

	// Действие с ошибкой скрыто, сообщение об ошибке одно на таблицу
	for _, row := range view.Rows {
		assert.False(t, slices.ContainsFunc(row.Actions, func(a tables.ActionView) bool { return a.Name == "edit" }))
	}
	assert.Len(t, collector.Messages(), 1)
}

func TestTable_Render_Misconfigured(t *testing.T) {
	table := &tables.Table[item]{Name: "broken"}
	_, err := table.Render(context.Background(), policy.AllowAll{}, nil, "")
	require.ErrorIs(t, err, tables.ErrMisconfigured)
}

func TestTable_RenderRow(t *testing.T) {
	row, err := newTable(&deleteItem{}).RenderRow(context.Background(), policy.AllowAll{},
		&item{ID: "7", Name: "", Status: "creating"})
	require.NoError(t, err)

	assert.Equal(t, "7", row.Display)
	assert.True(t, row.Ajax)
}

func TestRenderAction(t *testing.T) {
	av, ok := tables.RenderAction[item](context.Background(), policy.AllowAll{}, editItem{}, &item{ID: "1", Status: "available"})
	require.True(t, ok)
	assert.Equal(t, "/items/1/edit", av.URL)

	_, ok = tables.RenderAction[item](context.Background(), policy.DenyAll{}, &deleteItem{}, &item{ID: "1", Status: "available"})
	assert.False(t, ok)
}

func TestTable_Action(t *testing.T) {
	table := newTable(&deleteItem{})

	a, ok := table.Action("delete")
	require.True(t, ok)
	assert.Equal(t, "delete", a.Meta().Name)

	_, ok = table.Action("unknown")
	assert.False(t, ok)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		value    string
		name     string
		objectID string
	}{
		{value: "delete", name: "delete"},
		{value: "delete__s1", name: "delete", objectID: "s1"},
		{value: "", name: ""},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			name, id := tables.ParseAction(tt.value)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.objectID, id)
		})
	}
}

func TestUserMessage(t *testing.T) {
	userErr := &tables.UserError{Message: "Friendly", Err: errors.New("raw")}
	wrapped := errors.Join(errors.New("outer"), userErr)

	assert.Equal(t, "Friendly", tables.UserMessage(wrapped, "fallback"))
	assert.Equal(t, "fallback", tables.UserMessage(errors.New("raw"), "fallback"))
	assert.Equal(t, "Friendly: raw", userErr.Error())
	assert.ErrorIs(t, userErr, userErr.Err)
}
