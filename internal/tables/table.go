package tables

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mrtmm/manila-ui/internal/messages"
	"github.com/mrtmm/manila-ui/internal/policy"
)

// Разделитель имени действия и ID объекта в поле формы action.
const actionSeparator = "__"

// Table описывает таблицу объектов типа T.
type Table[T any] struct {
	Name        string
	VerboseName string
	Columns     []*Column[T]
	// ObjectID возвращает идентификатор строки.
	ObjectID func(datum *T) string
	// ObjectDisplay возвращает имя строки в сообщениях.
	ObjectDisplay func(datum *T) string
	// StatusColumn - имя колонки, определяющей статус строки.
	StatusColumn string
	TableActions []Action[T]
	RowActions   []Action[T]
	// Filter - фильтр по имени, nil - таблица без фильтра.
	Filter *NameFilter[T]
	// RowURL возвращает адрес ajax-обновления строки, nil - строки не обновляются.
	RowURL func(id string) string
}

// HeaderView - заголовок колонки.
type HeaderView struct {
	Name        string
	VerboseName string
	Attrs       map[string]string
}

// CellView - ячейка таблицы.
type CellView struct {
	Name  string
	Value string
	// Full - значение до обрезки, показывается во всплывающей подсказке.
	Full  string
	Link  string
	Attrs map[string]string
}

// Truncated сообщает, что значение ячейки обрезано.
func (c CellView) Truncated() bool {
	return c.Value != c.Full
}

// RowView - строка таблицы.
type RowView struct {
	ID      string
	Display string
	Cells   []CellView
	Status  string
	// Ajax - строка в ожидающем статусе, браузер периодически ее обновляет.
	Ajax      bool
	UpdateURL string
	Actions   []ActionView
	// Selectable - у таблицы есть пакетные действия, строку можно выбрать.
	Selectable bool
}

// FilterView - состояние фильтра по имени.
type FilterView struct {
	Param string
	Query string
}

// View - таблица, подготовленная к отрисовке.
type View struct {
	Name         string
	VerboseName  string
	Headers      []HeaderView
	Rows         []RowView
	TableActions []ActionView
	Filter       *FilterView
	// Multiselect - в таблице есть пакетные действия и колонка выбора строк.
	Multiselect bool
}

// Render готовит таблицу к отрисовке.
// Для каждого действия сначала проверяются политики, затем Allowed.
// Неразрешенные действия не показываются.
func (t *Table[T]) Render(ctx context.Context, checker policy.Checker, data []T, query string) (*View, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	view := &View{
		Name:        t.Name,
		VerboseName: t.VerboseName,
	}
	for _, c := range t.Columns {
		view.Headers = append(view.Headers, HeaderView{Name: c.Name, VerboseName: c.VerboseName, Attrs: c.Attrs})
	}

	if t.Filter != nil {
		view.Filter = &FilterView{Param: t.Filter.Param(), Query: query}
		data = t.Filter.Apply(data, query)
	}

	reporter := &stateErrorReporter{table: t.Name}
	for _, action := range t.TableActions {
		av, ok := renderAction(ctx, checker, action, nil, "", reporter)
		if !ok {
			continue
		}
		if av.IsBatch() {
			view.Multiselect = true
		}
		view.TableActions = append(view.TableActions, av)
	}

	view.Rows = make([]RowView, 0, len(data))
	for i := range data {
		view.Rows = append(view.Rows, t.renderRow(ctx, checker, &data[i], reporter))
	}
	return view, nil
}

// RenderRow готовит к отрисовке одну строку (ajax-обновление).
func (t *Table[T]) RenderRow(ctx context.Context, checker policy.Checker, datum *T) (*RowView, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	row := t.renderRow(ctx, checker, datum, &stateErrorReporter{table: t.Name})
	return &row, nil
}

// RenderAction готовит к отрисовке отдельное действие над объектом, например на странице объекта.
// Возвращает false, если действие не разрешено.
func RenderAction[T any](ctx context.Context, checker policy.Checker, action Action[T], datum *T) (ActionView, bool) {
	return renderAction(ctx, checker, action, datum, "", &stateErrorReporter{table: action.Meta().Name})
}

func (t *Table[T]) renderRow(ctx context.Context, checker policy.Checker, datum *T, reporter *stateErrorReporter) RowView {
	id := t.ObjectID(datum)
	row := RowView{
		ID:         id,
		Display:    t.display(datum),
		Status:     StatusGood.String(),
		Selectable: t.hasBatchActions(),
	}

	for _, c := range t.Columns {
		value, full := c.Value(datum)
		cell := CellView{Name: c.Name, Value: value, Full: full, Attrs: c.Attrs}
		if c.Link != nil {
			cell.Link = c.Link(datum)
		}
		row.Cells = append(row.Cells, cell)

		if c.Name == t.StatusColumn {
			status := c.Status(datum)
			row.Status = status.String()
			row.Ajax = status == StatusPending && t.RowURL != nil
		}
	}
	if row.Ajax {
		row.UpdateURL = t.RowURL(id)
	}

	for _, action := range t.RowActions {
		if av, ok := renderAction(ctx, checker, action, datum, id, reporter); ok {
			row.Actions = append(row.Actions, av)
		}
	}
	return row
}

func renderAction[T any](
	ctx context.Context,
	checker policy.Checker,
	action Action[T],
	datum *T,
	objectID string,
	reporter *stateErrorReporter,
) (ActionView, bool) {
	if !policyAllowed(ctx, checker, action, datum) {
		return ActionView{}, false
	}
	state, err := action.Allowed(ctx, datum)
	if err != nil {
		reporter.report(ctx, action.Meta().Name, err)
		return ActionView{}, false
	}
	if !state.Allowed {
		return ActionView{}, false
	}
	return viewOf(action, state, datum, objectID), true
}

// stateErrorReporter сообщает пользователю об ошибках проверки действий один раз за отрисовку.
type stateErrorReporter struct {
	table    string
	reported bool
}

func (r *stateErrorReporter) report(ctx context.Context, action string, err error) {
	log.Printf("[Table:%s] Ошибка проверки действия %s: %v", r.table, action, err)
	if r.reported {
		return
	}
	r.reported = true
	messages.Error(ctx, UserMessage(err, "Unable to retrieve the list of available actions."))
}

func (t *Table[T]) hasBatchActions() bool {
	for _, a := range t.TableActions {
		if a.Meta().Kind == KindBatch {
			return true
		}
	}
	return false
}

func (t *Table[T]) display(datum *T) string {
	if t.ObjectDisplay != nil {
		if name := t.ObjectDisplay(datum); name != "" {
			return name
		}
	}
	return t.ObjectID(datum)
}

// Find возвращает строку с заданным ID.
func (t *Table[T]) Find(data []T, id string) (*T, bool) {
	for i := range data {
		if t.ObjectID(&data[i]) == id {
			return &data[i], true
		}
	}
	return nil, false
}

// Action возвращает действие таблицы или строки по имени.
func (t *Table[T]) Action(name string) (Action[T], bool) {
	for _, actions := range [][]Action[T]{t.TableActions, t.RowActions} {
		for _, a := range actions {
			if a.Meta().Name == name {
				return a, true
			}
		}
	}
	return nil, false
}

func (t *Table[T]) validate() error {
	if t.ObjectID == nil {
		return fmt.Errorf("таблица %s: %w", t.Name, ErrMisconfigured)
	}
	for _, c := range t.Columns {
		if c.Accessor == nil {
			return fmt.Errorf("таблица %s, колонка %s: %w", t.Name, c.Name, ErrMisconfigured)
		}
	}
	return nil
}

// ParseAction разбирает значение поля action формы таблицы:
// "delete" - действие над выбранными строками, "delete__<id>" - над одной строкой.
func ParseAction(value string) (name, objectID string) {
	name, objectID, _ = strings.Cut(value, actionSeparator)
	return name, objectID
}

// UserError - ошибка с сообщением для пользователя.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// UserMessage возвращает сообщение *UserError из цепочки ошибок или fallback.
func UserMessage(err error, fallback string) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Message
	}
	return fallback
}

// Кастомные ошибки пакета.
var (
	// ErrNotFound - строка для обновления не найдена, браузер удаляет ее из таблицы.
	ErrNotFound      = errors.New("строка не найдена")
	ErrMisconfigured = errors.New("таблица описана некорректно")
	ErrUnknownAction = errors.New("неизвестное действие")
	ErrNotDeletable  = errors.New("действие не поддерживает удаление")
)
