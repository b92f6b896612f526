package tables

import (
	"context"
	"slices"
	"strings"

	"github.com/mrtmm/manila-ui/internal/policy"
)

// ClassDisabled - CSS класс неактивного действия.
const ClassDisabled = "disabled"

// Kind - вид действия.
type Kind int

// Виды действий.
const (
	// KindLink - ссылка на форму или страницу.
	KindLink Kind = iota
	// KindBatch - пакетное действие над выбранными строками (удаление).
	KindBatch
)

// Meta - статическое описание действия.
type Meta struct {
	Name        string
	VerboseName string
	Classes     []string
	Icon        string
	PolicyRules []policy.Rule
	Kind        Kind
}

// ActionState - результат проверки действия для одной строки.
// Не изменяется после создания, отрисовка объединяет его с Meta.
type ActionState struct {
	Allowed bool
	// Label заменяет VerboseName, если не пустой.
	Label        string
	ExtraClasses []string
}

// Enabled возвращает состояние, в котором действие разрешено или скрыто.
func Enabled(allowed bool) ActionState {
	return ActionState{Allowed: allowed}
}

// Disabled сообщает, что действие показывается неактивным.
func (s ActionState) Disabled() bool {
	return slices.Contains(s.ExtraClasses, ClassDisabled)
}

// Action - действие над строкой или таблицей. Для действий таблицы datum равен nil.
type Action[T any] interface {
	Meta() Meta
	Allowed(ctx context.Context, datum *T) (ActionState, error)
}

// PolicyTargeter - действие с целью проверки политик.
type PolicyTargeter[T any] interface {
	PolicyTarget(datum *T) policy.Target
}

// Linker - действие-ссылка.
type Linker[T any] interface {
	LinkURL(datum *T) string
}

// Deleter - пакетное действие удаления.
type Deleter interface {
	// Delete удаляет объект, display - его имя для сообщений.
	// Ошибка *UserError показывается пользователю как есть.
	Delete(ctx context.Context, id, display string) error
	// Present возвращает название действия для n объектов ("Delete Snapshots").
	Present(n int) string
	// Past возвращает название выполненного действия для n объектов ("Deleted Snapshots").
	Past(n int) string
}

// ActionView - действие, подготовленное к отрисовке.
type ActionView struct {
	Name     string
	Label    string
	URL      string
	Classes  []string
	Icon     string
	Kind     Kind
	ObjectID string
	Disabled bool
}

// Class возвращает CSS классы через пробел.
func (a ActionView) Class() string {
	return strings.Join(a.Classes, " ")
}

// IsBatch сообщает, что действие отправляется формой таблицы.
func (a ActionView) IsBatch() bool {
	return a.Kind == KindBatch
}

// FormValue возвращает значение поля action для кнопки действия.
func (a ActionView) FormValue() string {
	if a.ObjectID == "" {
		return a.Name
	}
	return a.Name + actionSeparator + a.ObjectID
}

// policyAllowed проверяет политики действия для строки.
func policyAllowed[T any](ctx context.Context, checker policy.Checker, action Action[T], datum *T) bool {
	meta := action.Meta()
	if len(meta.PolicyRules) == 0 {
		return true
	}
	var target policy.Target
	if targeter, ok := action.(PolicyTargeter[T]); ok {
		target = targeter.PolicyTarget(datum)
	}
	return checker.Check(ctx, meta.PolicyRules, target)
}

// viewOf объединяет статическое описание действия с результатом проверки.
func viewOf[T any](action Action[T], state ActionState, datum *T, objectID string) ActionView {
	meta := action.Meta()

	classes := slices.Clone(meta.Classes)
	for _, c := range state.ExtraClasses {
		if !slices.Contains(classes, c) {
			classes = append(classes, c)
		}
	}

	label := meta.VerboseName
	if deleter, ok := action.(Deleter); ok && label == "" {
		// Для таблицы действие относится к нескольким строкам
		if objectID != "" {
			label = deleter.Present(1)
		} else {
			label = deleter.Present(2)
		}
	}
	if state.Label != "" {
		label = state.Label
	}

	view := ActionView{
		Name:     meta.Name,
		Label:    label,
		Classes:  classes,
		Icon:     meta.Icon,
		Kind:     meta.Kind,
		ObjectID: objectID,
		Disabled: state.Disabled(),
	}
	if linker, ok := action.(Linker[T]); ok {
		view.URL = linker.LinkURL(datum)
	}
	return view
}
