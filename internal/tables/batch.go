package tables

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mrtmm/manila-ui/internal/messages"
	"github.com/mrtmm/manila-ui/internal/metrics"
	"github.com/mrtmm/manila-ui/internal/policy"
)

// DeleteResult - итог пакетного удаления, содержит отображаемые имена строк.
type DeleteResult struct {
	Succeeded  []string
	Failed     []string
	NotAllowed []string
}

// RunDelete удаляет строки по одной, в порядке ids.
// Ошибка одной строки не останавливает удаление остальных, удаленные строки не восстанавливаются.
// Итог сообщается пользователю через messages.
func RunDelete[T any](
	ctx context.Context,
	t *Table[T],
	checker policy.Checker,
	action Action[T],
	ids []string,
	data []T,
) (*DeleteResult, error) {
	deleter, ok := action.(Deleter)
	if !ok {
		return nil, fmt.Errorf("%s: %w", action.Meta().Name, ErrNotDeletable)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	recorder := metrics.Default()
	metricName := t.Name + "." + action.Meta().Name
	result := &DeleteResult{}

	for _, id := range ids {
		datum, found := t.Find(data, id)
		if !found {
			log.Printf("[Table:%s] Строка %s не найдена для удаления", t.Name, id)
			result.Failed = append(result.Failed, id)
			recorder.ObserveAction(metricName, metrics.OutcomeNotFound)
			continue
		}
		display := t.display(datum)

		if !deleteAllowed(ctx, checker, action, datum) {
			log.Printf("[Table:%s] Удаление %s запрещено", t.Name, id)
			result.NotAllowed = append(result.NotAllowed, display)
			continue
		}

		if err := deleter.Delete(ctx, id, display); err != nil {
			log.Printf("[Table:%s] Ошибка удаления %s: %v", t.Name, id, err)
			recorder.ObserveAction(metricName, metrics.OutcomeFailure)
			if msg := UserMessage(err, ""); msg != "" {
				messages.Error(ctx, msg)
			}
			result.Failed = append(result.Failed, display)
			continue
		}
		recorder.ObserveAction(metricName, metrics.OutcomeSuccess)
		result.Succeeded = append(result.Succeeded, display)
	}

	reportDelete(ctx, deleter, result)
	return result, nil
}

func deleteAllowed[T any](ctx context.Context, checker policy.Checker, action Action[T], datum *T) bool {
	if !policyAllowed(ctx, checker, action, datum) {
		return false
	}
	state, err := action.Allowed(ctx, datum)
	if err != nil {
		log.Printf("[Table] Ошибка проверки действия %s: %v", action.Meta().Name, err)
		return false
	}
	return state.Allowed && !state.Disabled()
}

func reportDelete(ctx context.Context, deleter Deleter, result *DeleteResult) {
	if n := len(result.NotAllowed); n > 0 {
		messages.Error(ctx, fmt.Sprintf("You are not allowed to %s: %s",
			strings.ToLower(deleter.Present(n)), strings.Join(result.NotAllowed, ", ")))
	}
	if n := len(result.Failed); n > 0 {
		messages.Error(ctx, fmt.Sprintf("Unable to %s: %s",
			strings.ToLower(deleter.Present(n)), strings.Join(result.Failed, ", ")))
	}
	if n := len(result.Succeeded); n > 0 {
		messages.Success(ctx, fmt.Sprintf("%s: %s", deleter.Past(n), strings.Join(result.Succeeded, ", ")))
	}
}
