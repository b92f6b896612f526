package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/mrtmm/manila-ui/internal/api"
	"github.com/mrtmm/manila-ui/internal/policy"
	"github.com/mrtmm/manila-ui/internal/tables"
)

// Поля формы таблицы.
const (
	formAction    = "action"
	formObjectIDs = "object_ids"
)

// writeAPIError отвечает ошибкой, если результат вызова API нельзя показать на странице.
func writeAPIError(w http.ResponseWriter, component string, err error) {
	switch {
	case errors.Is(err, api.ErrNotFound), errors.Is(err, tables.ErrNotFound):
		log.Printf("[%s] Ресурс не найден: %v", component, err)
		http.Error(w, "Ресурс не найден", http.StatusNotFound)
	case errors.Is(err, api.ErrAuthorization), errors.Is(err, api.ErrMissingToken):
		log.Printf("[%s] Ошибка авторизации в сервисе: %v", component, err)
		http.Error(w, "Требуется аутентификация", http.StatusUnauthorized)
	default:
		log.Printf("[%s] Внутренняя ошибка: %v", component, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
	}
}

// isAuthError сообщает, что сервис не принял токен пользователя.
func isAuthError(err error) bool {
	return errors.Is(err, api.ErrAuthorization) || errors.Is(err, api.ErrMissingToken)
}

// serviceMessage возвращает сообщение сервиса для пользователя или fallback.
func serviceMessage(err error, fallback string) string {
	var svcErr *api.ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return fallback + " " + svcErr.Message
	}
	return fallback
}

// actionPermitted проверяет, что действие разрешено политиками и активно для объекта.
func actionPermitted[T any](ctx context.Context, checker policy.Checker, action tables.Action[T], datum *T) bool {
	view, ok := tables.RenderAction(ctx, checker, action, datum)
	return ok && !view.Disabled
}

// denyPolicy отвечает 403 на запрос действия, запрещенного политиками.
func denyPolicy(w http.ResponseWriter, component string, rules []policy.Rule) {
	log.Printf("[%s] %v: %v", component, policy.ErrPolicyDenied, rules)
	http.Error(w, "Действие запрещено", http.StatusForbidden)
}

// selectedIDs возвращает ID строк, к которым применяется действие таблицы.
func selectedIDs(r *http.Request, objectID string) []string {
	if objectID != "" {
		return []string{objectID}
	}
	return r.PostForm[formObjectIDs]
}

// parseTableForm разбирает форму таблицы и возвращает имя действия и ID выбранных строк.
func parseTableForm(w http.ResponseWriter, r *http.Request) (string, []string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		return "", nil, err
	}
	name, objectID := tables.ParseAction(r.PostForm.Get(formAction))
	return name, selectedIDs(r, objectID), nil
}
