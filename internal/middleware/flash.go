package middleware

import (
	"net/http"

	"github.com/mrtmm/manila-ui/internal/messages"
)

// Flash создает сборщик сообщений запроса и переносит в него сообщения из cookie,
// оставшиеся после редиректа.
func Flash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, collector := messages.WithCollector(r.Context())
		for _, m := range messages.Load(w, r) {
			collector.Add(m.Level, m.Text)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
