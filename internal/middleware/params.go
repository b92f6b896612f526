package middleware

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// UUIDParam отклоняет запросы, в которых параметр пути name не является UUID.
// Ресурсы сервиса адресуются только по UUID, поэтому такой запрос получает 404.
func UUIDParam(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			value := chi.URLParam(r, name)
			if _, err := uuid.Parse(value); err != nil {
				log.Printf("[ParamsMiddleware] Невалидный %s: %q", name, value)
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
