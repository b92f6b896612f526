package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/mrtmm/manila-ui/internal/auth"
	"github.com/mrtmm/manila-ui/internal/handlers"
	"github.com/mrtmm/manila-ui/internal/messages"
	"github.com/mrtmm/manila-ui/internal/middleware"
)

const (
	testProjectID = "project-1"
	testShareID   = "sh1"
	testSnapshot  = "s1"
	// Снапшот-источник в форме создания ресурса должен быть UUID.
	testSourceSnapshot = "5c1e7a3c-3b1c-4b5e-9d55-1c1f0b2f8f11"
)

// withTestCredentials добавляет в контекст учетные данные тестового пользователя.
func withTestCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithCredentials(r.Context(), &auth.Credentials{
			UserID:    "user-1",
			ProjectID: testProjectID,
			Roles:     []string{"member"},
			Token:     "test-token",
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRenderer(t *testing.T) *handlers.Renderer {
	t.Helper()
	renderer, err := handlers.NewRenderer()
	require.NoError(t, err)
	return renderer
}

// serve выполняет запрос через роутер с одним маршрутом.
func serve(method, pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	router.Use(withTestCredentials, middleware.Flash)
	router.MethodFunc(method, pattern, handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// flashMessages возвращает сообщения, сохраненные перед редиректом.
func flashMessages(rec *httptest.ResponseRecorder) []messages.Message {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return messages.Load(httptest.NewRecorder(), req)
}

func flashTexts(rec *httptest.ResponseRecorder) []string {
	var texts []string
	for _, m := range flashMessages(rec) {
		texts = append(texts, m.Text)
	}
	return texts
}
