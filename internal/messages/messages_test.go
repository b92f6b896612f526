package messages_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtmm/manila-ui/internal/messages"
)

func TestLevels(t *testing.T) {
	ctx, collector := messages.WithCollector(context.Background())

	messages.Success(ctx, "Deleted Snapshot: s1")
	messages.Info(ctx, "info")
	messages.Warning(ctx, "warning")
	messages.Error(ctx, "Unable to delete snapshot rule.")

	assert.Equal(t, []messages.Message{
		{Level: messages.LevelSuccess, Text: "Deleted Snapshot: s1"},
		{Level: messages.LevelInfo, Text: "info"},
		{Level: messages.LevelWarning, Text: "warning"},
		{Level: messages.LevelError, Text: "Unable to delete snapshot rule."},
	}, collector.Messages())

	assert.Len(t, collector.Drain(), 4)
	assert.Empty(t, collector.Messages())
}

func TestWithoutCollector(t *testing.T) {
	// Не должно паниковать без сборщика в контексте
	assert.NotPanics(t, func() {
		messages.Error(context.Background(), "lost")
	})
	_, ok := messages.FromContext(context.Background())
	assert.False(t, ok)
}

func TestSaveLoad(t *testing.T) {
	msgs := []messages.Message{
		{Level: messages.LevelSuccess, Text: `Deleted Snapshots: "a", b`},
	}

	rec := httptest.NewRecorder()
	messages.Save(rec, msgs)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loadRec := httptest.NewRecorder()

	assert.Equal(t, msgs, messages.Load(loadRec, req))

	// Cookie удаляется после чтения
	cleared := loadRec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "Нет cookie", cookie: nil},
		{name: "Не base64", cookie: &http.Cookie{Name: "flash", Value: "!!!"}},
		{name: "Не JSON", cookie: &http.Cookie{Name: "flash", Value: "bm90LWpzb24"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			assert.Nil(t, messages.Load(httptest.NewRecorder(), req))
		})
	}
}

func TestRedirect(t *testing.T) {
	ctx, _ := messages.WithCollector(context.Background())
	messages.Success(ctx, "Deleted Rule: r1")

	req := httptest.NewRequest(http.MethodPost, "/rules/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	messages.Redirect(rec, req, "/rules/")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/rules/", rec.Header().Get("Location"))
	require.Len(t, rec.Result().Cookies(), 1)
}
