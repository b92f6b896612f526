package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mrtmm/manila-ui/internal/api"
	"github.com/mrtmm/manila-ui/internal/api/apimock"
	"github.com/mrtmm/manila-ui/internal/handlers"
	"github.com/mrtmm/manila-ui/internal/messages"
	"github.com/mrtmm/manila-ui/internal/models"
	"github.com/mrtmm/manila-ui/internal/policy"
	"github.com/mrtmm/manila-ui/internal/urls"
)

func testRules() []models.Rule {
	return []models.Rule{
		{ID: "r1", AccessType: "ip", AccessTo: "10.0.0.1", State: "active"},
		{ID: "r2", AccessType: "ip", AccessTo: "10.0.0.2", State: "queued_to_apply"},
	}
}

func availableSnapshot() *models.Snapshot {
	return &models.Snapshot{
		ID: testSnapshot, Name: "nightly", Status: models.StatusAvailable, ShareID: testShareID, ProjectID: testProjectID,
	}
}

func TestRulesHandler_List(t *testing.T) {
	t.Run("Успех", func(t *testing.T) {
		client := &apimock.Client{}
		client.On("GetSnapshot", mock.Anything, testSnapshot).Return(availableSnapshot(), nil)
		client.On("ListSnapshotRules", mock.Anything, testSnapshot).Return(testRules(), nil)
		handler := handlers.NewRulesHandler(client, policy.AllowAll{}, newRenderer(t))

		rec := serve(http.MethodGet, urls.Prefix+urls.RouteSnapshotRules, handler.List,
			httptest.NewRequest(http.MethodGet, urls.SnapshotRules(testSnapshot), nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Snapshot Rules: nightly")
		assert.Contains(t, body, "10.0.0.1")
		assert.Contains(t, body, `href="/project/shares/snapshots/s1/rules/add"`)
		assert.Contains(t, body, `data-update-url="/project/shares/snapshots/s1/rules/r2/row"`)
		assert.Contains(t, body, `value="delete__r1"`)
	})

	t.Run("Ошибка получения правил", func(t *testing.T) {
		client := &apimock.Client{}
		client.On("GetSnapshot", mock.Anything, testSnapshot).Return(availableSnapshot(), nil)
		client.On("ListSnapshotRules", mock.Anything, testSnapshot).
			Return(nil, &api.ServiceError{StatusCode: http.StatusInternalServerError})
		handler := handlers.NewRulesHandler(client, policy.AllowAll{}, newRenderer(t))

		rec := serve(http.MethodGet, urls.Prefix+urls.RouteSnapshotRules, handler.List,
			httptest.NewRequest(http.MethodGet, urls.SnapshotRules(testSnapshot), nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Unable to retrieve snapshot rules.")
	})

	t.Run("Запрещено политиками", func(t *testing.T) {
		client := &apimock.Client{}
		handler := handlers.NewRulesHandler(client, policy.DenyAll{}, newRenderer(t))

		rec := serve(http.MethodGet, urls.Prefix+urls.RouteSnapshotRules, handler.List,
			httptest.NewRequest(http.MethodGet, urls.SnapshotRules(testSnapshot), nil))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		client.AssertNotCalled(t, "GetSnapshot", mock.Anything, mock.Anything)
	})

	t.Run("Снапшот не найден", func(t *testing.T) {
		client := &apimock.Client{}
		client.On("GetSnapshot", mock.Anything, testSnapshot).Return(nil, api.ErrNotFound)
		handler := handlers.NewRulesHandler(client, policy.AllowAll{}, newRenderer(t))

		rec := serve(http.MethodGet, urls.Prefix+urls.RouteSnapshotRules, handler.List,
			httptest.NewRequest(http.MethodGet, urls.SnapshotRules(testSnapshot), nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, []string{"Unable to retrieve snapshot details."}, flashTexts(rec))
	})
}

func TestRulesHandler_Delete(t *testing.T) {
	tests := []struct {
		name             string
		denyErr          error
		expectedMessages []messages.Message
	}{
		{
			name: "Успех",
			expectedMessages: []messages.Message{
				{Level: messages.LevelSuccess, Text: "Deleted Rule: r1"},
			},
		},
		{
			name:    "Ошибка сервиса не прерывает удаление",
			denyErr: &api.ServiceError{StatusCode: http.StatusInternalServerError},
			expectedMessages: []messages.Message{
				{Level: messages.LevelError, Text: `Unable to delete snapshot rule "r1".`},
				{Level: messages.LevelSuccess, Text: "Deleted Rule: r1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &apimock.Client{}
			client.On("ListSnapshotRules", mock.Anything, testSnapshot).Return(testRules(), nil)
			client.On("DenySnapshotAccess", mock.Anything, testSnapshot, "r1").Return(tt.denyErr)
			handler := handlers.NewRulesHandler(client, policy.AllowAll{}, newRenderer(t))

			form := url.Values{"action": {"delete"}, "object_ids": {"r1"}}
			rec := serve(http.MethodPost, urls.Prefix+urls.RouteSnapshotRules, handler.Delete,
				postForm(urls.SnapshotRules(testSnapshot), form))

			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, urls.SnapshotRules(testSnapshot), rec.Header().Get("Location"))
			assert.Equal(t, tt.expectedMessages, flashMessages(rec))
			client.AssertExpectations(t)
		})
	}
}

func TestRulesHandler_Row(t *testing.T) {
	tests := []struct {
		name           string
		ruleID         string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Правило применено",
			ruleID:         "r1",
			expectedStatus: http.StatusOK,
			expectedBody:   `<tr id="row-r1" class="status_good">`,
		},
		{
			name:           "Правило применяется",
			ruleID:         "r2",
			expectedStatus: http.StatusOK,
			expectedBody:   `class="status_pending" data-update-url="/project/shares/snapshots/s1/rules/r2/row"`,
		},
		{
			name:           "Правило удалено",
			ruleID:         "r9",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &apimock.Client{}
			client.On("ListSnapshotRules", mock.Anything, testSnapshot).Return(testRules(), nil)
			handler := handlers.NewRulesHandler(client, policy.AllowAll{}, newRenderer(t))

			rec := serve(http.MethodGet, urls.Prefix+urls.RouteRuleRow, handler.Row,
				httptest.NewRequest(http.MethodGet, urls.RuleRow(testSnapshot, tt.ruleID), nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
		})
	}
}

func TestRulesHandler_Add(t *testing.T) {
	tests := []struct {
		name             string
		method           string
		checker          policy.Checker
		snapshotStatus   string
		form             url.Values
		expectAllow      *models.AllowAccessRequest
		allowErr         error
		expectedStatus   int
		expectedBody     string
		expectedMessages []string
	}{
		{
			name:           "Форма",
			method:         http.MethodGet,
			checker:        policy.AllowAll{},
			snapshotStatus: models.StatusAvailable,
			expectedStatus: http.StatusOK,
			expectedBody:   `<option value="ip" selected>ip</option>`,
		},
		{
			name:           "Запрещено политиками",
			method:         http.MethodGet,
			checker:        policy.DenyAll{},
			snapshotStatus: models.StatusAvailable,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:             "Снапшот недоступен",
			method:           http.MethodGet,
			checker:          policy.AllowAll{},
			snapshotStatus:   models.StatusCreating,
			expectedStatus:   http.StatusSeeOther,
			expectedMessages: []string{"Unable to add rule: snapshot is not available."},
		},
		{
			name:             "Правило добавлено",
			method:           http.MethodPost,
			checker:          policy.AllowAll{},
			snapshotStatus:   models.StatusInUse,
			form:             url.Values{"access_type": {"ip"}, "access_to": {"10.0.0.5"}},
			expectAllow:      &models.AllowAccessRequest{AccessType: "ip", AccessTo: "10.0.0.5"},
			expectedStatus:   http.StatusSeeOther,
			expectedMessages: []string{`Rule for "10.0.0.5" has been requested.`},
		},
		{
			name:             "Ошибка сервиса",
			method:           http.MethodPost,
			checker:          policy.AllowAll{},
			snapshotStatus:   models.StatusAvailable,
			form:             url.Values{"access_type": {"ip"}, "access_to": {"10.0.0.5"}},
			expectAllow:      &models.AllowAccessRequest{AccessType: "ip", AccessTo: "10.0.0.5"},
			allowErr:         &api.ServiceError{StatusCode: http.StatusBadRequest, Message: "Invalid access rule."},
			expectedStatus:   http.StatusSeeOther,
			expectedMessages: []string{"Unable to add rule. Invalid access rule."},
		},
		{
			name:           "Неизвестный тип доступа",
			method:         http.MethodPost,
			checker:        policy.AllowAll{},
			snapshotStatus: models.StatusAvailable,
			form:           url.Values{"access_type": {"nfs"}, "access_to": {"10.0.0.5"}},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Select a valid choice.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := availableSnapshot()
			snapshot.Status = tt.snapshotStatus

			client := &apimock.Client{}
			client.On("GetSnapshot", mock.Anything, testSnapshot).Return(snapshot, nil)
			if tt.expectAllow != nil {
				var rule *models.Rule
				if tt.allowErr == nil {
					rule = &models.Rule{ID: "r3", AccessType: "ip", AccessTo: "10.0.0.5", State: "new"}
				}
				client.On("AllowSnapshotAccess", mock.Anything, testSnapshot, *tt.expectAllow).Return(rule, tt.allowErr)
			}
			handler := handlers.NewRulesHandler(client, tt.checker, newRenderer(t))

			req := httptest.NewRequest(http.MethodGet, urls.RuleAdd(testSnapshot), nil)
			if tt.method == http.MethodPost {
				req = postForm(urls.RuleAdd(testSnapshot), tt.form)
			}
			rec := serve(tt.method, urls.Prefix+urls.RouteRuleAdd, handler.Add, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			if tt.expectedMessages != nil {
				assert.Equal(t, urls.SnapshotRules(testSnapshot), rec.Header().Get("Location"))
				assert.Equal(t, tt.expectedMessages, flashTexts(rec))
			}
			if tt.expectAllow != nil {
				client.AssertExpectations(t)
			}
		})
	}
}
