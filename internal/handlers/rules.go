package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mrtmm/manila-ui/internal/api"
	"github.com/mrtmm/manila-ui/internal/messages"
	"github.com/mrtmm/manila-ui/internal/metrics"
	"github.com/mrtmm/manila-ui/internal/models"
	"github.com/mrtmm/manila-ui/internal/policy"
	"github.com/mrtmm/manila-ui/internal/snapshots"
	"github.com/mrtmm/manila-ui/internal/tables"
	"github.com/mrtmm/manila-ui/internal/urls"
)

// RulesHandler обрабатывает HTTP-запросы правил доступа к снапшоту.
type RulesHandler struct {
	client   api.Client
	checker  policy.Checker
	renderer *Renderer
	recorder metrics.Recorder
}

// NewRulesHandler создает новый экземпляр RulesHandler.
func NewRulesHandler(client api.Client, checker policy.Checker, renderer *Renderer) *RulesHandler {
	return &RulesHandler{
		client:   client,
		checker:  checker,
		renderer: renderer,
		recorder: metrics.Default(),
	}
}

// List обрабатывает GET запрос таблицы правил снапшота.
func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshotID := chi.URLParam(r, urls.ParamSnapshotID)

	manage := snapshots.NewManageRules(nil).Meta()
	if !h.checker.Check(ctx, manage.PolicyRules, nil) {
		denyPolicy(w, "RulesHandler:List", manage.PolicyRules)
		return
	}

	snapshot, err := h.client.GetSnapshot(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			messages.Error(ctx, "Unable to retrieve snapshot details.")
			messages.Redirect(w, r, urls.Snapshots())
			return
		}
		writeAPIError(w, "RulesHandler:List", err)
		return
	}

	rules, err := h.client.ListSnapshotRules(ctx, snapshotID)
	if err != nil {
		if isAuthError(err) {
			writeAPIError(w, "RulesHandler:List", err)
			return
		}
		log.Printf("[RulesHandler:List] Ошибка получения правил снапшота %s: %v", snapshotID, err)
		messages.Error(ctx, "Unable to retrieve snapshot rules.")
	}

	view, err := snapshots.NewRulesTable(h.client, snapshotID).Render(ctx, h.checker, rules, "")
	if err != nil {
		writeAPIError(w, "RulesHandler:List", err)
		return
	}
	title := "Snapshot Rules: " + snapshot.DisplayName()
	h.renderer.Page(w, r, http.StatusOK, pageTable, title, &tablePage{Table: view, Back: urls.Snapshots()})
}

// Delete обрабатывает POST запрос действия таблицы правил (удаление).
func (h *RulesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshotID := chi.URLParam(r, urls.ParamSnapshotID)
	back := urls.SnapshotRules(snapshotID)

	name, ids, err := parseTableForm(w, r)
	if err != nil {
		log.Printf("[RulesHandler:Delete] Ошибка разбора формы: %v", err)
		http.Error(w, "Неверный формат формы", http.StatusBadRequest)
		return
	}

	table := snapshots.NewRulesTable(h.client, snapshotID)
	action, ok := table.Action(name)
	if !ok {
		log.Printf("[RulesHandler:Delete] %v: %q", tables.ErrUnknownAction, name)
		http.Error(w, "Неизвестное действие", http.StatusBadRequest)
		return
	}
	if _, ok = action.(tables.Deleter); !ok {
		log.Printf("[RulesHandler:Delete] %v: %q", tables.ErrNotDeletable, name)
		http.Error(w, "Действие не поддерживается", http.StatusBadRequest)
		return
	}
	if len(ids) == 0 {
		messages.Error(ctx, "Please select a row before taking that action.")
		messages.Redirect(w, r, back)
		return
	}

	rules, err := h.client.ListSnapshotRules(ctx, snapshotID)
	if err != nil {
		log.Printf("[RulesHandler:Delete] Ошибка получения правил снапшота %s: %v", snapshotID, err)
		messages.Error(ctx, "Unable to retrieve snapshot rules.")
		messages.Redirect(w, r, back)
		return
	}

	log.Printf("[RulesHandler:Delete] Действие %s для правил %v снапшота %s", name, ids, snapshotID)
	if _, err = tables.RunDelete(ctx, table, h.checker, action, ids, rules); err != nil {
		log.Printf("[RulesHandler:Delete] Ошибка действия %s: %v", name, err)
		http.Error(w, "Действие не поддерживается", http.StatusBadRequest)
		return
	}
	messages.Redirect(w, r, back)
}

// Row обрабатывает GET запрос ajax-обновления строки правила.
func (h *RulesHandler) Row(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshotID := chi.URLParam(r, urls.ParamSnapshotID)
	ruleID := chi.URLParam(r, urls.ParamRuleID)

	rule, err := snapshots.UpdateRuleRow(ctx, h.client, snapshotID, ruleID)
	if err != nil {
		if errors.Is(err, tables.ErrNotFound) {
			h.recorder.ObserveRowRefresh("rules", metrics.OutcomeNotFound)
		} else {
			h.recorder.ObserveRowRefresh("rules", metrics.OutcomeFailure)
		}
		writeAPIError(w, "RulesHandler:Row", err)
		return
	}

	row, err := snapshots.NewRulesTable(h.client, snapshotID).RenderRow(ctx, h.checker, rule)
	if err != nil {
		h.recorder.ObserveRowRefresh("rules", metrics.OutcomeFailure)
		writeAPIError(w, "RulesHandler:Row", err)
		return
	}
	h.recorder.ObserveRowRefresh("rules", metrics.OutcomeSuccess)
	h.renderer.Row(w, row)
}

// Add обрабатывает GET и POST запросы формы добавления правила.
func (h *RulesHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshotID := chi.URLParam(r, urls.ParamSnapshotID)
	back := urls.SnapshotRules(snapshotID)

	action := snapshots.NewAddRule(h.client, snapshotID)
	if !h.checker.Check(ctx, action.Meta().PolicyRules, nil) {
		denyPolicy(w, "RulesHandler:Add", action.Meta().PolicyRules)
		return
	}
	if !actionPermitted[models.Rule](ctx, h.checker, action, nil) {
		messages.Error(ctx, "Unable to add rule: snapshot is not available.")
		messages.Redirect(w, r, back)
		return
	}

	var form addRuleForm
	if r.Method == http.MethodGet {
		form.AccessType = accessTypes[0]
		h.renderAddForm(w, r, http.StatusOK, snapshotID, form, nil)
		return
	}

	errs, err := decodeForm(w, r, &form)
	if err != nil {
		log.Printf("[RulesHandler:Add] %v", err)
		http.Error(w, "Неверный формат формы", http.StatusBadRequest)
		return
	}
	if len(errs) > 0 {
		h.renderAddForm(w, r, http.StatusBadRequest, snapshotID, form, errs)
		return
	}

	req := models.AllowAccessRequest{AccessType: form.AccessType, AccessTo: form.AccessTo}
	if _, err = h.client.AllowSnapshotAccess(ctx, snapshotID, req); err != nil {
		log.Printf("[RulesHandler:Add] Ошибка добавления правила снапшоту %s: %v", snapshotID, err)
		h.recorder.ObserveAction(action.Meta().Name, metrics.OutcomeFailure)
		messages.Error(ctx, serviceMessage(err, "Unable to add rule."))
		messages.Redirect(w, r, back)
		return
	}

	h.recorder.ObserveAction(action.Meta().Name, metrics.OutcomeSuccess)
	messages.Success(ctx, fmt.Sprintf("Rule for %q has been requested.", form.AccessTo))
	messages.Redirect(w, r, back)
}

func (h *RulesHandler) renderAddForm(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	snapshotID string,
	form addRuleForm,
	errs fieldErrors,
) {
	page := &formPage{
		Action: urls.RuleAdd(snapshotID),
		Cancel: urls.SnapshotRules(snapshotID),
		Submit: "Add",
		Fields: []formField{
			{Name: "access_type", Label: "Access Type", Type: "select", Value: form.AccessType, Options: accessTypes},
			{
				Name:  "access_to",
				Label: "Access To",
				Type:  "text",
				Value: form.AccessTo,
				Help:  "IP address, user name, certificate common name or cephx ID depending on the access type.",
			},
		},
	}
	h.renderer.Page(w, r, status, pageForm, "Add Rule", page.withErrors(errs))
}
