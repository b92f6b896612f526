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

// SnapshotsHandler обрабатывает HTTP-запросы, связанные со снапшотами.
type SnapshotsHandler struct {
	client   api.Client
	checker  policy.Checker
	renderer *Renderer
	recorder metrics.Recorder
}

// NewSnapshotsHandler создает новый экземпляр SnapshotsHandler.
func NewSnapshotsHandler(client api.Client, checker policy.Checker, renderer *Renderer) *SnapshotsHandler {
	return &SnapshotsHandler{
		client:   client,
		checker:  checker,
		renderer: renderer,
		recorder: metrics.Default(),
	}
}

// snapshotDetail - данные страницы снапшота.
type snapshotDetail struct {
	Snapshot  *models.Snapshot
	Status    string
	Size      string
	ShareName string
	ShareURL  string
	IndexURL  string
	Actions   []tables.ActionView
}

// List обрабатывает GET запрос таблицы снапшотов.
func (h *SnapshotsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lookup := snapshots.NewShareLookup(h.client)

	data, err := snapshots.LoadSnapshots(ctx, h.client, lookup)
	if err != nil {
		if isAuthError(err) {
			writeAPIError(w, "SnapshotsHandler:List", err)
			return
		}
		log.Printf("[SnapshotsHandler:List] Ошибка получения снапшотов: %v", err)
		messages.Error(ctx, "Unable to retrieve share snapshots.")
	}

	table := snapshots.NewSnapshotsTable(h.client, lookup)
	view, err := table.Render(ctx, h.checker, data, r.URL.Query().Get(table.Filter.Param()))
	if err != nil {
		writeAPIError(w, "SnapshotsHandler:List", err)
		return
	}
	h.renderer.Page(w, r, http.StatusOK, pageTable, "Share Snapshots", &tablePage{Table: view})
}

// Delete обрабатывает POST запрос действия таблицы снапшотов (удаление).
func (h *SnapshotsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, ids, err := parseTableForm(w, r)
	if err != nil {
		log.Printf("[SnapshotsHandler:Delete] Ошибка разбора формы: %v", err)
		http.Error(w, "Неверный формат формы", http.StatusBadRequest)
		return
	}

	lookup := snapshots.NewShareLookup(h.client)
	table := snapshots.NewSnapshotsTable(h.client, lookup)
	action, ok := table.Action(name)
	if !ok {
		log.Printf("[SnapshotsHandler:Delete] %v: %q", tables.ErrUnknownAction, name)
		http.Error(w, "Неизвестное действие", http.StatusBadRequest)
		return
	}
	if _, ok = action.(tables.Deleter); !ok {
		log.Printf("[SnapshotsHandler:Delete] %v: %q", tables.ErrNotDeletable, name)
		http.Error(w, "Действие не поддерживается", http.StatusBadRequest)
		return
	}
	if len(ids) == 0 {
		messages.Error(ctx, "Please select a row before taking that action.")
		messages.Redirect(w, r, urls.Snapshots())
		return
	}

	data, err := snapshots.LoadSnapshots(ctx, h.client, lookup)
	if err != nil {
		log.Printf("[SnapshotsHandler:Delete] Ошибка получения снапшотов: %v", err)
		messages.Error(ctx, "Unable to retrieve share snapshots.")
		messages.Redirect(w, r, urls.Snapshots())
		return
	}

	log.Printf("[SnapshotsHandler:Delete] Действие %s для снапшотов %v", name, ids)
	if _, err = tables.RunDelete(ctx, table, h.checker, action, ids, data); err != nil {
		log.Printf("[SnapshotsHandler:Delete] Ошибка действия %s: %v", name, err)
		http.Error(w, "Действие не поддерживается", http.StatusBadRequest)
		return
	}
	messages.Redirect(w, r, urls.Snapshots())
}

// Detail обрабатывает GET запрос страницы снапшота.
func (h *SnapshotsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshotID := chi.URLParam(r, urls.ParamSnapshotID)
	lookup := snapshots.NewShareLookup(h.client)

	snapshot, err := snapshots.UpdateRow(ctx, h.client, lookup, snapshotID)
	if err != nil {
		if errors.Is(err, tables.ErrNotFound) {
			log.Printf("[SnapshotsHandler:Detail] Снапшот %s не найден", snapshotID)
			messages.Error(ctx, "Unable to retrieve snapshot details.")
			messages.Redirect(w, r, urls.Snapshots())
			return
		}
		writeAPIError(w, "SnapshotsHandler:Detail", err)
		return
	}

	table := snapshots.NewSnapshotsTable(h.client, lookup)
	row, err := table.RenderRow(ctx, h.checker, snapshot)
	if err != nil {
		writeAPIError(w, "SnapshotsHandler:Detail", err)
		return
	}

	detail := &snapshotDetail{
		Snapshot:  snapshot,
		Size:      snapshots.SizeDisplay(snapshot),
		ShareURL:  urls.ShareDetail(snapshot.ShareID),
		ShareName: snapshot.ShareID,
		IndexURL:  urls.Snapshots(),
		Actions:   row.Actions,
	}
	if snapshot.ShareName != "" {
		detail.ShareName = snapshot.ShareName
	}
	for _, cell := range row.Cells {
		if cell.Name == table.StatusColumn {
			detail.Status = cell.Value
		}
	}
	h.renderer.Page(w, r, http.StatusOK, pageSnapshotDetail, "Snapshot Details: "+snapshot.DisplayName(), detail)
}

// Row обрабатывает GET запрос ajax-обновления строки снапшота.
// Удаленный снапшот дает 404, браузер убирает строку из таблицы.
func (h *SnapshotsHandler) Row(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshotID := chi.URLParam(r, urls.ParamSnapshotID)
	lookup := snapshots.NewShareLookup(h.client)

	snapshot, err := snapshots.UpdateRow(ctx, h.client, lookup, snapshotID)
	if err != nil {
		if errors.Is(err, tables.ErrNotFound) {
			h.recorder.ObserveRowRefresh("snapshots", metrics.OutcomeNotFound)
		} else {
			h.recorder.ObserveRowRefresh("snapshots", metrics.OutcomeFailure)
		}
		writeAPIError(w, "SnapshotsHandler:Row", err)
		return
	}

	row, err := snapshots.NewSnapshotsTable(h.client, lookup).RenderRow(ctx, h.checker, snapshot)
	if err != nil {
		h.recorder.ObserveRowRefresh("snapshots", metrics.OutcomeFailure)
		writeAPIError(w, "SnapshotsHandler:Row", err)
		return
	}
	h.recorder.ObserveRowRefresh("snapshots", metrics.OutcomeSuccess)
	h.renderer.Row(w, row)
}

// Edit обрабатывает GET и POST запросы формы изменения снапшота.
func (h *SnapshotsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshotID := chi.URLParam(r, urls.ParamSnapshotID)

	snapshot, err := h.client.GetSnapshot(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			messages.Error(ctx, "Unable to retrieve snapshot details.")
			messages.Redirect(w, r, urls.Snapshots())
			return
		}
		writeAPIError(w, "SnapshotsHandler:Edit", err)
		return
	}

	form := editSnapshotForm{Name: snapshot.Name, Description: snapshot.Description}
	if r.Method == http.MethodGet {
		h.renderEditForm(w, r, http.StatusOK, snapshotID, form, nil)
		return
	}

	errs, err := decodeForm(w, r, &form)
	if err != nil {
		log.Printf("[SnapshotsHandler:Edit] %v", err)
		http.Error(w, "Неверный формат формы", http.StatusBadRequest)
		return
	}
	if len(errs) > 0 {
		h.renderEditForm(w, r, http.StatusBadRequest, snapshotID, form, errs)
		return
	}

	req := models.UpdateSnapshotRequest{Name: form.Name, Description: form.Description}
	if err = h.client.UpdateSnapshot(ctx, snapshotID, req); err != nil {
		log.Printf("[SnapshotsHandler:Edit] Ошибка изменения снапшота %s: %v", snapshotID, err)
		h.recorder.ObserveAction("edit_snapshot", metrics.OutcomeFailure)
		messages.Error(ctx, serviceMessage(err, "Unable to update snapshot."))
		messages.Redirect(w, r, urls.Snapshots())
		return
	}

	h.recorder.ObserveAction("edit_snapshot", metrics.OutcomeSuccess)
	display := form.Name
	if display == "" {
		display = snapshotID
	}
	messages.Success(ctx, fmt.Sprintf("Successfully updated snapshot %q", display))
	messages.Redirect(w, r, urls.Snapshots())
}

func (h *SnapshotsHandler) renderEditForm(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	snapshotID string,
	form editSnapshotForm,
	errs fieldErrors,
) {
	page := &formPage{
		Action: urls.SnapshotEdit(snapshotID),
		Cancel: urls.Snapshots(),
		Submit: "Save Changes",
		Fields: []formField{
			{Name: "name", Label: "Snapshot Name", Type: "text", Value: form.Name},
			{Name: "description", Label: "Description", Type: "textarea", Value: form.Description},
		},
	}
	h.renderer.Page(w, r, status, pageForm, "Edit Snapshot", page.withErrors(errs))
}
