package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mrtmm/manila-ui/internal/api"
	"github.com/mrtmm/manila-ui/internal/messages"
	"github.com/mrtmm/manila-ui/internal/metrics"
	"github.com/mrtmm/manila-ui/internal/models"
	"github.com/mrtmm/manila-ui/internal/policy"
	"github.com/mrtmm/manila-ui/internal/quota"
	"github.com/mrtmm/manila-ui/internal/snapshots"
	"github.com/mrtmm/manila-ui/internal/tables"
	"github.com/mrtmm/manila-ui/internal/urls"
)

// SharesHandler обрабатывает HTTP-запросы страниц ресурсов: создание снапшота и ресурса из снапшота.
type SharesHandler struct {
	client   api.Client
	checker  policy.Checker
	quotas   quota.Provider
	renderer *Renderer
	recorder metrics.Recorder
}

// NewSharesHandler создает новый экземпляр SharesHandler.
func NewSharesHandler(
	client api.Client,
	checker policy.Checker,
	quotas quota.Provider,
	renderer *Renderer,
) *SharesHandler {
	return &SharesHandler{
		client:   client,
		checker:  checker,
		quotas:   quotas,
		renderer: renderer,
		recorder: metrics.Default(),
	}
}

// shareDetail - данные страницы ресурса.
type shareDetail struct {
	Share   *models.Share
	Actions []tables.ActionView
}

// Detail обрабатывает GET запрос страницы ресурса.
func (h *SharesHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	share, ok := h.loadShare(w, r, "SharesHandler:Detail")
	if !ok {
		return
	}

	detail := &shareDetail{Share: share}
	if view, ok := tables.RenderAction[models.Share](ctx, h.checker, snapshots.NewCreateSnapshot(h.quotas), share); ok {
		detail.Actions = append(detail.Actions, view)
	}
	h.renderer.Page(w, r, http.StatusOK, pageShareDetail, "Share Details: "+share.DisplayName(), detail)
}

// CreateSnapshot обрабатывает GET и POST запросы формы создания снапшота ресурса.
func (h *SharesHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	share, ok := h.loadShare(w, r, "SharesHandler:CreateSnapshot")
	if !ok {
		return
	}
	back := urls.ShareDetail(share.ID)

	action := snapshots.NewCreateSnapshot(h.quotas)
	meta := action.Meta()
	if !h.checker.Check(ctx, meta.PolicyRules, action.PolicyTarget(share)) {
		denyPolicy(w, "SharesHandler:CreateSnapshot", meta.PolicyRules)
		return
	}
	view, ok := tables.RenderAction[models.Share](ctx, h.checker, action, share)
	if !ok {
		messages.Error(ctx, fmt.Sprintf("Unable to create a snapshot of share %q.", share.DisplayName()))
		messages.Redirect(w, r, back)
		return
	}
	if view.Disabled {
		messages.Error(ctx, "Snapshot quota exceeded.")
		messages.Redirect(w, r, back)
		return
	}

	var form createSnapshotForm
	if r.Method == http.MethodGet {
		h.renderSnapshotForm(w, r, http.StatusOK, share, form, nil)
		return
	}

	errs, err := decodeForm(w, r, &form)
	if err != nil {
		log.Printf("[SharesHandler:CreateSnapshot] %v", err)
		http.Error(w, "Неверный формат формы", http.StatusBadRequest)
		return
	}
	if len(errs) > 0 {
		h.renderSnapshotForm(w, r, http.StatusBadRequest, share, form, errs)
		return
	}

	snapshot, err := h.client.CreateSnapshot(ctx, models.CreateSnapshotRequest{
		ShareID:     share.ID,
		Name:        form.Name,
		Description: form.Description,
		Force:       form.Force,
	})
	if err != nil {
		log.Printf("[SharesHandler:CreateSnapshot] Ошибка создания снапшота ресурса %s: %v", share.ID, err)
		h.recorder.ObserveAction(meta.Name, metrics.OutcomeFailure)
		messages.Error(ctx, serviceMessage(err, "Unable to create snapshot."))
		messages.Redirect(w, r, back)
		return
	}

	h.recorder.ObserveAction(meta.Name, metrics.OutcomeSuccess)
	log.Printf("[SharesHandler:CreateSnapshot] Создается снапшот %s ресурса %s", snapshot.ID, share.ID)
	messages.Success(ctx, fmt.Sprintf("Creating snapshot %q.", snapshot.DisplayName()))
	messages.Redirect(w, r, urls.Snapshots())
}

func (h *SharesHandler) renderSnapshotForm(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	share *models.Share,
	form createSnapshotForm,
	errs fieldErrors,
) {
	page := &formPage{
		Action: urls.CreateSnapshot(share.ID),
		Cancel: urls.ShareDetail(share.ID),
		Submit: "Create Snapshot",
		Fields: []formField{
			{Name: "name", Label: "Snapshot Name", Type: "text", Value: form.Name},
			{Name: "description", Label: "Description", Type: "textarea", Value: form.Description},
			{
				Name:  "force",
				Label: "Force",
				Type:  "checkbox",
				Value: strconv.FormatBool(form.Force),
				Help:  "Create a snapshot even if the share is busy.",
			},
		},
	}
	title := "Create Snapshot: " + share.DisplayName()
	h.renderer.Page(w, r, status, pageForm, title, page.withErrors(errs))
}

// Create обрабатывает GET и POST запросы формы создания ресурса.
// Параметр snapshot_id задает снапшот-источник, форма заполняется его размером и протоколом ресурса.
func (h *SharesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lookup := snapshots.NewShareLookup(h.client)

	action := snapshots.NewCreateShareFromSnapshot(lookup)
	meta := action.Meta()
	if !h.checker.Check(ctx, meta.PolicyRules, nil) {
		denyPolicy(w, "SharesHandler:Create", meta.PolicyRules)
		return
	}

	var (
		form createShareForm
		errs fieldErrors
		err  error
	)
	if r.Method == http.MethodGet {
		form.SnapshotID = r.URL.Query().Get(urls.ParamSnapshotID)
		form.ShareProto = shareProtocols[0]
		if form.SnapshotID != "" {
			if _, errParse := uuid.Parse(form.SnapshotID); errParse != nil {
				log.Printf("[SharesHandler:Create] Неверный snapshot_id %q: %v", form.SnapshotID, errParse)
				messages.Error(ctx, "Unable to retrieve snapshot details.")
				messages.Redirect(w, r, urls.Snapshots())
				return
			}
		}
	} else {
		errs, err = decodeForm(w, r, &form)
		if err != nil {
			log.Printf("[SharesHandler:Create] %v", err)
			http.Error(w, "Неверный формат формы", http.StatusBadRequest)
			return
		}
	}

	var source *models.Snapshot
	if form.SnapshotID != "" && errs["snapshot_id"] == "" {
		source, err = h.client.GetSnapshot(ctx, form.SnapshotID)
		if err != nil {
			if errors.Is(err, api.ErrNotFound) {
				messages.Error(ctx, "Unable to retrieve snapshot details.")
				messages.Redirect(w, r, urls.Snapshots())
				return
			}
			writeAPIError(w, "SharesHandler:Create", err)
			return
		}
		if !actionPermitted[models.Snapshot](ctx, h.checker, action, source) {
			messages.Error(ctx, fmt.Sprintf(
				"Unable to create a share from snapshot %q: the source share is not available.", source.DisplayName()))
			messages.Redirect(w, r, urls.Snapshots())
			return
		}
		if r.Method == http.MethodGet {
			form.Size = source.Size
			// Ресурс уже получен при проверке действия
			if share, err := lookup.Get(ctx, source.ShareID); err == nil && share.ShareProto != "" {
				form.ShareProto = share.ShareProto
			}
		}
	}

	if r.Method == http.MethodGet {
		h.renderShareForm(w, r, http.StatusOK, form, source, nil)
		return
	}
	if len(errs) == 0 {
		errs = h.checkShareLimits(ctx, form, source)
	}
	if len(errs) > 0 {
		h.renderShareForm(w, r, http.StatusBadRequest, form, source, errs)
		return
	}

	share, err := h.client.CreateShare(ctx, models.CreateShareRequest{
		Name:        form.Name,
		Description: form.Description,
		Size:        form.Size,
		ShareProto:  form.ShareProto,
		SnapshotID:  form.SnapshotID,
	})
	if err != nil {
		log.Printf("[SharesHandler:Create] Ошибка создания ресурса: %v", err)
		h.recorder.ObserveAction(meta.Name, metrics.OutcomeFailure)
		errs = fieldErrors{"": serviceMessage(err, "Unable to create share.")}
		h.renderShareForm(w, r, http.StatusBadRequest, form, source, errs)
		return
	}

	h.recorder.ObserveAction(meta.Name, metrics.OutcomeSuccess)
	log.Printf("[SharesHandler:Create] Создается ресурс %s из снапшота %q", share.ID, form.SnapshotID)
	messages.Success(ctx, fmt.Sprintf("Creating share %q.", share.DisplayName()))
	messages.Redirect(w, r, urls.ShareDetail(share.ID))
}

// checkShareLimits проверяет размер ресурса относительно снапшота и свободных квот.
func (h *SharesHandler) checkShareLimits(ctx context.Context, form createShareForm, source *models.Snapshot) fieldErrors {
	errs := make(fieldErrors)
	if source != nil && form.Size < source.Size {
		errs["size"] = fmt.Sprintf(
			"The share size must be equal to or greater than the snapshot size (%dGiB).", source.Size)
		return errs
	}

	usages, err := h.quotas.Usages(ctx)
	if err != nil {
		// Квоты все равно проверит сервис при создании
		log.Printf("[SharesHandler:Create] Ошибка получения квот: %v", err)
		return errs
	}
	if usage, ok := usages[models.QuotaShares]; ok && usage.Exhausted() {
		errs[""] = "Share quota exceeded."
	}
	if usage, ok := usages[models.QuotaGigabytes]; ok && !usage.Unlimited && form.Size > usage.Available {
		errs["size"] = fmt.Sprintf("Requested size exceeds the available quota (%dGiB available).", usage.Available)
	}
	return errs
}

func (h *SharesHandler) renderShareForm(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	form createShareForm,
	source *models.Snapshot,
	errs fieldErrors,
) {
	size := ""
	if form.Size > 0 {
		size = strconv.Itoa(form.Size)
	}
	sizeField := formField{Name: "size", Label: "Size (GiB)", Type: "number", Value: size}
	if source != nil {
		sizeField.Help = fmt.Sprintf("Snapshot size: %dGiB.", source.Size)
	}

	page := &formPage{
		Action: urls.ShareCreate(""),
		Cancel: urls.Snapshots(),
		Submit: "Create",
		Fields: []formField{
			{Name: "name", Label: "Share Name", Type: "text", Value: form.Name},
			{Name: "description", Label: "Description", Type: "textarea", Value: form.Description},
			{Name: "share_proto", Label: "Share Protocol", Type: "select", Value: form.ShareProto, Options: shareProtocols},
			sizeField,
		},
	}
	title := "Create Share"
	if form.SnapshotID != "" {
		page.Fields = append(page.Fields, formField{Name: "snapshot_id", Type: "hidden", Value: form.SnapshotID})
	}
	if source != nil {
		title = "Create Share from Snapshot: " + source.DisplayName()
	}
	h.renderer.Page(w, r, status, pageForm, title, page.withErrors(errs))
}

// loadShare получает ресурс из параметра пути. При ошибке ответ уже записан.
func (h *SharesHandler) loadShare(w http.ResponseWriter, r *http.Request, component string) (*models.Share, bool) {
	ctx := r.Context()
	shareID := chi.URLParam(r, urls.ParamShareID)

	share, err := h.client.GetShare(ctx, shareID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			log.Printf("[%s] Ресурс %s не найден", component, shareID)
			messages.Error(ctx, "Unable to retrieve share details.")
			messages.Redirect(w, r, urls.Snapshots())
			return nil, false
		}
		writeAPIError(w, component, err)
		return nil, false
	}
	return share, true
}
