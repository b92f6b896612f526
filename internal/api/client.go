package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/mrtmm/manila-ui/internal/auth"
	"github.com/mrtmm/manila-ui/internal/metrics"
	"github.com/mrtmm/manila-ui/internal/models"
)

const (
	// Микроверсия API, начиная с которой сервис отдает mount_snapshot_support.
	defaultAPIVersion = "2.32"
	apiVersionHeader  = "X-OpenStack-Manila-API-Version"
	authTokenHeader   = "X-Auth-Token"
	defaultTimeout    = 30 * time.Second
	// Ограничение на чтение тела ответа с ошибкой.
	maxErrorBodySize = 64 * 1024
)

// Client определяет интерфейс для взаимодействия с API сервиса файловых ресурсов.
// Все вызовы синхронные, токен пользователя берется из контекста запроса.
type Client interface {
	// GetSnapshot получает снапшот по ID. Возвращает ErrNotFound, если его нет.
	GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	// ListSnapshots получает все снапшоты проекта.
	ListSnapshots(ctx context.Context) ([]models.Snapshot, error)
	// CreateSnapshot создает снапшот ресурса.
	CreateSnapshot(ctx context.Context, req models.CreateSnapshotRequest) (*models.Snapshot, error)
	// UpdateSnapshot изменяет имя и описание снапшота.
	UpdateSnapshot(ctx context.Context, id string, req models.UpdateSnapshotRequest) error
	// DeleteSnapshot удаляет снапшот.
	DeleteSnapshot(ctx context.Context, id string) error
	// ListSnapshotRules получает правила доступа к снапшоту.
	ListSnapshotRules(ctx context.Context, snapshotID string) ([]models.Rule, error)
	// AllowSnapshotAccess добавляет правило доступа к снапшоту.
	AllowSnapshotAccess(ctx context.Context, snapshotID string, req models.AllowAccessRequest) (*models.Rule, error)
	// DenySnapshotAccess удаляет правило доступа к снапшоту.
	DenySnapshotAccess(ctx context.Context, snapshotID, ruleID string) error
	// GetShare получает ресурс по ID.
	GetShare(ctx context.Context, id string) (*models.Share, error)
	// ListShares получает все ресурсы проекта.
	ListShares(ctx context.Context) ([]models.Share, error)
	// CreateShare создает ресурс (в том числе из снапшота).
	CreateShare(ctx context.Context, req models.CreateShareRequest) (*models.Share, error)
	// GetQuotaUsages получает использование квот проекта.
	GetQuotaUsages(ctx context.Context, projectID string) (models.QuotaUsages, error)
}

// httpClient реализует интерфейс Client поверх REST API сервиса.
type httpClient struct {
	baseURL    string       // Базовый URL API, например "http://manila:8786/v2"
	httpClient *http.Client // HTTP клиент для выполнения запросов
	apiVersion string       // Микроверсия API
	recorder   metrics.Recorder
}

// Option настраивает httpClient.
type Option func(*httpClient)

// WithHTTPClient подменяет HTTP клиент.
func WithHTTPClient(c *http.Client) Option {
	return func(h *httpClient) {
		h.httpClient = c
	}
}

// WithAPIVersion задает микроверсию API.
func WithAPIVersion(version string) Option {
	return func(h *httpClient) {
		h.apiVersion = version
	}
}

// WithRecorder задает сборщик метрик.
func WithRecorder(r metrics.Recorder) Option {
	return func(h *httpClient) {
		h.recorder = r
	}
}

// NewHTTPClient создает новый экземпляр API клиента.
func NewHTTPClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiVersion: defaultAPIVersion,
		recorder:   metrics.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSnapshot получает снапшот по ID.
func (c *httpClient) GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	var resp struct {
		Snapshot models.Snapshot `json:"snapshot"`
	}
	if err := c.do(ctx, http.MethodGet, "snapshot", []string{"snapshots", id}, nil, &resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("ошибка получения снапшота %s: %w", id, err)
	}
	return &resp.Snapshot, nil
}

// ListSnapshots получает все снапшоты проекта.
func (c *httpClient) ListSnapshots(ctx context.Context) ([]models.Snapshot, error) {
	var resp struct {
		Snapshots []models.Snapshot `json:"snapshots"`
	}
	if err := c.do(ctx, http.MethodGet, "snapshots", []string{"snapshots", "detail"}, nil, &resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("ошибка получения списка снапшотов: %w", err)
	}
	return resp.Snapshots, nil
}

// CreateSnapshot создает снапшот ресурса.
func (c *httpClient) CreateSnapshot(ctx context.Context, req models.CreateSnapshotRequest) (*models.Snapshot, error) {
	body := map[string]models.CreateSnapshotRequest{"snapshot": req}
	var resp struct {
		Snapshot models.Snapshot `json:"snapshot"`
	}
	err := c.do(ctx, http.MethodPost, "snapshots", []string{"snapshots"}, body, &resp,
		http.StatusOK, http.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания снапшота ресурса %s: %w", req.ShareID, err)
	}
	return &resp.Snapshot, nil
}

// UpdateSnapshot изменяет имя и описание снапшота.
func (c *httpClient) UpdateSnapshot(ctx context.Context, id string, req models.UpdateSnapshotRequest) error {
	body := map[string]models.UpdateSnapshotRequest{"snapshot": req}
	if err := c.do(ctx, http.MethodPut, "snapshot", []string{"snapshots", id}, body, nil, http.StatusOK); err != nil {
		return fmt.Errorf("ошибка изменения снапшота %s: %w", id, err)
	}
	return nil
}

// DeleteSnapshot удаляет снапшот.
func (c *httpClient) DeleteSnapshot(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "snapshot", []string{"snapshots", id}, nil, nil,
		http.StatusAccepted, http.StatusNoContent, http.StatusOK)
	if err != nil {
		return fmt.Errorf("ошибка удаления снапшота %s: %w", id, err)
	}
	return nil
}

// ListSnapshotRules получает правила доступа к снапшоту.
func (c *httpClient) ListSnapshotRules(ctx context.Context, snapshotID string) ([]models.Rule, error) {
	var resp struct {
		Rules []models.Rule `json:"snapshot_access_list"`
	}
	err := c.do(ctx, http.MethodGet, "snapshot_access_list",
		[]string{"snapshots", snapshotID, "access-list"}, nil, &resp, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения правил доступа снапшота %s: %w", snapshotID, err)
	}
	return resp.Rules, nil
}

// AllowSnapshotAccess добавляет правило доступа к снапшоту.
func (c *httpClient) AllowSnapshotAccess(
	ctx context.Context,
	snapshotID string,
	req models.AllowAccessRequest,
) (*models.Rule, error) {
	body := map[string]models.AllowAccessRequest{"allow_access": req}
	var resp struct {
		Rule models.Rule `json:"snapshot_access"`
	}
	err := c.do(ctx, http.MethodPost, "snapshot_action",
		[]string{"snapshots", snapshotID, "action"}, body, &resp, http.StatusOK, http.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("ошибка добавления правила доступа к снапшоту %s: %w", snapshotID, err)
	}
	return &resp.Rule, nil
}

// DenySnapshotAccess удаляет правило доступа к снапшоту.
func (c *httpClient) DenySnapshotAccess(ctx context.Context, snapshotID, ruleID string) error {
	body := map[string]map[string]string{"deny_access": {"access_id": ruleID}}
	err := c.do(ctx, http.MethodPost, "snapshot_action",
		[]string{"snapshots", snapshotID, "action"}, body, nil, http.StatusOK, http.StatusAccepted)
	if err != nil {
		return fmt.Errorf("ошибка удаления правила %s снапшота %s: %w", ruleID, snapshotID, err)
	}
	return nil
}

// shareWire - представление ресурса на проводе.
// snapshot_support может отсутствовать, тогда считаем его включенным.
type shareWire struct {
	models.Share
	SnapshotSupport *bool `json:"snapshot_support"`
}

func (w shareWire) toModel() models.Share {
	share := w.Share
	share.SnapshotSupport = w.SnapshotSupport == nil || *w.SnapshotSupport
	return share
}

// GetShare получает ресурс по ID.
func (c *httpClient) GetShare(ctx context.Context, id string) (*models.Share, error) {
	var resp struct {
		Share shareWire `json:"share"`
	}
	if err := c.do(ctx, http.MethodGet, "share", []string{"shares", id}, nil, &resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("ошибка получения ресурса %s: %w", id, err)
	}
	share := resp.Share.toModel()
	return &share, nil
}

// ListShares получает все ресурсы проекта.
func (c *httpClient) ListShares(ctx context.Context) ([]models.Share, error) {
	var resp struct {
		Shares []shareWire `json:"shares"`
	}
	if err := c.do(ctx, http.MethodGet, "shares", []string{"shares", "detail"}, nil, &resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("ошибка получения списка ресурсов: %w", err)
	}
	shares := make([]models.Share, 0, len(resp.Shares))
	for _, w := range resp.Shares {
		shares = append(shares, w.toModel())
	}
	return shares, nil
}

// CreateShare создает ресурс.
func (c *httpClient) CreateShare(ctx context.Context, req models.CreateShareRequest) (*models.Share, error) {
	body := map[string]models.CreateShareRequest{"share": req}
	var resp struct {
		Share shareWire `json:"share"`
	}
	err := c.do(ctx, http.MethodPost, "shares", []string{"shares"}, body, &resp,
		http.StatusOK, http.StatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания ресурса: %w", err)
	}
	share := resp.Share.toModel()
	return &share, nil
}

// quotaDetail - использование одной квоты в ответе /quota-sets/{project}/detail.
type quotaDetail struct {
	Limit    *int `json:"limit"`
	InUse    int  `json:"in_use"`
	Reserved int  `json:"reserved"`
}

// GetQuotaUsages получает использование квот проекта.
// Свободный остаток считается как limit - in_use - reserved, limit -1 означает отсутствие лимита.
func (c *httpClient) GetQuotaUsages(ctx context.Context, projectID string) (models.QuotaUsages, error) {
	var resp struct {
		QuotaSet map[string]json.RawMessage `json:"quota_set"`
	}
	err := c.do(ctx, http.MethodGet, "quota_set",
		[]string{"quota-sets", projectID, "detail"}, nil, &resp, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения квот проекта %s: %w", projectID, err)
	}

	usages := make(models.QuotaUsages, len(resp.QuotaSet))
	for name, raw := range resp.QuotaSet {
		var detail quotaDetail
		// Поля вроде "id" не являются квотами, пропускаем их
		if err = json.Unmarshal(raw, &detail); err != nil || detail.Limit == nil {
			continue
		}
		usage := models.QuotaUsage{
			Limit: *detail.Limit,
			Used:  detail.InUse + detail.Reserved,
		}
		if usage.Limit < 0 {
			usage.Unlimited = true
		} else {
			usage.Available = max(usage.Limit-usage.Used, 0)
		}
		usages[name] = usage
	}
	return usages, nil
}

// do выполняет запрос к API и декодирует ответ в out (если out не nil).
// endpoint используется только как метка для логов и метрик.
func (c *httpClient) do(
	ctx context.Context,
	method, endpoint string,
	pathParts []string,
	body, out any,
	expected ...int,
) error {
	escaped := make([]string, len(pathParts))
	for i, part := range pathParts {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidID, part)
		}
		escaped[i] = url.PathEscape(part)
	}

	reqURL, err := url.JoinPath(c.baseURL, escaped...)
	if err != nil {
		return fmt.Errorf("ошибка формирования URL: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			return fmt.Errorf("ошибка кодирования тела запроса: %w", errMarshal)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiVersionHeader, c.apiVersion)

	// Добавляем токен пользователя
	if err = setAuthHeader(req); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recorder.ObserveAPICall(endpoint, method, 0, time.Since(start))
		log.Printf("[ShareAPI] Ошибка выполнения запроса %s %s: %v", method, reqURL, err)
		return fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()
	c.recorder.ObserveAPICall(endpoint, method, resp.StatusCode, time.Since(start))

	if !statusExpected(resp.StatusCode, expected) {
		log.Printf("[ShareAPI] %s %s вернул статус %d", method, reqURL, resp.StatusCode)
		return errorFromResponse(resp)
	}

	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	return nil
}

// setAuthHeader добавляет заголовок с токеном пользователя из контекста.
func setAuthHeader(req *http.Request) error {
	creds, ok := auth.FromContext(req.Context())
	if !ok || creds.Token == "" {
		return ErrMissingToken
	}
	req.Header.Set(authTokenHeader, creds.Token)
	return nil
}

func statusExpected(status int, expected []int) bool {
	for _, s := range expected {
		if s == status {
			return true
		}
	}
	return false
}

// errorFromResponse переводит неуспешный ответ сервиса в ошибку.
func errorFromResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrAuthorization
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return &ServiceError{
		StatusCode: resp.StatusCode,
		Message:    faultMessage(data),
	}
}

// faultMessage достает сообщение из тела ошибки вида {"badRequest": {"message": "...", "code": 400}}.
// Если формат другой, возвращает тело целиком.
func faultMessage(data []byte) string {
	var fault map[string]struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &fault); err == nil {
		for _, f := range fault {
			if f.Message != "" {
				return f.Message
			}
		}
	}
	return string(bytes.TrimSpace(data))
}

// ServiceError - ошибка, которую вернул сервис файловых ресурсов.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ошибка сервиса: статус %d", e.StatusCode)
	}
	return fmt.Sprintf("ошибка сервиса (статус %d): %s", e.StatusCode, e.Message)
}

// Кастомные ошибки клиента.
var (
	ErrNotFound      = errors.New("ресурс не найден")
	ErrAuthorization = errors.New("ошибка авторизации")
	ErrMissingToken  = errors.New("токен аутентификации отсутствует")
	ErrInvalidID     = errors.New("недопустимый идентификатор ресурса")
)
