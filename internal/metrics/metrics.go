package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы действий и обновлений строк.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeNotFound = "not_found"
)

// Recorder собирает метрики дашборда.
type Recorder interface {
	// ObserveAPICall фиксирует вызов API сервиса файловых ресурсов.
	ObserveAPICall(endpoint, method string, status int, duration time.Duration)
	// ObserveAction фиксирует результат действия пользователя (удаление, создание и т.д.).
	ObserveAction(action, outcome string)
	// ObserveRowRefresh фиксирует результат ajax-обновления строки таблицы.
	ObserveRowRefresh(table, outcome string)
}

var (
	// Глобальный реестр, nil - метрики выключены. Защищен defaultRecorderLock.
	registry     *prometheus.Registry
	registryOnce sync.Once

	defaultRecorder     Recorder = noopRecorder{}
	defaultRecorderLock sync.RWMutex
)

// InitRegistry включает сбор метрик. Повторные вызовы игнорируются.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		rec := newPromRecorder(reg)
		defaultRecorderLock.Lock()
		registry = reg
		defaultRecorder = rec
		defaultRecorderLock.Unlock()
	})
}

// IsEnabled сообщает, включен ли сбор метрик.
func IsEnabled() bool {
	return currentRegistry() != nil
}

func currentRegistry() *prometheus.Registry {
	defaultRecorderLock.RLock()
	defer defaultRecorderLock.RUnlock()
	return registry
}

// Default возвращает текущий Recorder (no-op, если метрики выключены).
func Default() Recorder {
	defaultRecorderLock.RLock()
	defer defaultRecorderLock.RUnlock()
	return defaultRecorder
}

// Handler возвращает HTTP-обработчик для /metrics.
func Handler() http.Handler {
	reg := currentRegistry()
	if reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

type promRecorder struct {
	apiCalls        *prometheus.CounterVec
	apiCallDuration *prometheus.HistogramVec
	actions         *prometheus.CounterVec
	rowRefreshes    *prometheus.CounterVec
}

func newPromRecorder(reg *prometheus.Registry) *promRecorder {
	return &promRecorder{
		apiCalls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "manila_ui_share_api_requests_total",
				Help: "Total number of share service API requests by endpoint, method and status",
			},
			[]string{"endpoint", "method", "status"},
		),
		apiCallDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "manila_ui_share_api_request_duration_seconds",
				Help:    "Duration of share service API requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		actions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "manila_ui_actions_total",
				Help: "Total number of dashboard actions by action name and outcome",
			},
			[]string{"action", "outcome"},
		),
		rowRefreshes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "manila_ui_row_refreshes_total",
				Help: "Total number of ajax row refreshes by table and outcome",
			},
			[]string{"table", "outcome"},
		),
	}
}

func (r *promRecorder) ObserveAPICall(endpoint, method string, status int, duration time.Duration) {
	r.apiCalls.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	r.apiCallDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *promRecorder) ObserveAction(action, outcome string) {
	r.actions.WithLabelValues(action, outcome).Inc()
}

func (r *promRecorder) ObserveRowRefresh(table, outcome string) {
	r.rowRefreshes.WithLabelValues(table, outcome).Inc()
}

type noopRecorder struct{}

func (noopRecorder) ObserveAPICall(string, string, int, time.Duration) {}
func (noopRecorder) ObserveAction(string, string) {}
func (noopRecorder) ObserveRowRefresh(string, string) {}
