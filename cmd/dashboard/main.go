package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mrtmm/manila-ui/internal/api"
	"github.com/mrtmm/manila-ui/internal/handlers"
	"github.com/mrtmm/manila-ui/internal/metrics"
	appmiddleware "github.com/mrtmm/manila-ui/internal/middleware"
	"github.com/mrtmm/manila-ui/internal/policy"
	"github.com/mrtmm/manila-ui/internal/quota"
	"github.com/mrtmm/manila-ui/internal/urls"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 60 * time.Second // Пакетное удаление выполняется синхронно
	defaultIdleTimeout  = 30 * time.Second
)

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	snapshotsHandler *handlers.SnapshotsHandler
	rulesHandler     *handlers.RulesHandler
	sharesHandler    *handlers.SharesHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения дашборда: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск дашборда снапшотов...")

	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	deps, err := setupDependencies(cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}

	r := setupRouter(deps, cfg.JWTSecret)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	if cfg.TLSEnabled() {
		log.Printf("Запуск HTTPS-сервера на порту %s...", cfg.Port)
		log.Printf("Используется сертификат: %s", cfg.CertFile)
		err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	} else {
		log.Printf("Запуск HTTP-сервера на порту %s (TLS не настроен)...", cfg.Port)
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка запуска сервера: %w", err)
	}
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости дашборда.
func setupDependencies(cfg *config) (*dependencies, error) {
	// 1. Метрики включаются до создания клиента, чтобы он получил рабочий Recorder
	if cfg.EnableMetrics {
		metrics.InitRegistry()
		log.Println("Метрики Prometheus включены.")
	}

	// 2. Политики
	var checker policy.Checker = policy.AllowAll{}
	if cfg.PolicyFile != "" {
		roleChecker, err := policy.LoadFile(cfg.PolicyFile)
		if err != nil {
			return nil, err
		}
		checker = roleChecker
		log.Printf("Политики загружены из %s", cfg.PolicyFile)
	} else {
		log.Println("Файл политик не указан, все действия разрешены.")
	}

	// 3. Клиент API и квоты
	client := api.NewHTTPClient(cfg.ShareAPIURL,
		api.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}),
		api.WithRecorder(metrics.Default()),
	)
	quotas := quota.NewAPIProvider(client)

	// 4. Шаблоны и обработчики
	renderer, err := handlers.NewRenderer()
	if err != nil {
		return nil, err
	}

	return &dependencies{
		snapshotsHandler: handlers.NewSnapshotsHandler(client, checker, renderer),
		rulesHandler:     handlers.NewRulesHandler(client, checker, renderer),
		sharesHandler:    handlers.NewSharesHandler(client, checker, quotas, renderer),
	}, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(deps *dependencies, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Маршруты --- //
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong\n"))
	})
	r.Handle("/metrics", metrics.Handler())

	// Страницы дашборда требуют аутентификации
	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.Authenticator(jwtSecret))
		r.Use(appmiddleware.Flash)

		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, urls.Snapshots(), http.StatusFound)
		})

		r.Route(urls.Prefix, func(r chi.Router) {
			snapshots := deps.snapshotsHandler
			rules := deps.rulesHandler
			shares := deps.sharesHandler

			r.Get(urls.RouteSnapshots, snapshots.List)
			r.Post(urls.RouteSnapshots, snapshots.Delete)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.UUIDParam(urls.ParamSnapshotID))

				r.Get(urls.RouteSnapshotDetail, snapshots.Detail)
				r.Get(urls.RouteSnapshotRow, snapshots.Row)
				r.Get(urls.RouteSnapshotEdit, snapshots.Edit)
				r.Post(urls.RouteSnapshotEdit, snapshots.Edit)

				r.Get(urls.RouteSnapshotRules, rules.List)
				r.Post(urls.RouteSnapshotRules, rules.Delete)
				r.Get(urls.RouteRuleAdd, rules.Add)
				r.Post(urls.RouteRuleAdd, rules.Add)
				r.With(appmiddleware.UUIDParam(urls.ParamRuleID)).Get(urls.RouteRuleRow, rules.Row)
			})

			r.Get(urls.RouteShareCreate, shares.Create)
			r.Post(urls.RouteShareCreate, shares.Create)

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.UUIDParam(urls.ParamShareID))

				r.Get(urls.RouteShareDetail, shares.Detail)
				r.Get(urls.RouteCreateSnapshot, shares.CreateSnapshot)
				r.Post(urls.RouteCreateSnapshot, shares.CreateSnapshot)
			})
		})
	})
	return r
}
