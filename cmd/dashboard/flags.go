package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultServerPort = "8080"
	defaultAPITimeout = 30 * time.Second

	// Переменные окружения.
	envServerPort    = "SERVER_PORT"
	envTLSCertFile   = "TLS_CERT_FILE"
	envTLSKeyFile    = "TLS_KEY_FILE"
	envShareAPIURL   = "SHARE_API_URL"
	envJWTSecret     = "JWT_SECRET" //nolint:gosec // Имя переменной окружения, а не секрет
	envPolicyFile    = "POLICY_FILE"
	envEnableMetrics = "ENABLE_METRICS"
	envAPITimeout    = "SHARE_API_TIMEOUT"
)

// config хранит конфигурацию дашборда.
type config struct {
	Port          string
	CertFile      string
	KeyFile       string
	ShareAPIURL   string
	JWTSecret     string
	PolicyFile    string
	EnableMetrics bool
	APITimeout    time.Duration
}

// TLSEnabled сообщает, заданы ли сертификат и ключ.
func (c *config) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// parseFlags разбирает флаги и переменные окружения, возвращает config или ошибку.
func parseFlags() (*config, error) {
	cfg := &config{}

	flag.StringVar(&cfg.Port, "port", "",
		fmt.Sprintf("Порт HTTP(S)-сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	flag.StringVar(&cfg.CertFile, "cert-file", "",
		fmt.Sprintf("Путь к файлу TLS-сертификата (env: %s)", envTLSCertFile))
	flag.StringVar(&cfg.KeyFile, "key-file", "",
		fmt.Sprintf("Путь к файлу TLS-ключа (env: %s)", envTLSKeyFile))
	flag.StringVar(&cfg.ShareAPIURL, "share-api-url", "",
		fmt.Sprintf("Адрес API сервиса файловых ресурсов (env: %s)", envShareAPIURL))
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", "",
		fmt.Sprintf("Секрет для проверки JWT токенов (env: %s)", envJWTSecret))
	flag.StringVar(&cfg.PolicyFile, "policy-file", "",
		fmt.Sprintf("Путь к YAML файлу политик, пусто - все действия разрешены (env: %s)", envPolicyFile))
	flag.BoolVar(&cfg.EnableMetrics, "enable-metrics", false,
		fmt.Sprintf("Включить метрики Prometheus на /metrics (env: %s)", envEnableMetrics))
	flag.DurationVar(&cfg.APITimeout, "api-timeout", 0,
		fmt.Sprintf("Таймаут запросов к API (env: %s, default: %s)", envAPITimeout, defaultAPITimeout))

	flag.Parse()

	// Применяем переменные окружения, если флаги не заданы
	applyEnv(&cfg.Port, envServerPort)
	applyEnv(&cfg.CertFile, envTLSCertFile)
	applyEnv(&cfg.KeyFile, envTLSKeyFile)
	applyEnv(&cfg.ShareAPIURL, envShareAPIURL)
	applyEnv(&cfg.JWTSecret, envJWTSecret)
	applyEnv(&cfg.PolicyFile, envPolicyFile)
	if cfg.Port == "" {
		cfg.Port = defaultServerPort
	}

	if !cfg.EnableMetrics {
		if value, ok := os.LookupEnv(envEnableMetrics); ok {
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("неверное значение %s: %w", envEnableMetrics, err)
			}
			cfg.EnableMetrics = enabled
		}
	}
	if cfg.APITimeout == 0 {
		cfg.APITimeout = defaultAPITimeout
		if value, ok := os.LookupEnv(envAPITimeout); ok {
			timeout, err := time.ParseDuration(value)
			if err != nil {
				return nil, fmt.Errorf("неверное значение %s: %w", envAPITimeout, err)
			}
			cfg.APITimeout = timeout
		}
	}

	// Проверяем обязательные параметры
	if cfg.ShareAPIURL == "" {
		return nil, errors.New("не указан адрес API сервиса (--share-api-url или " + envShareAPIURL + ")")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("не указан секрет JWT (--jwt-secret или " + envJWTSecret + ")")
	}
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, errors.New("сертификат и ключ TLS задаются вместе (" + envTLSCertFile + ", " + envTLSKeyFile + ")")
	}

	return cfg, nil
}

// applyEnv берет значение из переменной окружения, если флаг не задан.
func applyEnv(value *string, key string) {
	if *value != "" {
		return
	}
	if env, ok := os.LookupEnv(key); ok {
		*value = env
	}
}
