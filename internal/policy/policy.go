package policy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mrtmm/manila-ui/internal/auth"
)

// Области действия правил.
const (
	ScopeProject = "project" // Цель должна принадлежать проекту пользователя
	ScopeNone    = "none"    // Проверяются только роли
)

// Ключ проекта в цели проверки.
const TargetProjectID = "project_id"

// Rule - пара (сервис, действие), например ("share", "share:create_snapshot").
type Rule struct {
	Service string
	Action  string
}

// Target - атрибуты объекта, над которым выполняется действие.
type Target map[string]string

// Checker проверяет права текущего пользователя.
// Действие разрешено, только если разрешены все переданные правила.
type Checker interface {
	Check(ctx context.Context, rules []Rule, target Target) bool
}

// ActionPolicy описывает политику одного действия в файле политик.
type ActionPolicy struct {
	Roles []string `yaml:"roles"`
	Scope string   `yaml:"scope" validate:"omitempty,oneof=project none"`
}

// File - содержимое YAML файла политик.
type File struct {
	DefaultAllow bool                    `yaml:"default_allow"`
	Rules        map[string]ActionPolicy `yaml:"rules" validate:"dive"`
}

// RoleChecker проверяет права по ролям пользователя и проекту цели.
type RoleChecker struct {
	defaultAllow bool
	rules        map[string]ActionPolicy
}

var _ Checker = (*RoleChecker)(nil)

var validate = validator.New()

// NewRoleChecker создает проверку прав из разобранного файла политик.
func NewRoleChecker(f File) (*RoleChecker, error) {
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("ошибка валидации политик: %w", err)
	}
	rules := make(map[string]ActionPolicy, len(f.Rules))
	for action, p := range f.Rules {
		if p.Scope == "" {
			p.Scope = ScopeProject
		}
		rules[action] = p
	}
	return &RoleChecker{defaultAllow: f.DefaultAllow, rules: rules}, nil
}

// LoadFile читает YAML файл политик и создает RoleChecker.
func LoadFile(path string) (*RoleChecker, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла политик '%s': %w", path, err)
	}
	return Parse(data)
}

// Parse разбирает YAML политик.
func Parse(data []byte) (*RoleChecker, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла политик: %w", err)
	}
	return NewRoleChecker(f)
}

// Check проверяет все правила для текущего пользователя.
func (c *RoleChecker) Check(ctx context.Context, rules []Rule, target Target) bool {
	creds, ok := auth.FromContext(ctx)
	if !ok {
		log.Printf("[Policy] Нет учетных данных в контексте, действия запрещены")
		return false
	}
	for _, rule := range rules {
		if !c.checkRule(creds, rule, target) {
			log.Printf("[Policy] Правило %s:%s запрещено для пользователя %s", rule.Service, rule.Action, creds.UserID)
			return false
		}
	}
	return true
}

func (c *RoleChecker) checkRule(creds *auth.Credentials, rule Rule, target Target) bool {
	p, ok := c.rules[rule.Action]
	if !ok {
		return c.defaultAllow
	}

	if len(p.Roles) > 0 && !hasAnyRole(creds, p.Roles) {
		return false
	}

	if p.Scope == ScopeProject && !creds.IsAdmin() {
		if projectID := target[TargetProjectID]; projectID != "" && projectID != creds.ProjectID {
			return false
		}
	}
	return true
}

func hasAnyRole(creds *auth.Credentials, roles []string) bool {
	for _, role := range roles {
		if creds.HasRole(role) {
			return true
		}
	}
	return false
}

// AllowAll разрешает все действия. Используется в тестах и при отключенных политиках.
type AllowAll struct{}

// Check всегда возвращает true.
func (AllowAll) Check(context.Context, []Rule, Target) bool { return true }

// DenyAll запрещает все действия.
type DenyAll struct{}

// Check всегда возвращает false.
func (DenyAll) Check(context.Context, []Rule, Target) bool { return false }

// Кастомные ошибки пакета.
var (
	ErrPolicyDenied = errors.New("действие запрещено политикой")
)
