package auth

import (
	"context"
	"slices"
)

// Тип для ключа контекста.
type contextKey string

// Ключ для хранения учетных данных в контексте.
const credentialsKey contextKey = "credentials"

// AdminRole - роль, которой разрешены действия в чужих проектах.
const AdminRole = "admin"

// Credentials описывает пользователя, от имени которого выполняется запрос.
// Token передается сервису файловых ресурсов как есть.
type Credentials struct {
	UserID    string
	ProjectID string
	Roles     []string
	Token     string
}

// HasRole проверяет наличие роли у пользователя.
func (c *Credentials) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// IsAdmin сообщает, есть ли у пользователя административная роль.
func (c *Credentials) IsAdmin() bool {
	return c.HasRole(AdminRole)
}

// WithCredentials возвращает контекст с учетными данными.
func WithCredentials(ctx context.Context, creds *Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

// FromContext извлекает учетные данные из контекста.
// Возвращает nil и false, если их там нет.
func FromContext(ctx context.Context) (*Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey).(*Credentials)
	if !ok || creds == nil {
		return nil, false
	}
	return creds, true
}
