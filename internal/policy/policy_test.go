package policy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtmm/manila-ui/internal/auth"
	"github.com/mrtmm/manila-ui/internal/policy"
)

const testPolicy = `
default_allow: false
rules:
  "share:create_snapshot":
    roles: [member, admin]
  "share:access_get_all":
    roles: []
    scope: none
`

func ctxWith(projectID string, roles ...string) context.Context {
	return auth.WithCredentials(context.Background(), &auth.Credentials{
		UserID:    "u1",
		ProjectID: projectID,
		Roles:     roles,
		Token:     "t",
	})
}

func TestRoleChecker_Check(t *testing.T) {
	checker, err := policy.Parse([]byte(testPolicy))
	require.NoError(t, err)

	createSnapshot := []policy.Rule{{Service: "share", Action: "share:create_snapshot"}}
	accessGetAll := []policy.Rule{{Service: "share", Action: "share:access_get_all"}}
	unknown := []policy.Rule{{Service: "share", Action: "share:unknown"}}

	tests := []struct {
		name     string
		ctx      context.Context
		rules    []policy.Rule
		target   policy.Target
		expected bool
	}{
		{
			name:     "Участник своего проекта",
			ctx:      ctxWith("p1", "member"),
			rules:    createSnapshot,
			target:   policy.Target{policy.TargetProjectID: "p1"},
			expected: true,
		},
		{
			name:     "Участник чужого проекта",
			ctx:      ctxWith("p2", "member"),
			rules:    createSnapshot,
			target:   policy.Target{policy.TargetProjectID: "p1"},
			expected: false,
		},
		{
			name:     "Администратор чужого проекта",
			ctx:      ctxWith("p2", "admin"),
			rules:    createSnapshot,
			target:   policy.Target{policy.TargetProjectID: "p1"},
			expected: true,
		},
		{
			name:     "Пустой project_id в цели",
			ctx:      ctxWith("p2", "member"),
			rules:    createSnapshot,
			target:   policy.Target{policy.TargetProjectID: ""},
			expected: true,
		},
		{
			name:     "Нет нужной роли",
			ctx:      ctxWith("p1", "reader"),
			rules:    createSnapshot,
			target:   nil,
			expected: false,
		},
		{
			name:     "Правило без ролей",
			ctx:      ctxWith("p1"),
			rules:    accessGetAll,
			target:   nil,
			expected: true,
		},
		{
			name:     "Неизвестное правило и default_allow=false",
			ctx:      ctxWith("p1", "admin"),
			rules:    unknown,
			target:   nil,
			expected: false,
		},
		{
			name:     "Нет учетных данных",
			ctx:      context.Background(),
			rules:    accessGetAll,
			target:   nil,
			expected: false,
		},
		{
			name:     "Пустой список правил",
			ctx:      ctxWith("p1"),
			rules:    nil,
			target:   nil,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, checker.Check(tt.ctx, tt.rules, tt.target))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Run("Невалидный YAML", func(t *testing.T) {
		_, err := policy.Parse([]byte("rules: [unclosed"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка разбора файла политик")
	})

	t.Run("Неизвестная область действия", func(t *testing.T) {
		_, err := policy.Parse([]byte("rules:\n  \"share:create\":\n    scope: domain\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка валидации политик")
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_allow: true\n"), 0o600))

	checker, err := policy.LoadFile(path)
	require.NoError(t, err)
	assert.True(t, checker.Check(ctxWith("p1"), []policy.Rule{{Service: "share", Action: "share:any"}}, nil))

	_, err = policy.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestStaticCheckers(t *testing.T) {
	rules := []policy.Rule{{Service: "share", Action: "share:create"}}
	assert.True(t, policy.AllowAll{}.Check(context.Background(), rules, nil))
	assert.False(t, policy.DenyAll{}.Check(context.Background(), rules, nil))
}
