package permissions_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dalemusser/stratadmin/internal/app/system/auth"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := permissions.DefaultPolicy()

	tests := []struct {
		role, module, action string
		want                 bool
	}{
		{"superadmin", permissions.Admins, permissions.View, true},
		{"SuperAdmin", permissions.Logs, permissions.Edit, true},
		{"admin", permissions.Accounts, permissions.Create, true},
		{"admin", permissions.Admins, permissions.View, false},
		{"admin", permissions.Logs, permissions.Edit, false},
		{"support", permissions.Accounts, permissions.View, true},
		{"support", permissions.Accounts, permissions.Create, false},
		{"visitor", permissions.Accounts, permissions.View, false},
		{"", permissions.Accounts, permissions.View, false},
	}
	for _, tt := range tests {
		got := p.For(tt.role).Allowed(tt.module, tt.action)
		assert.Equal(t, tt.want, got, "%s may %s %s", tt.role, tt.action, tt.module)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := permissions.ParsePolicy([]byte(`
roles:
  auditor:
    logs: ["*"]
    " Accounts ": [" VIEW "]
`))
	require.NoError(t, err)

	g := p.For("auditor")
	assert.True(t, g.Allowed("logs", "export"))
	assert.True(t, g.Allowed("accounts", "view"))
	assert.False(t, g.Allowed("accounts", "edit"))

	_, err = permissions.ParsePolicy([]byte("roles: {}"))
	assert.Error(t, err)

	_, err = permissions.ParsePolicy([]byte("roles: [unclosed"))
	assert.Error(t, err)
}

func TestLoadPolicy(t *testing.T) {
	p, err := permissions.LoadPolicy("")
	require.NoError(t, err)
	assert.True(t, p.For("admin").Allowed("accounts", "view"))

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  admin:\n    feedback: [view]\n"), 0o600))
	p, err = permissions.LoadPolicy(path)
	require.NoError(t, err)
	assert.False(t, p.For("admin").Allowed("accounts", "view"))
	assert.True(t, p.For("admin").Allowed("feedback", "view"))

	_, err = permissions.LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRequireCapability(t *testing.T) {
	p := permissions.DefaultPolicy()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := p.RequireCapability(permissions.Admins, permissions.View)(ok)

	tests := []struct {
		name string
		role string
		want int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"admin", "admin", http.StatusForbidden},
		{"superadmin", "superadmin", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admins", nil)
			req.Header.Set("Accept", "application/json")
			if tc.role != "" {
				req = auth.WithTestUser(req, &auth.SessionUser{ID: "1", Role: tc.role, ConsoleID: "c"})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
