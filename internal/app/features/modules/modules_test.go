package modules_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/dalemusser/stratadmin/internal/app/features/modules"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv/pageenvtest"
	"github.com/dalemusser/stratadmin/internal/app/system/indexes"
	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/dalemusser/stratadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestModules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	require.NoError(t, indexes.EnsureAll(ctx, db, zap.NewNop()))
	hs := pageenvtest.New(t, db)
	h := modules.Routes(modules.NewHandler(db, hs.Env.Audit, zap.NewNop()), hs.Env)
	super := testutil.SuperAdminUser()
	admin := testutil.AdminUser()

	code, _ := pageenvtest.Do(t, h, admin, "POST", "/new", url.Values{"key": {"billing"}, "name": {"Billing"}})
	assert.Equal(t, http.StatusForbidden, code, "admins may not add modules")

	tests := []struct {
		name string
		form url.Values
		want int
	}{
		{"created", url.Values{"key": {" Billing "}, "name": {"Billing"}}, http.StatusCreated},
		{"duplicate key", url.Values{"key": {"billing"}, "name": {"Billing 2"}}, http.StatusConflict},
		{"bad key", url.Values{"key": {"no spaces"}, "name": {"X"}}, http.StatusUnprocessableEntity},
		{"no name", url.Values{"key": {"reports"}}, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, env := pageenvtest.Do(t, h, super, "POST", "/new", tc.form)
			assert.Equal(t, tc.want, code, env.Message)
		})
	}

	code, env := pageenvtest.Do(t, h, admin, "GET", "/", nil)
	require.Equal(t, http.StatusOK, code)
	var list listctl.State[models.Module]
	env.DecodeState(t, &list)
	require.Len(t, list.Records, 1)
	m := list.Records[0]
	assert.Equal(t, "billing", m.Key)
	assert.Equal(t, models.StatusActive, m.Status)

	code, env = pageenvtest.Do(t, h, admin, "POST", "/"+m.ID.Hex()+"/status", url.Values{"status": {"inactive"}})
	require.Equal(t, http.StatusOK, code, env.Message)

	_, _ = pageenvtest.Do(t, h, admin, "PUT", "/filters/status", url.Values{"value": {"active"}})
	code, env = pageenvtest.Do(t, h, admin, "POST", "/search", nil)
	require.Equal(t, http.StatusOK, code)
	list = listctl.State[models.Module]{}
	env.DecodeState(t, &list)
	assert.Empty(t, list.Records)
}
