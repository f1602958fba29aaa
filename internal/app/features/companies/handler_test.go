package companies_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/dalemusser/stratadmin/internal/app/features/companies"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv/pageenvtest"
	"github.com/dalemusser/stratadmin/internal/app/store/audit"
	"github.com/dalemusser/stratadmin/internal/app/store/storeutil"
	"github.com/dalemusser/stratadmin/internal/app/system/indexes"
	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/app/system/wizard"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/dalemusser/stratadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	h   http.Handler
	hs  *pageenvtest.Harness
	fx  *testutil.Fixtures
	ctx context.Context
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)
	require.NoError(t, indexes.EnsureAll(ctx, db, zap.NewNop()))

	hs := pageenvtest.New(t, db)
	r, err := companies.Routes(companies.NewHandler(db, hs.Env.Audit, zap.NewNop()), hs.Env)
	require.NoError(t, err)
	return &fixture{h: r, hs: hs, fx: testutil.NewFixtures(t, db), ctx: ctx}
}

type wizardData struct {
	Completed bool   `json:"completed"`
	EntityID  string `json:"entity_id"`
	View      struct {
		Company     *models.Company `json:"company"`
		DeviceTypes []string        `json:"device_types"`
	} `json:"view"`
}

func dataOf(t *testing.T, env pageenvtest.Envelope) wizardData {
	t.Helper()
	var d wizardData
	env.DecodeData(t, &d)
	return d
}

func TestCompanyWizard(t *testing.T) {
	f := setup(t)
	admin := testutil.AdminUser()

	tests := []struct {
		name    string
		form    url.Values
		wantMsg string
	}{
		{"blank name", url.Values{"name": {"  "}}, "name is required"},
		{"bad scheme", url.Values{"name": {"Globex"}, "website": {"ftp://globex.example"}}, "website must be an http or https address"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, env := pageenvtest.Do(t, f.h, admin, "POST", "/new/steps/profile", tc.form)
			assert.Equal(t, http.StatusUnprocessableEntity, code)
			assert.Equal(t, tc.wantMsg, env.Message)
		})
	}

	code, env := pageenvtest.Do(t, f.h, admin, "POST", "/new/steps/profile", url.Values{
		"name": {"Globex"}, "website": {"globex.example"},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	data := dataOf(t, env)
	require.NotNil(t, data.View.Company)
	assert.Equal(t, "https://globex.example", data.View.Company.Website)
	assert.Len(t, data.View.DeviceTypes, 3)

	code, env = pageenvtest.Do(t, f.h, admin, "POST", "/new/steps/settings", url.Values{"device_type": {"toaster"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "choose a device type", env.Message)

	code, env = pageenvtest.Do(t, f.h, admin, "POST", "/new/steps/settings", url.Values{"device_type": {"Android"}})
	require.Equal(t, http.StatusOK, code, env.Message)
	data = dataOf(t, env)
	assert.True(t, data.Completed)

	var list listctl.State[models.Company]
	_, env = pageenvtest.Do(t, f.h, admin, "GET", "/", nil)
	env.DecodeState(t, &list)
	require.Len(t, list.Records, 1)
	assert.Equal(t, models.DeviceAndroid, list.Records[0].DeviceType)
	assert.Equal(t, models.StatusActive, list.Records[0].Status)
	assert.Contains(t, string(env.Data), "Company created")
}

func TestCompanyWizard_Abandon(t *testing.T) {
	f := setup(t)
	admin := testutil.AdminUser()

	code, env := pageenvtest.Do(t, f.h, admin, "POST", "/new/abandon", nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = pageenvtest.Do(t, f.h, admin, "POST", "/new/steps/profile", url.Values{"name": {"Hooli"}})
	require.Equal(t, http.StatusOK, code, env.Message)
	id := dataOf(t, env).EntityID

	code, env = pageenvtest.Do(t, f.h, admin, "POST", "/new/abandon", nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var st wizard.State
	env.DecodeState(t, &st)
	assert.Equal(t, companies.StepProfile, st.CurrentStep)
	assert.Empty(t, st.EntityID)
	assert.Equal(t, 0, f.hs.Progress.Len())

	events, err := f.hs.Audit.Query(f.ctx, audit.QueryFilter{EventType: audit.EventWizardAbandoned}, storeutil.Page{Limit: 5})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].EntityID)
	assert.Equal(t, companies.WizardNamespace, events[0].EntityType)
}

func TestCompanyList_DeviceFilter(t *testing.T) {
	f := setup(t)
	support := testutil.SupportUser()
	f.fx.CreateCompany(f.ctx, "Initech", models.DeviceWeb)
	f.fx.CreateCompany(f.ctx, "Globex", models.DeviceIOS)
	f.fx.CreateCompany(f.ctx, "Hooli", models.DeviceIOS)

	_, _ = pageenvtest.Do(t, f.h, support, "PUT", "/filters/device_type", url.Values{"value": {"ios"}})
	code, env := pageenvtest.Do(t, f.h, support, "POST", "/search", nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var list listctl.State[models.Company]
	env.DecodeState(t, &list)
	assert.EqualValues(t, 2, list.TotalRecords)

	code, _ = pageenvtest.Do(t, f.h, support, "POST", "/new/steps/profile", url.Values{"name": {"Nope"}})
	assert.Equal(t, http.StatusForbidden, code)
}
