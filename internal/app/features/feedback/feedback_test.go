package feedback_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/features/feedback"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv/pageenvtest"
	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/dalemusser/stratadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFeedbackList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	hs := pageenvtest.New(t, db)
	h := feedback.Routes(feedback.NewHandler(db, zap.NewNop()), hs.Env)

	at := func(d int) time.Time { return time.Date(2026, 5, d, 9, 30, 0, 0, time.UTC) }
	fx.CreateFeedback(ctx, "Ann", "crash on start", models.DeviceIOS, at(1))
	fx.CreateFeedback(ctx, "Ben", "love it", models.DeviceAndroid, at(2))
	fx.CreateFeedback(ctx, "Ann", "dark mode please", models.DeviceIOS, at(3))

	tests := []struct {
		name    string
		search  string
		filters map[string]string
		want    int64
		wantErr bool
	}{
		{name: "all", want: 3},
		{name: "device", filters: map[string]string{"device_type": "ios"}, want: 2},
		{name: "through day two", filters: map[string]string{"end_date": "2026-05-02"}, want: 2},
		{name: "from day two on ios", filters: map[string]string{"start_date": "2026-05-02", "device_type": "ios"}, want: 1},
		{name: "user search", search: "an", want: 2},
		{name: "sentinel", filters: map[string]string{"device_type": "all"}, want: 3},
		{name: "unknown device", filters: map[string]string{"device_type": "fax"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user := testutil.SupportUser()
			if tc.search != "" {
				_, _ = pageenvtest.Do(t, h, user, "PUT", "/search-text", url.Values{"value": {tc.search}})
			}
			for name, v := range tc.filters {
				_, _ = pageenvtest.Do(t, h, user, "PUT", "/filters/"+name, url.Values{"value": {v}})
			}
			code, env := pageenvtest.Do(t, h, user, "POST", "/search", nil)
			if tc.wantErr {
				assert.Equal(t, http.StatusUnprocessableEntity, code)
				return
			}
			require.Equal(t, http.StatusOK, code, env.Message)
			var list listctl.State[models.Feedback]
			env.DecodeState(t, &list)
			assert.Equal(t, tc.want, list.TotalRecords)
		})
	}
}
