// Package pageenvtest builds a pageenv.Env for feature tests: in-memory
// wizard progress, recorded flashes and audit events stored in the test
// database.
package pageenvtest

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	"github.com/dalemusser/stratadmin/internal/app/store/audit"
	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"github.com/dalemusser/stratadmin/internal/app/system/console"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/dalemusser/stratadmin/internal/app/system/progress"
	"github.com/dalemusser/stratadmin/internal/app/system/wizard"
	"github.com/dalemusser/stratadmin/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Harness struct {
	Env      pageenv.Env
	Progress *progress.Memory
	Flash    *notify.Recorder
	Audit    *audit.Store
}

// New returns a harness whose audit events land in db. The page size is 25.
func New(t *testing.T, db *mongo.Database) *Harness {
	t.Helper()
	store := audit.New(db)
	h := &Harness{Progress: progress.NewMemory(), Flash: &notify.Recorder{}, Audit: store}
	h.Env = pageenv.Env{
		Registry:        console.NewRegistry(time.Hour, zap.NewNop()),
		DefaultPageSize: 25,
		Policy:          permissions.DefaultPolicy(),
		Flows:           wizard.NewRegistry(),
		Progress:        func(http.ResponseWriter, *http.Request) wizard.ProgressStore { return h.Progress },
		Flash:           func(http.ResponseWriter, *http.Request) notify.Notifier { return h.Flash },
		Flashes:         func(http.ResponseWriter, *http.Request) []notify.Outcome { return h.Flash.Outcomes() },
		Audit:           auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.DB, Admin: auditlog.DB}),
		Log:             zap.NewNop(),
	}
	return h
}

// Envelope is the decoded response body. State and Data stay raw so each
// test decodes them into its own types.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	State   json.RawMessage `json:"state"`
	Data    json.RawMessage `json:"data"`
}

// DecodeState decodes the state into v.
func (e Envelope) DecodeState(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(e.State, v); err != nil {
		t.Fatalf("decode state %s: %v", e.State, err)
	}
}

// DecodeData decodes the data into v.
func (e Envelope) DecodeData(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(e.Data, v); err != nil {
		t.Fatalf("decode data %s: %v", e.Data, err)
	}
}

// Do serves a form request as user and decodes the envelope. A nil form
// sends an empty body.
func Do(t *testing.T, h http.Handler, user testutil.TestUser, method, target string, form url.Values) (int, Envelope) {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	req := testutil.WithUser(testutil.NewFormRequest(method, target, form), user)
	req.Header.Set("Accept", "application/json")
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, req)
	var env Envelope
	rec.DecodeJSON(t, &env)
	return rec.Code, env
}
