// internal/app/features/companies/wizard.go
package companies

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/respond"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/wizardpage"
	companystore "github.com/dalemusser/stratadmin/internal/app/store/companies"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type profileInput struct {
	Name    string `json:"name"`
	Website string `json:"website"`
}

type settingsInput struct {
	DeviceType string `json:"device_type"`
	Status     string `json:"status"`
}

// Wizard builds the two-step company creation wizard.
func (h *Handler) Wizard(env pageenv.Env) (*wizardpage.Wizard, error) {
	flow, err := env.Flows.Define(WizardNamespace, StepProfile, StepSettings)
	if err != nil {
		return nil, err
	}
	return &wizardpage.Wizard{
		Flow:     flow,
		Progress: env.Progress,
		Steps: map[string]wizardpage.Step{
			StepProfile:  h.saveProfile,
			StepSettings: h.saveSettings,
		},
		Load:             h.loadStep,
		Flash:            env.Flash,
		CompletedMessage: "Company created",
		Audit:            h.Audit,
		Log:              h.Log,
	}, nil
}

// website accepts an empty value or an absolute http(s) URL.
func website(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", wizardpage.Invalid("website must be an http or https address")
	}
	return u.String(), nil
}

func (h *Handler) saveProfile(ctx context.Context, r *http.Request, entityID string) (string, error) {
	var in profileInput
	if err := respond.Decode(r, &in, func(get func(string) string, _ func(string) []string) {
		in = profileInput{Name: get("name"), Website: get("website")}
	}); err != nil {
		return "", wizardpage.Invalid("malformed request body")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", wizardpage.Invalid("name is required")
	}
	site, err := website(in.Website)
	if err != nil {
		return "", err
	}

	if entityID == "" {
		c, err := h.Companies.Create(ctx, models.Company{Name: name, Website: site})
		if err != nil {
			return "", storeErr(err)
		}
		h.Audit.CompanyCreated(ctx, r, c.ID, c.Name)
		return c.ID.Hex(), nil
	}
	id, err := entityOID(entityID)
	if err != nil {
		return "", err
	}
	if err := h.Companies.UpdateProfile(ctx, id, name, site); err != nil {
		return "", storeErr(err)
	}
	h.Audit.CompanyUpdated(ctx, r, id, StepProfile)
	return "", nil
}

func (h *Handler) saveSettings(ctx context.Context, r *http.Request, entityID string) (string, error) {
	id, err := entityOID(entityID)
	if err != nil {
		return "", err
	}
	var in settingsInput
	if err := respond.Decode(r, &in, func(get func(string) string, _ func(string) []string) {
		in = settingsInput{DeviceType: get("device_type"), Status: get("status")}
	}); err != nil {
		return "", wizardpage.Invalid("malformed request body")
	}
	device := strings.ToLower(strings.TrimSpace(in.DeviceType))
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if !models.ValidDeviceType(device) {
		return "", wizardpage.Invalid("choose a device type")
	}
	if status == "" {
		status = models.StatusActive
	}
	if !models.ValidStatus(status) {
		return "", wizardpage.Invalid("unknown status %q", in.Status)
	}
	if err := h.Companies.UpdateSettings(ctx, id, device, status, ""); err != nil {
		return "", storeErr(err)
	}
	h.Audit.CompanyUpdated(ctx, r, id, StepSettings)
	return "", nil
}

type stepView struct {
	Company     *models.Company `json:"company,omitempty"`
	DeviceTypes []string        `json:"device_types,omitempty"`
}

func (h *Handler) loadStep(ctx context.Context, step, entityID string) (any, error) {
	var v stepView
	if entityID != "" {
		id, err := entityOID(entityID)
		if err != nil {
			return nil, err
		}
		c, err := h.Companies.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		v.Company = &c
	}
	if step == StepSettings {
		v.DeviceTypes = []string{models.DeviceIOS, models.DeviceAndroid, models.DeviceWeb}
	}
	return v, nil
}

func entityOID(entityID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(entityID)
	if err != nil {
		return primitive.NilObjectID, wizardpage.Invalid("this wizard lost track of its company, abandon it and start again")
	}
	return id, nil
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, companystore.ErrDuplicateCompany):
		return wizardpage.Invalid("%s", err.Error())
	case errors.Is(err, companystore.ErrNotFound):
		return wizardpage.Invalid("this company no longer exists, abandon the wizard and start again")
	}
	return err
}
