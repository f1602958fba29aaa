// internal/app/features/accounts/wizard.go
package accounts

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/respond"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/wizardpage"
	accountstore "github.com/dalemusser/stratadmin/internal/app/store/accounts"
	companystore "github.com/dalemusser/stratadmin/internal/app/store/companies"
	"github.com/dalemusser/stratadmin/internal/app/store/storeutil"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type detailsInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	CompanyID string `json:"company_id"`
}

type addressInput struct {
	models.Address
	Phone string `json:"phone"`
}

type modulesInput struct {
	ModuleIDs []string `json:"module_ids"`
}

// Wizard builds the account creation wizard. The flow is registered in
// env.Flows.
func (h *Handler) Wizard(env pageenv.Env) (*wizardpage.Wizard, error) {
	flow, err := env.Flows.Define(WizardNamespace, StepDetails, StepAddress, StepModules)
	if err != nil {
		return nil, err
	}
	return &wizardpage.Wizard{
		Flow:     flow,
		Progress: env.Progress,
		Steps: map[string]wizardpage.Step{
			StepDetails: h.saveDetails,
			StepAddress: h.saveAddress,
			StepModules: h.saveModules,
		},
		Load:             h.loadStep,
		Flash:            env.Flash,
		CompletedMessage: "Account created",
		Audit:            h.Audit,
		Log:              h.Log,
	}, nil
}

func (h *Handler) saveDetails(ctx context.Context, r *http.Request, entityID string) (string, error) {
	var in detailsInput
	if err := respond.Decode(r, &in, func(get func(string) string, _ func(string) []string) {
		in = detailsInput{Name: get("name"), Email: get("email"), CompanyID: get("company_id")}
	}); err != nil {
		return "", wizardpage.Invalid("malformed request body")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.CompanyID = strings.TrimSpace(in.CompanyID)

	switch {
	case in.Name == "":
		return "", wizardpage.Invalid("name is required")
	case in.Email == "" || !validate.SimpleEmailValid(in.Email):
		return "", wizardpage.Invalid("a valid email is required")
	}

	var companyID *primitive.ObjectID
	if in.CompanyID != "" {
		oid, err := primitive.ObjectIDFromHex(in.CompanyID)
		if err != nil {
			return "", wizardpage.Invalid("unknown company")
		}
		if _, err := h.Companies.GetByID(ctx, oid); err != nil {
			if errors.Is(err, companystore.ErrNotFound) {
				return "", wizardpage.Invalid("unknown company")
			}
			return "", err
		}
		companyID = &oid
	}

	if entityID == "" {
		a, err := h.Accounts.Create(ctx, models.Account{Name: in.Name, Email: in.Email, CompanyID: companyID})
		if err != nil {
			return "", storeErr(err)
		}
		h.Audit.AccountCreated(ctx, r, a.ID, a.Name)
		return a.ID.Hex(), nil
	}

	id, err := entityOID(entityID)
	if err != nil {
		return "", err
	}
	if err := h.Accounts.UpdateDetails(ctx, id, in.Name, in.Email, companyID); err != nil {
		return "", storeErr(err)
	}
	h.Audit.AccountUpdated(ctx, r, id, StepDetails)
	return "", nil
}

func (h *Handler) saveAddress(ctx context.Context, r *http.Request, entityID string) (string, error) {
	id, err := entityOID(entityID)
	if err != nil {
		return "", err
	}
	var in addressInput
	if err := respond.Decode(r, &in, func(get func(string) string, _ func(string) []string) {
		in.Line1, in.Line2 = get("line1"), get("line2")
		in.City, in.State = get("city"), get("state")
		in.PostalCode, in.Country = get("postal_code"), get("country")
		in.Phone = get("phone")
	}); err != nil {
		return "", wizardpage.Invalid("malformed request body")
	}
	addr := models.Address{
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(in.Country)),
	}
	if addr.Line1 == "" || addr.City == "" || addr.Country == "" {
		return "", wizardpage.Invalid("street, city and country are required")
	}
	if err := h.Accounts.UpdateContact(ctx, id, addr, strings.TrimSpace(in.Phone)); err != nil {
		return "", storeErr(err)
	}
	h.Audit.AccountUpdated(ctx, r, id, StepAddress)
	return "", nil
}

func (h *Handler) saveModules(ctx context.Context, r *http.Request, entityID string) (string, error) {
	id, err := entityOID(entityID)
	if err != nil {
		return "", err
	}
	var in modulesInput
	if err := respond.Decode(r, &in, func(_ func(string) string, all func(string) []string) {
		in.ModuleIDs = all("module_ids")
	}); err != nil {
		return "", wizardpage.Invalid("malformed request body")
	}

	ids := make([]primitive.ObjectID, 0, len(in.ModuleIDs))
	seen := map[primitive.ObjectID]bool{}
	for _, hex := range in.ModuleIDs {
		oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
		if err != nil {
			return "", wizardpage.Invalid("unknown module %q", hex)
		}
		if !seen[oid] {
			seen[oid] = true
			ids = append(ids, oid)
		}
	}
	mods, err := h.Modules.GetByIDs(ctx, ids)
	if err != nil {
		return "", err
	}
	if len(mods) != len(ids) {
		return "", wizardpage.Invalid("one or more modules no longer exist")
	}
	for _, m := range mods {
		if m.Status != models.StatusActive {
			return "", wizardpage.Invalid("module %q is not active", m.Name)
		}
	}
	if err := h.Accounts.SetModules(ctx, id, ids); err != nil {
		return "", storeErr(err)
	}
	h.Audit.AccountUpdated(ctx, r, id, StepModules)
	return "", nil
}

type stepView struct {
	Account   *models.Account  `json:"account,omitempty"`
	Companies []models.Company `json:"companies,omitempty"`
	Modules   []models.Module  `json:"modules,omitempty"`
}

// loadStep returns the account being built and the choices of step.
func (h *Handler) loadStep(ctx context.Context, step, entityID string) (any, error) {
	var v stepView
	if entityID != "" {
		id, err := entityOID(entityID)
		if err != nil {
			return nil, err
		}
		a, err := h.Accounts.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		v.Account = &a
	}
	var err error
	switch step {
	case StepDetails:
		v.Companies, err = h.Companies.List(ctx,
			companystore.Filter{Status: models.StatusActive},
			storeutil.Page{Limit: storeutil.MaxLimit})
	case StepModules:
		v.Modules, err = h.Modules.ListActive(ctx)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func entityOID(entityID string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(entityID)
	if err != nil {
		return primitive.NilObjectID, wizardpage.Invalid("this wizard lost track of its account, abandon it and start again")
	}
	return id, nil
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, accountstore.ErrDuplicateEmail):
		return wizardpage.Invalid("%s", err.Error())
	case errors.Is(err, accountstore.ErrNotFound):
		return wizardpage.Invalid("this account no longer exists, abandon the wizard and start again")
	}
	return err
}
