// internal/app/features/companies/list.go
package companies

import (
	"fmt"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/listpage"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	companystore "github.com/dalemusser/stratadmin/internal/app/store/companies"
	"github.com/dalemusser/stratadmin/internal/app/system/listctl"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var Filters = []listctl.Filter{
	{Name: "status"},
	{Name: "device_type"},
}

func companyFilter(q listctl.Query) (companystore.Filter, error) {
	f := companystore.Filter{
		Search:     q.SearchText,
		Status:     q.Filters["status"],
		DeviceType: q.Filters["device_type"],
	}
	if f.Status != "" && !models.ValidStatus(f.Status) {
		return f, fmt.Errorf("unknown status %q", f.Status)
	}
	if f.DeviceType != "" && !models.ValidDeviceType(f.DeviceType) {
		return f, fmt.Errorf("unknown device type %q", f.DeviceType)
	}
	return f, nil
}

func (h *Handler) ListPage(env pageenv.Env) *listpage.Page[models.Company] {
	return &listpage.Page[models.Company]{
		Name:            Page,
		Registry:        env.Registry,
		Source:          listpage.StoreSource(companyFilter, h.Companies.List, h.Companies.Count),
		Compare:         listpage.ByObjectID(func(c models.Company) primitive.ObjectID { return c.ID }),
		Filters:         Filters,
		DefaultPageSize: env.DefaultPageSize,
		Flashes:         env.Flashes,
		Log:             h.Log,
	}
}
