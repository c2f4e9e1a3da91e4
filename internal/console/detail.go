package console

import (
	"context"
	"strings"

	"flota_console/internal/models"
	"flota_console/pkg/apperrors"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultTripLimit = 10
	MaxTripLimit     = 100
)

// TripQuery narrows the trip history of a vehicle. Dates are 2006-01-02.
type TripQuery struct {
	Limit      int
	FechaDesde string
	FechaHasta string
}

// VehicleDetail is a vehicle with its finished trips.
type VehicleDetail struct {
	Vehiculo   models.Entity   `json:"vehiculo"`
	Viajes     []models.Entity `json:"viajes"`
	Limit      int             `json:"limit"`
	FechaDesde string          `json:"fecha_desde,omitempty"`
	FechaHasta string          `json:"fecha_hasta,omitempty"`
}

var errNoDetail = apperrors.New(apperrors.CodeNotFound, "console", "Detalle no disponible para este recurso", 404)

// VehicleDetail loads the vehicle and, concurrently, its latest orders.
// Only completed or cancelled orders count as trips.
func (rc *ResourceConsole) VehicleDetail(ctx context.Context, id string, q TripQuery) (VehicleDetail, error) {
	if rc.Resource.Name != models.ResourceVehiculos {
		return VehicleDetail{}, errNoDetail
	}
	orders, ok := models.Lookup(models.ResourceOrdenes)
	if !ok || !orders.Permits(rc.ws.user, false) {
		return VehicleDetail{}, apperrors.ErrInsufficientPermissions
	}
	if q.Limit <= 0 {
		q.Limit = DefaultTripLimit
	}
	q.Limit = min(q.Limit, MaxTripLimit)

	filters := map[string]string{"vehiculo_id": id}
	if q.FechaDesde != "" {
		filters["fecha_desde"] = q.FechaDesde
	}
	if q.FechaHasta != "" {
		filters["fecha_hasta"] = q.FechaHasta
	}

	out := VehicleDetail{Limit: q.Limit, FechaDesde: q.FechaDesde, FechaHasta: q.FechaHasta}
	var page models.Page

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := rc.ws.backend.Get(gctx, rc.Resource.ItemPath(id))
		out.Vehiculo = e
		return err
	})
	g.Go(func() error {
		var err error
		page, err = rc.ws.backend.List(gctx, orders.BasePath(), models.ListQuery{Page: 1, PerPage: q.Limit, Filters: filters})
		return err
	})
	if err := g.Wait(); err != nil {
		return VehicleDetail{}, err
	}

	out.Viajes = []models.Entity{}
	for _, o := range page.Items {
		switch strings.ToLower(o.String("estado")) {
		case "completada", "cancelada":
			out.Viajes = append(out.Viajes, o)
		}
	}
	return out, nil
}
