package fleetapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"flota_console/internal/models"

	"golang.org/x/sync/errgroup"
)

// KPIs loads the summary counters and the 30-day maintenance cost together.
func (c *Client) KPIs(ctx context.Context) (models.KPISummary, error) {
	var (
		summary models.KPISummary
		cost    models.MonthlyCost
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		env, err := c.do(gctx, http.MethodGet, "/api/reportes/kpis_resumen", nil, nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(env.Data, &summary); err != nil {
			return badPayload(err)
		}
		return nil
	})
	g.Go(func() error {
		env, err := c.do(gctx, http.MethodGet, "/api/reportes/costo_mantenimiento_mensual", nil, nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(env.Data, &cost); err != nil {
			return badPayload(err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.KPISummary{}, err
	}

	summary.CostoTotalCLP = cost.CostoTotalCLP
	summary.PeriodoDias = cost.PeriodoDias
	return summary, nil
}

// DefaultDashboardRange is the last three months ending today.
func DefaultDashboardRange(now time.Time) (string, string) {
	return now.AddDate(0, -3, 0).Format(models.DateInputLayout), now.Format(models.DateInputLayout)
}

// MaintenanceDashboard loads the maintenance report for [from, to].
// The endpoint answers with a bare object instead of the data envelope.
func (c *Client) MaintenanceDashboard(ctx context.Context, from, to string) (models.MaintenanceDashboard, error) {
	var out models.MaintenanceDashboard
	raw, err := c.doRaw(ctx, http.MethodGet, "/api/reportes-mant/dashboard", Query("fecha_inicio", from, "fecha_fin", to))
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, badPayload(err)
	}
	return out, nil
}
