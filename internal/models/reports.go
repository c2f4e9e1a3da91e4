package models

import "github.com/shopspring/decimal"

// KPISummary merges /api/reportes/kpis_resumen and
// /api/reportes/costo_mantenimiento_mensual.
type KPISummary struct {
	TotalVehiculos           int             `json:"total_vehiculos"`
	TotalConductores         int             `json:"total_conductores"`
	OrdenesActivas           int             `json:"ordenes_activas"`
	MantenimientosPendientes int             `json:"mantenimientos_pendientes"`
	CostoTotalCLP            decimal.Decimal `json:"costo_total_clp"`
	PeriodoDias              int             `json:"periodo_dias"`
}

// MonthlyCost is the payload of /api/reportes/costo_mantenimiento_mensual.
type MonthlyCost struct {
	CostoTotalCLP decimal.Decimal `json:"costo_total_clp"`
	PeriodoDias   int             `json:"periodo_dias"`
}

// ChartPoint is one bar of a dashboard chart.
type ChartPoint struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

type DashboardKPIs struct {
	TotalGastoPeriodo decimal.Decimal `json:"total_gasto_periodo"`
	TotalItemsPeriodo int             `json:"total_items_periodo"`
	TotalPendiente    decimal.Decimal `json:"total_pendiente"`
	CantidadActivos   int             `json:"cantidad_activos"`
}

// MaintenanceDashboard is /api/reportes-mant/dashboard.
type MaintenanceDashboard struct {
	KPIs              DashboardKPIs `json:"kpis"`
	GraficaCategorias []ChartPoint  `json:"grafica_categorias"`
	GraficaVehiculos  []ChartPoint  `json:"grafica_vehiculos"`
	OrdenesActivas    []Entity      `json:"ordenes_activas"`
}
