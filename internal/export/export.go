// Package export renders list views as spreadsheets and PDF documents.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"flota_console/internal/models"
	"flota_console/pkg/apperrors"

	"github.com/shopspring/decimal"
)

// PageSize is the largest page the fleet API serves.
const PageSize = 100

// DefaultMaxRows caps exports when the caller gives no limit.
const DefaultMaxRows = 5000

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", apperrors.NewBadRequestError(fmt.Sprintf("Formato de exportación no soportado: %s", s))
}

func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Lister is the part of the fleet API an export reads from.
type Lister interface {
	List(ctx context.Context, path string, q models.ListQuery) (models.Page, error)
}

// Table is an export ready to be written.
type Table struct {
	Resource    string
	Title       string
	Columns     []string
	Headers     []string
	Rows        [][]any
	TotalColumn int // index into Columns, -1 without total
	Total       decimal.Decimal
	Truncated   bool
	GeneratedAt time.Time
}

// HasTotal reports whether the table carries a money total.
func (t Table) HasTotal() bool { return t.TotalColumn >= 0 }

// Collect fetches every page matching q (search and filters as in the list
// view) up to maxRows.
func Collect(ctx context.Context, lister Lister, res *models.Resource, q models.ListQuery, maxRows int, now time.Time) (Table, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	t := newTable(res, now)

	q.PerPage = PageSize
	for page := 1; ; page++ {
		q.Page = page
		p, err := lister.List(ctx, res.BasePath(), q)
		if err != nil {
			return Table{}, err
		}
		for _, e := range p.Items {
			if len(t.Rows) == maxRows {
				t.Truncated = true
				return t, nil
			}
			t.add(res, e)
		}
		if len(p.Items) == 0 || page >= p.Meta.Pages {
			return t, nil
		}
	}
}

func newTable(res *models.Resource, now time.Time) Table {
	cols := res.ExportColumns()
	t := Table{
		Resource:    res.Name,
		Title:       res.Title,
		Columns:     cols,
		Headers:     make([]string, len(cols)),
		Rows:        [][]any{},
		TotalColumn: -1,
		GeneratedAt: now,
	}
	for i, c := range cols {
		t.Headers[i] = header(res, c)
		if c == res.TotalField {
			t.TotalColumn = i
		}
	}
	return t
}

func (t *Table) add(res *models.Resource, e models.Entity) {
	row := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		row[i] = cell(res, c, e[c])
	}
	if t.TotalColumn >= 0 {
		if d, err := decimal.NewFromString(e.String(res.TotalField)); err == nil {
			t.Total = t.Total.Add(d)
		}
	}
	t.Rows = append(t.Rows, row)
}

func header(res *models.Resource, column string) string {
	if column == "id" {
		return "ID"
	}
	if f, ok := res.Field(column); ok && f.Label != "" {
		return f.Label
	}
	s := strings.ReplaceAll(column, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

// cell normalises a stored value: numbers become int64/float64, dates use
// the form layouts, null becomes "".
func cell(res *models.Resource, column string, v any) any {
	if v == nil {
		return ""
	}
	f, isField := res.Field(column)
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if x, err := t.Float64(); err == nil {
			return x
		}
		return t.String()
	case float64, int64, int, bool:
		return t
	case string:
		if isField && f.Kind == models.KindDate {
			return models.FormatDateInput(t)
		}
		if isField && f.Kind == models.KindDateTime {
			return strings.Replace(models.FormatDateTimeInput(t), "T", " ", 1)
		}
		if column == "created_at" {
			return strings.Replace(models.FormatDateTimeInput(t), "T", " ", 1)
		}
		return t
	}
	return fmt.Sprint(v)
}

// Text renders a normalised cell for text output.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Write renders t in the given format.
func Write(w io.Writer, f Format, t Table) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, t)
	case FormatPDF:
		return WritePDF(w, t)
	}
	return apperrors.NewBadRequestError(fmt.Sprintf("Formato de exportación no soportado: %s", f))
}

// FileName is {resource}_{yyyymmdd_hhmm}.{ext}.
func FileName(resource string, f Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", resource, now.Format("20060102_1504"), f)
}
