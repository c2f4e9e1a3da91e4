package models

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// Resource names as they appear in fleet API paths.
const (
	ResourceVehiculos     = "vehiculos"
	ResourceConductores   = "conductores"
	ResourceOrdenes       = "ordenes"
	ResourceMantenimiento = "mantenimiento"
	ResourceCombustible   = "combustible"
	ResourceUsuarios      = "usuarios"
	ResourceAdjuntos      = "adjuntos"
)

const (
	DefaultSearchDebounce = 500 * time.Millisecond
	ReferencePerPage      = 500
)

// Reference is a lookup list loaded when a form opens.
type Reference struct {
	Name  string
	Path  string
	Query url.Values
}

// Resource is the static description of one console screen.
type Resource struct {
	Name               string
	Title              string
	Fields             []Field
	Required           []string
	CreateRequired     []string
	Filters            []string
	SearchDebounce     time.Duration
	AttachmentCategory string
	DraftPlaceholders  map[string]string
	References         []string
	AdminOnly          bool
	ReadOnly           bool
	Columns            []string
	TotalField         string

	// LockedWhen marks rows that may be viewed but not edited.
	LockedWhen func(Entity) bool
	// DeletableWhen restricts the destructive action; nil means always.
	DeletableWhen func(Entity) bool
	// Check runs on the parsed buffer before submit and returns a message
	// when the record is inconsistent.
	Check func(values map[string]any) string
}

// BasePath is the collection path on the fleet API.
func (r *Resource) BasePath() string { return "/api/" + r.Name + "/" }

// ItemPath is the single-record path on the fleet API.
func (r *Resource) ItemPath(id string) string { return "/api/" + r.Name + "/" + url.PathEscape(id) }

// AttachmentsPath lists or registers attachments of a parent record.
func (r *Resource) AttachmentsPath(parentID string) string {
	return r.ItemPath(parentID) + "/adjuntos"
}

// AttachmentPath addresses one attachment metadata row.
func (r *Resource) AttachmentPath(attachmentID string) string {
	return "/api/" + r.Name + "/adjuntos/" + url.PathEscape(attachmentID)
}

func (r *Resource) HasAttachments() bool { return r.AttachmentCategory != "" }

// KeepOpenAfterCreate keeps a freshly created record in the form so files
// can be attached to it.
func (r *Resource) KeepOpenAfterCreate() bool { return r.HasAttachments() }

func (r *Resource) Debounce() time.Duration {
	if r.SearchDebounce > 0 {
		return r.SearchDebounce
	}
	return DefaultSearchDebounce
}

// Field looks a field up by name.
func (r *Resource) Field(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredFor returns the required set for a create (isNew) or update.
func (r *Resource) RequiredFor(isNew bool) []string {
	if !isNew || len(r.CreateRequired) == 0 {
		return r.Required
	}
	out := make([]string, 0, len(r.Required)+len(r.CreateRequired))
	out = append(out, r.Required...)
	return append(out, r.CreateRequired...)
}

// IsFilter reports whether key is an accepted list filter.
func (r *Resource) IsFilter(key string) bool {
	for _, f := range r.Filters {
		if f == key {
			return true
		}
	}
	return false
}

// Validate runs the resource's consistency check.
func (r *Resource) Validate(values map[string]any) string {
	if r.Check == nil {
		return ""
	}
	return r.Check(values)
}

// IsLocked reports whether the row is read-only.
func (r *Resource) IsLocked(e Entity) bool {
	return r.LockedWhen != nil && r.LockedWhen(e)
}

// CanDelete reports whether the destructive action applies to the row.
func (r *Resource) CanDelete(e Entity) bool {
	if r.ReadOnly || r.IsLocked(e) {
		return false
	}
	return r.DeletableWhen == nil || r.DeletableWhen(e)
}

// Permits reports whether a user may open the screen (read) and write to it.
func (r *Resource) Permits(u User, write bool) bool {
	if r.AdminOnly && !u.IsAdmin() {
		return false
	}
	if write {
		return !r.ReadOnly && u.CanWrite()
	}
	return true
}

// ExportColumns are the columns written by spreadsheet and PDF exports.
func (r *Resource) ExportColumns() []string {
	if len(r.Columns) > 0 {
		return r.Columns
	}
	cols := []string{"id"}
	for _, f := range r.Fields {
		if f.Kind != KindSecret {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// ============================================
// Catalogue
// ============================================

var references = map[string]Reference{
	ResourceVehiculos: {
		Name:  ResourceVehiculos,
		Path:  "/api/vehiculos/",
		Query: url.Values{"per_page": {"500"}},
	},
	ResourceConductores: {
		Name:  ResourceConductores,
		Path:  "/api/conductores/",
		Query: url.Values{"per_page": {"500"}},
	},
	"proyectos": {
		Name: "proyectos",
		Path: "/api/combustible/proyectos",
	},
}

// LookupReference returns the endpoint of a reference list.
func LookupReference(name string) (Reference, bool) {
	ref, ok := references[name]
	return ref, ok
}

var (
	EstadosOrden         = []string{"pendiente", "asignada", "en_curso", "completada", "cancelada"}
	EstadosMantenimiento = []string{"PENDIENTE", "PROGRAMADO", "EN_TALLER", "FINALIZADO", "CANCELADO"}
	TiposMantenimiento   = []string{"PREVENTIVO", "CORRECTIVO"}
	TiposCombustible     = []string{"DIESEL", "BENCINA 93", "BENCINA 95", "BENCINA 97", "GLP", "OTRO"}
	EstadosConductor     = []string{"ACTIVO", "INACTIVO"}
	EstatusUsuario       = []string{"activo", "inactivo", "suspendido"}
	CargosUsuario        = []string{"Administrador", "Dispatcher", "Conductor", "Mecanico"}
)

var catalogue = map[string]*Resource{
	ResourceVehiculos: {
		Name:  ResourceVehiculos,
		Title: "Vehículos",
		Fields: []Field{
			{Name: "placa", Label: "Placa", Kind: KindUpper},
			{Name: "marca", Label: "Marca", Kind: KindText},
			{Name: "modelo", Label: "Modelo", Kind: KindText},
			{Name: "ano", Label: "Año", Kind: KindInt},
			{Name: "tipo", Label: "Tipo", Kind: KindText},
			{Name: "color", Label: "Color", Kind: KindText},
			{Name: "vin", Label: "VIN", Kind: KindUpper},
			{Name: "capacidad_pasajeros", Label: "Capacidad pasajeros", Kind: KindInt},
			{Name: "capacidad_kg", Label: "Capacidad kg", Kind: KindFloat, NonNegative: true},
			{Name: "numero_chasis", Label: "N° chasis", Kind: KindUpper},
			{Name: "observaciones", Label: "Observaciones", Kind: KindText},
		},
		Required: []string{"placa", "marca", "modelo", "ano", "tipo"},
		Filters:  []string{"tipo"},
		Columns:  []string{"id", "placa", "marca", "modelo", "ano", "tipo", "color"},
	},
	ResourceConductores: {
		Name:  ResourceConductores,
		Title: "Conductores",
		Fields: []Field{
			{Name: "nombre", Label: "Nombre", Kind: KindText},
			{Name: "apellido", Label: "Apellido", Kind: KindText},
			{Name: "rut", Label: "RUT", Kind: KindUpper},
			{Name: "licencia_numero", Label: "N° licencia", Kind: KindUpper},
			{Name: "licencia_tipo", Label: "Tipo licencia", Kind: KindUpper},
			{Name: "licencia_vencimiento", Label: "Vencimiento licencia", Kind: KindDate},
			{Name: "telefono", Label: "Teléfono", Kind: KindText},
			{Name: "email", Label: "Email", Kind: KindText},
			{Name: "direccion", Label: "Dirección", Kind: KindText},
			{Name: "fecha_nacimiento", Label: "Fecha nacimiento", Kind: KindDate},
			{Name: "fecha_ingreso", Label: "Fecha ingreso", Kind: KindDate},
			{Name: "estado", Label: "Estado", Kind: KindEnum, Options: EstadosConductor, Default: "ACTIVO"},
		},
		Required: []string{"nombre", "apellido", "rut"},
		Filters:  []string{"estado"},
		Columns:  []string{"id", "nombre", "apellido", "rut", "licencia_tipo", "licencia_vencimiento", "telefono", "estado"},
	},
	ResourceOrdenes: {
		Name:  ResourceOrdenes,
		Title: "Órdenes de servicio",
		Fields: []Field{
			{Name: "fecha_inicio_programada", Label: "Inicio programado", Kind: KindDateTime, DefaultNow: true},
			{Name: "fecha_fin_programada", Label: "Fin programado", Kind: KindDateTime},
			{Name: "fecha_inicio_real", Label: "Inicio real", Kind: KindDateTime},
			{Name: "fecha_fin_real", Label: "Fin real", Kind: KindDateTime},
			{Name: "origen", Label: "Origen", Kind: KindText},
			{Name: "destino", Label: "Destino", Kind: KindText},
			{Name: "descripcion", Label: "Descripción", Kind: KindText},
			{Name: "estado", Label: "Estado", Kind: KindEnum, Options: EstadosOrden, Default: "pendiente"},
			{Name: "vehiculo_id", Label: "Vehículo", Kind: KindRef},
			{Name: "conductor_id", Label: "Conductor", Kind: KindRef},
			{Name: "kilometraje_inicio", Label: "Km inicio", Kind: KindInt},
			{Name: "kilometraje_fin", Label: "Km fin", Kind: KindInt},
			{Name: "observaciones", Label: "Observaciones", Kind: KindText},
		},
		Required:           []string{"fecha_inicio_programada", "origen", "destino", "descripcion"},
		Filters:            []string{"estado", "fecha_desde", "fecha_hasta"},
		AttachmentCategory: "ordenes",
		DraftPlaceholders: map[string]string{
			"origen":      "Por definir",
			"destino":     "Por definir",
			"descripcion": "Borrador - completar datos",
		},
		References: []string{ResourceVehiculos, ResourceConductores},
		Columns:    []string{"id", "fecha_inicio_programada", "origen", "destino", "estado", "vehiculo_id", "conductor_id"},
		Check: func(values map[string]any) string {
			if values["estado"] == "completada" && IsBlank(values["fecha_fin_real"]) {
				return "No puedes completar la orden sin registrar la Fecha de Fin Real."
			}
			return ""
		},
		DeletableWhen: func(e Entity) bool {
			switch strings.ToLower(e.String("estado")) {
			case "asignada", "en_curso":
				return true
			}
			return false
		},
	},
	ResourceMantenimiento: {
		Name:  ResourceMantenimiento,
		Title: "Mantenimiento",
		Fields: []Field{
			{Name: "vehiculo_id", Label: "Vehículo", Kind: KindRef},
			{Name: "descripcion", Label: "Descripción", Kind: KindText},
			{Name: "tipo_mantenimiento", Label: "Tipo", Kind: KindEnum, Options: TiposMantenimiento, Default: "PREVENTIVO"},
			{Name: "estado", Label: "Estado", Kind: KindEnum, Options: EstadosMantenimiento, Default: "PENDIENTE"},
			{Name: "fecha_programada", Label: "Fecha programada", Kind: KindDate, DefaultNow: true},
			{Name: "km_programado", Label: "Km programado", Kind: KindInt},
			{Name: "fecha_realizacion", Label: "Fecha realización", Kind: KindDate},
			{Name: "km_realizacion", Label: "Km realización", Kind: KindInt},
			{Name: "costo", Label: "Costo", Kind: KindFloat, NonNegative: true},
			{Name: "observaciones", Label: "Observaciones", Kind: KindText},
		},
		Required:           []string{"vehiculo_id", "descripcion", "fecha_programada"},
		Filters:            []string{"estado", "vehiculo_id"},
		AttachmentCategory: "mantenimiento",
		DraftPlaceholders: map[string]string{
			"descripcion": "Borrador - completar datos",
		},
		References: []string{ResourceVehiculos},
		Columns:    []string{"id", "vehiculo_id", "tipo_mantenimiento", "estado", "fecha_programada", "fecha_realizacion", "costo"},
		TotalField: "costo",
		LockedWhen: func(e Entity) bool {
			return strings.EqualFold(e.String("estado"), "FINALIZADO")
		},
	},
	ResourceCombustible: {
		Name:  ResourceCombustible,
		Title: "Combustible",
		Fields: []Field{
			{Name: "vehiculo_id", Label: "Vehículo", Kind: KindRef},
			{Name: "conductor_id", Label: "Conductor", Kind: KindRef},
			{Name: "proyecto_id", Label: "Proyecto", Kind: KindRef},
			{Name: "fecha_carga", Label: "Fecha carga", Kind: KindDateTime, DefaultNow: true},
			{Name: "kilometraje", Label: "Kilometraje", Kind: KindInt},
			{Name: "litros_cargados", Label: "Litros", Kind: KindFloat, NonNegative: true},
			{Name: "costo_total", Label: "Costo total", Kind: KindFloat, NonNegative: true},
			{Name: "tipo_combustible", Label: "Tipo combustible", Kind: KindEnum, Options: TiposCombustible},
			{Name: "estacion_servicio", Label: "Estación de servicio", Kind: KindText},
			{Name: "observaciones", Label: "Observaciones", Kind: KindText},
		},
		Required: []string{
			"vehiculo_id", "conductor_id", "proyecto_id", "fecha_carga",
			"kilometraje", "litros_cargados", "costo_total", "tipo_combustible",
		},
		SearchDebounce:     400 * time.Millisecond,
		AttachmentCategory: "combustible",
		References:         []string{ResourceVehiculos, ResourceConductores, "proyectos"},
		Columns:            []string{"id", "fecha_carga", "vehiculo_id", "conductor_id", "proyecto_id", "litros_cargados", "tipo_combustible", "costo_total"},
		TotalField:         "costo_total",
	},
	ResourceUsuarios: {
		Name:  ResourceUsuarios,
		Title: "Usuarios",
		Fields: []Field{
			{Name: "nombre", Label: "Nombre", Kind: KindText},
			{Name: "rut", Label: "RUT", Kind: KindUpper},
			{Name: "correo", Label: "Correo", Kind: KindText},
			{Name: "password", Label: "Contraseña", Kind: KindSecret, CreateOnly: true},
			{Name: "cargo", Label: "Cargo", Kind: KindEnum, Options: CargosUsuario, Default: "Conductor"},
			{Name: "estatus", Label: "Estatus", Kind: KindEnum, Options: EstatusUsuario, Default: "activo"},
		},
		Required:       []string{"nombre", "rut", "correo", "cargo"},
		CreateRequired: []string{"password"},
		Filters:        []string{"estatus", "cargo"},
		AdminOnly:      true,
		Columns:        []string{"id", "nombre", "rut", "correo", "cargo", "estatus"},
	},
	ResourceAdjuntos: {
		Name:     ResourceAdjuntos,
		Title:    "Documentos",
		ReadOnly: true,
		Columns:  []string{"id", "nombre_archivo", "mime_type", "entidad_tipo", "entidad_id", "created_at"},
	},
}

// Lookup returns the catalogue entry for a resource name.
func Lookup(name string) (*Resource, bool) {
	r, ok := catalogue[name]
	return r, ok
}

// ResourceNames lists every catalogued resource, sorted.
func ResourceNames() []string {
	names := make([]string, 0, len(catalogue))
	for n := range catalogue {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
