package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"flota_console/internal/app"
	"flota_console/internal/config"
	"flota_console/internal/console"
	"flota_console/internal/fleetapi"
	"flota_console/internal/metrics"
	"flota_console/internal/middleware"
	"flota_console/internal/models"
	"flota_console/internal/session"
	"flota_console/internal/storage"
	"flota_console/pkg/apperrors"
	"flota_console/ws"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var (
	admin      = models.User{ID: "1", Nombre: "Ana Admin", Correo: "ana@flota.cl", Cargo: "Administrador"}
	dispatcher = models.User{ID: "2", Nombre: "Diego", Correo: "diego@flota.cl", Cargo: "Dispatcher"}
	driver     = models.User{ID: "3", Nombre: "Carla", Correo: "carla@flota.cl", Cargo: "Conductor"}
)

// ============================================
// Fake fleet API
// ============================================

// fakeFleet is an in-memory fleet API: /api/{resource}/ collections with
// search, filters and pagination, plus attachments and reports.
type fakeFleet struct {
	mu          sync.Mutex
	nextID      int
	rows        map[string][]map[string]any
	attachments map[string][]map[string]any
	queries     []string
	fail        map[string]int
}

func newFakeFleet() *fakeFleet {
	return &fakeFleet{
		nextID:      1,
		rows:        map[string][]map[string]any{},
		attachments: map[string][]map[string]any{},
		fail:        map[string]int{},
	}
}

func (f *fakeFleet) seed(resource string, row map[string]any) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	row["id"] = id
	f.rows[resource] = append(f.rows[resource], row)
	return id
}

func (f *fakeFleet) count(resource string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[resource])
}

func (f *fakeFleet) row(resource string, id int) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows[resource] {
		if r["id"] == id {
			return r
		}
	}
	return nil
}

func (f *fakeFleet) failOn(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method+" "+path] = status
}

// queried reports whether any request path and query contained all parts.
func (f *fakeFleet) queried(parts ...string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.queries {
		all := true
		for _, p := range parts {
			if !strings.Contains(q, p) {
				all = false
			}
		}
		if all {
			return true
		}
	}
	return false
}

func (f *fakeFleet) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

func reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeFleet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, r.URL.Path+"?"+r.URL.RawQuery)
	if status, ok := f.fail[r.Method+" "+r.URL.Path]; ok {
		reply(w, status, map[string]any{"message": "Fallo simulado"})
		return
	}

	switch r.URL.Path {
	case "/api/reportes/kpis_resumen":
		reply(w, http.StatusOK, map[string]any{"data": map[string]any{
			"total_vehiculos":           len(f.rows[models.ResourceVehiculos]),
			"total_conductores":         2,
			"ordenes_activas":           1,
			"mantenimientos_pendientes": 3,
		}})
		return
	case "/api/reportes/costo_mantenimiento_mensual":
		reply(w, http.StatusOK, map[string]any{"data": map[string]any{"costo_total_clp": 1500, "periodo_dias": 30}})
		return
	case "/api/reportes-mant/dashboard":
		reply(w, http.StatusOK, map[string]any{
			"kpis":               map[string]any{"total_gasto_periodo": 99000, "total_items_periodo": 4},
			"grafica_categorias": []any{map[string]any{"name": "PREVENTIVO", "value": 99000}},
		})
		return
	case "/api/combustible/proyectos":
		reply(w, http.StatusOK, map[string]any{"data": []any{map[string]any{"id": 1, "nombre": "Minera Norte"}}})
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" {
		http.NotFound(w, r)
		return
	}
	res := parts[1]

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		f.list(w, r, res)
	case len(parts) == 2 && r.Method == http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = f.nextID
		f.nextID++
		f.rows[res] = append(f.rows[res], body)
		reply(w, http.StatusCreated, map[string]any{"data": body})
	case len(parts) == 3 && parts[2] == "adjuntos":
		http.NotFound(w, r)
	case len(parts) == 3:
		f.item(w, r, res, parts[2])
	case len(parts) == 4 && parts[2] == "adjuntos" && r.Method == http.MethodDelete:
		for key, items := range f.attachments {
			for i, a := range items {
				if fmt.Sprint(a["id"]) == parts[3] {
					f.attachments[key] = append(items[:i], items[i+1:]...)
					reply(w, http.StatusOK, map[string]any{"success": true})
					return
				}
			}
		}
		reply(w, http.StatusNotFound, map[string]any{"message": "Adjunto no encontrado"})
	case len(parts) == 4 && parts[3] == "adjuntos":
		key := res + "/" + parts[2]
		if r.Method == http.MethodPost {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			body["id"] = f.nextID
			f.nextID++
			body["entidad_tipo"] = res
			body["entidad_id"], _ = strconv.Atoi(parts[2])
			f.attachments[key] = append(f.attachments[key], body)
			reply(w, http.StatusCreated, map[string]any{"data": body})
			return
		}
		items := f.attachments[key]
		if items == nil {
			items = []map[string]any{}
		}
		reply(w, http.StatusOK, map[string]any{"data": items})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeFleet) list(w http.ResponseWriter, r *http.Request, res string) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	matched := []map[string]any{}
	for _, row := range f.rows[res] {
		if search != "" && !rowContains(row, search) {
			continue
		}
		ok := true
		for key := range q {
			switch key {
			case "page", "per_page", "search":
				continue
			}
			if fmt.Sprint(row[key]) != q.Get(key) {
				ok = false
			}
		}
		if ok {
			matched = append(matched, row)
		}
	}

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	start := min((page-1)*perPage, len(matched))
	end := min(start+perPage, len(matched))
	pages := (len(matched) + perPage - 1) / perPage
	reply(w, http.StatusOK, map[string]any{
		"data": matched[start:end],
		"meta": map[string]any{"page": page, "per_page": perPage, "total": len(matched), "pages": pages},
	})
}

func (f *fakeFleet) item(w http.ResponseWriter, r *http.Request, res, id string) {
	for i, row := range f.rows[res] {
		if fmt.Sprint(row["id"]) != id {
			continue
		}
		switch r.Method {
		case http.MethodGet:
			reply(w, http.StatusOK, map[string]any{"data": row})
		case http.MethodPut:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			for k, v := range body {
				row[k] = v
			}
			reply(w, http.StatusOK, map[string]any{"data": row})
		case http.MethodDelete:
			f.rows[res] = append(f.rows[res][:i], f.rows[res][i+1:]...)
			reply(w, http.StatusOK, map[string]any{"success": true})
		}
		return
	}
	reply(w, http.StatusNotFound, map[string]any{"message": "Registro no encontrado"})
}

func rowContains(row map[string]any, needle string) bool {
	for _, v := range row {
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), needle) {
			return true
		}
	}
	return false
}

// ============================================
// Fake sessions
// ============================================

const sessionID = "sess-1"

type fakeSessions struct {
	mu        sync.Mutex
	live      *session.Live
	loggedOut bool
}

func (s *fakeSessions) Login(ctx context.Context, email, password string) (*session.Live, error) {
	if password != "clave" {
		return nil, apperrors.ErrUpstream(http.StatusUnauthorized, "Credenciales inválidas")
	}
	return s.live, nil
}

func (s *fakeSessions) FromToken(ctx context.Context, token string) (*session.Live, error) {
	if token != "sso-ok" {
		return nil, apperrors.ErrSessionExpired
	}
	return s.live, nil
}

func (s *fakeSessions) Logout(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOut = true
	return nil
}

func (s *fakeSessions) Get(ctx context.Context, id string) (*session.Live, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case id == "expired":
		return nil, apperrors.ErrSessionExpired
	case id != s.live.ID || s.loggedOut:
		return nil, apperrors.ErrNotLoggedIn
	}
	return s.live, nil
}

// ============================================
// Harness
// ============================================

type harness struct {
	t        *testing.T
	fleet    *fakeFleet
	store    storage.Storage
	sessions *fakeSessions
	router   *gin.Engine
}

func newHarness(t *testing.T, user models.User) *harness {
	t.Helper()

	fleet := newFakeFleet()
	srv := httptest.NewServer(fleet)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	store, err := storage.NewStorage(storage.Config{Type: "local", BasePath: dir, BaseURL: "/files"})
	require.NoError(t, err)

	client := fleetapi.New(srv.URL, "tok")
	workspace := console.NewWorkspace(context.Background(), user, client, store, console.WorkspaceConfig{PerPage: 10})
	t.Cleanup(func() {
		workspace.Flush()
		workspace.Close()
	})

	sessions := &fakeSessions{live: &session.Live{ID: sessionID, User: user, Client: client, Workspace: workspace}}

	cfg := config.Defaults()
	cfg.Storage.BasePath = dir
	router := app.SetupRouter(cfg, sessions, store, metrics.New(), ws.NewHub())

	return &harness{t: t, fleet: fleet, store: store, sessions: sessions, router: router}
}

func (h *harness) serve(req *http.Request, withSession bool) *httptest.ResponseRecorder {
	if withSession {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: sessionID})
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.serve(req, true)
}

func (h *harness) upload(path, name, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		require.NoError(h.t, mw.WriteField(k, fields[k]))
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(h.t, err)
	_, err = part.Write(data)
	require.NoError(h.t, err)
	require.NoError(h.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.serve(req, true)
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Redirect string `json:"redirect"`
}
