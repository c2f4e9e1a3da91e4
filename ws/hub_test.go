package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flota_console/internal/console"
	"flota_console/internal/fleetapi"
	"flota_console/internal/middleware"
	"flota_console/internal/models"
	"flota_console/internal/session"
	"flota_console/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticSessions struct {
	live *session.Live
}

func (s staticSessions) Get(ctx context.Context, id string) (*session.Live, error) {
	if id != s.live.ID {
		return nil, apperrors.ErrNotLoggedIn
	}
	return s.live, nil
}

type fixture struct {
	hub       *Hub
	workspace *console.Workspace
	url       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fleet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":1,"placa":"AB1234"}],"meta":{"page":1,"per_page":10,"total":1,"pages":1}}`))
	}))
	t.Cleanup(fleet.Close)

	user := models.User{ID: "1", Nombre: "Ana", Cargo: "Administrador"}
	client := fleetapi.New(fleet.URL, "tok")
	workspace := console.NewWorkspace(context.Background(), user, client, nil, console.WorkspaceConfig{PerPage: 10})
	t.Cleanup(workspace.Close)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	r := gin.New()
	sessions := staticSessions{live: &session.Live{ID: "sess-1", User: user, Client: client, Workspace: workspace}}
	r.GET("/ws", middleware.SessionMiddleware(sessions), NewWebSocketHandler(hub).ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &fixture{hub: hub, workspace: workspace, url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"}
}

func (f *fixture) dial(t *testing.T, sessionID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	header.Set(middleware.SessionHeader, sessionID)
	return websocket.DefaultDialer.Dial(f.url, header)
}

// readKind reads frames until one of the wanted kind arrives.
func readKind(t *testing.T, conn *websocket.Conn, kind string) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["kind"] == kind {
			return msg
		}
	}
}

// TestHub_SnapshotAndPing - requests are answered on the same connection
func TestHub_SnapshotAndPing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	conn, _, err := f.dial(t, "sess-1")
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return f.hub.SessionCount("sess-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Action: ActionSnapshot, Resource: models.ResourceVehiculos}))
	msg := readKind(t, conn, KindState)
	assert.Equal(t, models.ResourceVehiculos, msg["resource"])

	require.NoError(t, conn.WriteJSON(IncomingMessage{Action: ActionSnapshot, Resource: "naves"}))
	msg = readKind(t, conn, KindError)
	assert.Equal(t, apperrors.ErrUnknownResource.Message, msg["state"])

	require.NoError(t, conn.WriteJSON(IncomingMessage{Action: ActionPing}))
	readKind(t, conn, KindPong)
}

// TestHub_WorkspaceEvents - list changes are pushed and a closed workspace ends the stream
func TestHub_WorkspaceEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	conn, _, err := f.dial(t, "sess-1")
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	rc, err := f.workspace.Console(models.ResourceVehiculos)
	require.NoError(t, err)
	rc.List.Refresh()
	msg := readKind(t, conn, console.EventList)
	assert.Equal(t, models.ResourceVehiculos, msg["resource"])

	f.workspace.Close()
	readKind(t, conn, console.EventClosed)

	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)

	assert.Eventually(t, func() bool { return f.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// TestHub_RequiresSession - the upgrade is refused without a live session
func TestHub_RequiresSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, resp, err := f.dial(t, "nope")
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
