package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/infrastructure/database/dbtest"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/infrastructure/metrics"
)

type testAPI struct {
	t  *testing.T
	ts *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithLogger(t, logger.NewNop())
}

func newTestAPIWithLogger(t *testing.T, appLogger *logger.Logger) *testAPI {
	t.Helper()

	cfg := &config.Config{
		App:      config.AppConfig{Name: "Todo", Version: "test", Environment: "test", Timezone: "UTC"},
		Server:   config.ServerConfig{RequestTimeout: 10 * time.Second, SwaggerEnabled: true},
		JWT:      config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "todo-test"},
		Security: config.SecurityConfig{CORSAllowedOrigins: "*"},
		Metrics:  config.MetricsConfig{Enabled: true},
	}

	srv, err := New(cfg, dbtest.New(t), appLogger, metrics.New())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testAPI{t: t, ts: ts}
}

func (a *testAPI) do(method, path, token string, body interface{}) (int, []byte) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, a.ts.URL+path, reader)
	require.NoError(a.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.ts.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, data
}

func (a *testAPI) decode(data []byte, v interface{}) {
	a.t.Helper()
	require.NoError(a.t, json.Unmarshal(data, v), string(data))
}

func (a *testAPI) register(username, password string) entities.User {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/register", "", map[string]string{"username": username, "password": password})
	require.Equal(a.t, http.StatusCreated, status, string(body))
	var user entities.User
	a.decode(body, &user)
	return user
}

func (a *testAPI) login(username, password string) string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/login", "", map[string]string{"username": username, "password": password})
	require.Equal(a.t, http.StatusOK, status, string(body))
	var resp struct {
		Token string `json:"token"`
	}
	a.decode(body, &resp)
	require.NotEmpty(a.t, resp.Token)
	return resp.Token
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	status, _ := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := api.do(http.MethodGet, "/health/detailed", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"database"`)

	status, _ = api.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = api.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "http_requests_total")

	status, body = api.do(http.MethodGet, "/swagger/doc.json", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "/todos")
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "pw123"})
	require.Equal(t, http.StatusCreated, status)
	assert.NotContains(t, string(body), "password")
	var alice entities.User
	api.decode(body, &alice)
	assert.Equal(t, "alice", alice.Username)

	status, body = api.do(http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusConflict, status)
	var e errorBody
	api.decode(body, &e)
	assert.Equal(t, "CONFLICT", e.Error)

	status, _ = api.do(http.MethodPost, "/api/register", "", map[string]string{"username": "al"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	api.decode(body, &e)
	assert.Equal(t, "INVALID_CREDENTIALS", e.Error)

	status, _ = api.do(http.MethodGet, "/api/todos", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodGet, "/api/todos", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	token := api.login("alice", "pw123")

	status, body = api.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	var me entities.User
	api.decode(body, &me)
	assert.Equal(t, alice.ID, me.ID)

	status, _ = api.do(http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestTaskRoutineAndShareFlow(t *testing.T) {
	api := newTestAPI(t)

	api.register("alice", "pw123")
	bob := api.register("bob", "pw456")
	alice := api.login("alice", "pw123")
	bobToken := api.login("bob", "pw456")

	status, body := api.do(http.MethodGet, "/api/todos", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))

	status, body = api.do(http.MethodPost, "/api/todo", alice, map[string]interface{}{
		"task":      "Buy milk",
		"important": true,
		"date":      "2024-01-01",
		"time":      "09:00:00",
		"routine":   map[string]interface{}{"day_of_week": "monday", "slots": []string{"morning"}},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var task entities.Task
	api.decode(body, &task)
	assert.Equal(t, "Buy milk", task.Task)
	assert.False(t, task.Done)

	status, _ = api.do(http.MethodPost, "/api/todo", alice, map[string]interface{}{"task": ""})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(http.MethodGet, "/api/todos", alice, nil)
	require.Equal(t, http.StatusOK, status)
	var tasks []entities.Task
	api.decode(body, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)

	status, body = api.do(http.MethodGet, "/api/routine/day/monday/morning", alice, nil)
	require.Equal(t, http.StatusOK, status)
	var scheduled []entities.ScheduledTask
	api.decode(body, &scheduled)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "2024-01-01T09:00:00Z", scheduled[0].DateTime)

	status, _ = api.do(http.MethodGet, "/api/routine/day/someday/morning", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(http.MethodPut, "/api/todo/done/"+task.ID.String(), alice, nil)
	require.Equal(t, http.StatusOK, status)
	api.decode(body, &task)
	assert.True(t, task.Done)

	status, body = api.do(http.MethodGet, "/api/todos?filter=completed", alice, nil)
	require.Equal(t, http.StatusOK, status)
	api.decode(body, &tasks)
	assert.Len(t, tasks, 1)

	status, body = api.do(http.MethodGet, "/api/todos?filter=incomplete", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))

	status, _ = api.do(http.MethodGet, "/api/todos?filter=bogus", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(http.MethodPut, "/api/todo/"+task.ID.String(), alice, map[string]interface{}{"task": "Buy oat milk"})
	require.Equal(t, http.StatusOK, status)
	api.decode(body, &task)
	assert.Equal(t, "Buy oat milk", task.Task)
	assert.True(t, task.Done)

	// bob cannot touch alice's task
	status, _ = api.do(http.MethodPut, "/api/todo/undo/"+task.ID.String(), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	share := map[string]interface{}{"task_id": task.ID, "username": "bob"}
	status, body = api.do(http.MethodPost, "/api/share", alice, share)
	require.Equal(t, http.StatusCreated, status, string(body))
	var shared struct {
		Share   entities.Share `json:"share"`
		Created bool           `json:"created"`
	}
	api.decode(body, &shared)
	assert.True(t, shared.Created)
	assert.Equal(t, bob.ID, shared.Share.RecipientID)

	status, body = api.do(http.MethodPost, "/api/share", alice, share)
	require.Equal(t, http.StatusOK, status)
	api.decode(body, &shared)
	assert.False(t, shared.Created)

	status, _ = api.do(http.MethodPost, "/api/share", alice, map[string]interface{}{"task_id": task.ID, "username": "nobody"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(http.MethodPost, "/api/share", bobToken, map[string]interface{}{"task_id": task.ID, "username": "alice"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = api.do(http.MethodGet, "/api/shared", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	var lists entities.SharedLists
	api.decode(body, &lists)
	assert.Empty(t, lists.Shared)
	require.Len(t, lists.Received, 1)
	assert.Equal(t, "alice", lists.Received[0].SharedByUsername)

	status, _ = api.do(http.MethodDelete, "/api/todo/"+task.ID.String(), alice, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = api.do(http.MethodDelete, "/api/todo/"+task.ID.String(), alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
	var e errorBody
	api.decode(body, &e)
	assert.Equal(t, "NOT_FOUND", e.Error)

	status, body = api.do(http.MethodGet, "/api/routine/task/"+task.ID.String(), alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))

	status, body = api.do(http.MethodGet, "/api/shared", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	api.decode(body, &lists)
	assert.Empty(t, lists.Received)

	status, _ = api.do(http.MethodDelete, "/api/todo/not-a-uuid", alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRoutineEndpoints(t *testing.T) {
	api := newTestAPI(t)

	api.register("alice", "pw123")
	alice := api.login("alice", "pw123")

	status, body := api.do(http.MethodPost, "/api/todo", alice, map[string]interface{}{"task": "Stretch"})
	require.Equal(t, http.StatusCreated, status)
	var task entities.Task
	api.decode(body, &task)

	status, body = api.do(http.MethodPost, "/api/routine", alice, map[string]interface{}{
		"task_id":     task.ID,
		"day_of_week": "friday",
		"slots":       []string{"morning", "night"},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var routines []entities.Routine
	api.decode(body, &routines)
	require.Len(t, routines, 2)

	status, body = api.do(http.MethodPost, "/api/routine", alice, map[string]interface{}{
		"task_id":     task.ID,
		"day_of_week": "friday",
		"slots":       []string{"noon"},
	})
	require.Equal(t, http.StatusOK, status)
	api.decode(body, &routines)

	active := map[entities.Slot]bool{}
	var nightID string
	for _, r := range routines {
		active[r.Slot] = r.IsActive
		if r.Slot == entities.SlotNight {
			nightID = r.ID.String()
		}
	}
	assert.Equal(t, map[entities.Slot]bool{entities.SlotMorning: false, entities.SlotNoon: true, entities.SlotNight: false}, active)

	status, _ = api.do(http.MethodPost, "/api/routine", alice, map[string]interface{}{
		"task_id":     task.ID,
		"day_of_week": "friday",
		"slots":       []string{"brunch"},
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(http.MethodPut, "/api/routine/"+nightID+"/status", alice, map[string]bool{"is_active": true})
	require.Equal(t, http.StatusOK, status, string(body))
	var routine entities.Routine
	api.decode(body, &routine)
	assert.True(t, routine.IsActive)

	status, _ = api.do(http.MethodPut, "/api/routine/"+nightID+"/status", alice, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(http.MethodGet, "/api/routine/day/friday/night", alice, nil)
	require.Equal(t, http.StatusOK, status)
	var scheduled []entities.ScheduledTask
	api.decode(body, &scheduled)
	assert.Len(t, scheduled, 1)

	status, body = api.do(http.MethodPut, "/api/routine/"+nightID, alice, map[string]string{"day_of_week": "saturday"})
	require.Equal(t, http.StatusOK, status, string(body))
	api.decode(body, &routine)
	assert.Equal(t, entities.Saturday, routine.Day)
	assert.Equal(t, entities.SlotNight, routine.Slot)

	status, body = api.do(http.MethodGet, "/api/routine/day/saturday/night", alice, nil)
	require.Equal(t, http.StatusOK, status)
	api.decode(body, &scheduled)
	assert.Len(t, scheduled, 1)

	var noonID string
	for _, r := range routines {
		if r.Slot == entities.SlotNoon {
			noonID = r.ID.String()
		}
	}
	status, _ = api.do(http.MethodPost, "/api/routine", alice, map[string]interface{}{
		"task_id":     task.ID,
		"day_of_week": "saturday",
		"slots":       []string{"night", "noon"},
	})
	require.Equal(t, http.StatusOK, status)

	status, body = api.do(http.MethodPut, "/api/routine/"+noonID, alice, map[string]string{"day_of_week": "saturday"})
	assert.Equal(t, http.StatusConflict, status)
	var e errorBody
	api.decode(body, &e)
	assert.Equal(t, "CONFLICT", e.Error)

	status, _ = api.do(http.MethodPut, "/api/routine/"+noonID, alice, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(http.MethodPut, "/api/routine/"+uuid.NewString(), alice, map[string]string{"day_of_week": "monday"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(http.MethodGet, "/api/routine/today/noon", alice, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodDelete, "/api/routine/task/"+task.ID.String(), alice, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = api.do(http.MethodGet, "/api/routine/task/"+task.ID.String(), alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))

	before := entities.DayOf(time.Now().UTC())
	status, body = api.do(http.MethodPost, "/api/todo", alice, map[string]interface{}{
		"task":    "Water plants",
		"routine": map[string]interface{}{"slots": []string{"morning"}},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	api.decode(body, &task)
	after := entities.DayOf(time.Now().UTC())

	status, body = api.do(http.MethodGet, "/api/routine/task/"+task.ID.String(), alice, nil)
	require.Equal(t, http.StatusOK, status)
	api.decode(body, &routines)
	require.Len(t, routines, 1)
	assert.Contains(t, []entities.Day{before, after}, routines[0].Day)
	assert.Equal(t, entities.SlotMorning, routines[0].Slot)
}

func TestTeamFlow(t *testing.T) {
	api := newTestAPI(t)

	api.register("alice", "pw123")
	bob := api.register("bob", "pw456")
	api.register("carol", "pw789")
	alice := api.login("alice", "pw123")
	bobToken := api.login("bob", "pw456")
	carolToken := api.login("carol", "pw789")

	status, body := api.do(http.MethodPost, "/api/team", alice, map[string]string{"name": "Eng", "password": "s3cret"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var team entities.Team
	api.decode(body, &team)
	teamPath := "/api/team/" + team.ID.String()

	status, _ = api.do(http.MethodPost, "/api/team", bobToken, map[string]string{"name": "Eng", "password": "x"})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = api.do(http.MethodPost, "/api/team/join", bobToken, map[string]string{"name": "Eng", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(http.MethodPost, "/api/team/join", bobToken, map[string]string{"name": "Eng", "password": "s3cret"})
	require.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodPost, "/api/team/join", bobToken, map[string]string{"name": "Eng", "password": "s3cret"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = api.do(http.MethodPost, teamPath+"/todo", bobToken, map[string]interface{}{"task": "Deploy"})
	require.Equal(t, http.StatusCreated, status, string(body))
	var task entities.Task
	api.decode(body, &task)
	require.NotNil(t, task.TeamID)
	assert.Nil(t, task.OwnerID)

	status, body = api.do(http.MethodGet, teamPath+"/todos", alice, nil)
	require.Equal(t, http.StatusOK, status)
	var tasks []entities.Task
	api.decode(body, &tasks)
	require.Len(t, tasks, 1)

	// team tasks stay out of personal lists
	status, body = api.do(http.MethodGet, "/api/todos", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))

	status, _ = api.do(http.MethodGet, teamPath+"/todos", carolToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(http.MethodPost, "/api/share", alice, map[string]interface{}{"task_id": task.ID, "username": "carol"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodPost, teamPath+"/member", bobToken, map[string]string{"username": "carol"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodPost, teamPath+"/member", carolToken, map[string]string{"username": "carol"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodPost, teamPath+"/member", alice, map[string]string{"username": "carol"})
	require.Equal(t, http.StatusCreated, status)

	status, body = api.do(http.MethodGet, teamPath+"/members", carolToken, nil)
	require.Equal(t, http.StatusOK, status)
	var members []entities.TeamMember
	api.decode(body, &members)
	assert.Len(t, members, 3)

	status, body = api.do(http.MethodGet, teamPath, carolToken, nil)
	require.Equal(t, http.StatusOK, status)
	var detail entities.TeamDetail
	api.decode(body, &detail)
	assert.Equal(t, "Eng", detail.Name)
	assert.False(t, detail.IsAdmin)
	assert.Len(t, detail.Tasks, 1)

	status, body = api.do(http.MethodGet, "/api/teams", carolToken, nil)
	require.Equal(t, http.StatusOK, status)
	var teams []entities.Team
	api.decode(body, &teams)
	require.Len(t, teams, 1)
	assert.Equal(t, team.ID, teams[0].ID)

	aliceID := teams[0].CreatedBy.String()
	status, _ = api.do(http.MethodDelete, teamPath+"/member/"+aliceID, alice, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = api.do(http.MethodDelete, teamPath+"/member/"+bob.ID.String(), alice, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodGet, teamPath, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = api.do(http.MethodPut, teamPath+"/todo/"+task.ID.String(), carolToken, map[string]interface{}{"done": true})
	require.Equal(t, http.StatusOK, status)
	api.decode(body, &task)
	assert.True(t, task.Done)

	status, body = api.do(http.MethodPut, teamPath+"/todo/undo/"+task.ID.String(), alice, nil)
	require.Equal(t, http.StatusOK, status)
	api.decode(body, &task)
	assert.False(t, task.Done)

	// a team task is not reachable through the personal routes
	status, _ = api.do(http.MethodDelete, "/api/todo/"+task.ID.String(), alice, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(http.MethodDelete, teamPath+"/todo/"+task.ID.String(), carolToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = api.do(http.MethodGet, teamPath+"/todos", alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
}

func TestRequestLogCarriesRequestAndUser(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	api := newTestAPIWithLogger(t, &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	alice := api.register("alice", "pw123")
	token := api.login("alice", "pw123")

	status, _ := api.do(http.MethodGet, "/api/todos", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodDelete, "/api/todo/"+uuid.NewString(), token, nil)
	require.Equal(t, http.StatusNotFound, status)

	requests := logs.FilterMessage("HTTP request").All()
	byURI := map[string]map[string]interface{}{}
	for _, entry := range requests {
		fields := entry.ContextMap()
		byURI[fields["uri"].(string)] = fields
	}

	list := byURI["/api/todos"]
	require.NotNil(t, list)
	assert.Equal(t, alice.ID.String(), list["user_id"])
	assert.NotEmpty(t, list["request_id"])
	assert.EqualValues(t, http.StatusOK, list["status"])

	var deleted map[string]interface{}
	for uri, fields := range byURI {
		if strings.HasPrefix(uri, "/api/todo/") {
			deleted = fields
		}
	}
	require.NotNil(t, deleted)
	assert.EqualValues(t, http.StatusNotFound, deleted["status"])
	assert.NotEmpty(t, deleted["error"])

	register := byURI["/api/register"]
	require.NotNil(t, register)
	assert.NotContains(t, register, "user_id")
}
