// Package client talks to the todo REST API. Every non-2xx answer comes
// back as an *errors.AppError of the matching type, and transport failures
// as a retryable network or timeout error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/filter"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/config"
	"github.com/taskmaster/todo/internal/ports"
)

// Scope selects the caller's personal list (zero value) or one team's list
type Scope struct {
	TeamID uuid.UUID
}

// Personal is the caller's own task list
func Personal() Scope { return Scope{} }

// Team is the task list of teamID
func Team(teamID uuid.UUID) Scope { return Scope{TeamID: teamID} }

func (s Scope) isTeam() bool { return s.TeamID != uuid.Nil }

func (s Scope) String() string {
	if s.isTeam() {
		return "team:" + s.TeamID.String()
	}
	return "personal"
}

// Client is a REST client for the todo API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	session *Session
}

// New creates a client for cfg.BaseURL
func New(cfg config.ClientConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/api",
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// SetSession installs the credential used for authenticated calls
func (c *Client) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) dropSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == s {
		c.session = nil
	}
}

// Session returns the current credential, or nil
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Auth

func (c *Client) Register(ctx context.Context, username, password string) (*entities.User, error) {
	var user entities.User
	if err := c.do(ctx, http.MethodPost, "/register", ports.RegisterRequest{Username: username, Password: password}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a session and installs it on the client
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var resp ports.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/login", ports.LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}

	s := &Session{
		Token:     resp.Token,
		TokenType: resp.TokenType,
		ExpiresAt: resp.ExpiresAt,
	}
	if resp.User != nil {
		s.UserID = resp.User.ID
		s.Username = resp.User.Username
	}
	c.SetSession(s)
	return s, nil
}

// Logout revokes the session server side and forgets it locally
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	c.SetSession(nil)
	return err
}

func (c *Client) Me(ctx context.Context) (*entities.User, error) {
	var user entities.User
	if err := c.do(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Tasks

func (c *Client) ListTasks(ctx context.Context, scope Scope, mode filter.Mode) ([]entities.Task, error) {
	path := "/todos"
	if scope.isTeam() {
		path = "/team/" + scope.TeamID.String() + "/todos"
	}
	if mode != "" && mode != filter.ModeAll {
		path += "?filter=" + url.QueryEscape(string(mode))
	}

	tasks := []entities.Task{}
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, scope Scope, req ports.CreateTaskRequest) (*entities.Task, error) {
	path := "/todo"
	if scope.isTeam() {
		path = "/team/" + scope.TeamID.String() + "/todo"
	}

	var task entities.Task
	if err := c.do(ctx, http.MethodPost, path, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, scope Scope, id uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error) {
	var task entities.Task
	if err := c.do(ctx, http.MethodPut, taskPath(scope, "", id), req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetDone marks a task done or not done without resending its other fields
func (c *Client) SetDone(ctx context.Context, scope Scope, id uuid.UUID, done bool) (*entities.Task, error) {
	var task entities.Task
	var err error
	switch {
	case !done:
		err = c.do(ctx, http.MethodPut, taskPath(scope, "undo/", id), nil, &task)
	case scope.isTeam():
		err = c.do(ctx, http.MethodPut, taskPath(scope, "", id), ports.UpdateTaskRequest{Done: &done}, &task)
	default:
		err = c.do(ctx, http.MethodPut, taskPath(scope, "done/", id), nil, &task)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, scope Scope, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, taskPath(scope, "", id), nil, nil)
}

func taskPath(scope Scope, action string, id uuid.UUID) string {
	if scope.isTeam() {
		return "/team/" + scope.TeamID.String() + "/todo/" + action + id.String()
	}
	return "/todo/" + action + id.String()
}

// Routines

func (c *Client) UpsertRoutine(ctx context.Context, req ports.UpsertRoutineRequest) ([]entities.Routine, error) {
	routines := []entities.Routine{}
	if err := c.do(ctx, http.MethodPost, "/routine", req, &routines); err != nil {
		return nil, err
	}
	return routines, nil
}

func (c *Client) RoutinesFor(ctx context.Context, day entities.Day, slot entities.Slot) ([]entities.ScheduledTask, error) {
	scheduled := []entities.ScheduledTask{}
	if err := c.do(ctx, http.MethodGet, "/routine/day/"+url.PathEscape(string(day))+"/"+url.PathEscape(string(slot)), nil, &scheduled); err != nil {
		return nil, err
	}
	return scheduled, nil
}

func (c *Client) RoutinesToday(ctx context.Context, slot entities.Slot) ([]entities.ScheduledTask, error) {
	scheduled := []entities.ScheduledTask{}
	if err := c.do(ctx, http.MethodGet, "/routine/today/"+url.PathEscape(string(slot)), nil, &scheduled); err != nil {
		return nil, err
	}
	return scheduled, nil
}

func (c *Client) TaskRoutines(ctx context.Context, taskID uuid.UUID) ([]entities.Routine, error) {
	routines := []entities.Routine{}
	if err := c.do(ctx, http.MethodGet, "/routine/task/"+taskID.String(), nil, &routines); err != nil {
		return nil, err
	}
	return routines, nil
}

func (c *Client) SetRoutineStatus(ctx context.Context, id uuid.UUID, active bool) (*entities.Routine, error) {
	var routine entities.Routine
	if err := c.do(ctx, http.MethodPut, "/routine/"+id.String()+"/status", ports.RoutineStatusRequest{IsActive: &active}, &routine); err != nil {
		return nil, err
	}
	return &routine, nil
}

func (c *Client) MoveRoutine(ctx context.Context, id uuid.UUID, day entities.Day) (*entities.Routine, error) {
	var routine entities.Routine
	if err := c.do(ctx, http.MethodPut, "/routine/"+id.String(), ports.MoveRoutineRequest{Day: string(day)}, &routine); err != nil {
		return nil, err
	}
	return &routine, nil
}

func (c *Client) ClearRoutines(ctx context.Context, taskID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/routine/task/"+taskID.String(), nil, nil)
}

// Sharing

// ShareTask shares a task the caller owns. Created is false when the
// recipient already had it.
func (c *Client) ShareTask(ctx context.Context, taskID uuid.UUID, username string) (*ports.ShareResponse, error) {
	var resp ports.ShareResponse
	if err := c.do(ctx, http.MethodPost, "/share", ports.ShareRequest{TaskID: taskID, Username: username}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListShared(ctx context.Context) (*entities.SharedLists, error) {
	var lists entities.SharedLists
	if err := c.do(ctx, http.MethodGet, "/shared", nil, &lists); err != nil {
		return nil, err
	}
	return &lists, nil
}

// Teams

func (c *Client) CreateTeam(ctx context.Context, name, password string) (*entities.Team, error) {
	var team entities.Team
	if err := c.do(ctx, http.MethodPost, "/team", ports.CreateTeamRequest{Name: name, Password: password}, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (c *Client) JoinTeam(ctx context.Context, name, password string) (*entities.Team, error) {
	var team entities.Team
	if err := c.do(ctx, http.MethodPost, "/team/join", ports.JoinTeamRequest{Name: name, Password: password}, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (c *Client) ListTeams(ctx context.Context) ([]entities.Team, error) {
	teams := []entities.Team{}
	if err := c.do(ctx, http.MethodGet, "/teams", nil, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (c *Client) GetTeam(ctx context.Context, teamID uuid.UUID) (*entities.TeamDetail, error) {
	var detail entities.TeamDetail
	if err := c.do(ctx, http.MethodGet, "/team/"+teamID.String(), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) ListMembers(ctx context.Context, teamID uuid.UUID) ([]entities.TeamMember, error) {
	members := []entities.TeamMember{}
	if err := c.do(ctx, http.MethodGet, "/team/"+teamID.String()+"/members", nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Client) AddMember(ctx context.Context, teamID uuid.UUID, username string) (*entities.TeamMember, error) {
	var member entities.TeamMember
	if err := c.do(ctx, http.MethodPost, "/team/"+teamID.String()+"/member", ports.AddMemberRequest{Username: username}, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/team/"+teamID.String()+"/member/"+userID.String(), nil, nil)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	operation := method + " " + path

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	session := c.Session()
	if session != nil {
		req.Header.Set("Authorization", session.header())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewNetworkError(operation, transportCause(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewNetworkError(operation, transportCause(err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e errorBody
		if jsonErr := json.Unmarshal(data, &e); jsonErr != nil || e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		appErr := apperrors.FromStatus(resp.StatusCode, e.Error, e.Message)
		if session != nil && apperrors.IsSessionRejected(appErr) {
			c.dropSession(session)
		}
		return appErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", operation, err)
	}
	return nil
}

// transportCause makes client-side timeouts recognisable as deadline errors
func transportCause(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}
