package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/filter"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/ports"
)

// fakeAPI answers ListTasks from a queue of canned responses. A response
// with a gate blocks until the gate is closed.
type fakeAPI struct {
	mu        sync.Mutex
	responses []listResponse
	lists     int
	mutations []string
	deleteErr error
}

type listResponse struct {
	tasks   []entities.Task
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeAPI) ListTasks(ctx context.Context, scope Scope, mode filter.Mode) ([]entities.Task, error) {
	f.mu.Lock()
	resp := listResponse{tasks: []entities.Task{}}
	if len(f.responses) > 0 {
		resp = f.responses[0]
		f.responses = f.responses[1:]
	}
	f.lists++
	f.mu.Unlock()

	if resp.entered != nil {
		close(resp.entered)
	}
	if resp.gate != nil {
		<-resp.gate
	}
	return resp.tasks, nil
}

func (f *fakeAPI) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations = append(f.mutations, op)
}

func (f *fakeAPI) CreateTask(ctx context.Context, scope Scope, req ports.CreateTaskRequest) (*entities.Task, error) {
	f.record("create")
	return &entities.Task{ID: uuid.New(), Task: req.Task}, nil
}

func (f *fakeAPI) UpdateTask(ctx context.Context, scope Scope, id uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error) {
	f.record("update")
	return &entities.Task{ID: id}, nil
}

func (f *fakeAPI) SetDone(ctx context.Context, scope Scope, id uuid.UUID, done bool) (*entities.Task, error) {
	f.record("done")
	return &entities.Task{ID: id, Done: done}, nil
}

func (f *fakeAPI) DeleteTask(ctx context.Context, scope Scope, id uuid.UUID) error {
	f.record("delete")
	return f.deleteErr
}

func (f *fakeAPI) push(resp listResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
}

func named(titles ...string) []entities.Task {
	tasks := make([]entities.Task, len(titles))
	for i, title := range titles {
		tasks[i] = entities.Task{ID: uuid.New(), Task: title}
	}
	return tasks
}

func TestStoreRefetchesAfterEveryMutation(t *testing.T) {
	api := &fakeAPI{}
	store := NewStore(api, Personal())
	ctx := context.Background()
	id := uuid.New()

	api.push(listResponse{tasks: named("a")})
	_, err := store.Create(ctx, ports.CreateTaskRequest{Task: "a"})
	require.NoError(t, err)
	assert.Len(t, store.Tasks(), 1)

	api.push(listResponse{tasks: named("a2")})
	_, err = store.Update(ctx, id, ports.UpdateTaskRequest{})
	require.NoError(t, err)
	assert.Equal(t, "a2", store.Tasks()[0].Task)

	require.NoError(t, store.SetDone(ctx, id, true))
	require.NoError(t, store.Delete(ctx, id))

	assert.Equal(t, []string{"create", "update", "done", "delete"}, api.mutations)
	assert.Equal(t, 4, api.lists)
	assert.Empty(t, store.Tasks())
}

func TestStoreDeleteOfMissingTaskStillRefreshes(t *testing.T) {
	api := &fakeAPI{deleteErr: apperrors.NewNotFoundError("task", "x")}
	store := NewStore(api, Personal())

	api.push(listResponse{tasks: named("left")})
	require.NoError(t, store.Delete(context.Background(), uuid.New()))
	assert.Equal(t, 1, api.lists)
	assert.Len(t, store.Tasks(), 1)

	api.deleteErr = apperrors.NewForbiddenError("delete", "task")
	err := store.Delete(context.Background(), uuid.New())
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeForbidden))
	assert.Equal(t, 1, api.lists)
}

func TestStoreDropsOvertakenReads(t *testing.T) {
	api := &fakeAPI{}
	store := NewStore(api, Personal())
	ctx := context.Background()

	slow := listResponse{tasks: named("stale"), gate: make(chan struct{}), entered: make(chan struct{})}
	api.push(slow)
	api.push(listResponse{tasks: named("fresh")})

	done := make(chan error, 1)
	go func() { done <- store.Refresh(ctx) }()
	<-slow.entered

	require.NoError(t, store.Refresh(ctx))
	assert.Equal(t, "fresh", store.Tasks()[0].Task)

	close(slow.gate)
	require.NoError(t, <-done)
	assert.Equal(t, "fresh", store.Tasks()[0].Task)
}

func TestStoreSubscribersAndClose(t *testing.T) {
	api := &fakeAPI{}
	store := NewStore(api, Personal())
	ctx := context.Background()

	var got [][]entities.Task
	unsubscribe := store.Subscribe(func(tasks []entities.Task) { got = append(got, tasks) })

	api.push(listResponse{tasks: named("one")})
	require.NoError(t, store.Refresh(ctx))
	require.Len(t, got, 1)
	assert.Equal(t, "one", got[0][0].Task)

	unsubscribe()
	api.push(listResponse{tasks: named("two")})
	require.NoError(t, store.Refresh(ctx))
	assert.Len(t, got, 1)
	assert.Equal(t, "two", store.Tasks()[0].Task)

	store.Close()
	api.push(listResponse{tasks: named("after close")})
	require.NoError(t, store.Refresh(ctx))
	assert.Equal(t, "two", store.Tasks()[0].Task)
}

func TestStoreViews(t *testing.T) {
	api := &fakeAPI{}
	store := NewStore(api, Personal())
	store.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }

	api.push(listResponse{tasks: []entities.Task{
		{ID: uuid.New(), Task: "today", Date: "2024-01-01"},
		{ID: uuid.New(), Task: "important", Date: "2024-01-02", Important: true},
		{ID: uuid.New(), Task: "done", Date: "2024-01-01", Done: true},
	}})
	require.NoError(t, store.Refresh(context.Background()))

	titles := func(tasks []entities.Task) []string {
		out := []string{}
		for _, task := range tasks {
			out = append(out, task.Task)
		}
		return out
	}

	assert.Equal(t, []string{"today", "important", "done"}, titles(store.View(filter.ModeAll)))
	assert.Equal(t, []string{"today", "done"}, titles(store.View(filter.ModeToday)))
	assert.Equal(t, []string{"important"}, titles(store.View(filter.ModeImportant)))
	assert.Equal(t, []string{"done"}, titles(store.View(filter.ModeCompleted)))
	assert.Equal(t, []string{"today", "important"}, titles(store.View(filter.ModeIncomplete)))

	// views never alias the store's list
	view := store.View(filter.ModeAll)
	view[0].Task = "changed"
	assert.Equal(t, "today", store.Tasks()[0].Task)
}

func TestStoreAgainstServer(t *testing.T) {
	ts := newAPIServer(t)
	ctx := context.Background()
	c := loggedIn(t, ts.URL, "alice", "pw123")

	store := NewStore(c, Personal())
	require.NoError(t, store.Refresh(ctx))
	assert.Empty(t, store.Tasks())

	task, err := store.Create(ctx, ports.CreateTaskRequest{Task: "Buy milk", Date: "2024-01-01", Time: "09:00:00"})
	require.NoError(t, err)
	require.Len(t, store.Tasks(), 1)

	require.NoError(t, store.SetDone(ctx, task.ID, true))
	assert.True(t, store.Tasks()[0].Done)

	require.NoError(t, store.Delete(ctx, task.ID))
	require.NoError(t, store.Delete(ctx, task.ID))
	assert.Empty(t, store.Tasks())
}
