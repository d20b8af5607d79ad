package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/domain/filter"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/ports"
)

// TaskAPI is the part of the REST client a Store needs
type TaskAPI interface {
	ListTasks(ctx context.Context, scope Scope, mode filter.Mode) ([]entities.Task, error)
	CreateTask(ctx context.Context, scope Scope, req ports.CreateTaskRequest) (*entities.Task, error)
	UpdateTask(ctx context.Context, scope Scope, id uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error)
	SetDone(ctx context.Context, scope Scope, id uuid.UUID, done bool) (*entities.Task, error)
	DeleteTask(ctx context.Context, scope Scope, id uuid.UUID) error
}

// Store holds the last authoritative task list of one scope. Mutations go to
// the server and are followed by a full re-read; the list is never patched
// locally. When reads overlap, only the most recently issued one that has
// completed is kept.
type Store struct {
	api   TaskAPI
	scope Scope
	now   func() time.Time

	mu          sync.Mutex
	tasks       []entities.Task
	issued      uint64
	applied     uint64
	closed      bool
	subscribers map[int]func([]entities.Task)
	nextSub     int
}

// NewStore creates an empty store for scope. Call Refresh to load it.
func NewStore(api TaskAPI, scope Scope) *Store {
	return &Store{
		api:         api,
		scope:       scope,
		now:         time.Now,
		tasks:       []entities.Task{},
		subscribers: make(map[int]func([]entities.Task)),
	}
}

// Scope returns the list the store mirrors
func (s *Store) Scope() Scope {
	return s.scope
}

// Refresh re-reads the list from the server. A result overtaken by a newer
// read, or arriving after Close, is discarded.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	generation := s.issued
	s.mu.Unlock()

	tasks, err := s.api.ListTasks(ctx, s.scope, filter.ModeAll)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed || generation <= s.applied {
		s.mu.Unlock()
		return nil
	}
	s.applied = generation
	s.tasks = tasks
	listeners := make([]func([]entities.Task), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(cloneTasks(tasks))
	}
	return nil
}

// Create adds a task (and its routine, if the request carries one) and
// reloads the list
func (s *Store) Create(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	task, err := s.api.CreateTask(ctx, s.scope, req)
	if err != nil {
		return nil, err
	}
	return task, s.Refresh(ctx)
}

// Update applies a partial update and reloads the list
func (s *Store) Update(ctx context.Context, id uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error) {
	task, err := s.api.UpdateTask(ctx, s.scope, id, req)
	if err != nil {
		return nil, err
	}
	return task, s.Refresh(ctx)
}

// SetDone toggles completion and reloads the list
func (s *Store) SetDone(ctx context.Context, id uuid.UUID, done bool) error {
	if _, err := s.api.SetDone(ctx, s.scope, id, done); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Delete removes a task and reloads the list. A task that is already gone
// counts as deleted.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.api.DeleteTask(ctx, s.scope, id); err != nil && !apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
		return err
	}
	return s.Refresh(ctx)
}

// Tasks returns a copy of the current list in server order
func (s *Store) Tasks() []entities.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks)
}

// View derives the list shown for mode, with today taken from the local clock
func (s *Store) View(mode filter.Mode) []entities.Task {
	return filter.Apply(s.Tasks(), mode, s.now())
}

// Subscribe registers fn to receive every newly applied list. The returned
// func unregisters it.
func (s *Store) Subscribe(fn func([]entities.Task)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Close stops applying read results. Writes already sent still complete on
// the server.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subscribers = make(map[int]func([]entities.Task))
}

func cloneTasks(tasks []entities.Task) []entities.Task {
	out := make([]entities.Task, len(tasks))
	copy(out, tasks)
	return out
}
