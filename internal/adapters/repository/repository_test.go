package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todo/internal/domain/entities"
	apperrors "github.com/taskmaster/todo/internal/errors"
	"github.com/taskmaster/todo/internal/infrastructure/database"
	"github.com/taskmaster/todo/internal/infrastructure/database/dbtest"
)

type fixture struct {
	db       *database.DB
	users    *UserRepositoryImpl
	sessions *SessionRepositoryImpl
	tasks    *TaskRepositoryImpl
	routines *RoutineRepositoryImpl
	shares   *ShareRepositoryImpl
	teams    *TeamRepositoryImpl
}

func newFixture(t *testing.T) *fixture {
	db := dbtest.New(t)
	return &fixture{
		db:       db,
		users:    &UserRepositoryImpl{db: db},
		sessions: &SessionRepositoryImpl{db: db},
		tasks:    &TaskRepositoryImpl{db: db},
		routines: &RoutineRepositoryImpl{db: db},
		shares:   &ShareRepositoryImpl{db: db},
		teams:    &TeamRepositoryImpl{db: db},
	}
}

func (f *fixture) user(t *testing.T, name string) *entities.User {
	t.Helper()
	u := &entities.User{Username: name, PasswordHash: "hash"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) task(t *testing.T, owner uuid.UUID, title, date, clock string) *entities.Task {
	t.Helper()
	task := &entities.Task{OwnerID: &owner, Task: title, Date: date, Time: clock}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func activeSlots(t *testing.T, f *fixture, taskID uuid.UUID, day entities.Day) []entities.Slot {
	t.Helper()
	routines, err := f.routines.ListByTask(context.Background(), taskID)
	require.NoError(t, err)

	slots := []entities.Slot{}
	for _, r := range routines {
		if r.Day == day && r.IsActive {
			slots = append(slots, r.Slot)
		}
	}
	return slots
}

func TestUserRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice")

	got, err := f.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = f.users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	err = f.users.Create(ctx, &entities.User{Username: "alice", PasswordHash: "other"})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict))

	_, err = f.users.GetByUsername(ctx, "nobody")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestTaskRepository_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	late := f.task(t, alice.ID, "Write report", "2024-01-02", "08:00:00")
	early := f.task(t, alice.ID, "Buy milk", "2024-01-01", "09:00:00")
	f.task(t, bob.ID, "Bob's task", "2024-01-01", "07:00:00")

	list, err := f.tasks.List(ctx, entities.PersonalScope(alice.ID))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)
	assert.False(t, list[0].Done)
	require.NotNil(t, list[0].OwnerID)
	assert.Nil(t, list[0].TeamID)

	early.Description = "2 litres"
	early.Important = true
	require.NoError(t, f.tasks.Update(ctx, early))
	require.NoError(t, f.tasks.SetDone(ctx, early.ID, true))

	got, err := f.tasks.GetByID(ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, "2 litres", got.Description)
	assert.True(t, got.Important)
	assert.True(t, got.Done)

	_, err = f.tasks.GetVisible(ctx, early.ID, bob.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))

	err = f.tasks.SetDone(ctx, uuid.New(), true)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestTaskRepository_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	task := f.task(t, alice.ID, "Buy milk", "2024-01-01", "09:00:00")

	require.NoError(t, f.routines.ReplaceDay(ctx, task.ID, entities.Monday, []entities.Slot{entities.SlotMorning}))
	_, _, err := f.shares.Create(ctx, &entities.Share{TaskID: task.ID, SharedBy: alice.ID, RecipientID: bob.ID})
	require.NoError(t, err)

	require.NoError(t, f.tasks.Delete(ctx, task.ID))

	list, err := f.tasks.List(ctx, entities.PersonalScope(alice.ID))
	require.NoError(t, err)
	assert.Empty(t, list)

	routines, err := f.routines.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, routines)

	received, err := f.shares.ListReceived(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, received)

	err = f.tasks.Delete(ctx, task.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestRoutineRepository_ReplaceDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	task := f.task(t, alice.ID, "Stretch", "2024-01-01", "07:00:00")

	require.NoError(t, f.routines.ReplaceDay(ctx, task.ID, entities.Monday, []entities.Slot{entities.SlotMorning, entities.SlotNight}))
	assert.Equal(t, []entities.Slot{entities.SlotMorning, entities.SlotNight}, activeSlots(t, f, task.ID, entities.Monday))

	require.NoError(t, f.routines.ReplaceDay(ctx, task.ID, entities.Monday, []entities.Slot{entities.SlotNoon}))
	assert.Equal(t, []entities.Slot{entities.SlotNoon}, activeSlots(t, f, task.ID, entities.Monday))

	// resubmitting the same combination updates in place
	require.NoError(t, f.routines.ReplaceDay(ctx, task.ID, entities.Monday, []entities.Slot{entities.SlotNoon}))
	routines, err := f.routines.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, routines, 3)

	// other days are untouched
	require.NoError(t, f.routines.ReplaceDay(ctx, task.ID, entities.Friday, []entities.Slot{entities.SlotEvening}))
	assert.Equal(t, []entities.Slot{entities.SlotNoon}, activeSlots(t, f, task.ID, entities.Monday))

	err = f.routines.ReplaceDay(ctx, uuid.New(), entities.Monday, []entities.Slot{entities.SlotNoon})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestRoutineRepository_ConcurrentReplaceLastCommitWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	task := f.task(t, alice.ID, "Stretch", "2024-01-01", "07:00:00")

	sets := [][]entities.Slot{
		{entities.SlotMorning, entities.SlotNight},
		{entities.SlotNoon, entities.SlotEvening},
	}

	for i := 0; i < 20; i++ {
		var wg sync.WaitGroup
		for _, slots := range sets {
			wg.Add(1)
			go func(slots []entities.Slot) {
				defer wg.Done()
				assert.NoError(t, f.routines.ReplaceDay(ctx, task.ID, entities.Tuesday, slots))
			}(slots)
		}
		wg.Wait()

		got := activeSlots(t, f, task.ID, entities.Tuesday)
		assert.Contains(t, sets, got, "active set must be exactly one submitted set")
	}
}

func TestRoutineRepository_UpdateDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	task := f.task(t, alice.ID, "Stretch", "2024-01-01", "07:00:00")

	require.NoError(t, f.routines.ReplaceDay(ctx, task.ID, entities.Monday, []entities.Slot{entities.SlotMorning, entities.SlotNight}))
	require.NoError(t, f.routines.ReplaceDay(ctx, task.ID, entities.Friday, []entities.Slot{entities.SlotMorning}))

	routines, err := f.routines.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	var mondayNight, mondayMorning uuid.UUID
	for _, r := range routines {
		if r.Day == entities.Monday && r.Slot == entities.SlotNight {
			mondayNight = r.ID
		}
		if r.Day == entities.Monday && r.Slot == entities.SlotMorning {
			mondayMorning = r.ID
		}
	}

	require.NoError(t, f.routines.UpdateDay(ctx, mondayNight, entities.Wednesday))
	assert.Equal(t, []entities.Slot{entities.SlotNight}, activeSlots(t, f, task.ID, entities.Wednesday))
	assert.Equal(t, []entities.Slot{entities.SlotMorning}, activeSlots(t, f, task.ID, entities.Monday))

	err = f.routines.UpdateDay(ctx, mondayMorning, entities.Friday)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict))
	assert.Equal(t, []entities.Slot{entities.SlotMorning}, activeSlots(t, f, task.ID, entities.Monday))

	err = f.routines.UpdateDay(ctx, uuid.New(), entities.Friday)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestRoutineRepository_ListActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	mine := f.task(t, alice.ID, "Stretch", "2024-01-01", "07:00:00")
	theirs := f.task(t, bob.ID, "Run", "2024-01-01", "06:00:00")
	require.NoError(t, f.routines.ReplaceDay(ctx, mine.ID, entities.Monday, []entities.Slot{entities.SlotMorning}))
	require.NoError(t, f.routines.ReplaceDay(ctx, theirs.ID, entities.Monday, []entities.Slot{entities.SlotMorning}))

	scheduled, err := f.routines.ListActive(ctx, alice.ID, entities.Monday, entities.SlotMorning)
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, mine.ID, scheduled[0].ID)
	assert.Equal(t, entities.SlotMorning, scheduled[0].Slot)

	scheduled, err = f.routines.ListActive(ctx, alice.ID, entities.Monday, entities.SlotNight)
	require.NoError(t, err)
	assert.Empty(t, scheduled)

	routines, err := f.routines.ListByTask(ctx, mine.ID)
	require.NoError(t, err)
	require.Len(t, routines, 1)
	require.NoError(t, f.routines.SetActive(ctx, routines[0].ID, false))

	scheduled, err = f.routines.ListActive(ctx, alice.ID, entities.Monday, entities.SlotMorning)
	require.NoError(t, err)
	assert.Empty(t, scheduled)

	n, err := f.routines.DeleteByTask(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestShareRepository_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	carol := f.user(t, "carol")
	task := f.task(t, alice.ID, "Buy milk", "2024-01-01", "09:00:00")

	first, created, err := f.shares.Create(ctx, &entities.Share{TaskID: task.ID, SharedBy: alice.ID, RecipientID: bob.ID})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := f.shares.Create(ctx, &entities.Share{TaskID: task.ID, SharedBy: alice.ID, RecipientID: bob.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	shared, err := f.shares.ListSharedBy(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, task.ID, shared[0].ID)
	assert.Equal(t, "bob", shared[0].RecipientUsername)
	assert.Equal(t, "alice", shared[0].SharedByUsername)

	received, err := f.shares.ListReceived(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "Buy milk", received[0].Task.Task)

	for _, list := range []func(context.Context, uuid.UUID) ([]entities.SharedTask, error){f.shares.ListSharedBy, f.shares.ListReceived} {
		got, err := list(ctx, carol.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestTeamRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	team := &entities.Team{Name: "Eng", PasswordHash: "hash", CreatedBy: alice.ID}
	require.NoError(t, f.teams.Create(ctx, team))

	err := f.teams.Create(ctx, &entities.Team{Name: "Eng", PasswordHash: "hash", CreatedBy: bob.ID})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict))

	member, err := f.teams.GetMember(ctx, team.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, member.IsAdmin)
	assert.Equal(t, "alice", member.Username)

	require.NoError(t, f.teams.AddMember(ctx, &entities.TeamMember{TeamID: team.ID, UserID: bob.ID}))
	err = f.teams.AddMember(ctx, &entities.TeamMember{TeamID: team.ID, UserID: bob.ID})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict))

	members, err := f.teams.ListMembers(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "alice", members[0].Username)
	assert.Equal(t, "bob", members[1].Username)
	assert.False(t, members[1].IsAdmin)

	err = f.teams.RemoveMember(ctx, team.ID, alice.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict))

	teams, err := f.teams.ListForUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Eng", teams[0].Name)

	teamTask := &entities.Task{TeamID: &team.ID, Task: "Ship it", Date: "2024-01-01", Time: "10:00:00"}
	require.NoError(t, f.tasks.Create(ctx, teamTask))

	visible, err := f.tasks.GetVisible(ctx, teamTask.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ship it", visible.Task)

	list, err := f.tasks.List(ctx, entities.TeamScope(bob.ID, team.ID))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	personal, err := f.tasks.List(ctx, entities.PersonalScope(alice.ID))
	require.NoError(t, err)
	assert.Empty(t, personal)

	require.NoError(t, f.teams.RemoveMember(ctx, team.ID, bob.ID))
	_, err = f.tasks.GetVisible(ctx, teamTask.ID, bob.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))

	_, err = f.teams.GetByName(ctx, "Ops")
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestTeamRepository_ConcurrentRemovalsKeepAnAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	for i := 0; i < 20; i++ {
		team := &entities.Team{Name: fmt.Sprintf("Eng-%d", i), PasswordHash: "hash", CreatedBy: alice.ID}
		require.NoError(t, f.teams.Create(ctx, team))
		require.NoError(t, f.teams.AddMember(ctx, &entities.TeamMember{TeamID: team.ID, UserID: bob.ID, IsAdmin: true}))

		errs := make([]error, 2)
		var wg sync.WaitGroup
		for j, id := range []uuid.UUID{alice.ID, bob.ID} {
			wg.Add(1)
			go func(j int, id uuid.UUID) {
				defer wg.Done()
				errs[j] = f.teams.RemoveMember(ctx, team.ID, id)
			}(j, id)
		}
		wg.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConflict), err.Error())
				failed++
			}
		}
		assert.Equal(t, 1, failed)

		members, err := f.teams.ListMembers(ctx, team.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.True(t, members[0].IsAdmin)
	}
}

func TestSessionRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	now := time.Now().UTC()

	live := &entities.Session{UserID: alice.ID, ExpiresAt: now.Add(time.Hour)}
	expired := &entities.Session{UserID: alice.ID, ExpiresAt: now.Add(-time.Hour)}
	revoked := &entities.Session{UserID: alice.ID, ExpiresAt: now.Add(time.Hour)}
	for _, s := range []*entities.Session{live, expired, revoked} {
		require.NoError(t, f.sessions.Create(ctx, s))
	}

	require.NoError(t, f.sessions.Revoke(ctx, revoked.ID, now))
	err := f.sessions.Revoke(ctx, revoked.ID, now)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))

	got, err := f.sessions.GetByID(ctx, revoked.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive(now))

	got, err = f.sessions.GetByID(ctx, live.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive(now))

	purged, err := f.sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	_, err = f.sessions.GetByID(ctx, expired.ID)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}
