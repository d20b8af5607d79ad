package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	tests := []struct {
		input   string
		want    Day
		wantErr bool
	}{
		{"monday", Monday, false},
		{" Sunday ", Sunday, false},
		{"SATURDAY", Saturday, false},
		{"funday", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDay(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSlot(t *testing.T) {
	for _, slot := range Slots {
		got, err := ParseSlot(string(slot))
		require.NoError(t, err)
		assert.Equal(t, slot, got)
	}

	_, err := ParseSlot("afternoon")
	assert.Error(t, err)
}

func TestDayOf(t *testing.T) {
	// 2024-01-01 was a Monday
	assert.Equal(t, Monday, DayOf(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, Sunday, DayOf(time.Date(2024, 1, 7, 23, 59, 0, 0, time.UTC)))
}

func TestTask_BelongsTo(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	team := uuid.New()

	personal := Task{ID: uuid.New(), OwnerID: &owner}
	teamTask := Task{ID: uuid.New(), TeamID: &team}

	assert.True(t, personal.BelongsTo(PersonalScope(owner)))
	assert.False(t, personal.BelongsTo(PersonalScope(other)))
	assert.False(t, personal.BelongsTo(TeamScope(owner, team)))

	assert.True(t, teamTask.BelongsTo(TeamScope(other, team)))
	assert.False(t, teamTask.BelongsTo(PersonalScope(other)))
	assert.False(t, teamTask.IsOwnedBy(other))
}

func TestTask_DateTime(t *testing.T) {
	task := Task{Date: "2024-01-01", Time: "09:00:00"}

	dt, err := task.DateTime(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), dt)

	task.Time = "9am"
	_, err = task.DateTime(time.UTC)
	assert.Error(t, err)
}

func TestScope_String(t *testing.T) {
	team := uuid.MustParse("7d9f3c1e-6a0b-4c55-9a43-2f0d6a1b8c11")
	assert.Equal(t, "personal", PersonalScope(uuid.New()).String())
	assert.Equal(t, "team:7d9f3c1e-6a0b-4c55-9a43-2f0d6a1b8c11", TeamScope(uuid.New(), team).String())
}

func TestSession_IsActive(t *testing.T) {
	now := time.Now()
	s := Session{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, s.IsActive(now))

	revoked := now
	s.RevokedAt = &revoked
	assert.False(t, s.IsActive(now))

	expired := Session{ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, expired.IsActive(now))
}

func TestDayAndSlot_Index(t *testing.T) {
	assert.Equal(t, 0, Sunday.Index())
	assert.Equal(t, 6, Saturday.Index())
	assert.Equal(t, -1, Day("someday").Index())
	assert.Equal(t, 1, SlotNoon.Index())
	assert.Equal(t, -1, Slot("brunch").Index())
}
