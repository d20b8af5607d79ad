package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Wire formats for the calendar date and time-of-day of a task
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Day is a day of the week as stored on routine rows
type Day string

const (
	Sunday    Day = "sunday"
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
)

// Days lists every day in week order, starting on Sunday
var Days = []Day{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// Slot is one of the four fixed times of day a routine can recur in
type Slot string

const (
	SlotMorning Slot = "morning"
	SlotNoon    Slot = "noon"
	SlotEvening Slot = "evening"
	SlotNight   Slot = "night"
)

// Slots lists every slot in day order
var Slots = []Slot{SlotMorning, SlotNoon, SlotEvening, SlotNight}

// User represents a registered user
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Session is the server-side record behind a bearer token
type Session struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}

// Task is a to-do item owned either by a user or by a team, never both
type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty" db:"owner_id"`
	TeamID      *uuid.UUID `json:"team_id,omitempty" db:"team_id"`
	Task        string     `json:"task" db:"task"`
	Description string     `json:"description" db:"description"`
	Important   bool       `json:"important" db:"important"`
	Done        bool       `json:"done" db:"done"`
	Date        string     `json:"date" db:"date"`
	Time        string     `json:"time" db:"time"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Routine marks a task as recurring on one day of the week in one slot
type Routine struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TaskID    uuid.UUID `json:"task_id" db:"task_id"`
	Day       Day       `json:"day_of_week" db:"day_of_week"`
	Slot      Slot      `json:"schedule_type" db:"schedule_type"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ScheduledTask is a task joined with the routine slot it was selected by
type ScheduledTask struct {
	Task
	Day      Day    `json:"day_of_week" db:"day_of_week"`
	Slot     Slot   `json:"schedule_type" db:"schedule_type"`
	DateTime string `json:"date_time" db:"-"`
}

// Share records that a task owner granted a recipient visibility of a task
type Share struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TaskID      uuid.UUID `json:"task_id" db:"task_id"`
	SharedBy    uuid.UUID `json:"shared_by" db:"shared_by"`
	RecipientID uuid.UUID `json:"recipient_id" db:"recipient_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SharedTask is a task as seen through one share row
type SharedTask struct {
	Task
	ShareID           uuid.UUID `json:"share_id" db:"share_id"`
	SharedBy          uuid.UUID `json:"shared_by" db:"shared_by"`
	SharedByUsername  string    `json:"shared_by_username" db:"shared_by_username"`
	RecipientID       uuid.UUID `json:"recipient_id" db:"recipient_id"`
	RecipientUsername string    `json:"recipient_username" db:"recipient_username"`
}

// SharedLists holds both directions of the sharing ledger for one user
type SharedLists struct {
	Shared   []SharedTask `json:"shared"`
	Received []SharedTask `json:"received"`
}

// Team owns a task list and a set of members
type Team struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedBy    uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TeamMember is a user's membership in a team
type TeamMember struct {
	TeamID   uuid.UUID `json:"team_id" db:"team_id"`
	UserID   uuid.UUID `json:"user_id" db:"user_id"`
	Username string    `json:"username" db:"username"`
	IsAdmin  bool      `json:"is_admin" db:"is_admin"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// TeamDetail is a team together with its task list
type TeamDetail struct {
	Team
	IsAdmin bool   `json:"is_admin"`
	Tasks   []Task `json:"tasks"`
}

// Scope is the visibility boundary a task operation runs in. A zero TeamID
// means the caller's personal list.
type Scope struct {
	UserID uuid.UUID
	TeamID *uuid.UUID
}

// PersonalScope returns the scope of a user's own tasks
func PersonalScope(userID uuid.UUID) Scope {
	return Scope{UserID: userID}
}

// TeamScope returns the scope of a team's tasks as seen by one member
func TeamScope(userID, teamID uuid.UUID) Scope {
	return Scope{UserID: userID, TeamID: &teamID}
}

// IsTeam reports whether the scope is a team list
func (s Scope) IsTeam() bool {
	return s.TeamID != nil
}

func (s Scope) String() string {
	if s.IsTeam() {
		return "team:" + s.TeamID.String()
	}
	return "personal"
}

// ParseDay normalizes and validates a day name
func ParseDay(s string) (Day, error) {
	d := Day(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("invalid day of week %q", s)
	}
	return d, nil
}

// DayOf returns the routine day for a calendar instant
func DayOf(t time.Time) Day {
	return Day(strings.ToLower(t.Weekday().String()))
}

// ParseSlot normalizes and validates a slot name
func ParseSlot(s string) (Slot, error) {
	slot := Slot(strings.ToLower(strings.TrimSpace(s)))
	if !slot.IsValid() {
		return "", fmt.Errorf("invalid schedule type %q", s)
	}
	return slot, nil
}

// BelongsTo reports whether the task is visible in scope
func (t *Task) BelongsTo(scope Scope) bool {
	if scope.IsTeam() {
		return t.TeamID != nil && *t.TeamID == *scope.TeamID
	}
	return t.OwnerID != nil && *t.OwnerID == scope.UserID
}

// IsOwnedBy reports whether the task is a personal task of userID
func (t *Task) IsOwnedBy(userID uuid.UUID) bool {
	return t.OwnerID != nil && *t.OwnerID == userID
}

// DateTime combines the date and time fields into one instant in loc
func (t *Task) DateTime(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, t.Date+" "+t.Time, loc)
}

// IsActive reports whether the session can still authenticate requests
func (s *Session) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Utility methods
func (d Day) IsValid() bool {
	switch d {
	case Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday:
		return true
	default:
		return false
	}
}

// Index returns the position of d in Days, or -1
func (d Day) Index() int {
	for i, day := range Days {
		if day == d {
			return i
		}
	}
	return -1
}

// Index returns the position of s in Slots, or -1
func (s Slot) Index() int {
	for i, slot := range Slots {
		if slot == s {
			return i
		}
	}
	return -1
}

func (s Slot) IsValid() bool {
	switch s {
	case SlotMorning, SlotNoon, SlotEvening, SlotNight:
		return true
	default:
		return false
	}
}
