package tasksvc

import (
	"errors"
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

type Task struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	UserID      string    `json:"userId,omitempty" gorm:"index;size:36"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date" gorm:"column:due_at;index"`
	Priority    Priority  `json:"priority" gorm:"size:16"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Patch holds the fields of an update request. Nil fields are left untouched.
// ID, owner and creation time are not patchable.
type Patch struct {
	Title       *string
	Description *string
	Date        *time.Time
	Priority    *Priority
	Completed   *bool
}

func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrInvalidArgument
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ErrInvalidArgument
	}
	return nil
}

// Apply merges p into t shallowly and returns the result.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = p.Date.UTC()
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

type TaskRepository interface {
	Create(task Task) (Task, error)
	FindAll(userID string) ([]Task, error)
	Find(userID, taskID string) (Task, error)
	Update(task Task) (Task, error)
	Delete(userID, taskID string) error
}

// Auth is the owner scope of a request. A zero Auth means the request is
// not scoped to any user, which only happens when authentication is off.
type Auth struct {
	UserID   string
	Username string
}

// Owns reports whether a task belongs to the scope of a.
func (a Auth) Owns(t Task) bool {
	return a.UserID == "" || t.UserID == a.UserID
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps as well as the zone-less forms
// emitted by HTML date and datetime-local inputs. Zone-less values are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidArgument
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTaskNotFound    = errors.New("task not found")
	ErrStorage         = errors.New("task storage failure")
	ErrClaimsInvalid   = errors.New("JWT claims was invalid")
)
