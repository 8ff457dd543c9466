// Package calendar lays tasks out on a month grid.
//
// A task belongs to the day its due timestamp falls on in the calendar's
// location. Days are compared by year, month and day only, so a task due at
// 23:30 stays on that day no matter how close to midnight it is.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/ichigozero/todocal/tasksvc"
)

const DaysPerWeek = 7

type Calendar struct {
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time
}

type Option func(*Calendar)

// WithLocation sets the zone used to decide which day a task is due on.
func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithWeekStart sets the weekday of the first grid column.
func WithWeekStart(d time.Weekday) Option {
	return func(c *Calendar) { c.weekStart = d }
}

// WithClock replaces time.Now, used for the today marker and the current month.
func WithClock(now func() time.Time) Option {
	return func(c *Calendar) { c.now = now }
}

// New returns a Calendar using UTC, weeks starting on Sunday.
func New(opts ...Option) *Calendar {
	c := &Calendar{
		loc:       time.UTC,
		weekStart: time.Sunday,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calendar) Location() *time.Location { return c.loc }

func (c *Calendar) WeekStart() time.Weekday { return c.weekStart }

// Today returns the current day in the calendar's location.
func (c *Calendar) Today() Date {
	return DateOf(c.now(), c.loc)
}

// Current returns the month containing today.
func (c *Calendar) Current() YearMonth {
	today := c.Today()
	return YearMonth{today.Year, today.Month}
}

// Entry is a task placed on a day, with its display color.
type Entry struct {
	tasksvc.Task
	Color string `json:"color"`
}

type Day struct {
	Date  Date    `json:"date"`
	Today bool    `json:"today"`
	Tasks []Entry `json:"tasks"`
}

type Month struct {
	Year      int          `json:"year"`
	Month     time.Month   `json:"month"`
	WeekStart time.Weekday `json:"weekStart"`
	Offset    int          `json:"offset"`
	Prev      YearMonth    `json:"prev"`
	Next      YearMonth    `json:"next"`
	Days      []Day        `json:"days"`
}

// Month builds the grid of ym. Offset is the number of blank cells before
// day 1 in a seven column grid starting at the configured week start.
func (c *Calendar) Month(ym YearMonth, tasks []tasksvc.Task) Month {
	first := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, c.loc)
	last := first.AddDate(0, 1, -1)
	today := c.Today()

	m := Month{
		Year:      first.Year(),
		Month:     first.Month(),
		WeekStart: c.weekStart,
		Offset:    (int(first.Weekday()) - int(c.weekStart) + DaysPerWeek) % DaysPerWeek,
		Prev:      ym.Add(-1),
		Next:      ym.Add(1),
		Days:      make([]Day, 0, last.Day()),
	}

	byDay := make(map[Date][]Entry)
	for _, t := range tasks {
		d := DateOf(t.Date, c.loc)
		if d.Year != m.Year || d.Month != m.Month {
			continue
		}
		byDay[d] = append(byDay[d], Entry{Task: t, Color: PriorityColor(t.Priority)})
	}

	for day := 1; day <= last.Day(); day++ {
		d := Date{m.Year, m.Month, day}
		entries := byDay[d]
		if entries == nil {
			entries = []Entry{}
		}
		m.Days = append(m.Days, Day{Date: d, Today: d == today, Tasks: entries})
	}
	return m
}

// TasksOn returns the tasks due on d, in their original order.
func (c *Calendar) TasksOn(tasks []tasksvc.Task, d Date) []tasksvc.Task {
	out := []tasksvc.Task{}
	for _, t := range tasks {
		if DateOf(t.Date, c.loc) == d {
			out = append(out, t)
		}
	}
	return out
}

// SameDay reports whether a and b fall on the same day in the calendar's
// location.
func (c *Calendar) SameDay(a, b time.Time) bool {
	return DateOf(a, c.loc) == DateOf(b, c.loc)
}

const (
	ColorHigh    = "#ffcdd2"
	ColorMedium  = "#fff9c4"
	ColorLow     = "#c8e6c9"
	ColorDefault = "#f5f5f5"
)

func PriorityColor(p tasksvc.Priority) string {
	switch p {
	case tasksvc.PriorityHigh:
		return ColorHigh
	case tasksvc.PriorityMedium:
		return ColorMedium
	case tasksvc.PriorityLow:
		return ColorLow
	default:
		return ColorDefault
	}
}

func PriorityLabel(p tasksvc.Priority) string {
	switch p {
	case tasksvc.PriorityHigh:
		return "High Priority"
	case tasksvc.PriorityMedium:
		return "Medium Priority"
	case tasksvc.PriorityLow:
		return "Low Priority"
	default:
		return "No Priority"
	}
}

// ParseWeekday accepts full or three letter English weekday names.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
