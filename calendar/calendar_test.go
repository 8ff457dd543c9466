package calendar

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ichigozero/todocal/tasksvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(y int, m time.Month, d int) Option {
	return WithClock(func() time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) })
}

func TestMonthLayout(t *testing.T) {
	tests := []struct {
		name      string
		ym        YearMonth
		weekStart time.Weekday
		offset    int
		days      int
	}{
		{"march 2024", YearMonth{2024, time.March}, time.Sunday, 5, 31},
		{"march 2024 monday start", YearMonth{2024, time.March}, time.Monday, 4, 31},
		{"leap february", YearMonth{2024, time.February}, time.Sunday, 4, 29},
		{"february", YearMonth{2023, time.February}, time.Sunday, 3, 28},
		{"september 2024 starts on sunday", YearMonth{2024, time.September}, time.Sunday, 0, 30},
		{"september 2024 monday start", YearMonth{2024, time.September}, time.Monday, 6, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(WithWeekStart(tt.weekStart)).Month(tt.ym, nil)
			assert.Equal(t, tt.offset, m.Offset)
			require.Len(t, m.Days, tt.days)
			assert.Equal(t, 1, m.Days[0].Date.Day)
			assert.Equal(t, tt.days, m.Days[len(m.Days)-1].Date.Day)
			for _, d := range m.Days {
				assert.NotNil(t, d.Tasks)
			}
		})
	}
}

func TestMonthBuckets(t *testing.T) {
	tasks := []tasksvc.Task{
		{ID: "1", Title: "Kickoff", Date: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), Priority: tasksvc.PriorityHigh},
		{ID: "2", Title: "Late", Date: time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC), Priority: tasksvc.PriorityLow},
		{ID: "3", Title: "Review", Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)},
		{ID: "4", Title: "Other month", Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Priority: tasksvc.PriorityMedium},
	}

	m := New(clock(2024, time.March, 15)).Month(YearMonth{2024, time.March}, tasks)

	require.Len(t, m.Days[0].Tasks, 2)
	assert.Equal(t, "Kickoff", m.Days[0].Tasks[0].Title)
	assert.Equal(t, ColorHigh, m.Days[0].Tasks[0].Color)
	assert.Equal(t, "Late", m.Days[0].Tasks[1].Title)
	assert.Equal(t, ColorLow, m.Days[0].Tasks[1].Color)

	require.Len(t, m.Days[30].Tasks, 1)
	assert.Equal(t, ColorDefault, m.Days[30].Tasks[0].Color)

	total := 0
	for _, d := range m.Days {
		total += len(d.Tasks)
		assert.Equal(t, d.Date.Day == 15, d.Today)
	}
	assert.Equal(t, 3, total)

	assert.Equal(t, YearMonth{2024, time.February}, m.Prev)
	assert.Equal(t, YearMonth{2024, time.April}, m.Next)
}

func TestMonthLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	task := tasksvc.Task{Title: "late utc", Date: time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)}

	utc := New().Month(YearMonth{2024, time.March}, []tasksvc.Task{task})
	assert.Len(t, utc.Days[0].Tasks, 1)

	jst := New(WithLocation(tokyo)).Month(YearMonth{2024, time.March}, []tasksvc.Task{task})
	assert.Empty(t, jst.Days[0].Tasks)
	assert.Len(t, jst.Days[1].Tasks, 1)
}

func TestYearBoundaries(t *testing.T) {
	m := New().Month(YearMonth{2024, time.January}, nil)
	assert.Equal(t, YearMonth{2023, time.December}, m.Prev)

	m = New().Month(YearMonth{2024, time.December}, nil)
	assert.Equal(t, YearMonth{2025, time.January}, m.Next)
}

func TestTasksOn(t *testing.T) {
	cal := New()
	tasks := []tasksvc.Task{
		{ID: "1", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "3", Date: time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)},
		{ID: "4", Date: time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	got := cal.TasksOn(tasks, Date{2024, time.March, 1})
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	assert.NotNil(t, cal.TasksOn(nil, Date{2024, time.March, 1}))
	assert.True(t, cal.SameDay(tasks[0].Date, tasks[2].Date))
	assert.False(t, cal.SameDay(tasks[0].Date, tasks[1].Date))
}

func TestPriority(t *testing.T) {
	tests := []struct {
		p     tasksvc.Priority
		color string
		label string
	}{
		{tasksvc.PriorityHigh, "#ffcdd2", "High Priority"},
		{tasksvc.PriorityMedium, "#fff9c4", "Medium Priority"},
		{tasksvc.PriorityLow, "#c8e6c9", "Low Priority"},
		{"", "#f5f5f5", "No Priority"},
		{"urgent", "#f5f5f5", "No Priority"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.color, PriorityColor(tt.p), tt.p)
		assert.Equal(t, tt.label, PriorityLabel(tt.p), tt.p)
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, Date{2024, time.March, 1}, d)
	assert.Equal(t, "2024-03-01", d.String())

	_, err = ParseDate("2024-02-30")
	assert.Error(t, err)

	b, err := json.Marshal(struct {
		D  Date      `json:"d"`
		YM YearMonth `json:"ym"`
	}{d, YearMonth{2024, time.March}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-03-01","ym":"2024-03"}`, string(b))

	ym, err := ParseYearMonth("2024-11")
	require.NoError(t, err)
	assert.Equal(t, YearMonth{2025, time.January}, ym.Add(2))
	assert.Equal(t, YearMonth{2023, time.November}, ym.Add(-12))
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]time.Weekday{
		"sunday": time.Sunday,
		"Mon":    time.Monday,
		" SAT ":  time.Saturday,
	} {
		got, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseWeekday("someday")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	tasks := []tasksvc.Task{
		{Title: "Kickoff", Date: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), Priority: tasksvc.PriorityHigh},
		{Title: "Ship", Date: time.Date(2024, 3, 29, 9, 0, 0, 0, time.UTC), Completed: true},
	}
	m := New(clock(2024, time.March, 15)).Month(YearMonth{2024, time.March}, tasks)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, m))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "March 2024\n"))
	assert.Contains(t, out, "1*")
	assert.Contains(t, out, "[15]")
	assert.Contains(t, out, "2024-03-01 [ ] Kickoff (High Priority)")
	assert.Contains(t, out, "2024-03-29 [x] Ship (No Priority)")

	lines := strings.Split(out, "\n")
	assert.Equal(t, []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}, strings.Fields(lines[2]))
	// 5 blanks and 31 days fill six weeks.
	assert.Equal(t, []string{"1*", "2"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"31"}, strings.Fields(lines[8]))

	buf.Reset()
	require.NoError(t, Render(&buf, New(WithWeekStart(time.Monday)).Month(YearMonth{2024, time.March}, nil)))
	lines = strings.Split(buf.String(), "\n")
	assert.Equal(t, []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}, strings.Fields(lines[2]))
}
