package calendar

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// Render writes m as a seven column grid followed by the tasks of each day.
// Days with tasks are marked with '*', today with brackets.
func Render(w io.Writer, m Month) error {
	if _, err := fmt.Fprintf(w, "%s %d\n\n", m.Month, m.Year); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)

	names := make([]string, 0, DaysPerWeek)
	for i := 0; i < DaysPerWeek; i++ {
		wd := time.Weekday((int(m.WeekStart) + i) % DaysPerWeek)
		names = append(names, wd.String()[:2]+"\t")
	}
	fmt.Fprintln(tw, strings.Join(names, ""))

	col := 0
	for ; col < m.Offset; col++ {
		fmt.Fprint(tw, "\t")
	}
	for _, d := range m.Days {
		fmt.Fprint(tw, cell(d)+"\t")
		col++
		if col == DaysPerWeek {
			fmt.Fprintln(tw)
			col = 0
		}
	}
	if col != 0 {
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, d := range m.Days {
		for _, e := range d.Tasks {
			mark := " "
			if e.Completed {
				mark = "x"
			}
			if _, err := fmt.Fprintf(w, "\n%s [%s] %s (%s)", d.Date, mark, e.Title, PriorityLabel(e.Priority)); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func cell(d Day) string {
	s := fmt.Sprint(d.Date.Day)
	if len(d.Tasks) > 0 {
		s += "*"
	}
	if d.Today {
		s = "[" + s + "]"
	}
	return s
}
