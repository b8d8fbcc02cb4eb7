package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cronField describes the valid range of one of the five cron positions.
type cronField struct {
	name string
	min  int
	max  int
}

var cronFields = [5]cronField{
	{name: "minute", min: 0, max: 59},
	{name: "hour", min: 0, max: 23},
	{name: "day-of-month", min: 1, max: 31},
	{name: "month", min: 1, max: 12},
	{name: "day-of-week", min: 0, max: 6},
}

// CronSchedule is a parsed 5-field cron expression. Each field is expanded
// into an explicit set of allowed values at parse time, so trigger evaluation
// is pure set membership.
type CronSchedule struct {
	spec     string
	minutes  map[int]bool
	hours    map[int]bool
	days     map[int]bool
	months   map[int]bool
	weekdays map[int]bool
}

// Kind implements Definition.
func (c *CronSchedule) Kind() Kind { return KindCron }

// Spec implements Definition.
func (c *CronSchedule) Spec() string { return c.spec }

// ParseCron parses a 5-field cron expression (minute, hour, day-of-month,
// month, day-of-week). Each field supports `*`, comma lists, ranges `a-b`,
// and steps `*/n` or `a-b/n`. Day-of-week 7 is accepted as an alias for
// Sunday (0).
func ParseCron(spec string) (*CronSchedule, error) {
	parts := strings.Fields(spec)
	if len(parts) != len(cronFields) {
		return nil, fmt.Errorf("cron expression %q must have %d fields, got %d", spec, len(cronFields), len(parts))
	}

	sets := make([]map[int]bool, len(cronFields))
	for i, part := range parts {
		set, err := parseCronField(part, cronFields[i])
		if err != nil {
			return nil, fmt.Errorf("cron expression %q: %w", spec, err)
		}
		sets[i] = set
	}

	return &CronSchedule{
		spec:     spec,
		minutes:  sets[0],
		hours:    sets[1],
		days:     sets[2],
		months:   sets[3],
		weekdays: sets[4],
	}, nil
}

// parseCronField expands one field expression into its allowed value set.
func parseCronField(expr string, field cronField) (map[int]bool, error) {
	set := make(map[int]bool)

	for _, elem := range strings.Split(expr, ",") {
		if elem == "" {
			return nil, fmt.Errorf("%s field has an empty list element", field.name)
		}

		step := 1
		rangePart := elem
		if idx := strings.IndexByte(elem, '/'); idx >= 0 {
			rangePart = elem[:idx]
			parsed, err := strconv.Atoi(elem[idx+1:])
			if err != nil || parsed < 1 {
				return nil, fmt.Errorf("%s field has invalid step %q", field.name, elem)
			}
			step = parsed
		}

		lo, hi := field.min, field.max
		switch {
		case rangePart == "*":
			// Full range.
		case strings.Contains(rangePart, "-"):
			bounds := strings.SplitN(rangePart, "-", 2)
			var err error
			if lo, err = parseCronValue(bounds[0], field); err != nil {
				return nil, err
			}
			if hi, err = parseCronValue(bounds[1], field); err != nil {
				return nil, err
			}
			if lo > hi {
				return nil, fmt.Errorf("%s field has inverted range %q", field.name, rangePart)
			}
		default:
			v, err := parseCronValue(rangePart, field)
			if err != nil {
				return nil, err
			}
			lo, hi = v, v
		}

		for v := lo; v <= hi; v += step {
			if field.name == "day-of-week" && v == 7 {
				set[0] = true
				continue
			}
			set[v] = true
		}
	}

	return set, nil
}

// parseCronValue parses a single numeric field value, range-checked.
// Day-of-week admits 7 as an alias for Sunday; it is normalized to 0 when the
// value set is built, after range expansion, so `5-7` keeps its Fri-Sun
// meaning instead of reading as an inverted range.
func parseCronValue(s string, field cronField) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s field has invalid value %q", field.name, s)
	}
	max := field.max
	if field.name == "day-of-week" {
		max = 7
	}
	if v < field.min || v > max {
		return 0, fmt.Errorf("%s field value %d out of range [%d,%d]", field.name, v, field.min, max)
	}
	return v, nil
}

// ShouldTrigger reports whether the minute-truncated now matches every
// field's allowed set in the given timezone. A schedule fires at most once
// per matching minute: if the last trigger fell in the same minute, the
// result is false regardless of match.
func (c *CronSchedule) ShouldTrigger(lastTriggered, now time.Time, loc *time.Location) bool {
	t := now.In(loc).Truncate(time.Minute)
	if !lastTriggered.IsZero() && lastTriggered.In(loc).Truncate(time.Minute).Equal(t) {
		return false
	}

	return c.minutes[t.Minute()] &&
		c.hours[t.Hour()] &&
		c.days[t.Day()] &&
		c.months[int(t.Month())] &&
		c.weekdays[int(t.Weekday())]
}
