// Facilium - Facility & Asset Condition Assessment Platform
// Copyright 2026 Facilium Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/facilium/facilium

package backup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidCronExpression is returned for malformed cron expressions.
// Configuration operations surface it synchronously; it is never silently
// corrected into a default.
var ErrInvalidCronExpression = errors.New("invalid cron expression")

// CronSchedule is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
//
// Supported field syntax: "*", single values, lists ("1,15"), ranges
// ("1-5"), and steps ("*/15", "0-30/5"). Day-of-week uses 0=Sunday through
// 6=Saturday; 7 is normalized to 0.
type CronSchedule struct {
	minute cronField
	hour   cronField
	dom    cronField
	month  cronField
	dow    cronField
}

// cronField is the match set for one cron field. wildcard is tracked
// separately because standard cron ORs day-of-month and day-of-week only
// when both are restricted.
type cronField struct {
	values   map[int]bool
	wildcard bool
}

func (f cronField) matches(v int) bool {
	return f.wildcard || f.values[v]
}

// ParseCron parses a standard 5-field cron expression.
//
// Examples:
//
//	"0 2 * * *"    daily at 02:00
//	"30 6 * * 1,5" Mondays and Fridays at 06:30
//	"*/15 * * * *" every 15 minutes
func ParseCron(expr string) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("%w: expected 5 fields, got %d", ErrInvalidCronExpression, len(fields))
	}

	minute, err := parseCronField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("%w: minute field: %s", ErrInvalidCronExpression, err.Error())
	}
	hour, err := parseCronField(fields[1], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("%w: hour field: %s", ErrInvalidCronExpression, err.Error())
	}
	dom, err := parseCronField(fields[2], 1, 31)
	if err != nil {
		return nil, fmt.Errorf("%w: day-of-month field: %s", ErrInvalidCronExpression, err.Error())
	}
	month, err := parseCronField(fields[3], 1, 12)
	if err != nil {
		return nil, fmt.Errorf("%w: month field: %s", ErrInvalidCronExpression, err.Error())
	}
	dow, err := parseCronField(fields[4], 0, 7)
	if err != nil {
		return nil, fmt.Errorf("%w: day-of-week field: %s", ErrInvalidCronExpression, err.Error())
	}

	// Normalize day 7 (Sunday) to day 0.
	if dow.values[7] {
		delete(dow.values, 7)
		dow.values[0] = true
	}

	return &CronSchedule{minute: minute, hour: hour, dom: dom, month: month, dow: dow}, nil
}

// maxScanMinutes bounds the next-run search to four years, which covers
// every satisfiable expression including "Feb 29".
const maxScanMinutes = 4 * 366 * 24 * 60

// Next returns the earliest instant strictly after the given time that
// satisfies the schedule, evaluated in loc. A nil loc means UTC.
func (c *CronSchedule) Next(after time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	// Start from the next whole minute so the result is strictly after.
	t := after.In(loc).Add(time.Minute)
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)

	for i := 0; i < maxScanMinutes; i++ {
		if c.matches(t) {
			return t, nil
		}
		// Skip ahead by whole days while the date cannot match; this keeps
		// sparse expressions like "0 0 29 2 *" cheap.
		if !c.dateMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
			continue
		}
		t = t.Add(time.Minute)
	}

	return time.Time{}, fmt.Errorf("%w: no matching instant within four years", ErrInvalidCronExpression)
}

// matches reports whether t satisfies every field of the schedule.
func (c *CronSchedule) matches(t time.Time) bool {
	return c.minute.matches(t.Minute()) &&
		c.hour.matches(t.Hour()) &&
		c.dateMatches(t)
}

// dateMatches applies standard cron day semantics: when both day-of-month
// and day-of-week are restricted, a day matching either is accepted.
func (c *CronSchedule) dateMatches(t time.Time) bool {
	if !c.month.matches(int(t.Month())) {
		return false
	}

	domMatch := c.dom.matches(t.Day())
	dowMatch := c.dow.matches(int(t.Weekday()))

	switch {
	case c.dom.wildcard && c.dow.wildcard:
		return true
	case c.dom.wildcard:
		return dowMatch
	case c.dow.wildcard:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

// NextRun parses expr, resolves the IANA timezone, and returns the earliest
// instant strictly after the reference time that satisfies the expression.
// It is a pure function, safe for preview/validation use.
func NextRun(expr, timezone string, after time.Time) (time.Time, error) {
	schedule, err := ParseCron(expr)
	if err != nil {
		return time.Time{}, err
	}

	loc := time.UTC
	if timezone != "" {
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}
	}

	return schedule.Next(after, loc)
}

// parseCronField parses one cron field into its match set.
func parseCronField(field string, minVal, maxVal int) (cronField, error) {
	if field == "*" {
		return cronField{wildcard: true}, nil
	}

	values := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		if err := parseCronPart(part, minVal, maxVal, values); err != nil {
			return cronField{}, err
		}
	}
	return cronField{values: values}, nil
}

// parseCronPart parses a single list element: value, range, or step.
func parseCronPart(part string, minVal, maxVal int, out map[int]bool) error {
	step := 1
	if idx := strings.IndexByte(part, '/'); idx >= 0 {
		s, err := strconv.Atoi(part[idx+1:])
		if err != nil || s <= 0 {
			return fmt.Errorf("invalid step %q", part[idx+1:])
		}
		step = s
		part = part[:idx]
	}

	start, end := minVal, maxVal
	switch {
	case part == "*":
		// Full range; a bare "*" never reaches here (handled as wildcard),
		// so this is always the "*/n" form.
	case strings.Contains(part, "-"):
		bounds := strings.SplitN(part, "-", 2)
		var err error
		if start, err = strconv.Atoi(bounds[0]); err != nil {
			return fmt.Errorf("invalid range start %q", bounds[0])
		}
		if end, err = strconv.Atoi(bounds[1]); err != nil {
			return fmt.Errorf("invalid range end %q", bounds[1])
		}
		if start > end {
			return fmt.Errorf("invalid range %d-%d", start, end)
		}
	default:
		v, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("invalid value %q", part)
		}
		start, end = v, v
		if step != 1 {
			// "n/s" means n through the field maximum with the given step.
			end = maxVal
		}
	}

	if start < minVal || end > maxVal {
		return fmt.Errorf("value out of range %d-%d (allowed %d-%d)", start, end, minVal, maxVal)
	}

	for v := start; v <= end; v += step {
		out[v] = true
	}
	return nil
}
