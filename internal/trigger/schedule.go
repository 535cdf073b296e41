package trigger

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/teambition/rrule-go"
)

var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// NextFireTime computes the next time a trigger should fire after now,
// given its recurrence rule (an RRULE string, a bare cron expression, or
// empty for a one-shot firing at startTime) and its timezone.
//
// A one-shot trigger (empty recurrence) has no next firing once startTime
// has passed; the caller marks it completed.
func NextFireTime(startTime time.Time, recurrenceRule, timezone string, now time.Time) (time.Time, bool, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(timezone); tz != "" {
		if parsed, err := time.LoadLocation(tz); err == nil {
			loc = parsed
		}
	}

	rule := strings.TrimSpace(recurrenceRule)
	if rule == "" {
		if startTime.IsZero() {
			return time.Time{}, false, fmt.Errorf("trigger has no start time and no recurrence")
		}
		if now.After(startTime) {
			return time.Time{}, false, nil
		}
		return startTime, true, nil
	}

	if looksLikeRRule(rule) {
		return nextRRuleFire(startTime, rule, loc, now)
	}

	schedule, err := cronParser.Parse(rule)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid recurrence rule %q: %w", rule, err)
	}
	next := schedule.Next(now.In(loc))
	return next, !next.IsZero(), nil
}

func looksLikeRRule(rule string) bool {
	upper := strings.ToUpper(rule)
	return strings.HasPrefix(upper, "FREQ=") || strings.HasPrefix(upper, "RRULE:")
}

func nextRRuleFire(startTime time.Time, rule string, loc *time.Location, now time.Time) (time.Time, bool, error) {
	rule = strings.TrimPrefix(rule, "RRULE:")
	rule = strings.TrimPrefix(rule, "rrule:")

	dtstart := startTime
	if dtstart.IsZero() {
		dtstart = now
	}
	option, err := rrule.StrToROption(rule)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid RRULE %q: %w", rule, err)
	}
	option.Dtstart = dtstart.In(loc)

	set, err := rrule.NewRRule(*option)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build RRULE %q: %w", rule, err)
	}

	next := set.After(now.In(loc), false)
	if next.IsZero() {
		return time.Time{}, false, nil
	}
	return next, true, nil
}
