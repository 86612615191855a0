package calendar

import (
	"time"

	"github.com/warp/workforce-core/core"
)

// =============================================================================
// DAY RESOLUTION - Pure function of (calendar snapshot, date)
// =============================================================================

// Resolve classifies a date under a calendar snapshot.
//
// Precedence, in order:
//  1. Holidays. Any holiday whose inclusive [StartDate, EndDate] contains
//     the date wins unconditionally.
//  2. The weekly rule for the date's day of week. No rule, or RuleWorking,
//     resolves WORKING. RuleOff resolves WEEKLY_OFF. RuleAlternate resolves
//     WEEKLY_OFF only when the date's week-of-month is in the rule's
//     explicit WeekNumbers set; an empty set is no override.
//
// Resolve is deterministic and side-effect free: the same snapshot and date
// always produce the same result.
func Resolve(cal *Calendar, date time.Time) Resolution {
	day := core.Day(date)

	for _, h := range cal.Holidays {
		if core.RangesOverlap(day, day, h.StartDate, h.EndDate) {
			return Resolution{DayType: DayHoliday, IsWorkingDay: false}
		}
	}

	rule := cal.RuleFor(day.Weekday())
	if rule == nil {
		return Resolution{DayType: DayWorking, IsWorkingDay: true}
	}

	switch rule.Kind {
	case RuleOff:
		return Resolution{DayType: DayWeeklyOff, IsWorkingDay: false}
	case RuleAlternate:
		week := core.WeekOfMonth(day)
		for _, n := range rule.WeekNumbers {
			if n == week {
				return Resolution{DayType: DayWeeklyOff, IsWorkingDay: false}
			}
		}
		return Resolution{DayType: DayWorking, IsWorkingDay: true}
	default:
		return Resolution{DayType: DayWorking, IsWorkingDay: true}
	}
}
