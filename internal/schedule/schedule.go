package schedule

import (
	"sort"
	"time"

	"billingconsole/internal/allocation"
	"billingconsole/internal/money"
)

// Cadence is the recurrence pattern of a payment schedule.
type Cadence string

const (
	CadenceWeekly   Cadence = "weekly"
	CadenceBiWeekly Cadence = "biweekly"
	CadenceMonthly  Cadence = "monthly"
	CadenceCustom   Cadence = "custom"
)

func ParseCadence(s string) (Cadence, error) {
	switch Cadence(s) {
	case CadenceWeekly, CadenceBiWeekly, CadenceMonthly, CadenceCustom:
		return Cadence(s), nil
	default:
		return "", allocation.ValidationError{Code: "CADENCE_INVALID", Message: "unknown cadence: " + s}
	}
}

// Spec describes one schedule to generate: a cadence, a total to split, and
// either (start, cycle count) for the recurring cadences or an explicit date
// list for CadenceCustom.
type Spec struct {
	Cadence     Cadence
	Total       money.Amount
	Start       time.Time
	CycleCount  int
	CustomDates []time.Time
}

// Occurrence is one dated, amount-bearing entry of a generated schedule.
type Occurrence struct {
	Sequence int
	Date     time.Time
	Amount   money.Amount
}

// Generator produces schedules. Now is injectable so identical inputs plus an
// identical clock always yield identical output.
type Generator struct {
	Now func() time.Time
}

func NewGenerator() Generator {
	return Generator{Now: time.Now}
}

// Today returns the generator's current date at UTC midnight; handlers use it
// to default a missing start date before building a Spec.
func (g Generator) Today() time.Time {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return dateOnly(now())
}

// IsUpcoming reports whether an occurrence is strictly in the future relative
// to the generator's clock.
func (g Generator) IsUpcoming(o Occurrence) bool {
	return o.Date.After(g.Today())
}

// CycleCount derives how many occurrences fit between start and end for a
// recurring cadence, counting the occurrence on the start date itself.
// end <= start yields 1. Custom cadences have no cycle count; callers supply
// explicit dates instead.
func CycleCount(cadence Cadence, start, end time.Time) (int, error) {
	if cadence == CadenceCustom {
		return 0, allocation.ValidationError{Code: "CADENCE_INVALID", Message: "cycle count is not defined for custom schedules"}
	}
	start, end = dateOnly(start), dateOnly(end)
	if !end.After(start) {
		return 1, nil
	}
	switch cadence {
	case CadenceWeekly:
		return daysBetween(start, end)/7 + 1, nil
	case CadenceBiWeekly:
		return daysBetween(start, end)/14 + 1, nil
	case CadenceMonthly:
		n := (end.Year()*12 + int(end.Month())) - (start.Year()*12 + int(start.Month())) + 1
		if n < 1 {
			n = 1
		}
		return n, nil
	default:
		return 0, allocation.ValidationError{Code: "CADENCE_INVALID", Message: "unknown cadence: " + string(cadence)}
	}
}

// Generate turns a Spec into dated, monetarily balanced occurrences.
//
// Dates: occurrence i sits i weeks, i fortnights, or i calendar months after
// the start; monthly steps preserve the day-of-month and clamp at month end
// (Jan 31 + 1 month is the last day of February, never March rollover). Custom
// dates are sorted ascending and must be strictly increasing.
//
// Amounts: the total is divided evenly in minor units and the remainder is
// assigned to the last occurrence, so the occurrence amounts always sum to the
// total exactly.
func (g Generator) Generate(spec Spec) ([]Occurrence, error) {
	if !spec.Total.IsPositive() {
		return nil, allocation.ValidationError{Code: "SCHEDULE_TOTAL_INVALID", Message: "schedule total must be > 0"}
	}

	var dates []time.Time
	switch spec.Cadence {
	case CadenceCustom:
		if len(spec.CustomDates) == 0 {
			return nil, allocation.ValidationError{Code: "SCHEDULE_DATES_EMPTY", Message: "custom schedules need at least one date"}
		}
		dates = make([]time.Time, len(spec.CustomDates))
		for i, d := range spec.CustomDates {
			dates[i] = dateOnly(d)
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		for i := 1; i < len(dates); i++ {
			if !dates[i].After(dates[i-1]) {
				return nil, allocation.ValidationError{Code: "SCHEDULE_DATES_DUPLICATE", Message: "schedule dates must be strictly increasing"}
			}
		}
	case CadenceWeekly, CadenceBiWeekly, CadenceMonthly:
		if spec.Start.IsZero() {
			return nil, allocation.ValidationError{Code: "SCHEDULE_START_MISSING", Message: "recurring schedules need a start date"}
		}
		if spec.CycleCount < 1 {
			return nil, allocation.ValidationError{Code: "SCHEDULE_CYCLES_INVALID", Message: "cycle count must be >= 1"}
		}
		start := dateOnly(spec.Start)
		dates = make([]time.Time, spec.CycleCount)
		for i := 0; i < spec.CycleCount; i++ {
			switch spec.Cadence {
			case CadenceWeekly:
				dates[i] = start.AddDate(0, 0, 7*i)
			case CadenceBiWeekly:
				dates[i] = start.AddDate(0, 0, 14*i)
			case CadenceMonthly:
				dates[i] = addMonthsClamped(start, i)
			}
		}
	default:
		return nil, allocation.ValidationError{Code: "CADENCE_INVALID", Message: "unknown cadence: " + string(spec.Cadence)}
	}

	n := int64(len(dates))
	share := spec.Total.Minor / n
	remainder := spec.Total.Minor - share*n

	out := make([]Occurrence, len(dates))
	for i, d := range dates {
		amount := share
		if i == len(dates)-1 {
			amount += remainder
		}
		out[i] = Occurrence{
			Sequence: i,
			Date:     d,
			Amount:   money.New(amount, spec.Total.Currency),
		}
	}
	return out, nil
}

// EndDate marks the day the schedule is fully collected through: one day after
// the latest occurrence. Zero time when there are no occurrences.
func EndDate(occurrences []Occurrence) time.Time {
	if len(occurrences) == 0 {
		return time.Time{}
	}
	last := occurrences[0].Date
	for _, o := range occurrences[1:] {
		if o.Date.After(last) {
			last = o.Date
		}
	}
	return last.AddDate(0, 0, 1)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// addMonthsClamped advances by whole calendar months, clamping the day to the
// last valid day of the target month instead of letting time.AddDate roll over.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, t.Location())
}
