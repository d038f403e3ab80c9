package schedule

import (
	"errors"
	"testing"
	"time"

	"billingconsole/internal/allocation"
	"billingconsole/internal/money"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func usd(minor int64) money.Amount { return money.New(minor, "USD") }

func fixedGenerator(today time.Time) Generator {
	return Generator{Now: func() time.Time { return today }}
}

func TestGenerate_WeeklyDates(t *testing.T) {
	occs, err := NewGenerator().Generate(Spec{
		Cadence:    CadenceWeekly,
		Start:      date(2024, 1, 1),
		CycleCount: 4,
		Total:      usd(4000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Time{
		date(2024, 1, 1), date(2024, 1, 8), date(2024, 1, 15), date(2024, 1, 22),
	}
	if len(occs) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(occs))
	}
	for i, o := range occs {
		if !o.Date.Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %s, got %s", i, want[i], o.Date)
		}
		if o.Sequence != i {
			t.Fatalf("occurrence %d: wrong sequence %d", i, o.Sequence)
		}
	}
}

func TestGenerate_BiWeeklyDates(t *testing.T) {
	occs, err := NewGenerator().Generate(Spec{
		Cadence:    CadenceBiWeekly,
		Start:      date(2024, 1, 1),
		CycleCount: 3,
		Total:      usd(300),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Time{date(2024, 1, 1), date(2024, 1, 15), date(2024, 1, 29)}
	for i, o := range occs {
		if !o.Date.Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %s, got %s", i, want[i], o.Date)
		}
	}
}

func TestGenerate_MonthlyClampsMonthEnd(t *testing.T) {
	occs, err := NewGenerator().Generate(Spec{
		Cadence:    CadenceMonthly,
		Start:      date(2024, 1, 31),
		CycleCount: 4,
		Total:      usd(400),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2024 is a leap year: Jan 31 -> Feb 29 -> Mar 31 -> Apr 30.
	want := []time.Time{
		date(2024, 1, 31), date(2024, 2, 29), date(2024, 3, 31), date(2024, 4, 30),
	}
	for i, o := range occs {
		if !o.Date.Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %s, got %s", i, want[i], o.Date)
		}
	}
}

func TestGenerate_AmountSplitIsExact(t *testing.T) {
	occs, err := NewGenerator().Generate(Spec{
		Cadence:    CadenceWeekly,
		Start:      date(2024, 1, 1),
		CycleCount: 3,
		Total:      usd(1000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := int64(0)
	for _, o := range occs {
		sum += o.Amount.Minor
	}
	if sum != 1000 {
		t.Fatalf("expected occurrence amounts to sum to 1000, got %d", sum)
	}
	// Even split with the remainder on the last occurrence.
	if occs[0].Amount.Minor != 333 || occs[1].Amount.Minor != 333 || occs[2].Amount.Minor != 334 {
		t.Fatalf("unexpected split: %d/%d/%d",
			occs[0].Amount.Minor, occs[1].Amount.Minor, occs[2].Amount.Minor)
	}
}

func TestGenerate_CustomDatesSortedAndStrict(t *testing.T) {
	occs, err := NewGenerator().Generate(Spec{
		Cadence: CadenceCustom,
		Total:   usd(900),
		CustomDates: []time.Time{
			date(2024, 3, 1), date(2024, 1, 15), date(2024, 2, 1),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Time{date(2024, 1, 15), date(2024, 2, 1), date(2024, 3, 1)}
	for i, o := range occs {
		if !o.Date.Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %s, got %s", i, want[i], o.Date)
		}
	}

	_, err = NewGenerator().Generate(Spec{
		Cadence:     CadenceCustom,
		Total:       usd(900),
		CustomDates: []time.Time{date(2024, 1, 15), date(2024, 1, 15)},
	})
	var ve allocation.ValidationError
	if !errors.As(err, &ve) || ve.Code != "SCHEDULE_DATES_DUPLICATE" {
		t.Fatalf("expected duplicate-dates error, got %v", err)
	}
}

func TestGenerate_ValidationFailures(t *testing.T) {
	g := NewGenerator()

	cases := map[string]struct {
		spec Spec
		code string
	}{
		"zero total": {
			spec: Spec{Cadence: CadenceWeekly, Start: date(2024, 1, 1), CycleCount: 2, Total: usd(0)},
			code: "SCHEDULE_TOTAL_INVALID",
		},
		"missing start": {
			spec: Spec{Cadence: CadenceMonthly, CycleCount: 2, Total: usd(100)},
			code: "SCHEDULE_START_MISSING",
		},
		"cycle count below one": {
			spec: Spec{Cadence: CadenceWeekly, Start: date(2024, 1, 1), CycleCount: 0, Total: usd(100)},
			code: "SCHEDULE_CYCLES_INVALID",
		},
		"custom without dates": {
			spec: Spec{Cadence: CadenceCustom, Total: usd(100)},
			code: "SCHEDULE_DATES_EMPTY",
		},
	}

	for name, tc := range cases {
		_, err := g.Generate(tc.spec)
		var ve allocation.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", name, err)
		}
		if ve.Code != tc.code {
			t.Fatalf("%s: expected code %s, got %s", name, tc.code, ve.Code)
		}
	}
}

func TestCycleCount_Monthly(t *testing.T) {
	n, err := CycleCount(CadenceMonthly, date(2024, 1, 15), date(2024, 4, 15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 cycles, got %d", n)
	}
}

func TestCycleCount_WeeklyAndBiWeekly(t *testing.T) {
	n, err := CycleCount(CadenceWeekly, date(2024, 1, 1), date(2024, 1, 22))
	if err != nil || n != 4 {
		t.Fatalf("weekly: expected 4, got %d (%v)", n, err)
	}
	// A partial extra week does not add a cycle.
	n, err = CycleCount(CadenceWeekly, date(2024, 1, 1), date(2024, 1, 26))
	if err != nil || n != 4 {
		t.Fatalf("weekly partial: expected 4, got %d (%v)", n, err)
	}
	n, err = CycleCount(CadenceBiWeekly, date(2024, 1, 1), date(2024, 1, 29))
	if err != nil || n != 3 {
		t.Fatalf("biweekly: expected 3, got %d (%v)", n, err)
	}
}

func TestCycleCount_EndBeforeStartIsOne(t *testing.T) {
	n, err := CycleCount(CadenceMonthly, date(2024, 5, 1), date(2024, 3, 1))
	if err != nil || n != 1 {
		t.Fatalf("expected 1, got %d (%v)", n, err)
	}
	n, err = CycleCount(CadenceWeekly, date(2024, 5, 1), date(2024, 5, 1))
	if err != nil || n != 1 {
		t.Fatalf("same day: expected 1, got %d (%v)", n, err)
	}
}

func TestCycleCount_CustomIsRejected(t *testing.T) {
	_, err := CycleCount(CadenceCustom, date(2024, 1, 1), date(2024, 2, 1))
	var ve allocation.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestEndDate_OneDayAfterLatestOccurrence(t *testing.T) {
	occs := []Occurrence{
		{Sequence: 0, Date: date(2024, 1, 1)},
		{Sequence: 1, Date: date(2024, 2, 1)},
	}
	if got := EndDate(occs); !got.Equal(date(2024, 2, 2)) {
		t.Fatalf("expected 2024-02-02, got %s", got)
	}
	if !EndDate(nil).IsZero() {
		t.Fatalf("expected zero time for empty schedule")
	}
}

func TestGenerator_ClockIsolation(t *testing.T) {
	g := fixedGenerator(date(2024, 6, 15))
	if !g.Today().Equal(date(2024, 6, 15)) {
		t.Fatalf("expected injected today, got %s", g.Today())
	}
	if !g.IsUpcoming(Occurrence{Date: date(2024, 6, 16)}) {
		t.Fatalf("tomorrow should be upcoming")
	}
	if g.IsUpcoming(Occurrence{Date: date(2024, 6, 15)}) {
		t.Fatalf("today should not be upcoming")
	}
}

func TestParseCadence(t *testing.T) {
	if _, err := ParseCadence("weekly"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseCadence("yearly"); err == nil {
		t.Fatalf("expected error for unknown cadence")
	}
}
