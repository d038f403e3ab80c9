package allocation

import (
	"errors"
	"testing"

	"billingconsole/internal/money"
)

func TestAllocate_Conservation(t *testing.T) {
	targets := []Target{
		{ID: "a", Kind: KindFailed, Remaining: usd(3101), SortDate: date(2024, 1, 5)},
		{ID: "b", Kind: KindDraft, Remaining: usd(999), SortDate: date(2024, 2, 1)},
		{ID: "c", Kind: KindOutstanding, Remaining: usd(457)},
	}

	for _, total := range []int64{0, 1, 3100, 3101, 4557, 9000} {
		res := Allocate(usd(total), targets)
		sum := int64(0)
		for _, l := range res.Lines {
			sum += l.Applied.Minor
		}
		if sum+res.Leftover.Minor != total {
			t.Fatalf("total %d: applied %d + leftover %d != total", total, sum, res.Leftover.Minor)
		}
	}
}

func TestAllocate_NeverOvershoots(t *testing.T) {
	targets := []Target{
		{ID: "a", Kind: KindFailed, Remaining: usd(500)},
		{ID: "b", Kind: KindDraft, Remaining: usd(200)},
	}

	res := Allocate(usd(100000), targets)
	for _, l := range res.Lines {
		var limit int64
		for _, tg := range targets {
			if tg.ID == l.TargetID {
				limit = tg.Remaining.Minor
			}
		}
		if l.Applied.Minor > limit {
			t.Fatalf("target %s applied %d exceeds remaining %d", l.TargetID, l.Applied.Minor, limit)
		}
		if l.RemainingAfter.Minor != limit-l.Applied.Minor {
			t.Fatalf("target %s remaining-after mismatch", l.TargetID)
		}
	}
	if res.Leftover.Minor != 100000-700 {
		t.Fatalf("expected leftover %d, got %d", 100000-700, res.Leftover.Minor)
	}
}

func TestAllocate_FailedStarvesDraft(t *testing.T) {
	targets := []Target{
		{ID: "draft", Kind: KindDraft, Remaining: usd(1000), SortDate: date(2024, 1, 1)},
		{ID: "failed", Kind: KindFailed, Remaining: usd(3000), SortDate: date(2024, 5, 1)},
	}

	// Total smaller than the failed target's remaining: the draft gets nothing.
	res := Allocate(usd(2000), targets)
	for _, l := range res.Lines {
		switch l.TargetID {
		case "failed":
			if l.Applied.Minor != 2000 {
				t.Fatalf("failed target: expected 2000, got %d", l.Applied.Minor)
			}
		case "draft":
			if l.Applied.Minor != 0 {
				t.Fatalf("draft target: expected 0, got %d", l.Applied.Minor)
			}
		}
	}
}

func TestAllocate_MixedPriorityScenario(t *testing.T) {
	targets := []Target{
		{ID: "failed-a", Kind: KindFailed, Remaining: usd(3000), SortDate: date(2024, 1, 1)},
		{ID: "failed-b", Kind: KindFailed, Remaining: usd(4000), SortDate: date(2024, 2, 1)},
		{ID: "outstanding", Kind: KindOutstanding, Remaining: usd(2000)},
		{ID: "draft-c", Kind: KindDraft, Remaining: usd(1000), SortDate: date(2024, 3, 1)},
	}

	res := Allocate(usd(10000), targets)

	want := map[string][2]int64{
		"failed-a":    {3000, 0},
		"failed-b":    {4000, 0},
		"outstanding": {2000, 0},
		"draft-c":     {1000, 0},
	}
	for _, l := range res.Lines {
		w := want[l.TargetID]
		if l.Applied.Minor != w[0] || l.RemainingAfter.Minor != w[1] {
			t.Fatalf("%s: expected applied %d after %d, got %d/%d",
				l.TargetID, w[0], w[1], l.Applied.Minor, l.RemainingAfter.Minor)
		}
	}
	if res.Leftover.Minor != 0 {
		t.Fatalf("expected zero leftover, got %d", res.Leftover.Minor)
	}
}

func TestAllocate_LeftoverBecomesCredit(t *testing.T) {
	targets := []Target{
		{ID: "failed", Kind: KindFailed, Remaining: usd(1500)},
	}
	res := Allocate(usd(2000), targets)
	if res.Leftover.Minor != 500 {
		t.Fatalf("expected leftover 500, got %d", res.Leftover.Minor)
	}
	if res.Leftover.Currency != "USD" {
		t.Fatalf("leftover lost its currency")
	}
}

func TestAllocateSelection_StaleTarget(t *testing.T) {
	candidates := []Target{
		{ID: "still-here", Kind: KindFailed, Remaining: usd(100)},
	}
	_, err := AllocateSelection(usd(100), candidates, []string{"still-here", "vanished"})
	var ae AllocationError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AllocationError, got %v", err)
	}
	if ae.Code != "STALE_TARGET" || ae.TargetID != "vanished" {
		t.Fatalf("unexpected error detail: %+v", ae)
	}
}

func TestAllocateSelection_NonPositiveAmount(t *testing.T) {
	_, err := AllocateSelection(usd(0), nil, nil)
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Code != "NON_POSITIVE_AMOUNT" {
		t.Fatalf("unexpected code %s", ve.Code)
	}
}

func newTestEngine(t *testing.T, candidates []Target) *Engine {
	t.Helper()
	e, err := NewEngine(candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func TestEngine_StartsSelectionDrivenAndEmpty(t *testing.T) {
	e := newTestEngine(t, []Target{{ID: "a", Kind: KindFailed, Remaining: usd(100)}})
	if e.Mode() != ModeSelectionDriven {
		t.Fatalf("expected selection mode, got %s", e.Mode())
	}
	if e.Amount().Minor != 0 || len(e.SelectedIDs()) != 0 {
		t.Fatalf("expected empty initial state")
	}
}

func TestEngine_SelectionDrivesAmount(t *testing.T) {
	e := newTestEngine(t, []Target{
		{ID: "a", Kind: KindFailed, Remaining: usd(3000)},
		{ID: "b", Kind: KindDraft, Remaining: usd(1000)},
	})

	if err := e.Select("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Select("b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Amount().Minor != 4000 {
		t.Fatalf("expected derived amount 4000, got %d", e.Amount().Minor)
	}

	if err := e.Deselect("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Amount().Minor != 1000 {
		t.Fatalf("expected derived amount 1000, got %d", e.Amount().Minor)
	}

	if err := e.Deselect("b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Mode() != ModeSelectionDriven || e.Amount().Minor != 0 {
		t.Fatalf("empty selection should reset the engine")
	}
}

func TestEngine_SelectUnknownTargetIsStale(t *testing.T) {
	e := newTestEngine(t, []Target{{ID: "a", Kind: KindFailed, Remaining: usd(100)}})
	var ae AllocationError
	if err := e.Select("gone"); !errors.As(err, &ae) {
		t.Fatalf("expected AllocationError, got %v", err)
	}
}

func TestEngine_AmountDrivenAutoSelection(t *testing.T) {
	// setAmount(3500) against failed A (3000) and failed B (4000), no outstanding:
	// A is claimed fully, and B is selected too because positive budget remains,
	// even though 500 does not cover B in full.
	e := newTestEngine(t, []Target{
		{ID: "failed-a", Kind: KindFailed, Remaining: usd(3000), SortDate: date(2024, 1, 1)},
		{ID: "failed-b", Kind: KindFailed, Remaining: usd(4000), SortDate: date(2024, 2, 1)},
	})

	if err := e.SetAmount(usd(3500)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Mode() != ModeAmountDriven {
		t.Fatalf("expected amount mode, got %s", e.Mode())
	}
	if !e.IsSelected("failed-a") || !e.IsSelected("failed-b") {
		t.Fatalf("expected both failed targets selected, got %v", e.SelectedIDs())
	}

	res, err := e.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byID := map[string]Line{}
	for _, l := range res.Lines {
		byID[l.TargetID] = l
	}
	if byID["failed-a"].Applied.Minor != 3000 {
		t.Fatalf("failed-a: expected 3000, got %d", byID["failed-a"].Applied.Minor)
	}
	if byID["failed-b"].Applied.Minor != 500 || byID["failed-b"].RemainingAfter.Minor != 3500 {
		t.Fatalf("failed-b: expected 500 applied / 3500 after, got %d/%d",
			byID["failed-b"].Applied.Minor, byID["failed-b"].RemainingAfter.Minor)
	}
	if res.Leftover.Minor != 0 {
		t.Fatalf("expected zero leftover, got %d", res.Leftover.Minor)
	}
}

func TestEngine_AmountDrivenPicksUpOutstandingNotDrafts(t *testing.T) {
	e := newTestEngine(t, []Target{
		{ID: "failed", Kind: KindFailed, Remaining: usd(1000), SortDate: date(2024, 1, 1)},
		{ID: "outstanding", Kind: KindOutstanding, Remaining: usd(2000)},
		{ID: "draft", Kind: KindDraft, Remaining: usd(500), SortDate: date(2024, 2, 1)},
	})

	if err := e.SetAmount(usd(1500)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.IsSelected("failed") || !e.IsSelected("outstanding") {
		t.Fatalf("expected failed + outstanding selected, got %v", e.SelectedIDs())
	}
	if e.IsSelected("draft") {
		t.Fatalf("drafts must never be auto-selected by amount entry")
	}
}

func TestEngine_ClearingAmountRevertsToSelectionMode(t *testing.T) {
	e := newTestEngine(t, []Target{
		{ID: "failed", Kind: KindFailed, Remaining: usd(1000)},
	})
	if err := e.SetAmount(usd(700)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.SetAmount(usd(0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Mode() != ModeSelectionDriven || len(e.SelectedIDs()) != 0 || e.Amount().Minor != 0 {
		t.Fatalf("clearing the amount should fully reset the engine")
	}
}

func TestEngine_InteractableInAmountMode(t *testing.T) {
	e := newTestEngine(t, []Target{
		{ID: "failed", Kind: KindFailed, Remaining: usd(1000), SortDate: date(2024, 1, 1)},
		{ID: "draft", Kind: KindDraft, Remaining: usd(500), SortDate: date(2024, 2, 1)},
	})

	// 1500 covers the failed target with 500 left over: the draft can be added.
	if err := e.SetAmount(usd(1500)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Interactable("draft") {
		t.Fatalf("draft should be interactable while leftover credit remains")
	}
	if err := e.Select("draft"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 800 is fully consumed by the failed target: no room to add the draft.
	if err := e.SetAmount(usd(800)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Interactable("draft") {
		t.Fatalf("draft should not be interactable with no leftover")
	}
	var ve ValidationError
	if err := e.Select("draft"); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// Already-selected targets remain interactable (so they can be removed).
	if !e.Interactable("failed") {
		t.Fatalf("selected target must stay interactable")
	}
}

func TestEngine_DeselectingLastTargetInAmountModeResets(t *testing.T) {
	e := newTestEngine(t, []Target{
		{ID: "failed", Kind: KindFailed, Remaining: usd(1000)},
	})
	if err := e.SetAmount(usd(400)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Deselect("failed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Mode() != ModeSelectionDriven || e.Amount().Minor != 0 {
		t.Fatalf("expected reset to selection mode with zero amount")
	}
}

func TestEngine_AllocateRequiresPositiveAmount(t *testing.T) {
	e := newTestEngine(t, []Target{{ID: "a", Kind: KindFailed, Remaining: usd(100)}})
	var ve ValidationError
	if _, err := e.Allocate(); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestNewEngine_RejectsDuplicateAndMixedCurrency(t *testing.T) {
	_, err := NewEngine([]Target{
		{ID: "a", Kind: KindFailed, Remaining: usd(100)},
		{ID: "a", Kind: KindDraft, Remaining: usd(200)},
	})
	if err == nil {
		t.Fatalf("expected duplicate id error")
	}

	_, err = NewEngine([]Target{
		{ID: "a", Kind: KindFailed, Remaining: usd(100)},
		{ID: "b", Kind: KindDraft, Remaining: money.New(200, "EUR")},
	})
	if err == nil {
		t.Fatalf("expected currency mismatch error")
	}
}
