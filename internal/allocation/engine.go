package allocation

import (
	"billingconsole/internal/money"
)

// Mode is the interaction mode of the engine. In SelectionDriven mode the
// operator picks targets and the amount is derived from the selection; in
// AmountDriven mode the operator types an amount and the selection is derived
// from it.
type Mode string

const (
	ModeSelectionDriven Mode = "selection"
	ModeAmountDriven    Mode = "amount"
)

// Line records one target's share of an allocation.
type Line struct {
	TargetID       string
	Applied        money.Amount
	RemainingAfter money.Amount
}

// Result is a full allocation: applied amounts per target in payment priority
// order, plus the unabsorbed leftover recorded as account credit.
type Result struct {
	Lines    []Line
	Leftover money.Amount
}

// Allocate splits total across targets in priority order. Each target receives
// min(remaining budget, target remaining); whatever the targets cannot absorb
// is returned as leftover credit. Pure and total: every input yields a result,
// and sum(applied) + leftover == total exactly, in minor units.
func Allocate(total money.Amount, targets []Target) Result {
	ordered := SortTargets(targets)
	budget := total.Minor
	lines := make([]Line, 0, len(ordered))
	for _, t := range ordered {
		applied := budget
		if t.Remaining.Minor < applied {
			applied = t.Remaining.Minor
		}
		if applied < 0 {
			applied = 0
		}
		lines = append(lines, Line{
			TargetID:       t.ID,
			Applied:        money.New(applied, t.Remaining.Currency),
			RemainingAfter: money.New(t.Remaining.Minor-applied, t.Remaining.Currency),
		})
		budget -= applied
	}
	return Result{Lines: lines, Leftover: money.New(budget, total.Currency)}
}

// AllocateSelection is the submission entry point. The caller re-fetches the
// candidate set just before submitting, so a selected ID that is missing from
// candidates means external data changed underneath the operator: the whole
// operation is refused with an AllocationError and must be re-run.
func AllocateSelection(total money.Amount, candidates []Target, selectedIDs []string) (Result, error) {
	if !total.IsPositive() {
		return Result{}, ValidationError{Code: "NON_POSITIVE_AMOUNT", Message: "total payment amount must be > 0"}
	}
	byID := make(map[string]Target, len(candidates))
	for _, t := range candidates {
		byID[t.ID] = t
	}
	targets := make([]Target, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		t, ok := byID[id]
		if !ok {
			return Result{}, AllocationError{Code: "STALE_TARGET", Message: "selected target is no longer payable", TargetID: id}
		}
		targets = append(targets, t)
	}
	return Allocate(total, targets), nil
}

// Engine holds the payment-composition state for one customer: the candidate
// set, the selection, and the interaction mode. Instances are cheap and never
// shared across operations; callers construct a fresh engine from the current
// candidates on every composition.
type Engine struct {
	candidates []Target
	index      map[string]int
	selected   map[string]bool
	mode       Mode
	amount     money.Amount
}

func NewEngine(candidates []Target) (*Engine, error) {
	amounts := make([]money.Amount, 0, len(candidates))
	index := make(map[string]int, len(candidates))
	for i, t := range candidates {
		if _, dup := index[t.ID]; dup {
			return nil, ValidationError{Code: "DUPLICATE_TARGET", Message: "duplicate target id " + t.ID}
		}
		index[t.ID] = i
		amounts = append(amounts, t.Remaining)
	}
	if !money.SameCurrency(amounts...) {
		return nil, ValidationError{Code: "CURRENCY_MISMATCH", Message: "targets must share one currency"}
	}
	return &Engine{
		candidates: append([]Target(nil), candidates...),
		index:      index,
		selected:   make(map[string]bool),
		mode:       ModeSelectionDriven,
		amount:     money.New(0, currencyOf(candidates)),
	}, nil
}

func currencyOf(targets []Target) string {
	for _, t := range targets {
		if t.Remaining.Currency != "" {
			return t.Remaining.Currency
		}
	}
	return ""
}

func (e *Engine) Mode() Mode           { return e.mode }
func (e *Engine) Amount() money.Amount { return e.amount }

func (e *Engine) IsSelected(id string) bool { return e.selected[id] }

// SelectedTargets returns the selected targets in candidate order; Allocate
// re-sorts them by payment priority.
func (e *Engine) SelectedTargets() []Target {
	out := make([]Target, 0, len(e.selected))
	for _, t := range e.candidates {
		if e.selected[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func (e *Engine) SelectedIDs() []string {
	targets := e.SelectedTargets()
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.ID
	}
	return out
}

// Interactable reports whether a target can be toggled right now. Everything is
// interactable in SelectionDriven mode. In AmountDriven mode only selected
// targets and, when leftover credit remains, unselected ones can be toggled: a
// fully-consumed amount-driven payment cannot pick up unbudgeted targets
// without increasing the amount first.
func (e *Engine) Interactable(id string) bool {
	if e.mode == ModeSelectionDriven {
		return true
	}
	if e.selected[id] {
		return true
	}
	return Allocate(e.amount, e.SelectedTargets()).Leftover.IsPositive()
}

// Select marks a target as in scope for the payment.
func (e *Engine) Select(id string) error {
	if _, ok := e.index[id]; !ok {
		return AllocationError{Code: "STALE_TARGET", Message: "target is not in the candidate set", TargetID: id}
	}
	if e.selected[id] {
		return nil
	}
	if e.mode == ModeAmountDriven && !e.Interactable(id) {
		return ValidationError{Code: "TARGET_NOT_INTERACTABLE", Message: "increase the payment amount to add this target"}
	}
	e.selected[id] = true
	e.afterToggle()
	return nil
}

func (e *Engine) Deselect(id string) error {
	if _, ok := e.index[id]; !ok {
		return AllocationError{Code: "STALE_TARGET", Message: "target is not in the candidate set", TargetID: id}
	}
	if !e.selected[id] {
		return nil
	}
	delete(e.selected, id)
	e.afterToggle()
	return nil
}

// afterToggle maintains the derived state. In SelectionDriven mode the amount
// tracks the selection sum; in AmountDriven mode the typed amount stands and
// toggling only widens or narrows what it can be applied to. An empty selection
// always resets to the initial state.
func (e *Engine) afterToggle() {
	if len(e.selected) == 0 {
		e.mode = ModeSelectionDriven
		e.amount = money.New(0, e.amount.Currency)
		return
	}
	if e.mode == ModeSelectionDriven {
		e.amount = e.selectionSum()
	}
}

func (e *Engine) selectionSum() money.Amount {
	sum := money.New(0, e.amount.Currency)
	for _, t := range e.SelectedTargets() {
		sum = sum.Add(t.Remaining)
	}
	return sum
}

// SetAmount drives the amount-entry transition. A positive amount switches to
// AmountDriven mode and re-derives the selection: failed targets are claimed
// greedily in priority order while budget remains (a target is selected even
// when the leftover budget no longer covers it in full; selection marks scope,
// not a precomputed share), then the outstanding balance if budget is still
// left. Drafts are never auto-selected. Clearing the amount reverts to
// SelectionDriven with an empty selection.
func (e *Engine) SetAmount(a money.Amount) error {
	if a.Currency != "" && e.amount.Currency != "" && a.Currency != e.amount.Currency {
		return ValidationError{Code: "CURRENCY_MISMATCH", Message: "amount currency does not match candidates"}
	}
	if !a.IsPositive() {
		e.mode = ModeSelectionDriven
		e.selected = make(map[string]bool)
		e.amount = money.New(0, e.amount.Currency)
		return nil
	}

	e.mode = ModeAmountDriven
	e.amount = money.New(a.Minor, e.amount.Currency)
	e.selected = make(map[string]bool)

	budget := a.Minor
	for _, t := range SortTargets(e.candidates) {
		if t.Kind != KindFailed {
			continue
		}
		if budget <= 0 {
			break
		}
		e.selected[t.ID] = true
		budget -= t.Remaining.Minor
	}
	if budget > 0 {
		for _, t := range SortTargets(e.candidates) {
			if t.Kind == KindOutstanding {
				e.selected[t.ID] = true
				break
			}
		}
	}
	return nil
}

// Allocate computes the allocation for the engine's current amount and
// selection. Only input validation can fail; the allocation itself is total.
func (e *Engine) Allocate() (Result, error) {
	if !e.amount.IsPositive() {
		return Result{}, ValidationError{Code: "NON_POSITIVE_AMOUNT", Message: "total payment amount must be > 0"}
	}
	return Allocate(e.amount, e.SelectedTargets()), nil
}
