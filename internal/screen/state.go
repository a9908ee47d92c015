// Package screen models the account-detail screen as explicit state. All
// transitions go through Reduce: it takes the current state and one event
// and returns the next state plus the effects to perform. Nothing in here
// performs I/O; the caller executes the effects and feeds their outcomes
// back in as events.
package screen

import (
	"ledgerview/internal/core"
)

// State is the complete displayed state of one account-detail screen.
// Generation stamps the currently wanted aggregation run; a completion
// event carrying any other generation belongs to a superseded run and is
// ignored.
type State struct {
	AccountID string
	StartDate core.Date
	EndDate   core.Date
	Dimension core.Dimension
	Page      int

	Generation uint64
	Loading    bool
	Breakdown  core.BreakdownSummary
	// ErrMessage is the single user-visible failure message; non-empty
	// only when the last settled run failed. Partial data is never shown
	// next to it.
	ErrMessage string
}

// NewState returns the initial state for an account, before any fetch.
func NewState(accountID string) State {
	return State{
		AccountID: accountID,
		Dimension: core.DimensionTargetAccount,
	}
}

// Event is something that happened to the screen: user input or the
// settled outcome of a previously requested effect.
type Event interface{ isEvent() }

type (
	// DateRangeChanged replaces the screen's date filter.
	DateRangeChanged struct {
		StartDate core.Date
		EndDate   core.Date
	}

	// DimensionChanged switches the breakdown between target-account and
	// category keying.
	DimensionChanged struct {
		Dimension core.Dimension
	}

	// PageChanged moves the transaction-list page index. It does not
	// touch the breakdown, which aggregates over the whole filter range.
	PageChanged struct {
		Page int
	}

	// RefreshRequested asks for the current filter's data again.
	RefreshRequested struct{}

	// BreakdownLoaded reports a run's successful completion.
	BreakdownLoaded struct {
		Generation uint64
		Summary    core.BreakdownSummary
	}

	// BreakdownFailed reports a run's failure.
	BreakdownFailed struct {
		Generation uint64
		ErrMessage string
	}
)

func (DateRangeChanged) isEvent() {}
func (DimensionChanged) isEvent() {}
func (PageChanged) isEvent()      {}
func (RefreshRequested) isEvent() {}
func (BreakdownLoaded) isEvent()  {}
func (BreakdownFailed) isEvent()  {}

// Effect is an instruction to the caller. Effects carry the generation
// that requested them so their completion events can be matched back.
type Effect interface{ isEffect() }

type (
	// FetchBreakdown asks the caller to run a breakdown aggregation for
	// the given filter and report back with BreakdownLoaded/Failed.
	FetchBreakdown struct {
		Generation uint64
		AccountID  string
		StartDate  core.Date
		EndDate    core.Date
		Dimension  core.Dimension
	}

	// FetchTransactionPage asks for one page of the transaction list.
	FetchTransactionPage struct {
		Generation uint64
		AccountID  string
		StartDate  core.Date
		EndDate    core.Date
		Page       int
	}
)

func (FetchBreakdown) isEffect()       {}
func (FetchTransactionPage) isEffect() {}

// Reduce applies one event. It is a pure function: same state and event,
// same outputs.
func Reduce(s State, e Event) (State, []Effect) {
	switch ev := e.(type) {
	case DateRangeChanged:
		s.StartDate = ev.StartDate
		s.EndDate = ev.EndDate
		s.Page = 0
		return s.startRun()

	case DimensionChanged:
		if !ev.Dimension.Valid() || ev.Dimension == s.Dimension {
			return s, nil
		}
		s.Dimension = ev.Dimension
		return s.startRun()

	case PageChanged:
		if ev.Page < 0 || ev.Page == s.Page {
			return s, nil
		}
		s.Page = ev.Page
		// Only the list page moves; the breakdown stays as displayed.
		return s, []Effect{FetchTransactionPage{
			Generation: s.Generation,
			AccountID:  s.AccountID,
			StartDate:  s.StartDate,
			EndDate:    s.EndDate,
			Page:       s.Page,
		}}

	case RefreshRequested:
		return s.startRun()

	case BreakdownLoaded:
		if ev.Generation != s.Generation {
			// A newer run owns the display; drop this late completion.
			return s, nil
		}
		s.Loading = false
		s.Breakdown = ev.Summary
		s.ErrMessage = ""
		return s, nil

	case BreakdownFailed:
		if ev.Generation != s.Generation {
			return s, nil
		}
		s.Loading = false
		s.Breakdown = core.BreakdownSummary{}
		s.ErrMessage = ev.ErrMessage
		return s, nil
	}

	return s, nil
}

// startRun bumps the generation, which supersedes any run still in
// flight, and emits the fetches for the current filter.
func (s State) startRun() (State, []Effect) {
	s.Generation++
	s.Loading = true
	s.ErrMessage = ""
	return s, []Effect{
		FetchBreakdown{
			Generation: s.Generation,
			AccountID:  s.AccountID,
			StartDate:  s.StartDate,
			EndDate:    s.EndDate,
			Dimension:  s.Dimension,
		},
		FetchTransactionPage{
			Generation: s.Generation,
			AccountID:  s.AccountID,
			StartDate:  s.StartDate,
			EndDate:    s.EndDate,
			Page:       s.Page,
		},
	}
}
