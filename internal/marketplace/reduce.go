package marketplace

import (
	"fmt"
	"slices"
)

// Reduce applies a to s. On error the returned state is the one the caller
// should keep: usually s unchanged, except that a submit without a file
// records the validation message.
func Reduce(s State, a Action) (State, error) {
	if _, ok := a.(SignIn); !ok && !s.SignedIn {
		return s, ErrNotSignedIn
	}

	switch act := a.(type) {
	case SignIn:
		s.SignedIn = true
		return s, nil

	case SetView:
		if _, err := ParseViewMode(string(act.Mode)); err != nil {
			return s, err
		}
		s.View = act.Mode
		return s, nil

	case ToggleView:
		if s.View == ViewBuyer {
			s.View = ViewSeller
		} else {
			s.View = ViewBuyer
		}
		return s, nil

	case SelectFile:
		if s.Submitting() {
			return s, ErrSubmissionInFlight
		}
		f := act.File
		s.PendingFile = &f
		s.Upload = PhaseFileSelected
		s.Error = ""
		return s, nil

	case BeginSubmit:
		if s.Submitting() {
			return s, ErrSubmissionInFlight
		}
		if s.PendingFile == nil {
			s.Error = MsgNoFileSelected
			return s, ErrNoFileSelected
		}
		s.Upload = PhaseSubmitting
		s.Error = ""
		return s, nil

	case CompleteSubmit:
		if !s.Submitting() {
			return s, ErrNotSubmitting
		}
		result := act.Result
		s.Evaluation = &result
		s.Balance += result.Payout
		s.Upload = PhaseEvaluated
		return s, nil

	case FailSubmit:
		if !s.Submitting() {
			return s, ErrNotSubmitting
		}
		s.Upload = PhaseFailed
		s.Error = MsgUploadFailed
		return s, nil

	case Search:
		s.SearchQuery = act.Query
		s.LastResults = slices.Clone(act.Results)
		return s, nil

	case Purchase:
		s.Balance -= act.Listing.Price
		return s, nil
	}

	return s, fmt.Errorf("%w: %T", ErrUnknownAction, a)
}
