package marketplace

import "ecoxchange/models"

// Action is a user-level event applied to State by Reduce.
type Action interface {
	Name() string
}

type SignIn struct{}

type SetView struct{ Mode ViewMode }

type ToggleView struct{}

type SelectFile struct{ File models.PendingFile }

// BeginSubmit moves a selected file into the submitting phase.
type BeginSubmit struct{}

// CompleteSubmit applies a successful evaluation and credits its payout.
type CompleteSubmit struct{ Result models.EvaluationResult }

// FailSubmit records a failed evaluation without touching the balance.
type FailSubmit struct{}

// Search records a query and the listings the catalog returned for it.
type Search struct {
	Query   string
	Results []models.Listing
}

// Purchase debits the listing price.
type Purchase struct{ Listing models.Listing }

func (SignIn) Name() string         { return "sign_in" }
func (SetView) Name() string        { return "set_view" }
func (ToggleView) Name() string     { return "toggle_view" }
func (SelectFile) Name() string     { return "select_file" }
func (BeginSubmit) Name() string    { return "begin_submit" }
func (CompleteSubmit) Name() string { return "complete_submit" }
func (FailSubmit) Name() string     { return "fail_submit" }
func (Search) Name() string         { return "search" }
func (Purchase) Name() string       { return "purchase" }
