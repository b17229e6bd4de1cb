// Package marketplace holds the per-session application state of the
// certificate marketplace and the reducer that applies user actions to it.
// Nothing in this package performs I/O; services drive the side effects
// (evaluation calls, catalog queries) and dispatch the outcome back in.
package marketplace

import (
	"errors"

	"ecoxchange/models"
)

// ViewMode selects which panel is shown to a signed-in user.
type ViewMode string

const (
	ViewSeller ViewMode = "seller"
	ViewBuyer  ViewMode = "buyer"
)

// ParseViewMode validates a view mode coming from a request.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case ViewSeller, ViewBuyer:
		return ViewMode(s), nil
	}
	return "", ErrUnknownView
}

// Label is the text on the view toggle.
func (v ViewMode) Label() string {
	if v == ViewBuyer {
		return "Buyer View"
	}
	return "Seller View"
}

// UploadPhase tracks the seller upload flow.
type UploadPhase string

const (
	PhaseIdle         UploadPhase = "idle"
	PhaseFileSelected UploadPhase = "file_selected"
	PhaseSubmitting   UploadPhase = "submitting"
	PhaseEvaluated    UploadPhase = "evaluated"
	PhaseFailed       UploadPhase = "failed"
)

// User-facing messages for the two error conditions of the upload flow.
const (
	MsgNoFileSelected = "Please select a file to upload."
	MsgUploadFailed   = "An error occurred while uploading the document. Please try again."
)

var (
	ErrNotSignedIn        = errors.New("marketplace: not signed in")
	ErrNoFileSelected     = errors.New("marketplace: no file selected")
	ErrSubmissionInFlight = errors.New("marketplace: submission already in progress")
	ErrNotSubmitting      = errors.New("marketplace: no submission in progress")
	ErrUnknownView        = errors.New("marketplace: unknown view mode")
	ErrUnknownAction      = errors.New("marketplace: unknown action")
)

// State is everything one user's marketplace view knows about.
type State struct {
	SignedIn    bool                     `json:"signedIn"`
	View        ViewMode                 `json:"view"`
	Balance     models.Money             `json:"balance"`
	PendingFile *models.PendingFile      `json:"pendingFile,omitempty"`
	Upload      UploadPhase              `json:"upload"`
	Evaluation  *models.EvaluationResult `json:"evaluation,omitempty"`
	Error       string                   `json:"error,omitempty"`
	SearchQuery string                   `json:"searchQuery,omitempty"`
	LastResults []models.Listing         `json:"lastResults,omitempty"`
}

// New returns the state of a fresh, signed-out session.
func New(startingBalance models.Money) State {
	return State{
		View:    ViewSeller,
		Balance: startingBalance,
		Upload:  PhaseIdle,
	}
}

// Submitting reports whether an evaluation request is outstanding.
func (s State) Submitting() bool {
	return s.Upload == PhaseSubmitting
}

// Gauge returns the balance as a percentage of full, clamped to [0, 100].
func (s State) Gauge(full models.Money) float64 {
	if full <= 0 {
		return 0
	}
	pct := float64(s.Balance) / float64(full) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
