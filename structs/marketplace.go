package structs

import (
	"time"

	"ecoxchange/internal/marketplace"
	"ecoxchange/models"
)

type SetViewRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type PurchaseRequest struct {
	ListingID string `json:"listingId" binding:"required"`
}

type SignInResponse struct {
	Token     string        `json:"token"`
	SessionID string        `json:"sessionId"`
	ExpiresAt time.Time     `json:"expiresAt"`
	State     StateResponse `json:"state"`
}

type PendingFileView struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

type EvaluationView struct {
	Type          string       `json:"type"`
	Payout        models.Money `json:"payout"`
	PayoutDisplay string       `json:"payoutDisplay"`
}

// StateResponse is a session's state shaped for rendering the marketplace view.
type StateResponse struct {
	SignedIn       bool             `json:"signedIn"`
	View           string           `json:"view"`
	ViewLabel      string           `json:"viewLabel"`
	Balance        models.Money     `json:"balance"`
	BalanceDisplay string           `json:"balanceDisplay"`
	BalanceGauge   float64          `json:"balanceGauge"`
	UploadPhase    string           `json:"uploadPhase"`
	Uploading      bool             `json:"uploading"`
	PendingFile    *PendingFileView `json:"pendingFile,omitempty"`
	Evaluation     *EvaluationView  `json:"evaluation,omitempty"`
	Error          string           `json:"error,omitempty"`
	SearchQuery    string           `json:"searchQuery"`
	Listings       []models.Listing `json:"listings"`
	LastResults    []models.Listing `json:"lastResults"`
}

// NewStateResponse renders s. gaugeFull is the balance that fills the gauge.
func NewStateResponse(s marketplace.State, listings []models.Listing, gaugeFull models.Money) StateResponse {
	resp := StateResponse{
		SignedIn:       s.SignedIn,
		View:           string(s.View),
		ViewLabel:      s.View.Label(),
		Balance:        s.Balance,
		BalanceDisplay: s.Balance.String(),
		BalanceGauge:   s.Gauge(gaugeFull),
		UploadPhase:    string(s.Upload),
		Uploading:      s.Submitting(),
		Error:          s.Error,
		SearchQuery:    s.SearchQuery,
		Listings:       listings,
		LastResults:    s.LastResults,
	}
	if resp.Listings == nil {
		resp.Listings = []models.Listing{}
	}
	if resp.LastResults == nil {
		resp.LastResults = []models.Listing{}
	}
	if f := s.PendingFile; f != nil {
		resp.PendingFile = &PendingFileView{Name: f.Name, Size: f.Size, ContentType: f.ContentType}
	}
	if e := s.Evaluation; e != nil {
		resp.Evaluation = &EvaluationView{Type: e.CertificateType, Payout: e.Payout, PayoutDisplay: e.Payout.String()}
	}
	return resp
}

type SearchResponse struct {
	Query   string           `json:"query"`
	Results []models.Listing `json:"results"`
	State   StateResponse    `json:"state"`
}

type PurchaseResponse struct {
	Listing models.Listing `json:"listing"`
	State   StateResponse  `json:"state"`
}

type TransactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

// StateMessage is pushed to websocket clients after every state change.
type StateMessage struct {
	Type  string        `json:"type"`
	State StateResponse `json:"state"`
}
