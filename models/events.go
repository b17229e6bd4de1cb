package models

import "time"

// Market event types published to live clients and the event stream.
const (
	EventSignedIn        = "signed_in"
	EventPayoutCredited  = "payout_credited"
	EventPurchaseDebited = "purchase_debited"
	EventUploadFailed    = "upload_failed"
	EventStateChanged    = "state_changed"
)

// MarketEvent describes something that happened to a session's marketplace state.
type MarketEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Amount    Money     `json:"amount,omitempty"`
	Balance   Money     `json:"balance"`
	Reference string    `json:"reference,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
