package models

import "time"

// PendingFile is the document a seller selected but has not necessarily submitted.
type PendingFile struct {
	Name        string    `json:"name"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	Data        []byte    `json:"data,omitempty"`
	SelectedAt  time.Time `json:"selectedAt"`
}

// EvaluationResult is what the evaluation service returns for an uploaded certificate.
type EvaluationResult struct {
	CertificateType string `json:"type"`
	Payout          Money  `json:"payout"`
}
