package services

import (
	"path/filepath"
	"strings"

	"ecoxchange/models"
)

// certificateRates maps a filename keyword to the certificate type and
// payout the development evaluator reports for it. Order matters: the
// first keyword found in the filename wins.
var certificateRates = []struct {
	keyword string
	kind    string
	payout  models.Money
}{
	{"solar", "Solar REC", 4550},
	{"wind", "Wind REC", 3800},
	{"hydro", "Hydro REC", 3000},
	{"geo", "Geothermal REC", 2500},
	{"bio", "Biomass REC", 2000},
}

// ClassifyDocument is the development evaluator's stand-in for real
// certificate review: it guesses the certificate type from the filename
// and returns that type's fixed payout.
func ClassifyDocument(filename string) models.EvaluationResult {
	name := strings.ToLower(filepath.Base(filename))
	for _, r := range certificateRates {
		if strings.Contains(name, r.keyword) {
			return models.EvaluationResult{CertificateType: r.kind, Payout: r.payout}
		}
	}
	return models.EvaluationResult{CertificateType: "Unclassified REC", Payout: 1000}
}
