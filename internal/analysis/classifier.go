// Package analysis composes the evidence extraction outputs into structured
// incident results: incident details, narrative summary, contradiction
// verdict, and priority classification.
package analysis

import (
	"encoding/json"
	"sort"

	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
	"github.com/turtacn/CyberTrace-Intelligence/pkg/types/common"
)

// Crime categories determine which signal drives the score.
const (
	categoryFinancial = "Financial"
	categoryVolume    = "Volume"
	categorySeverity  = "Severity"
	categoryHybrid    = "Hybrid"
)

var crimeCategories = map[string]string{
	"financial_fraud":          categoryFinancial,
	"spam":                     categoryVolume,
	"phishing":                 categoryVolume,
	"smishing":                 categoryVolume,
	"data_breach":              categoryHybrid,
	"ransomware":               categoryHybrid,
	"cyber_terrorism":          categorySeverity,
	"national_security_threat": categorySeverity,
	"threat_to_life":           categorySeverity,
	"online_shopping_fraud":    categoryFinancial,
	"credit_debit_card_fraud":  categoryFinancial,
	"upi_fraud":                categoryFinancial,
	"investment_scam":          categoryFinancial,
	"corporate_espionage":      categoryHybrid,
}

// crimeSeverityWeights weight each crime type when averaging mixed incidents.
var crimeSeverityWeights = map[string]float64{
	"spam":                     2,
	"phishing":                 4,
	"smishing":                 4,
	"online_shopping_fraud":    5,
	"upi_fraud":                5,
	"financial_fraud":          5,
	"credit_debit_card_fraud":  6,
	"investment_scam":          7,
	"corporate_espionage":      8,
	"data_breach":              8,
	"ransomware":               9,
	"threat_to_life":           10,
	"cyber_terrorism":          10,
	"national_security_threat": 10,
}

const defaultSeverityWeight = 3

type threshold struct {
	limit float64
	score float64
}

// Loss in INR and headcount bands.  A value at or below the limit takes the
// band's score; anything beyond the last finite limit takes 5.
var (
	financialThresholds = []threshold{
		{500, 1}, {5000, 2}, {25000, 3}, {100000, 4},
	}
	volumeThresholds = []threshold{
		{1, 1}, {50, 2}, {1000, 3}, {50000, 4},
	}
)

func scoreFromThresholds(value float64, bands []threshold) float64 {
	for _, b := range bands {
		if value <= b.limit {
			return b.score
		}
	}
	return 5
}

// ClassificationResult is the priority verdict for one incident.
type ClassificationResult struct {
	Priority string  `json:"priority"`
	Score    float64 `json:"score"`
}

// classificationInput is the subset of IncidentDetails the classifier reads.
// IncidentDetails is otherwise opaque; unknown fields are ignored.
type classificationInput struct {
	CrimeTypes       []string
	FinancialLossINR float64
	VictimsAffected  float64
	IsOngoing        bool
}

func parseClassificationInput(details json.RawMessage) (classificationInput, error) {
	var raw struct {
		CrimeType        json.RawMessage `json:"crime_type"`
		FinancialLossINR *float64        `json:"financial_loss_inr"`
		VictimsAffected  *float64        `json:"victims_affected"`
		IsOngoing        bool            `json:"is_ongoing"`
	}
	if err := json.Unmarshal(details, &raw); err != nil {
		return classificationInput{}, apperrors.Wrap(err, apperrors.ErrCodeClassificationFailed,
			"incident details are not a JSON object")
	}

	in := classificationInput{VictimsAffected: 1, IsOngoing: raw.IsOngoing}
	if raw.FinancialLossINR != nil {
		in.FinancialLossINR = *raw.FinancialLossINR
	}
	if raw.VictimsAffected != nil {
		in.VictimsAffected = *raw.VictimsAffected
	}

	// crime_type arrives either as one string or as a list of strings.
	if len(raw.CrimeType) > 0 {
		var single string
		var many []string
		switch {
		case json.Unmarshal(raw.CrimeType, &single) == nil:
			in.CrimeTypes = []string{single}
		case json.Unmarshal(raw.CrimeType, &many) == nil:
			in.CrimeTypes = many
		default:
			return classificationInput{}, apperrors.New(apperrors.ErrCodeClassificationFailed,
				"crime_type must be a string or a list of strings")
		}
	}
	return in, nil
}

func singleCrimeScore(crimeType string, loss, affected float64) float64 {
	category, known := crimeCategories[crimeType]
	if !known {
		// Unknown types default to Medium rather than silently dropping the
		// incident.
		return 3
	}
	switch category {
	case categoryFinancial:
		return scoreFromThresholds(loss, financialThresholds)
	case categoryVolume:
		return scoreFromThresholds(affected, volumeThresholds)
	case categorySeverity:
		if crimeType == "threat_to_life" {
			return 4
		}
		return 5
	case categoryHybrid:
		f := scoreFromThresholds(loss, financialThresholds)
		v := scoreFromThresholds(affected, volumeThresholds)
		if f > v {
			return f
		}
		return v
	}
	return 1
}

// Classify assigns a priority label and numeric score to incident details.
// The score stays in [0,5]; an active incident gains a 0.5 boost and, from
// Medium upward, an "(Ongoing)" marker on the label so triage queues can
// surface it.
func Classify(details json.RawMessage) (ClassificationResult, error) {
	in, err := parseClassificationInput(details)
	if err != nil {
		return ClassificationResult{}, err
	}
	if len(in.CrimeTypes) == 0 {
		return ClassificationResult{Priority: "No crime specified", Score: 0}, nil
	}

	var base float64
	if len(in.CrimeTypes) == 1 {
		base = singleCrimeScore(in.CrimeTypes[0], in.FinancialLossINR, in.VictimsAffected)
	} else {
		// Mixed incidents: weighted average by severity, floored by the
		// worst individual crime so adding a minor count never lowers the
		// verdict below its most serious component.
		var weightedSum, weightTotal, highest float64
		for _, crime := range in.CrimeTypes {
			score := singleCrimeScore(crime, in.FinancialLossINR, in.VictimsAffected)
			weight, ok := crimeSeverityWeights[crime]
			if !ok {
				weight = defaultSeverityWeight
			}
			weightedSum += score * weight
			weightTotal += weight
			if score > highest {
				highest = score
			}
		}
		base = highest
		if weightTotal > 0 && weightedSum/weightTotal > base {
			base = weightedSum / weightTotal
		}
	}

	final := base
	if in.IsOngoing {
		final += 0.5
	}
	if final > 5 {
		final = 5
	}

	label := string(common.PriorityForScore(final))
	if in.IsOngoing && int(final+0.5) >= 3 {
		label += " (Ongoing)"
	}
	return ClassificationResult{Priority: label, Score: final}, nil
}

// KnownCrimeTypes returns the classifier's crime taxonomy sorted by name.
func KnownCrimeTypes() []string {
	out := make([]string, 0, len(crimeCategories))
	for k := range crimeCategories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
