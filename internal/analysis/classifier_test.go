package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classify(t *testing.T, details string) ClassificationResult {
	t.Helper()
	res, err := Classify(json.RawMessage(details))
	require.NoError(t, err)
	return res
}

func TestClassify_SmallCompletedFinancialFraud(t *testing.T) {
	res := classify(t, `{"crime_type":"financial_fraud","financial_loss_inr":40,"is_ongoing":false,"victims_affected":1}`)
	assert.Equal(t, "Very Low", res.Priority)
	assert.Equal(t, 1.0, res.Score)
}

func TestClassify_FinancialBands(t *testing.T) {
	cases := []struct {
		loss  float64
		score float64
	}{
		{500, 1}, {501, 2}, {5000, 2}, {25000, 3}, {99999, 4}, {100001, 5},
	}
	for _, tc := range cases {
		res := classify(t, `{"crime_type":"upi_fraud","financial_loss_inr":`+jsonNum(tc.loss)+`}`)
		assert.Equal(t, tc.score, res.Score, "loss %v", tc.loss)
	}
}

func jsonNum(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func TestClassify_VolumeDrivenCrime(t *testing.T) {
	res := classify(t, `{"crime_type":"phishing","victims_affected":1500}`)
	assert.Equal(t, 4.0, res.Score)
	assert.Equal(t, "High", res.Priority)
}

func TestClassify_OngoingBoostAndSuffix(t *testing.T) {
	res := classify(t, `{"crime_type":"phishing","victims_affected":1500,"is_ongoing":true}`)
	assert.Equal(t, 4.5, res.Score)
	assert.Equal(t, "Very High (Ongoing)", res.Priority)
}

func TestClassify_OngoingLowPriorityGetsNoSuffix(t *testing.T) {
	res := classify(t, `{"crime_type":"spam","victims_affected":1,"is_ongoing":true}`)
	assert.Equal(t, 1.5, res.Score)
	assert.NotContains(t, res.Priority, "(Ongoing)")
}

func TestClassify_SeverityCrimes(t *testing.T) {
	assert.Equal(t, 5.0, classify(t, `{"crime_type":"national_security_threat"}`).Score)
	assert.Equal(t, 4.0, classify(t, `{"crime_type":"threat_to_life"}`).Score)
}

func TestClassify_HybridTakesWorseSignal(t *testing.T) {
	// Ransomware with low loss but massive victim count scores on volume.
	res := classify(t, `{"crime_type":"ransomware","financial_loss_inr":100,"victims_affected":60000}`)
	assert.Equal(t, 5.0, res.Score)
}

func TestClassify_MixedCrimeFlooredByWorstComponent(t *testing.T) {
	// Phishing (volume 500 -> 3) + ransomware (loss 200000 -> 5).
	res := classify(t, `{"crime_type":["phishing","ransomware"],"financial_loss_inr":200000,"victims_affected":500}`)
	assert.GreaterOrEqual(t, res.Score, 5.0)
	assert.Equal(t, "Very High", res.Priority)
}

func TestClassify_ScoreCappedAtFive(t *testing.T) {
	res := classify(t, `{"crime_type":"cyber_terrorism","is_ongoing":true}`)
	assert.Equal(t, 5.0, res.Score)
	assert.Equal(t, "Very High (Ongoing)", res.Priority)
}

func TestClassify_UnknownCrimeDefaultsToMedium(t *testing.T) {
	res := classify(t, `{"crime_type":"carrier_pigeon_fraud"}`)
	assert.Equal(t, 3.0, res.Score)
	assert.Equal(t, "Medium", res.Priority)
}

func TestClassify_NoCrimeSpecified(t *testing.T) {
	res := classify(t, `{"financial_loss_inr":9000}`)
	assert.Equal(t, "No crime specified", res.Priority)
	assert.Zero(t, res.Score)

	res = classify(t, `{"crime_type":[]}`)
	assert.Equal(t, "No crime specified", res.Priority)
}

func TestClassify_DefaultsWhenFieldsAbsent(t *testing.T) {
	// victims_affected defaults to 1, loss to 0.
	res := classify(t, `{"crime_type":"smishing"}`)
	assert.Equal(t, 1.0, res.Score)
}

func TestClassify_MalformedInput(t *testing.T) {
	_, err := Classify(json.RawMessage(`"just a string"`))
	assert.Error(t, err)

	_, err = Classify(json.RawMessage(`{"crime_type":{"bad":"shape"}}`))
	assert.Error(t, err)
}

func TestClassify_MonotonicLabelInScore(t *testing.T) {
	losses := []float64{100, 1000, 10000, 50000, 500000}
	var prev float64
	for _, loss := range losses {
		res := classify(t, `{"crime_type":"investment_scam","financial_loss_inr":`+jsonNum(loss)+`}`)
		assert.GreaterOrEqual(t, res.Score, prev)
		prev = res.Score
	}
}

func TestKnownCrimeTypes_Sorted(t *testing.T) {
	types := KnownCrimeTypes()
	require.NotEmpty(t, types)
	for i := 1; i < len(types); i++ {
		assert.Less(t, types[i-1], types[i])
	}
	assert.Contains(t, types, "upi_fraud")
}
