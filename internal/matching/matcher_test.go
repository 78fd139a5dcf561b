package matching

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
	"github.com/turtacn/CyberTrace-Intelligence/pkg/types/common"
)

var testDefaults = common.Thresholds{Cross: 0.5, Within: 0.3}

func basicMatcher() *Matcher {
	return NewMatcher(testDefaults, nil, nil, nil)
}

func record(id string, mutate func(*EntityRecord)) EntityRecord {
	r := EntityRecord{ID: id}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func TestScore_SharedPhoneAcrossRepresentations(t *testing.T) {
	// Scenario: the same number reported with country code in one store and
	// trunk prefix in the other.
	a := record("a", func(r *EntityRecord) {
		r.Phones = ParseSet("+91 98765-43210", NormalizePhone)
	})
	b := record("b", func(r *EntityRecord) {
		r.Phones = ParseSet("09876543210", NormalizePhone)
	})

	assert.Equal(t, a.Phones.Values(), b.Phones.Values())

	score, reasons, err := basicMatcher().Score(context.Background(), &a, &b)
	require.NoError(t, err)
	assert.Equal(t, 0.7, score)
	assert.Equal(t, []string{"same phones"}, reasons)
}

func TestScore_EmptyFieldsContributeZero(t *testing.T) {
	a := record("a", func(r *EntityRecord) { r.Emails = ParseSet("x@y.z", NormalizeEmail) })
	b := record("b", nil)

	score, reasons, err := basicMatcher().Score(context.Background(), &a, &b)
	require.NoError(t, err)
	assert.Zero(t, score)
	assert.Empty(t, reasons)
}

func TestScore_StrongOutweighsWeak(t *testing.T) {
	// Shared crypto wallet must weigh at least as much as a shared
	// low-specificity field, all else equal.
	walletA := record("a", func(r *EntityRecord) { r.CryptoWallets = ParseSet("bc1qxyz", NormalizeExact) })
	walletB := record("b", func(r *EntityRecord) { r.CryptoWallets = ParseSet("bc1qxyz", NormalizeExact) })
	cityA := record("c", func(r *EntityRecord) { r.VictimLocation = ParseSet("Mumbai", NormalizeToken) })
	cityB := record("d", func(r *EntityRecord) { r.VictimLocation = ParseSet("mumbai", NormalizeToken) })

	m := basicMatcher()
	walletScore, _, err := m.Score(context.Background(), &walletA, &walletB)
	require.NoError(t, err)
	cityScore, _, err := m.Score(context.Background(), &cityA, &cityB)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, walletScore, cityScore)
	assert.Equal(t, 0.7, walletScore)
	assert.Equal(t, 0.3, cityScore)
}

func TestScore_WeakFieldsNeedExactNormalizedEquality(t *testing.T) {
	a := record("a", func(r *EntityRecord) { r.ScamCategory = "investment" })
	b := record("b", func(r *EntityRecord) { r.ScamCategory = "investment" })
	c := record("c", func(r *EntityRecord) { r.ScamCategory = "lottery" })

	m := basicMatcher()
	s1, _, err := m.Score(context.Background(), &a, &b)
	require.NoError(t, err)
	assert.Equal(t, 0.2, s1)

	s2, _, err := m.Score(context.Background(), &a, &c)
	require.NoError(t, err)
	assert.Zero(t, s2)
}

func TestScore_CappedAtOne(t *testing.T) {
	full := func(r *EntityRecord) {
		r.Phones = ParseSet("9876543210", NormalizePhone)
		r.BankAccounts = ParseSet("123456", NormalizeToken)
		r.UPIIDs = ParseSet("x@upi", NormalizeEmail)
		r.Emails = ParseSet("a@b.c", NormalizeEmail)
	}
	a := record("a", full)
	b := record("b", full)

	score, _, err := basicMatcher().Score(context.Background(), &a, &b)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestScore_MonotonicInSharedIdentifiers(t *testing.T) {
	base := func(r *EntityRecord) { r.Phones = ParseSet("9876543210", NormalizePhone) }
	more := func(r *EntityRecord) {
		base(r)
		r.Platforms = ParseSet("whatsapp", NormalizeToken)
	}
	a1, b1 := record("a", base), record("b", base)
	a2, b2 := record("a", more), record("b", more)

	m := basicMatcher()
	s1, _, err := m.Score(context.Background(), &a1, &b1)
	require.NoError(t, err)
	s2, _, err := m.Score(context.Background(), &a2, &b2)
	require.NoError(t, err)
	assert.Greater(t, s2, s1)
}

func TestWithinStore_SharedBankAccountPair(t *testing.T) {
	// Three records: 1 and 2 share a bank account, 3 shares nothing.
	records := []EntityRecord{
		record("r1", func(r *EntityRecord) { r.BankAccounts = ParseSet("9988776655", NormalizeToken) }),
		record("r2", func(r *EntityRecord) { r.BankAccounts = ParseSet("9988776655|1122334455", NormalizeToken) }),
		record("r3", func(r *EntityRecord) { r.Emails = ParseSet("clean@user.in", NormalizeEmail) }),
	}

	matches, err := basicMatcher().WithinStore(context.Background(), records, nil)
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "r1", matches[0].IDA)
	assert.Equal(t, "r2", matches[0].IDB)
	assert.GreaterOrEqual(t, matches[0].Score, testDefaults.Within)
}

func TestWithinStore_NoSelfOrDuplicatePairs(t *testing.T) {
	shared := func(r *EntityRecord) { r.UPIIDs = ParseSet("fraud@upi", NormalizeEmail) }
	records := []EntityRecord{record("a", shared), record("b", shared), record("c", shared)}

	matches, err := basicMatcher().WithinStore(context.Background(), records, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 3) // (a,b) (a,c) (b,c)

	seen := map[[2]string]bool{}
	for _, m := range matches {
		assert.NotEqual(t, m.IDA, m.IDB)
		key := [2]string{m.IDA, m.IDB}
		rev := [2]string{m.IDB, m.IDA}
		assert.False(t, seen[key] || seen[rev], "duplicate pair %v", key)
		seen[key] = true
	}
}

func TestCrossStore_ThresholdAndOrdering(t *testing.T) {
	victims := []EntityRecord{
		record("v0", func(r *EntityRecord) {
			r.Phones = ParseSet("9876543210", NormalizePhone)
			r.Platforms = ParseSet("telegram", NormalizeToken)
		}),
		record("v1", func(r *EntityRecord) { r.Platforms = ParseSet("telegram", NormalizeToken) }),
	}
	officials := []EntityRecord{
		record("o0", func(r *EntityRecord) {
			r.Phones = ParseSet("+919876543210", NormalizePhone)
			r.Platforms = ParseSet("telegram", NormalizeToken)
		}),
	}

	matches, err := basicMatcher().CrossStore(context.Background(), victims, officials, nil)
	require.NoError(t, err)

	// v1-o0 shares only a platform (0.3 < 0.5 default) and is dropped.
	require.Len(t, matches, 1)
	assert.Equal(t, "v0", matches[0].IDA)
	assert.Equal(t, "o0", matches[0].IDB)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)

	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Score, testDefaults.Cross)
	}
}

func TestCrossStore_OverrideThreshold(t *testing.T) {
	victims := []EntityRecord{
		record("v0", func(r *EntityRecord) { r.Platforms = ParseSet("telegram", NormalizeToken) }),
	}
	officials := []EntityRecord{
		record("o0", func(r *EntityRecord) { r.Platforms = ParseSet("telegram", NormalizeToken) }),
	}

	// Default 0.5 drops the platform-only pair; an override of 0.25 keeps it.
	matches, err := basicMatcher().CrossStore(context.Background(), victims, officials, lo.ToPtr(0.25))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestWithinStore_ZeroFloorOverride(t *testing.T) {
	records := []EntityRecord{
		record("r1", func(r *EntityRecord) { r.ScamCategory = "investment" }),
		record("r2", func(r *EntityRecord) { r.ScamCategory = "lottery" }),
	}

	// The pair scores zero: the default floor drops it, an explicit zero
	// floor keeps it.
	matches, err := basicMatcher().WithinStore(context.Background(), records, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = basicMatcher().WithinStore(context.Background(), records, lo.ToPtr(0.0))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Zero(t, matches[0].Score)
}

func TestCrossStore_SortedDescendingStableTies(t *testing.T) {
	phone := func(r *EntityRecord) { r.Phones = ParseSet("9876543210", NormalizePhone) }
	phoneAndPlatform := func(r *EntityRecord) {
		phone(r)
		r.Platforms = ParseSet("whatsapp", NormalizeToken)
	}
	victims := []EntityRecord{record("v0", phone), record("v1", phoneAndPlatform), record("v2", phone)}
	officials := []EntityRecord{record("o0", phoneAndPlatform)}

	matches, err := basicMatcher().CrossStore(context.Background(), victims, officials, nil)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "v1", matches[0].IDA) // phone + platform
	// Tie at 0.7 keeps input order v0 before v2.
	assert.Equal(t, "v0", matches[1].IDA)
	assert.Equal(t, "v2", matches[2].IDA)
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i].Score, matches[i-1].Score)
	}
}

func TestResolveThreshold_Invalid(t *testing.T) {
	_, err := basicMatcher().CrossStore(context.Background(), nil, nil, lo.ToPtr(1.5))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeThresholdInvalid, apperrors.GetCode(err))

	_, err = basicMatcher().WithinStore(context.Background(), nil, lo.ToPtr(-0.1))
	require.Error(t, err)
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func TestScore_SemanticContribution(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"fake army officer selling furniture": {1, 0, 0},
		"army officer furniture scam":         {0.9, 0.1, 0},
	}}
	m := NewMatcher(testDefaults, emb, nil, nil)

	a := record("a", func(r *EntityRecord) { r.Description = "fake army officer selling furniture" })
	b := record("b", func(r *EntityRecord) { r.Description = "army officer furniture scam" })

	score, reasons, err := m.Score(context.Background(), &a, &b)
	require.NoError(t, err)
	assert.Greater(t, score, 0.09)
	assert.Less(t, score, 0.101)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "description similarity")
}

func TestScore_SemanticBelowFloorIgnored(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"investment tips":  {1, 0, 0},
		"lottery winnings": {0, 1, 0},
	}}
	m := NewMatcher(testDefaults, emb, nil, nil)

	a := record("a", func(r *EntityRecord) { r.Description = "investment tips" })
	b := record("b", func(r *EntityRecord) { r.Description = "lottery winnings" })

	score, reasons, err := m.Score(context.Background(), &a, &b)
	require.NoError(t, err)
	assert.Zero(t, score)
	assert.Empty(t, reasons)
}

func TestScore_EmbedderErrorSurfaces(t *testing.T) {
	emb := &fakeEmbedder{err: apperrors.New(apperrors.ErrCodeEmbeddingFailed, "backend down")}
	m := NewMatcher(testDefaults, emb, nil, nil)

	a := record("a", func(r *EntityRecord) { r.Description = "x" })
	b := record("b", func(r *EntityRecord) { r.Description = "y" })

	_, _, err := m.Score(context.Background(), &a, &b)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSimilarityFailed, apperrors.GetCode(err))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, Cosine(nil, nil))
}

func TestPairs_WireForm(t *testing.T) {
	pairs := Pairs([]Match{{IDA: "a", IDB: "b", Score: 0.7, Reasons: []string{"same phones"}}})
	require.Len(t, pairs, 1)
	assert.Equal(t, common.MatchPair{IDA: "a", IDB: "b", Score: 0.7}, pairs[0])
}
