package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CyberTrace-Intelligence/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/CyberTrace-Intelligence/pkg/errors"
	"github.com/turtacn/CyberTrace-Intelligence/pkg/types/common"
)

// Field weights.  A shared strong identifier alone clears the default
// cross-store threshold; weak attributes only ever corroborate.
const (
	strongWeight   = 0.7
	mediumWeight   = 0.3
	weakWeight     = 0.2
	semanticWeight = 0.1
	semanticFloor  = 0.3
)

// Embedder produces dense vectors for free-text similarity.  Supplying one
// enables the advanced scoring mode; without it free-text fields are
// ignored.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Match is one scored record pair with the field-level evidence that
// produced the score.
type Match struct {
	IDA     string   `json:"id_a"`
	IDB     string   `json:"id_b"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
}

// Pair converts to the wire form [id_a, id_b, score].
func (m Match) Pair() common.MatchPair {
	return common.MatchPair{IDA: m.IDA, IDB: m.IDB, Score: m.Score}
}

// Pairs converts a match list to wire pairs, preserving order.
func Pairs(matches []Match) []common.MatchPair {
	return lo.Map(matches, func(m Match, _ int) common.MatchPair { return m.Pair() })
}

// Matcher scores record pairs and runs the two store-level passes.
type Matcher struct {
	defaults common.Thresholds
	embedder Embedder
	logger   logging.Logger
	metrics  *prometheus.AppMetrics
}

// NewMatcher builds a Matcher.  embedder may be nil to disable semantic
// scoring.
func NewMatcher(defaults common.Thresholds, embedder Embedder, logger logging.Logger, metrics *prometheus.AppMetrics) *Matcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	return &Matcher{defaults: defaults, embedder: embedder, logger: logger.Named("matcher"), metrics: metrics}
}

type setField struct {
	name   string
	weight float64
	get    func(*EntityRecord) StringSet
}

var strongFields = []setField{
	{"phones", strongWeight, func(r *EntityRecord) StringSet { return r.Phones }},
	{"bank_accounts", strongWeight, func(r *EntityRecord) StringSet { return r.BankAccounts }},
	{"upi_ids", strongWeight, func(r *EntityRecord) StringSet { return r.UPIIDs }},
	{"emails", strongWeight, func(r *EntityRecord) StringSet { return r.Emails }},
	{"websites", strongWeight, func(r *EntityRecord) StringSet { return r.Websites }},
	{"social_handles", strongWeight, func(r *EntityRecord) StringSet { return r.SocialHandles }},
	{"ip_addresses", strongWeight, func(r *EntityRecord) StringSet { return r.IPAddresses }},
	{"crypto_wallets", strongWeight, func(r *EntityRecord) StringSet { return r.CryptoWallets }},
}

var mediumFields = []setField{
	{"institute", mediumWeight, func(r *EntityRecord) StringSet { return r.Institute }},
	{"victim_location", mediumWeight, func(r *EntityRecord) StringSet { return r.VictimLocation }},
	{"scammer_claimed_location", mediumWeight, func(r *EntityRecord) StringSet { return r.ScammerClaimedLocation }},
	{"platforms", mediumWeight, func(r *EntityRecord) StringSet { return r.Platforms }},
	{"contact_methods", mediumWeight, func(r *EntityRecord) StringSet { return r.ContactMethods }},
}

type scalarField struct {
	name string
	get  func(*EntityRecord) string
}

var weakFields = []scalarField{
	{"language_accent", func(r *EntityRecord) string { return r.LanguageAccent }},
	{"scam_category", func(r *EntityRecord) string { return r.ScamCategory }},
	{"payment_method", func(r *EntityRecord) string { return r.PaymentMethod }},
}

var patternFields = []scalarField{
	{"description", func(r *EntityRecord) string { return r.Description }},
	{"profile_details", func(r *EntityRecord) string { return r.ProfileDetails }},
	{"documents_shared_keywords", func(r *EntityRecord) string { return r.DocumentsSharedKeywords }},
	{"referrer_source", func(r *EntityRecord) string { return r.ReferrerSource }},
}

// Score computes the aggregate similarity of two records in [0,1] and the
// list of contributing signals.  Fields empty on either side contribute
// zero; the sum is capped at 1.
func (m *Matcher) Score(ctx context.Context, a, b *EntityRecord) (float64, []string, error) {
	var score float64
	var reasons []string

	for _, f := range append(append([]setField{}, strongFields...), mediumFields...) {
		if f.get(a).Intersects(f.get(b)) {
			score += f.weight
			reasons = append(reasons, "same "+f.name)
		}
	}
	for _, f := range weakFields {
		va, vb := f.get(a), f.get(b)
		if va != "" && va == vb {
			score += weakWeight
			reasons = append(reasons, "same "+f.name)
		}
	}

	if m.embedder != nil {
		for _, f := range patternFields {
			va, vb := f.get(a), f.get(b)
			if va == "" || vb == "" {
				continue
			}
			vecs, err := m.embedder.Embed(ctx, []string{va, vb})
			if err != nil {
				return 0, nil, apperrors.Wrap(err, apperrors.ErrCodeSimilarityFailed,
					"embedding "+f.name+" failed")
			}
			if len(vecs) != 2 {
				return 0, nil, apperrors.New(apperrors.ErrCodeSimilarityFailed,
					"embedder returned wrong vector count")
			}
			sim := Cosine(vecs[0], vecs[1])
			if sim > semanticFloor {
				score += sim * semanticWeight
				reasons = append(reasons, fmt.Sprintf("%s similarity %.2f", f.name, sim))
			}
		}
	}

	if score > 1 {
		score = 1
	}
	return score, reasons, nil
}

// Cosine returns the cosine similarity of two vectors, 0 for degenerate
// input.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// resolveThreshold picks the effective score floor.  A nil override keeps
// the configured default; an explicit value must lie in [0,1], so a caller
// can request a zero floor and see every pair.
func (m *Matcher) resolveThreshold(override *float64, fallback float64) (float64, error) {
	if override == nil {
		return fallback, nil
	}
	if *override < 0 || *override > 1 {
		return 0, apperrors.Newf(apperrors.ErrCodeThresholdInvalid,
			"threshold %v outside [0,1]", *override)
	}
	return *override, nil
}

// CrossStore compares every record of a against every record of b and keeps
// pairs scoring at or above the threshold (nil = configured default).
// Output is sorted by score descending; ties keep input order.
func (m *Matcher) CrossStore(ctx context.Context, a, b []EntityRecord, threshold *float64) ([]Match, error) {
	th, err := m.resolveThreshold(threshold, m.defaults.Cross)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var out []Match
	for i := range a {
		for j := range b {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s, reasons, err := m.Score(ctx, &a[i], &b[j])
			if err != nil {
				return nil, err
			}
			if s >= th {
				out = append(out, Match{IDA: a[i].ID, IDB: b[j].ID, Score: s, Reasons: reasons})
			}
		}
	}
	sortMatches(out)

	m.metrics.MatchRunsTotal.WithLabelValues("cross").Inc()
	m.metrics.MatchRunDuration.WithLabelValues("cross").Observe(time.Since(start).Seconds())
	m.metrics.MatchPairsFound.WithLabelValues("cross").Observe(float64(len(out)))
	m.logger.Info("cross-store pass complete",
		logging.Int("store_a", len(a)),
		logging.Int("store_b", len(b)),
		logging.Int("pairs", len(out)),
		logging.Float64("threshold", th))
	return out, nil
}

// WithinStore compares every unordered pair within one store: no self
// pairs, no duplicate (a,b)/(b,a) pairs.
func (m *Matcher) WithinStore(ctx context.Context, records []EntityRecord, threshold *float64) ([]Match, error) {
	th, err := m.resolveThreshold(threshold, m.defaults.Within)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var out []Match
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s, reasons, err := m.Score(ctx, &records[i], &records[j])
			if err != nil {
				return nil, err
			}
			if s >= th {
				out = append(out, Match{IDA: records[i].ID, IDB: records[j].ID, Score: s, Reasons: reasons})
			}
		}
	}
	sortMatches(out)

	m.metrics.MatchRunsTotal.WithLabelValues("within").Inc()
	m.metrics.MatchRunDuration.WithLabelValues("within").Observe(time.Since(start).Seconds())
	m.metrics.MatchPairsFound.WithLabelValues("within").Observe(float64(len(out)))
	return out, nil
}

func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}
