package ingest

// QualityLevel buckets an overall score into an operator-facing grade
type QualityLevel string

const (
	LevelExcellent    QualityLevel = "excellent"
	LevelGood         QualityLevel = "good"
	LevelFair         QualityLevel = "fair"
	LevelPoor         QualityLevel = "poor"
	LevelUnacceptable QualityLevel = "unacceptable"
)

// ScoreWeights are the component weights of the overall score. Domain
// tuning, not fundamentals; override through configuration.
type ScoreWeights struct {
	Completeness float64 `yaml:"completeness"`
	Accuracy     float64 `yaml:"accuracy"`
	Timeliness   float64 `yaml:"timeliness"`
	Consistency  float64 `yaml:"consistency"`
}

// DefaultScoreWeights returns the standard component weighting
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Completeness: 0.4,
		Accuracy:     0.3,
		Timeliness:   0.2,
		Consistency:  0.1,
	}
}

// QualityScore is the scored result for one group of rows. Component
// pointers are nil when the component could not be computed; Overall then
// falls back from the weighted mean to the plain mean of what is present.
type QualityScore struct {
	Completeness *float64     `json:"completeness,omitempty"`
	Accuracy     *float64     `json:"accuracy,omitempty"`
	Timeliness   *float64     `json:"timeliness,omitempty"`
	Consistency  *float64     `json:"consistency,omitempty"`
	Overall      float64      `json:"overall"`
	Level        QualityLevel `json:"level"`
	Issues       []string     `json:"issues,omitempty"`
}

// Scorer computes quality scores over raw-record groups
type Scorer struct {
	weights ScoreWeights
}

// NewScorer creates a scorer with the given weights
func NewScorer(weights ScoreWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the quality components for one (symbol, market) group:
// completeness penalizes missing prices, accuracy penalizes OHLC
// relationship anomalies, consistency is a placeholder constant until the
// cross-source validator refines it. Timeliness is left unset here.
func (s *Scorer) Score(records []RawRecord) QualityScore {
	total := len(records)
	if total == 0 {
		return QualityScore{Overall: 0, Level: LevelUnacceptable}
	}

	missing := 0
	anomalies := 0
	for _, rec := range records {
		if missingPrice(rec) {
			missing++
		}
		if anomalous(rec) {
			anomalies++
		}
	}

	completeness := 1 - float64(missing)/float64(total)
	accuracy := 1 - float64(anomalies)/float64(total)
	consistency := 1.0

	score := QualityScore{
		Completeness: &completeness,
		Accuracy:     &accuracy,
		Consistency:  &consistency,
	}
	score.Overall = s.overall(score)
	score.Level = LevelFor(score.Overall)
	return score
}

// overall is the weighted mean when all four components are present,
// otherwise the plain mean of the available ones.
func (s *Scorer) overall(score QualityScore) float64 {
	if score.Completeness != nil && score.Accuracy != nil &&
		score.Timeliness != nil && score.Consistency != nil {
		return s.weights.Completeness**score.Completeness +
			s.weights.Accuracy**score.Accuracy +
			s.weights.Timeliness**score.Timeliness +
			s.weights.Consistency**score.Consistency
	}

	sum, n := 0.0, 0
	for _, c := range []*float64{score.Completeness, score.Accuracy, score.Timeliness, score.Consistency} {
		if c != nil {
			sum += *c
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// LevelFor buckets an overall score into its grade
func LevelFor(overall float64) QualityLevel {
	switch {
	case overall >= 0.90:
		return LevelExcellent
	case overall >= 0.80:
		return LevelGood
	case overall >= 0.60:
		return LevelFair
	case overall >= 0.40:
		return LevelPoor
	default:
		return LevelUnacceptable
	}
}
