package fraud

import (
	"math"
	"sync"
	"time"
)

// TimingDetectionConfig holds the thresholds the timing detector scores
// against. The thresholds and weights are the teacher's own documented
// human-vs-bot ranges for action timing, carried over from its much larger
// multi-feature bot detector and narrowed to the one signal poker-core's
// Table actually measures: per-seat decision latency off its own turn timer.
type TimingDetectionConfig struct {
	WindowSize int // decision-time samples kept per user
	MinSamples int // samples required before scoring instead of abstaining

	MeanThreshold   float64 // seconds; bot-like if mean decision time is below this
	StdDevThreshold float64 // seconds; bot-like if variance is below this

	MeanWeight   float64
	StdDevWeight float64

	BotScoreThreshold    float64
	ReviewScoreThreshold float64
}

// DefaultTimingDetectionConfig mirrors the teacher's documented human range
// (2-15s, variable) vs bot range (0.5-3s, near-constant), scaled down
// slightly since poker-core measures time-to-act from the turn timer
// restart rather than a client-reported "decision start".
func DefaultTimingDetectionConfig() *TimingDetectionConfig {
	return &TimingDetectionConfig{
		WindowSize: 40,
		MinSamples: 8,

		MeanThreshold:   1.5,
		StdDevThreshold: 0.4,

		MeanWeight:   0.55,
		StdDevWeight: 0.45,

		BotScoreThreshold:    0.80,
		ReviewScoreThreshold: 0.55,
	}
}

// BotDetectionResult is one user's current timing-detector read.
type BotDetectionResult struct {
	IsBot             bool
	Score             float64 // 0-1, higher = more bot-like
	Samples           int
	MeanDecision      float64
	StdDevDecision    float64
	Reasons           []string
	RecommendedAction string // "flag", "review", "clear"
}

// TimingDetector flags accounts whose decisions arrive too fast and too
// consistently to be a human reacting to a visible turn timer, the same
// "mean low + variance low" signature the teacher's BotDetector scores, now
// fed directly by Table.SubmitAction's own clock instead of a pre-aggregated
// PlayerBehavioralFeatures snapshot.
type TimingDetector struct {
	config *TimingDetectionConfig

	mu      sync.Mutex
	history map[string][]float64 // userID -> decision times in seconds, oldest first
}

func NewTimingDetector(config *TimingDetectionConfig) *TimingDetector {
	if config == nil {
		config = DefaultTimingDetectionConfig()
	}
	return &TimingDetector{config: config, history: make(map[string][]float64)}
}

// Observe records one decision latency and returns the user's updated read.
func (d *TimingDetector) Observe(userID string, decisionTime time.Duration) *BotDetectionResult {
	seconds := decisionTime.Seconds()

	d.mu.Lock()
	samples := append(d.history[userID], seconds)
	if len(samples) > d.config.WindowSize {
		samples = samples[len(samples)-d.config.WindowSize:]
	}
	d.history[userID] = samples
	windowed := make([]float64, len(samples))
	copy(windowed, samples)
	d.mu.Unlock()

	return d.score(windowed)
}

func (d *TimingDetector) score(samples []float64) *BotDetectionResult {
	result := &BotDetectionResult{Samples: len(samples), RecommendedAction: "clear"}
	if len(samples) < d.config.MinSamples {
		return result
	}

	m := mean(samples)
	sd := stdDev(samples)
	result.MeanDecision = m
	result.StdDevDecision = sd

	meanScore := d.scoreMean(m)
	stdDevScore := d.scoreStdDev(sd)
	result.Score = meanScore*d.config.MeanWeight + stdDevScore*d.config.StdDevWeight

	if meanScore > 0.7 {
		result.Reasons = append(result.Reasons, "unusually fast decisions")
	}
	if stdDevScore > 0.7 {
		result.Reasons = append(result.Reasons, "suspiciously consistent decision timing")
	}

	switch {
	case result.Score >= d.config.BotScoreThreshold:
		result.IsBot = true
		result.RecommendedAction = "flag"
	case result.Score >= d.config.ReviewScoreThreshold:
		result.RecommendedAction = "review"
	}
	return result
}

// scoreMean scores decision-time mean; bots act faster than the threshold.
func (d *TimingDetector) scoreMean(m float64) float64 {
	if m <= 0 {
		return 0.5
	}
	if m < d.config.MeanThreshold {
		return 1.0 - (m / d.config.MeanThreshold)
	}
	return 0.0
}

// scoreStdDev scores decision-time variance; bots are too consistent.
func (d *TimingDetector) scoreStdDev(sd float64) float64 {
	if sd <= 0 {
		return 0.5
	}
	if sd < d.config.StdDevThreshold {
		return 1.0 - (sd / d.config.StdDevThreshold)
	}
	return 0.0
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	m := mean(values)
	sumSq := 0.0
	for _, v := range values {
		sumSq += (v - m) * (v - m)
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
