package fraud

import (
	"fmt"
	"sync"

	"poker-core/internal/events"
)

// CollusionDetectionConfig holds the thresholds for the fold-to-raise
// correlation signal. Grounded in the teacher's pairwise soft-play scorer
// (aggression-delta / showdown-delta between two players), narrowed down to
// the one pairwise signal derivable purely from the live per-table action
// stream poker-core actually has — no device, IP, or chat data is available
// under the spec's opaque-userId model.
type CollusionDetectionConfig struct {
	MinOpportunities  int     // pair samples required before scoring
	FoldRateDelta     float64 // excess fold-after-raise rate over baseline that flags
	SoftPlayThreshold float64
	ReviewThreshold   float64
}

func DefaultCollusionDetectionConfig() *CollusionDetectionConfig {
	return &CollusionDetectionConfig{
		MinOpportunities:  12,
		FoldRateDelta:     0.35,
		SoftPlayThreshold: 0.65,
		ReviewThreshold:   0.45,
	}
}

// CollusionDetectionResult is one ordered seat-pair's current soft-play read:
// how often Responder folds immediately after Raiser raises, versus
// Responder's overall fold rate at that table.
type CollusionDetectionResult struct {
	TableID       string
	Raiser        string
	Responder     string
	Opportunities int
	FoldRate      float64 // P(fold | immediately follows raiser's raise)
	BaselineRate  float64 // Responder's overall fold rate at this table
	Score         float64 // 0-1
	IsCollusion   bool
	TopEvidence   []string
}

type pairKey struct {
	tableID   string
	raiser    string
	responder string
}

type pairStats struct {
	opportunities int
	foldsGiven    int
}

type lastAction struct {
	userID     string
	actionType events.ActionType
}

// CollusionDetector tracks, per table, whether one player reliably folds the
// instant another player raises — the signature of a soft-play / chip-dump
// arrangement — by comparing that conditional fold rate against the
// responder's own baseline fold rate at the same table.
type CollusionDetector struct {
	config *CollusionDetectionConfig

	mu             sync.Mutex
	lastByTable    map[string]lastAction
	pairs          map[pairKey]*pairStats
	responderFolds map[string]int // "tableID:userID" -> total folds
	responderTotal map[string]int // "tableID:userID" -> total actions
}

func NewCollusionDetector(config *CollusionDetectionConfig) *CollusionDetector {
	if config == nil {
		config = DefaultCollusionDetectionConfig()
	}
	return &CollusionDetector{
		config:         config,
		lastByTable:    make(map[string]lastAction),
		pairs:          make(map[pairKey]*pairStats),
		responderFolds: make(map[string]int),
		responderTotal: make(map[string]int),
	}
}

// Observe records one action and returns the pairwise result for the
// seat-pair it just updated, if the action followed another user's raise.
func (d *CollusionDetector) Observe(tableID, userID string, actionType events.ActionType) *CollusionDetectionResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := tableID + ":" + userID
	d.responderTotal[key]++
	isFold := actionType == events.ActionFold
	if isFold {
		d.responderFolds[key]++
	}

	prev, hadPrev := d.lastByTable[tableID]
	d.lastByTable[tableID] = lastAction{userID: userID, actionType: actionType}

	isRaiseAction := func(t events.ActionType) bool {
		return t == events.ActionBet || t == events.ActionRaise || t == events.ActionAllIn
	}

	var result *CollusionDetectionResult
	if hadPrev && prev.userID != userID && isRaiseAction(prev.actionType) {
		pk := pairKey{tableID: tableID, raiser: prev.userID, responder: userID}
		ps := d.pairs[pk]
		if ps == nil {
			ps = &pairStats{}
			d.pairs[pk] = ps
		}
		ps.opportunities++
		if isFold {
			ps.foldsGiven++
		}
		result = d.score(pk, ps, key)
	}
	return result
}

func (d *CollusionDetector) score(pk pairKey, ps *pairStats, responderKey string) *CollusionDetectionResult {
	if ps.opportunities < d.config.MinOpportunities {
		return nil
	}

	foldRate := float64(ps.foldsGiven) / float64(ps.opportunities)
	baseline := 0.0
	if total := d.responderTotal[responderKey]; total > 0 {
		baseline = float64(d.responderFolds[responderKey]) / float64(total)
	}

	delta := foldRate - baseline
	score := 0.0
	if delta > 0 {
		score = delta / (1 - baseline + 0.01)
		if score > 1 {
			score = 1
		}
	}

	result := &CollusionDetectionResult{
		TableID:       pk.tableID,
		Raiser:        pk.raiser,
		Responder:     pk.responder,
		Opportunities: ps.opportunities,
		FoldRate:      foldRate,
		BaselineRate:  baseline,
		Score:         score,
	}
	if score >= d.config.SoftPlayThreshold {
		result.IsCollusion = true
		result.TopEvidence = append(result.TopEvidence, fmt.Sprintf(
			"%s folds to %s's raises %.0f%% of the time vs a %.0f%% baseline over %d hands",
			pk.responder, pk.raiser, foldRate*100, baseline*100, ps.opportunities))
	}
	return result
}
