// Package risk implements the multi-factor scoring function that
// turns raw co-change statistics into ranked, classified coupled
// files: coupling, churn, and recency sub-scores combined into a
// single risk score, gated, sorted, and truncated.
package risk

import (
	"sort"

	"github.com/anthropic/engram/internal/config"
)

// Stat is the raw input for one candidate file coupled to the
// analysis target, gathered from the persistence layer before
// scoring.
type Stat struct {
	Path            string
	CoChangeCount   int
	CommitCount     int // commit_count(p): the candidate's own total commit count.
	LastCoChangedAt int64
}

// Classification is a coarse risk band, published alongside the raw
// score so callers don't need to re-derive the bands themselves.
type Classification string

const (
	Critical Classification = "critical"
	High     Classification = "high"
	Medium   Classification = "medium"
	Low      Classification = "low"
)

// Classification band lower bounds (inclusive), fixed presentation
// constants distinct from the coupling gate threshold in config.Config.
const (
	criticalBand = 0.80
	highBand     = 0.60
	mediumBand   = 0.30
)

// Classify maps a final risk score to its presentation band.
func Classify(riskScore float64) Classification {
	switch {
	case riskScore >= criticalBand:
		return Critical
	case riskScore >= highBand:
		return High
	case riskScore >= mediumBand:
		return Medium
	default:
		return Low
	}
}

// Scored is one ranked, classified coupled file.
type Scored struct {
	Path           string
	CouplingScore  float64
	CoChangeCount  int
	RiskScore      float64
	Classification Classification
}

// Score computes coupling, churn, and recency sub-scores for each
// stat, combines them into a final risk score under the coupling
// gate, and returns the result sorted (risk desc, coupling desc, path
// asc) and truncated at cfg.HardCap.
//
// targetCommitCount is total_target_commit_count(t), the coupling
// denominator. repoNewestTS is the repository-wide newest commit
// timestamp; absent (nil) on a repository with no indexed commits, in
// which case recency is 0 for every candidate.
func Score(stats []Stat, targetCommitCount int, repoNewestTS *int64, cfg *config.Config) []Scored {
	if len(stats) == 0 {
		return nil
	}

	denom := targetCommitCount
	if denom < 1 {
		denom = 1
	}

	result := make([]Scored, 0, len(stats))
	for _, st := range stats {
		coupling := float64(st.CoChangeCount) / float64(denom)

		churn := float64(st.CommitCount) / float64(cfg.ChurnSaturation)
		if churn > 1 {
			churn = 1
		}

		var recency float64
		if repoNewestTS != nil && cfg.RecencyWindowSeconds > 0 {
			age := float64(*repoNewestTS-st.LastCoChangedAt) / float64(cfg.RecencyWindowSeconds)
			recency = 1 - clamp01(age)
		}

		raw := 0.5*coupling + 0.3*churn + 0.2*recency

		riskScore := raw
		if coupling < cfg.CouplingGateThreshold && riskScore > cfg.CouplingGateCap {
			riskScore = cfg.CouplingGateCap
		}

		result = append(result, Scored{
			Path:           st.Path,
			CouplingScore:  coupling,
			CoChangeCount:  st.CoChangeCount,
			RiskScore:      riskScore,
			Classification: Classify(riskScore),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RiskScore != result[j].RiskScore {
			return result[i].RiskScore > result[j].RiskScore
		}
		if result[i].CouplingScore != result[j].CouplingScore {
			return result[i].CouplingScore > result[j].CouplingScore
		}
		return result[i].Path < result[j].Path
	})

	if len(result) > cfg.HardCap {
		result = result[:cfg.HardCap]
	}
	return result
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
