package risk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anthropic/engram/internal/config"
)

func TestScoreCoupledPair(t *testing.T) {
	cfg := config.Default()
	newest := int64(1_000_000)

	stats := []Stat{
		{Path: "src/Session.db", CoChangeCount: 48, CommitCount: 50, LastCoChangedAt: newest},
		{Path: "src/Utils.ts", CoChangeCount: 2, CommitCount: 50, LastCoChangedAt: newest},
	}

	scored := Score(stats, 50, &newest, cfg)
	require.Len(t, scored, 2)

	var session, utils *Scored
	for i := range scored {
		switch scored[i].Path {
		case "src/Session.db":
			session = &scored[i]
		case "src/Utils.ts":
			utils = &scored[i]
		}
	}
	require.NotNil(t, session)
	require.NotNil(t, utils)
	require.Greater(t, session.CouplingScore, 0.95)
	require.Less(t, utils.CouplingScore, 0.1)
}

func TestScoreCouplingGate(t *testing.T) {
	cfg := config.Default()
	newest := int64(1_000_000)

	// HighChurn: 109 total commits, 9 co-changes with a 28-commit
	// target (~32%), newest possible co-change timestamp.
	highChurn := Stat{Path: "HighChurn.ts", CoChangeCount: 9, CommitCount: 109, LastCoChangedAt: newest}
	// HighCoupling: 16 co-changes out of 28 (~57%).
	highCoupling := Stat{Path: "HighCoupling.ts", CoChangeCount: 16, CommitCount: 30, LastCoChangedAt: newest}

	scored := Score([]Stat{highChurn, highCoupling}, 28, &newest, cfg)
	require.Len(t, scored, 2)

	var hc, hco *Scored
	for i := range scored {
		switch scored[i].Path {
		case "HighChurn.ts":
			hc = &scored[i]
		case "HighCoupling.ts":
			hco = &scored[i]
		}
	}
	require.NotNil(t, hc)
	require.NotNil(t, hco)

	require.Less(t, hc.CouplingScore, 0.5)
	require.Less(t, hc.RiskScore, 0.8)

	require.GreaterOrEqual(t, hco.CouplingScore, 0.5)
}

func TestScoreSortOrder(t *testing.T) {
	cfg := config.Default()
	newest := int64(1_000_000)
	old := newest - cfg.RecencyWindowSeconds*2

	stats := []Stat{
		{Path: "Low.ts", CoChangeCount: 1, CommitCount: 5, LastCoChangedAt: old},
		{Path: "High.ts", CoChangeCount: 10, CommitCount: 100, LastCoChangedAt: newest},
		{Path: "Med.ts", CoChangeCount: 5, CommitCount: 40, LastCoChangedAt: newest},
	}

	scored := Score(stats, 10, &newest, cfg)
	require.Len(t, scored, 3)
	require.Equal(t, "High.ts", scored[0].Path)
	require.GreaterOrEqual(t, scored[0].RiskScore, scored[1].RiskScore)
	require.GreaterOrEqual(t, scored[1].RiskScore, scored[2].RiskScore)
}

func TestScoreTieBreaksByCouplingThenPath(t *testing.T) {
	cfg := config.Default()
	newest := int64(1_000_000)

	// Both at the newest commit (recency=1), churn traded off against
	// coupling so the combined raw risk is identical: 0.5*0.6+0.3*0.5+0.2
	// == 0.5*0.3+0.3*1.0+0.2 == 0.65. Alphabetically "AAA.ts" would sort
	// first on path alone, so this isolates the coupling tie-break.
	stats := []Stat{
		{Path: "AAA.ts", CoChangeCount: 30, CommitCount: 100, LastCoChangedAt: newest},
		{Path: "ZZZ.ts", CoChangeCount: 60, CommitCount: 50, LastCoChangedAt: newest},
	}
	scored := Score(stats, 100, &newest, cfg)
	require.Len(t, scored, 2)
	require.InDelta(t, scored[0].RiskScore, scored[1].RiskScore, 1e-9)
	require.Equal(t, "ZZZ.ts", scored[0].Path, "higher coupling ranks first despite equal risk")

	// Equal coupling and risk: tie-break falls through to path ascending.
	tied := []Stat{
		{Path: "B.ts", CoChangeCount: 50, CommitCount: 50, LastCoChangedAt: newest},
		{Path: "A.ts", CoChangeCount: 50, CommitCount: 50, LastCoChangedAt: newest},
	}
	scoredTied := Score(tied, 100, &newest, cfg)
	require.Len(t, scoredTied, 2)
	require.Equal(t, "A.ts", scoredTied[0].Path)
}

func TestScoreHardCapTruncatesAtTen(t *testing.T) {
	cfg := config.Default()
	newest := int64(1_000_000)

	var stats []Stat
	for i := 0; i < 15; i++ {
		stats = append(stats, Stat{
			Path:            string(rune('A' + i)) + ".ts",
			CoChangeCount:   i + 1,
			CommitCount:     i + 1,
			LastCoChangedAt: newest,
		})
	}
	scored := Score(stats, 20, &newest, cfg)
	require.Len(t, scored, 10)
}

func TestScoreEmptyInput(t *testing.T) {
	cfg := config.Default()
	newest := int64(1_000_000)
	require.Nil(t, Score(nil, 10, &newest, cfg))
}

func TestScoreNoNewestCommitYieldsZeroRecency(t *testing.T) {
	cfg := config.Default()
	stats := []Stat{{Path: "A.ts", CoChangeCount: 5, CommitCount: 10, LastCoChangedAt: 0}}
	scored := Score(stats, 10, nil, cfg)
	require.Len(t, scored, 1)
	// raw = 0.5*0.5 + 0.3*0.1 + 0.2*0 = 0.25+0.03 = 0.28
	require.InDelta(t, 0.28, scored[0].RiskScore, 1e-9)
}

func TestClassifyBands(t *testing.T) {
	require.Equal(t, Critical, Classify(0.80))
	require.Equal(t, High, Classify(0.60))
	require.Equal(t, Medium, Classify(0.30))
	require.Equal(t, Low, Classify(0.29))
	require.Equal(t, Low, Classify(0))
}
