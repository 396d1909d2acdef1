package engine

import (
	"github.com/anthropic/engram/internal/knowledge"
	"github.com/anthropic/engram/internal/testintent"
)

// CoupledFile is one entry of an analysis result's coupled_files list
// (spec.md §6's AnalysisResult shape).
type CoupledFile struct {
	Path           string                 `json:"path"`
	CouplingScore  float64                `json:"coupling_score"`
	CoChangeCount  int                    `json:"co_change_count"`
	RiskScore      float64                `json:"risk_score"`
	Classification string                 `json:"classification"`
	Memories       []knowledge.Memory     `json:"memories,omitempty"`
	TestIntents    []testintent.TestIntent `json:"test_intents,omitempty"`
}

// Result is the external-interface AnalysisResult record.
type Result struct {
	FilePath       string               `json:"file_path"`
	RepoRoot       string               `json:"repo_root"`
	CoupledFiles   []CoupledFile        `json:"coupled_files"`
	CommitCount    int                  `json:"commit_count"`
	AnalysisTimeMs int64                `json:"analysis_time_ms"`
	TestInfo       *testintent.TestInfo `json:"test_info,omitempty"`
	PartialIndex   bool                 `json:"partial_index,omitempty"`
}
