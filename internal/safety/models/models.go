// Package models defines the safety analysis vocabulary: analyzer kinds, the
// per-analyzer result bundle and the decision derived from it.
package models

import (
	"time"

	id "guardian/pkg/domain"
)

type AnalyzerKind string

const (
	KindToxicity               AnalyzerKind = "toxicity"
	KindEmotionalImpact        AnalyzerKind = "emotional_impact"
	KindEducationalValue       AnalyzerKind = "educational_value"
	KindContextAppropriateness AnalyzerKind = "context_appropriateness"
	KindBias                   AnalyzerKind = "bias"
)

// Kinds is the fixed analyzer set in evaluation order.
var Kinds = []AnalyzerKind{
	KindToxicity,
	KindEmotionalImpact,
	KindEducationalValue,
	KindContextAppropriateness,
	KindBias,
}

// HigherIsSafer reports whether a raw score of 1 means "good" for this kind.
// Such scores are inverted before thresholds apply.
func (k AnalyzerKind) HigherIsSafer() bool {
	return k == KindEducationalValue || k == KindContextAppropriateness
}

func (k AnalyzerKind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type Action string

const (
	ActionAllow           Action = "allow"
	ActionModify          Action = "modify"
	ActionBlock           Action = "block"
	ActionEscalateToHuman Action = "escalate_to_human"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionAllow, ActionModify, ActionBlock, ActionEscalateToHuman:
		return true
	}
	return false
}

// Delivers reports whether content may reach the child, possibly after adaptation.
func (a Action) Delivers() bool {
	return a == ActionAllow || a == ActionModify
}

// Severity label used when an analyzer failed and was scored as worst case.
const LabelUnavailable = "unavailable"

// Candidate is content proposed for delivery to, or storage about, a child.
// The pipeline never changes it.
type Candidate struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Language string `json:"language,omitempty"`
}

// ChildContext is what analyzers may know about the recipient.
type ChildContext struct {
	ChildID          id.ChildID `json:"child_id"`
	Age              int        `json:"age"`
	Language         string     `json:"language"`
	FilterLevel      string     `json:"filter_level"`
	AllowedTopics    []string   `json:"allowed_topics,omitempty"`
	RestrictedTopics []string   `json:"restricted_topics,omitempty"`
}

// Assessment is the raw output of one analyzer.
type Assessment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// SubResult is one analyzer's contribution after normalization.
type SubResult struct {
	Kind     AnalyzerKind  `json:"kind"`
	Score    float64       `json:"score"`
	Severity float64       `json:"severity"`
	Label    string        `json:"label"`
	Veto     bool          `json:"veto"`
	Failed   bool          `json:"failed,omitempty"`
	Error    string        `json:"error,omitempty"`
	Latency  time.Duration `json:"latency_ns"`
}

// Result is the full safety analysis for one candidate.
type Result struct {
	Results           []SubResult    `json:"results"`
	WeightedSeverity  float64        `json:"weighted_severity"`
	RiskLevel         RiskLevel      `json:"risk_level"`
	RecommendedAction Action         `json:"recommended_action"`
	VetoedBy          []AnalyzerKind `json:"vetoed_by,omitempty"`
	EvaluatedAt       time.Time      `json:"evaluated_at"`
}

// Get returns the sub-result for kind.
func (r *Result) Get(kind AnalyzerKind) (SubResult, bool) {
	for _, sr := range r.Results {
		if sr.Kind == kind {
			return sr, true
		}
	}
	return SubResult{}, false
}

func (r *Result) Toxicity() SubResult         { sr, _ := r.Get(KindToxicity); return sr }
func (r *Result) EmotionalImpact() SubResult  { sr, _ := r.Get(KindEmotionalImpact); return sr }
func (r *Result) EducationalValue() SubResult { sr, _ := r.Get(KindEducationalValue); return sr }
func (r *Result) ContextAnalysis() SubResult  { sr, _ := r.Get(KindContextAppropriateness); return sr }
func (r *Result) BiasAnalysis() SubResult     { sr, _ := r.Get(KindBias); return sr }

// Failed returns the kinds whose analyzer did not produce a usable result.
func (r *Result) Failed() []AnalyzerKind {
	var out []AnalyzerKind
	for _, sr := range r.Results {
		if sr.Failed {
			out = append(out, sr.Kind)
		}
	}
	return out
}
