package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"guardian/internal/safety/models"
	id "guardian/pkg/domain"
)

type fixedAnalyzer struct {
	kind  models.AnalyzerKind
	score float64
	label string
	err   error
	delay time.Duration
}

func (f fixedAnalyzer) Kind() models.AnalyzerKind { return f.kind }

func (f fixedAnalyzer) Analyze(ctx context.Context, _ models.Candidate, _ models.ChildContext) (models.Assessment, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return models.Assessment{}, f.err
	}
	return models.Assessment{Score: f.score, Label: f.label}, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	incidents []Incident
}

func (r *recordingNotifier) Notify(_ context.Context, in Incident) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incidents = append(r.incidents, in)
}

func testPolicy() models.Policy {
	return models.Policy{
		Analyzers: map[models.AnalyzerKind]models.AnalyzerPolicy{
			models.KindToxicity:               {HardThreshold: 0.8, Weight: 1},
			models.KindEmotionalImpact:        {HardThreshold: 0.9, Weight: 1},
			models.KindEducationalValue:       {HardThreshold: 1.0, Weight: 1},
			models.KindContextAppropriateness: {HardThreshold: 0.95, Weight: 1},
			models.KindBias:                   {HardThreshold: 0.85, Weight: 1},
		},
		Bands: models.Bands{Medium: 0.3, High: 0.5, Critical: 0.7},
		Actions: map[models.RiskLevel]models.Action{
			models.RiskLow:      models.ActionAllow,
			models.RiskMedium:   models.ActionModify,
			models.RiskHigh:     models.ActionBlock,
			models.RiskCritical: models.ActionEscalateToHuman,
		},
	}
}

// benign returns analyzers scoring everything as safe.
func benign() map[models.AnalyzerKind]fixedAnalyzer {
	return map[models.AnalyzerKind]fixedAnalyzer{
		models.KindToxicity:               {kind: models.KindToxicity, score: 0, label: "clean"},
		models.KindEmotionalImpact:        {kind: models.KindEmotionalImpact, score: 0, label: "neutral"},
		models.KindEducationalValue:       {kind: models.KindEducationalValue, score: 1, label: "high"},
		models.KindContextAppropriateness: {kind: models.KindContextAppropriateness, score: 1, label: "appropriate"},
		models.KindBias:                   {kind: models.KindBias, score: 0, label: "none"},
	}
}

type PipelineSuite struct {
	suite.Suite
	notifier *recordingNotifier
	child    models.ChildContext
	content  models.Candidate
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.notifier = &recordingNotifier{}
	s.child = models.ChildContext{ChildID: id.NewChildID(), Age: 8, Language: "en"}
	s.content = models.Candidate{Text: "Dinosaurs lived millions of years ago.", Source: "assistant_response"}
}

func (s *PipelineSuite) pipeline(set map[models.AnalyzerKind]fixedAnalyzer, opts ...Option) *Pipeline {
	var list []Analyzer
	for _, k := range models.Kinds {
		list = append(list, set[k])
	}
	p, err := New(testPolicy(), list, append([]Option{WithNotifier(s.notifier)}, opts...)...)
	s.Require().NoError(err)
	return p
}

func (s *PipelineSuite) TestBenignContentIsAllowed() {
	res, err := s.pipeline(benign()).Evaluate(context.Background(), s.content, s.child)
	s.Require().NoError(err)
	s.Equal(models.ActionAllow, res.RecommendedAction)
	s.Equal(models.RiskLow, res.RiskLevel)
	s.Len(res.Results, 5)
	s.Empty(s.notifier.incidents)
}

func (s *PipelineSuite) TestVetoDominatesHighEducationalValue() {
	set := benign()
	set[models.KindToxicity] = fixedAnalyzer{kind: models.KindToxicity, score: 0.9, label: "insult"}
	set[models.KindEducationalValue] = fixedAnalyzer{kind: models.KindEducationalValue, score: 0.95, label: "high"}

	res, err := s.pipeline(set).Evaluate(context.Background(), s.content, s.child)
	s.Require().NoError(err)
	s.Equal(models.ActionBlock, res.RecommendedAction)
	s.Equal(models.RiskCritical, res.RiskLevel)
	s.Equal([]models.AnalyzerKind{models.KindToxicity}, res.VetoedBy)
	s.Less(res.WeightedSeverity, 0.3, "the average alone would have allowed it")
	s.True(res.Toxicity().Veto)
	s.Require().Len(s.notifier.incidents, 1)
	s.Equal("hard_threshold_veto", s.notifier.incidents[0].Reason)
}

func (s *PipelineSuite) TestVetoAtExactThreshold() {
	set := benign()
	set[models.KindBias] = fixedAnalyzer{kind: models.KindBias, score: 0.85, label: "biased"}
	res, err := s.pipeline(set).Evaluate(context.Background(), s.content, s.child)
	s.Require().NoError(err)
	s.Equal(models.ActionBlock, res.RecommendedAction)
}

func (s *PipelineSuite) TestInvertedPolarity() {
	set := benign()
	set[models.KindContextAppropriateness] = fixedAnalyzer{kind: models.KindContextAppropriateness, score: 0, label: "restricted_topic"}
	res, err := s.pipeline(set).Evaluate(context.Background(), s.content, s.child)
	s.Require().NoError(err)
	s.InDelta(1.0, res.ContextAnalysis().Severity, 1e-9)
	s.Equal(models.ActionBlock, res.RecommendedAction)
}

func (s *PipelineSuite) TestWeightedBandsPickAction() {
	set := benign()
	set[models.KindToxicity] = fixedAnalyzer{kind: models.KindToxicity, score: 0.75, label: "rude"}
	set[models.KindEmotionalImpact] = fixedAnalyzer{kind: models.KindEmotionalImpact, score: 0.85, label: "upsetting"}
	// (0.75 + 0.85) / 5 = 0.32 -> medium -> modify
	res, err := s.pipeline(set).Evaluate(context.Background(), s.content, s.child)
	s.Require().NoError(err)
	s.Empty(res.VetoedBy)
	s.InDelta(0.32, res.WeightedSeverity, 1e-9)
	s.Equal(models.RiskMedium, res.RiskLevel)
	s.Equal(models.ActionModify, res.RecommendedAction)
}

func (s *PipelineSuite) TestEscalationNotifies() {
	set := benign()
	set[models.KindToxicity] = fixedAnalyzer{kind: models.KindToxicity, score: 0.79, label: "rude"}
	set[models.KindEmotionalImpact] = fixedAnalyzer{kind: models.KindEmotionalImpact, score: 0.89, label: "upsetting"}
	set[models.KindBias] = fixedAnalyzer{kind: models.KindBias, score: 0.84, label: "biased"}
	set[models.KindEducationalValue] = fixedAnalyzer{kind: models.KindEducationalValue, score: 0.01, label: "none"}
	set[models.KindContextAppropriateness] = fixedAnalyzer{kind: models.KindContextAppropriateness, score: 0.06, label: "offtopic"}
	res, err := s.pipeline(set).Evaluate(context.Background(), s.content, s.child)
	s.Require().NoError(err)
	s.Empty(res.VetoedBy)
	s.Equal(models.RiskCritical, res.RiskLevel)
	s.Equal(models.ActionEscalateToHuman, res.RecommendedAction)
	s.Require().Len(s.notifier.incidents, 1)
	s.Equal("escalated_to_human", s.notifier.incidents[0].Reason)
}

func (s *PipelineSuite) TestTimeoutFailsClosed() {
	set := benign()
	set[models.KindEmotionalImpact] = fixedAnalyzer{kind: models.KindEmotionalImpact, score: 0, label: "neutral", delay: 200 * time.Millisecond}
	res, err := s.pipeline(set, WithAnalyzerTimeout(20*time.Millisecond)).Evaluate(context.Background(), s.content, s.child)
	s.Require().NoError(err)
	s.Equal(models.ActionBlock, res.RecommendedAction)
	sr := res.EmotionalImpact()
	s.True(sr.Failed)
	s.Equal(models.LabelUnavailable, sr.Label)
	s.Equal([]models.AnalyzerKind{models.KindEmotionalImpact}, res.Failed())
	s.Require().Len(s.notifier.incidents, 1)
	s.Equal("analyzer_unavailable", s.notifier.incidents[0].Reason)
}

func (s *PipelineSuite) TestErrorAndMalformedOutputFailClosed() {
	cases := map[string]fixedAnalyzer{
		"error":       {kind: models.KindBias, err: errors.New("boom")},
		"nan":         {kind: models.KindBias, score: math.NaN(), label: "x"},
		"above range": {kind: models.KindBias, score: 1.2, label: "x"},
		"no label":    {kind: models.KindBias, score: 0.1},
	}
	for name, bad := range cases {
		s.Run(name, func() {
			set := benign()
			set[models.KindBias] = bad
			res, err := s.pipeline(set).Evaluate(context.Background(), s.content, s.child)
			s.Require().NoError(err)
			s.Equal(models.ActionBlock, res.RecommendedAction)
			s.True(res.BiasAnalysis().Failed)
		})
	}
}

func (s *PipelineSuite) TestEmptyCandidateRejected() {
	_, err := s.pipeline(benign()).Evaluate(context.Background(), models.Candidate{Text: "  "}, s.child)
	s.Error(err)
}

func (s *PipelineSuite) TestNewRequiresEveryKind() {
	_, err := New(testPolicy(), []Analyzer{benign()[models.KindToxicity]})
	s.Error(err)
}
