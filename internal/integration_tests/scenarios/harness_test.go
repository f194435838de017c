package scenarios

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	childmodels "guardian/internal/child/models"
	childservice "guardian/internal/child/service"
	childstore "guardian/internal/child/store"
	artifactmemory "guardian/internal/child/store/memory"
	"guardian/internal/consent/channel"
	consentmodels "guardian/internal/consent/models"
	consentservice "guardian/internal/consent/service"
	consentmemory "guardian/internal/consent/store/memory"
	"guardian/internal/eventlog"
	eventmodels "guardian/internal/eventlog/models"
	eventmemory "guardian/internal/eventlog/store/memory"
	"guardian/internal/policy"
	retentionservice "guardian/internal/retention/service"
	retentionmemory "guardian/internal/retention/store/memory"
	safetymodels "guardian/internal/safety/models"
	safetyservice "guardian/internal/safety/service"
	id "guardian/pkg/domain"
	compliancepub "guardian/pkg/platform/audit/publishers/compliance"
	auditmemory "guardian/pkg/platform/audit/store/memory"
	"guardian/pkg/platform/tx"
	"guardian/pkg/requestcontext"
)

const (
	day         = 24 * time.Hour
	parentEmail = "parent@example.com"
)

// start is the scenario clock origin; every step runs at an explicit offset.
var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type scoredAnalyzer struct {
	kind  safetymodels.AnalyzerKind
	score float64
}

func (a scoredAnalyzer) Kind() safetymodels.AnalyzerKind { return a.kind }

func (a scoredAnalyzer) Analyze(context.Context, safetymodels.Candidate, safetymodels.ChildContext) (safetymodels.Assessment, error) {
	return safetymodels.Assessment{Score: a.score, Label: "scripted"}, nil
}

// benignScores rate everything safe; higher-is-safer kinds score 1.
func benignScores() map[safetymodels.AnalyzerKind]float64 {
	return map[safetymodels.AnalyzerKind]float64{
		safetymodels.KindToxicity:               0,
		safetymodels.KindEmotionalImpact:        0,
		safetymodels.KindEducationalValue:       1,
		safetymodels.KindContextAppropriateness: 1,
		safetymodels.KindBias:                   0,
	}
}

func safetyPolicy() safetymodels.Policy {
	return safetymodels.Policy{
		Analyzers: map[safetymodels.AnalyzerKind]safetymodels.AnalyzerPolicy{
			safetymodels.KindToxicity:               {HardThreshold: 0.8, Weight: 1},
			safetymodels.KindEmotionalImpact:        {HardThreshold: 0.9, Weight: 1},
			safetymodels.KindEducationalValue:       {HardThreshold: 1.0, Weight: 1},
			safetymodels.KindContextAppropriateness: {HardThreshold: 0.95, Weight: 1},
			safetymodels.KindBias:                   {HardThreshold: 0.85, Weight: 1},
		},
		Bands: safetymodels.Bands{Medium: 0.3, High: 0.5, Critical: 0.7},
		Actions: map[safetymodels.RiskLevel]safetymodels.Action{
			safetymodels.RiskLow:      safetymodels.ActionAllow,
			safetymodels.RiskMedium:   safetymodels.ActionModify,
			safetymodels.RiskHigh:     safetymodels.ActionBlock,
			safetymodels.RiskCritical: safetymodels.ActionEscalateToHuman,
		},
	}
}

func newPipeline(t *testing.T, scores map[safetymodels.AnalyzerKind]float64, logger *slog.Logger) *safetyservice.Pipeline {
	t.Helper()
	list := make([]safetyservice.Analyzer, 0, len(safetymodels.Kinds))
	for _, k := range safetymodels.Kinds {
		list = append(list, scoredAnalyzer{kind: k, score: scores[k]})
	}
	p, err := safetyservice.New(safetyPolicy(), list, safetyservice.WithLogger(logger))
	require.NoError(t, err)
	return p
}

// world is the whole backend assembled on in-memory stores.
type world struct {
	t         *testing.T
	log       *eventlog.Log
	outbox    *channel.Recorder
	consent   *consentservice.Service
	children  *childservice.Service
	scheduler *retentionservice.Scheduler
	registrar *retentionservice.Registrar
	audits    *auditmemory.InMemoryStore
	parent    id.ParentID
}

func newWorld(t *testing.T, scores map[safetymodels.AnalyzerKind]float64) *world {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := &world{
		t:      t,
		log:    eventlog.New(eventmemory.New(), eventlog.WithLogger(logger)),
		outbox: channel.NewRecorder(),
		audits: auditmemory.NewInMemoryStore(),
		parent: id.NewParentID(),
	}
	compliance := compliancepub.New(w.audits, compliancepub.WithLogger(logger))

	engine, err := policy.New(policy.DefaultConfig())
	require.NoError(t, err)

	w.consent, err = consentservice.New(consentservice.Deps{
		Consents:      consentmemory.NewConsentStore(),
		Relationships: consentmemory.NewRelationshipStore(),
		Codes:         consentmemory.NewCodeStore(),
		Limiter:       consentmemory.NewWindowLimiter(),
		Sender:        channel.NewRouter(map[consentmodels.Method]channel.Sender{consentmodels.MethodEmail: w.outbox}),
		Events:        w.log,
		Tx:            tx.NewShardedRunner(),
		Compliance:    compliance,
		Trail:         w.audits,
	},
		consentservice.WithLogger(logger),
		consentservice.WithConfig(consentservice.Config{
			CodeTTL:        15 * time.Minute,
			RequestTTL:     72 * time.Hour,
			MaxAttempts:    5,
			SendsPerWindow: 20,
			SendWindow:     15 * time.Minute,
		}),
	)
	require.NoError(t, err)

	retention := retentionmemory.New()
	w.registrar, err = retentionservice.NewRegistrar(retention, engine, retentionservice.WithRegistrarLogger(logger))
	require.NoError(t, err)

	w.children, err = childservice.New(childservice.Deps{
		Profiles:      childstore.NewRepository(w.log),
		Consent:       w.consent,
		Relationships: w.consent,
		Retention:     w.registrar,
		Safety:        newPipeline(t, scores, logger),
		Artifacts:     artifactmemory.NewArtifactStore(),
		Policy:        engine,
	}, childservice.WithLogger(logger), childservice.WithAuditor(compliance))
	require.NoError(t, err)

	w.scheduler, err = retentionservice.NewScheduler(retention, w.children, engine.DeletionGrace(),
		retentionservice.WithLogger(logger))
	require.NoError(t, err)
	return w
}

// asParent returns a request context for the parent at start+offset.
func (w *world) asParent(offset time.Duration) context.Context {
	ctx := requestcontext.WithParentID(context.Background(), w.parent)
	return requestcontext.WithTime(ctx, start.Add(offset))
}

func (w *world) lastCode() string {
	w.t.Helper()
	msg, ok := w.outbox.Last(parentEmail)
	require.True(w.t, ok, "no code was sent to %s", parentEmail)
	return msg.Code
}

// registerChild registers a child of the given age and verifies the
// parent's relationship by email.
func (w *world) registerChild(age int) id.ChildID {
	w.t.Helper()
	ctx := w.asParent(0)
	p, err := w.children.Register(ctx, childservice.RegisterRequest{
		Name:         "Mia",
		Birthdate:    start.AddDate(-age, 0, -10),
		Language:     "en",
		Relationship: consentmodels.RelationshipBiological,
	})
	require.NoError(w.t, err)

	_, err = w.consent.InitiateRelationshipVerification(ctx, p.ID, consentmodels.MethodEmail, parentEmail)
	require.NoError(w.t, err)
	rel, err := w.consent.CompleteRelationshipVerification(ctx, p.ID, w.lastCode())
	require.NoError(w.t, err)
	require.Equal(w.t, consentmodels.RelationshipVerified, rel.Status)
	return p.ID
}

// grant requests consent for category and completes email verification.
func (w *world) grant(childID id.ChildID, category id.ConsentCategory, offset time.Duration) *consentmodels.ConsentRecord {
	w.t.Helper()
	ctx := w.asParent(offset)
	rec, err := w.consent.RequestConsent(ctx, childID, category)
	require.NoError(w.t, err)
	_, err = w.consent.InitiateVerification(ctx, rec.ID, consentmodels.MethodEmail, parentEmail)
	require.NoError(w.t, err)
	rec, err = w.consent.CompleteVerification(ctx, rec.ID, w.lastCode())
	require.NoError(w.t, err)
	return rec
}

func (w *world) childVersion(childID id.ChildID) int64 {
	w.t.Helper()
	v, err := w.log.Version(context.Background(), eventmodels.AggregateChild, uuid.UUID(childID))
	require.NoError(w.t, err)
	return v
}

func (w *world) childEvents(childID id.ChildID) []eventmodels.Event {
	w.t.Helper()
	events, err := w.log.Load(context.Background(), eventmodels.AggregateChild, uuid.UUID(childID), 0)
	require.NoError(w.t, err)
	return events
}

func (w *world) profile(childID id.ChildID, offset time.Duration) *childmodels.Profile {
	w.t.Helper()
	p, err := w.children.Get(w.asParent(offset), childID)
	require.NoError(w.t, err)
	return p
}

func eventTypes(events []eventmodels.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func voice() childservice.InteractionInput {
	return childservice.InteractionInput{
		Kind:             childmodels.InteractionVoice,
		Audio:            []byte("RIFF....WAVEfmt "),
		AudioContentType: "audio/wav",
	}
}
