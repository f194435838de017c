package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/safety/models"
	id "guardian/pkg/domain"
	audit "guardian/pkg/platform/audit"
)

type captureEmitter struct {
	events []audit.Event
}

func (c *captureEmitter) Emit(_ context.Context, e audit.Event) {
	c.events = append(c.events, e)
}

func TestAuditNotifier_EscalationIsCritical(t *testing.T) {
	em := &captureEmitter{}
	childID := id.NewChildID()
	NewAuditNotifier(em, nil).Notify(context.Background(), Incident{
		ChildContext: models.ChildContext{ChildID: childID},
		Result:       &models.Result{RiskLevel: models.RiskCritical, RecommendedAction: models.ActionEscalateToHuman},
		Reason:       "escalated_to_human",
	})

	require.Len(t, em.events, 1)
	e := em.events[0]
	assert.Equal(t, childID, e.ChildID)
	assert.Equal(t, string(audit.ActionSafetyEscalated), e.Action)
	assert.Equal(t, audit.CategorySecurity, e.Category)
	assert.Equal(t, audit.SeverityCritical, e.Severity)
}

func TestAuditNotifier_VetoIsWarning(t *testing.T) {
	em := &captureEmitter{}
	res := &models.Result{
		Results:           []models.SubResult{{Kind: models.KindToxicity, Severity: 0.9, Veto: true}},
		RiskLevel:         models.RiskCritical,
		RecommendedAction: models.ActionBlock,
		VetoedBy:          []models.AnalyzerKind{models.KindToxicity},
	}
	NewAuditNotifier(em, nil).Notify(context.Background(), Incident{Result: res, Reason: "hard_threshold_veto"})

	require.Len(t, em.events, 1)
	assert.Equal(t, string(audit.ActionSafetyBlocked), em.events[0].Action)
	assert.Equal(t, audit.SeverityWarning, em.events[0].Severity)
	assert.Contains(t, em.events[0].Reason, "veto:toxicity=0.90")
}
