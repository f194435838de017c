package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"guardian/internal/safety/models"
	audit "guardian/pkg/platform/audit"
)

// SecurityEmitter is the non-blocking security audit publisher.
type SecurityEmitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// AuditNotifier records incidents on the security audit trail and in the log.
type AuditNotifier struct {
	emitter SecurityEmitter
	logger  *slog.Logger
}

func NewAuditNotifier(emitter SecurityEmitter, logger *slog.Logger) *AuditNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditNotifier{emitter: emitter, logger: logger}
}

func (n *AuditNotifier) Notify(ctx context.Context, in Incident) {
	action := audit.ActionSafetyBlocked
	severity := audit.SeverityWarning
	if in.Result.RecommendedAction == models.ActionEscalateToHuman {
		action = audit.ActionSafetyEscalated
		severity = audit.SeverityCritical
	}
	if len(in.Result.Failed()) > 0 {
		severity = audit.SeverityCritical
	}

	detail := describe(in)
	n.emitter.Emit(ctx, audit.Event{
		Category: action.Category(),
		ChildID:  in.ChildContext.ChildID,
		Action:   string(action),
		Decision: string(in.Result.RecommendedAction),
		Reason:   detail,
		Severity: severity,
	})
	if severity == audit.SeverityCritical {
		n.logger.ErrorContext(ctx, "CRITICAL: safety incident",
			"child_id", in.ChildContext.ChildID,
			"reason", in.Reason,
			"detail", detail,
		)
	}
}

func describe(in Incident) string {
	parts := []string{in.Reason, "risk=" + string(in.Result.RiskLevel)}
	for _, k := range in.Result.VetoedBy {
		sr, _ := in.Result.Get(k)
		parts = append(parts, fmt.Sprintf("veto:%s=%.2f", k, sr.Severity))
	}
	for _, k := range in.Result.Failed() {
		parts = append(parts, "failed:"+string(k))
	}
	return strings.Join(parts, " ")
}
