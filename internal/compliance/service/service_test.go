package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	childmodels "guardian/internal/child/models"
	childservice "guardian/internal/child/service"
	"guardian/internal/compliance/models"
	"guardian/internal/compliance/service/mocks"
	consentmodels "guardian/internal/consent/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	audit "guardian/pkg/platform/audit"
	compliancepub "guardian/pkg/platform/audit/publishers/compliance"
	auditmemory "guardian/pkg/platform/audit/store/memory"
	"guardian/pkg/requestcontext"
)

type ComplianceServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	consents *mocks.MockConsents
	profiles *mocks.MockProfiles
	audits   *auditmemory.InMemoryStore
	svc      *Service
	parent   id.ParentID
	child    id.ChildID
	now      time.Time
}

func TestComplianceServiceSuite(t *testing.T) {
	suite.Run(t, new(ComplianceServiceSuite))
}

func (s *ComplianceServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.consents = mocks.NewMockConsents(s.ctrl)
	s.profiles = mocks.NewMockProfiles(s.ctrl)
	s.audits = auditmemory.NewInMemoryStore()
	var err error
	s.svc, err = New(s.consents, s.profiles, compliancepub.New(s.audits), nil)
	s.Require().NoError(err)
	s.parent = id.NewParentID()
	s.child = id.NewChildID()
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ComplianceServiceSuite) parentCtx() context.Context {
	return requestcontext.WithTime(requestcontext.WithParentID(context.Background(), s.parent), s.now)
}

func (s *ComplianceServiceSuite) expectData() {
	t0 := s.now.Add(-48 * time.Hour)
	early := &consentmodels.ConsentRecord{ID: id.NewConsentID(), ChildID: s.child, Category: id.ConsentDataCollection, Status: consentmodels.StatusGranted, RequestedAt: t0}
	late := &consentmodels.ConsentRecord{ID: id.NewConsentID(), ChildID: s.child, Category: id.ConsentVoiceRecording, Status: consentmodels.StatusRevoked, RequestedAt: t0.Add(time.Hour)}
	rel := &consentmodels.Relationship{ID: id.NewRelationshipID(), ParentID: s.parent, ChildID: s.child, Type: consentmodels.RelationshipBiological, Status: consentmodels.RelationshipVerified, CreatedAt: t0}

	s.consents.EXPECT().RequireVerifiedRelationship(gomock.Any(), s.parent, s.child).Return(nil)
	s.profiles.EXPECT().Get(gomock.Any(), s.child).Return(&childmodels.Profile{ID: s.child, Name: "Mia", Version: 3}, nil)
	s.consents.EXPECT().ListConsents(gomock.Any(), s.child).Return([]*consentmodels.ConsentRecord{late, early}, nil)
	s.consents.EXPECT().ListRelationships(gomock.Any(), s.child).Return([]*consentmodels.Relationship{rel}, nil)
	s.consents.EXPECT().GetAccessAuditTrail(gomock.Any(), s.child).Return([]audit.Event{
		{ID: uuid.New(), Timestamp: t0.Add(2 * time.Hour), Action: string(audit.ActionRelationshipChecked), Decision: audit.DecisionAllowed},
		{ID: uuid.New(), Timestamp: t0.Add(time.Hour), Action: string(audit.ActionConsentChecked), ConsentCategory: "data_collection", Decision: audit.DecisionDenied, Reason: "missing"},
	}, nil)
}

func (s *ComplianceServiceSuite) TestExportChild() {
	s.expectData()

	got, err := s.svc.ExportChild(s.parentCtx(), s.child)

	s.Require().NoError(err)
	s.Equal(models.FormatVersion, got.FormatVersion)
	s.Equal(s.now, got.GeneratedAt)
	s.Equal("Mia", got.Profile.Name)
	s.Require().Len(got.Consents, 2)
	s.Equal(id.ConsentDataCollection, got.Consents[0].Category)
	s.Equal(id.ConsentVoiceRecording, got.Consents[1].Category)
	s.Len(got.Relationships, 1)
	s.Require().Len(got.AccessAudit, 2)
	s.Equal(string(audit.ActionConsentChecked), got.AccessAudit[0].Action)
	s.Equal(audit.DecisionDenied, got.AccessAudit[0].Decision)

	raw, err := json.Marshal(got)
	s.Require().NoError(err)
	s.Contains(string(raw), `"format_version":"1"`)

	events, err := s.audits.ListByChild(context.Background(), s.child)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.ActionDataExported), events[0].Action)
	s.Equal(s.parent, events[0].ParentID)
}

func (s *ComplianceServiceSuite) TestExportIsNotReturnedUnaudited() {
	s.expectData()
	s.audits.FailAppends(errors.New("disk full"))

	_, err := s.svc.ExportChild(s.parentCtx(), s.child)

	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ComplianceServiceSuite) TestExportRequiresVerifiedParent() {
	s.consents.EXPECT().RequireVerifiedRelationship(gomock.Any(), s.parent, s.child).
		Return(&consentmodels.RelationshipNotVerifiedError{ParentID: s.parent, ChildID: s.child, Status: consentmodels.RelationshipPending})

	_, err := s.svc.ExportChild(s.parentCtx(), s.child)

	s.True(dErrors.HasCode(err, dErrors.CodeRelationshipNotVerified))
}

func (s *ComplianceServiceSuite) TestDevicesCannotExport() {
	ctx := requestcontext.WithDeviceID(context.Background(), "speaker-1", s.child)

	_, err := s.svc.ExportChild(ctx, s.child)

	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ComplianceServiceSuite) TestRequestErasure() {
	s.Run("verified parent erases through the profile service", func() {
		s.consents.EXPECT().RequireVerifiedRelationship(gomock.Any(), s.parent, s.child).Return(nil)
		s.profiles.EXPECT().Erase(gomock.Any(), childservice.ErasureRequest{
			ChildID: s.child,
			Scope:   childmodels.ScopeAll,
			Reason:  childmodels.ReasonParentRequest,
		}).Return(&childmodels.Profile{ID: s.child, Erased: true}, nil)

		got, err := s.svc.RequestErasure(s.parentCtx(), s.child, childmodels.ScopeAll, id.InteractionID{})

		s.Require().NoError(err)
		s.True(got.Erased)
	})

	s.Run("unverified parent never reaches erasure", func() {
		s.consents.EXPECT().RequireVerifiedRelationship(gomock.Any(), s.parent, s.child).
			Return(&consentmodels.RelationshipNotVerifiedError{ParentID: s.parent, ChildID: s.child, Status: consentmodels.RelationshipRejected})

		_, err := s.svc.RequestErasure(s.parentCtx(), s.child, childmodels.ScopeAll, id.InteractionID{})

		s.True(dErrors.HasCode(err, dErrors.CodeRelationshipNotVerified))
	})

	s.Run("system actors are not parents", func() {
		_, err := s.svc.RequestErasure(requestcontext.AsSystem(context.Background()), s.child, childmodels.ScopeAll, id.InteractionID{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestNew_RequiresCollaborators(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, err := New(nil, mocks.NewMockProfiles(ctrl), compliancepub.New(auditmemory.NewInMemoryStore()), nil)
	if err == nil {
		t.Fatal("expected error for missing consent service")
	}
}
