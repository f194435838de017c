package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"guardian/internal/consent/handler/mocks"
	"guardian/internal/consent/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	audit "guardian/pkg/platform/audit"
	"guardian/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	parent  id.ParentID
	child   id.ChildID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.parent = id.NewParentID()
	s.child = id.NewChildID()

	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(requestcontext.WithParentID(req.Context(), s.parent)))
			})
		})
		h.Register(r)
	})
	h.RegisterAdmin(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func (s *HandlerSuite) TestRequestConsent() {
	s.Run("creates a record", func() {
		rec := &models.ConsentRecord{ID: id.NewConsentID(), ChildID: s.child, Category: id.ConsentVoiceRecording, Status: models.StatusRequested}
		s.service.EXPECT().RequestConsent(gomock.Any(), s.child, id.ConsentVoiceRecording).Return(rec, nil)

		resp := s.do(http.MethodPost, "/children/"+s.child.String()+"/consents", map[string]string{"category": "voice_recording"})
		s.Equal(http.StatusCreated, resp.Code)
		var got models.ConsentRecord
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&got))
		s.Equal(rec.ID, got.ID)
		s.Equal(models.StatusRequested, got.Status)
	})

	s.Run("unknown category is rejected before the service", func() {
		resp := s.do(http.MethodPost, "/children/"+s.child.String()+"/consents", map[string]string{"category": "telepathy"})
		s.Equal(http.StatusBadRequest, resp.Code)
		s.Equal(string(dErrors.CodeInvalidInput), decodeError(s.T(), resp)["error"])
	})

	s.Run("malformed child id", func() {
		resp := s.do(http.MethodPost, "/children/not-a-uuid/consents", map[string]string{"category": "marketing"})
		s.Equal(http.StatusBadRequest, resp.Code)
	})

	s.Run("unverified relationship is forbidden with details", func() {
		s.service.EXPECT().RequestConsent(gomock.Any(), s.child, id.ConsentMarketing).
			Return(nil, &models.RelationshipNotVerifiedError{ParentID: s.parent, ChildID: s.child, Status: models.RelationshipPending})

		resp := s.do(http.MethodPost, "/children/"+s.child.String()+"/consents", map[string]string{"category": "marketing"})
		s.Equal(http.StatusForbidden, resp.Code)
		body := decodeError(s.T(), resp)
		s.Equal(string(dErrors.CodeRelationshipNotVerified), body["error"])
		s.NotNil(body["details"])
	})
}

func (s *HandlerSuite) TestVerificationStatuses() {
	consentID := id.NewConsentID()
	path := "/consents/" + consentID.String() + "/verification"

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"rate limited", dErrors.New(dErrors.CodeRateLimited, "slow down"), http.StatusTooManyRequests},
		{"delivery failed", dErrors.New(dErrors.CodeVerificationDeliveryFailed, "gateway down"), http.StatusServiceUnavailable},
		{"not open", dErrors.New(dErrors.CodeInvariantViolation, "consent is granted"), http.StatusConflict},
		{"other parent", dErrors.New(dErrors.CodeForbidden, "consent belongs to another parent"), http.StatusForbidden},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.service.EXPECT().InitiateVerification(gomock.Any(), consentID, models.MethodSMS, "+15555550123").Return(nil, tc.err)
			resp := s.do(http.MethodPost, path, map[string]string{"method": "sms", "destination": "+15555550123"})
			s.Equal(tc.status, resp.Code)
		})
	}

	s.Run("strong identity is not a code channel", func() {
		resp := s.do(http.MethodPost, path, map[string]string{"method": "strong_identity", "destination": "x"})
		s.Equal(http.StatusBadRequest, resp.Code)
	})
}

func (s *HandlerSuite) TestCompleteVerification() {
	consentID := id.NewConsentID()
	path := "/consents/" + consentID.String() + "/verification/complete"

	s.Run("wrong code is unprocessable", func() {
		s.service.EXPECT().CompleteVerification(gomock.Any(), consentID, "123456").
			Return(nil, dErrors.New(dErrors.CodeVerificationInvalid, "verification code is incorrect; 2 attempts left"))
		resp := s.do(http.MethodPost, path, map[string]string{"code": " 123456 "})
		s.Equal(http.StatusUnprocessableEntity, resp.Code)
		s.Contains(decodeError(s.T(), resp)["error_description"], "2 attempts left")
	})

	s.Run("empty code", func() {
		resp := s.do(http.MethodPost, path, map[string]string{"code": ""})
		s.Equal(http.StatusBadRequest, resp.Code)
	})

	s.Run("granted", func() {
		granted := &models.ConsentRecord{ID: consentID, Status: models.StatusGranted}
		s.service.EXPECT().CompleteVerification(gomock.Any(), consentID, "654321").Return(granted, nil)
		resp := s.do(http.MethodPost, path, map[string]string{"code": "654321"})
		s.Equal(http.StatusOK, resp.Code)
	})
}

func (s *HandlerSuite) TestRevoke() {
	consentID := id.NewConsentID()
	s.service.EXPECT().Revoke(gomock.Any(), consentID).Return(&models.ConsentRecord{ID: consentID, Status: models.StatusRevoked}, nil)

	resp := s.do(http.MethodPost, "/consents/"+consentID.String()+"/revoke", nil)
	s.Equal(http.StatusOK, resp.Code)
}

func (s *HandlerSuite) TestListConsentsRequiresVerifiedLink() {
	s.Run("denied", func() {
		s.service.EXPECT().RequireVerifiedRelationship(gomock.Any(), s.parent, s.child).
			Return(&models.RelationshipNotVerifiedError{ParentID: s.parent, ChildID: s.child})
		resp := s.do(http.MethodGet, "/children/"+s.child.String()+"/consents", nil)
		s.Equal(http.StatusForbidden, resp.Code)
	})

	s.Run("allowed and never null", func() {
		s.service.EXPECT().RequireVerifiedRelationship(gomock.Any(), s.parent, s.child).Return(nil)
		s.service.EXPECT().ListConsents(gomock.Any(), s.child).Return(nil, nil)
		resp := s.do(http.MethodGet, "/children/"+s.child.String()+"/consents", nil)
		s.Equal(http.StatusOK, resp.Code)
		s.JSONEq(`{"consents":[]}`, resp.Body.String())
	})
}

func (s *HandlerSuite) TestAccessAuditTrail() {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.service.EXPECT().GetAccessAuditTrail(gomock.Any(), s.child).Return([]audit.Event{{
		Timestamp:       at,
		Action:          string(audit.ActionConsentChecked),
		Actor:           "device",
		ChildID:         s.child,
		ConsentCategory: "voice_recording",
		Decision:        audit.DecisionDenied,
	}}, nil)

	resp := s.do(http.MethodGet, "/children/"+s.child.String()+"/access-audit", nil)
	s.Require().Equal(http.StatusOK, resp.Code)
	var body accessTrailResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Require().Len(body.Entries, 1)
	s.Equal("consent_checked", body.Entries[0].Action)
	s.Equal("denied", body.Entries[0].Decision)
	s.Empty(body.Entries[0].ParentID)
}

func (s *HandlerSuite) TestAdminDecisionRunsAsSystem() {
	relID := id.NewRelationshipID()
	s.service.EXPECT().VerifyRelationship(gomock.Any(), relID, models.MethodStrongIdentity).
		DoAndReturn(func(ctx context.Context, _ id.RelationshipID, _ models.Method) (*models.Relationship, error) {
			assert.Equal(s.T(), requestcontext.ActorSystem, requestcontext.ActorOf(ctx))
			return &models.Relationship{ID: relID, Status: models.RelationshipVerified}, nil
		})

	resp := s.do(http.MethodPost, "/admin/relationships/"+relID.String()+"/decision", map[string]string{"decision": "verify"})
	s.Equal(http.StatusOK, resp.Code)

	resp = s.do(http.MethodPost, "/admin/relationships/"+relID.String()+"/decision", map[string]string{"decision": "reject"})
	s.Equal(http.StatusBadRequest, resp.Code, "reject needs a reason")
}
