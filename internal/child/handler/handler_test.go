package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"guardian/internal/child/handler/mocks"
	"guardian/internal/child/models"
	"guardian/internal/child/service"
	consentmodels "guardian/internal/consent/models"
	jwttoken "guardian/internal/jwt_token"
	safetymodels "guardian/internal/safety/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	tokens  *jwttoken.JWTService
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

	s.tokens = jwttoken.NewJWTService("test-signing-key", "guardian", "guardian-api")

	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).WithDevicePairing(s.tokens, time.Hour)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(requestcontext.WithParentID(req.Context(), s.parent)))
		})
	})
	h.Register(r)
	h.RegisterDevice(r)
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

func (s *HandlerSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body map[string]any
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	code, _ := body["error"].(string)
	return code
}

func (s *HandlerSuite) path(suffix string) string {
	return "/children/" + s.child.String() + suffix
}

func (s *HandlerSuite) TestRegister() {
	s.Run("parses the birthdate and relationship", func() {
		want := service.RegisterRequest{
			Name:         "Mia",
			Birthdate:    time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC),
			Language:     "en",
			Relationship: consentmodels.RelationshipLegalGuardian,
		}
		s.service.EXPECT().Register(gomock.Any(), want).Return(&models.Profile{ID: s.child, Name: "Mia", Version: 1}, nil)

		resp := s.do(http.MethodPost, "/children", map[string]string{
			"name": "Mia", "birthdate": "2018-03-01", "language": "en", "relationship": "legal_guardian",
		})

		s.Equal(http.StatusCreated, resp.Code)
		var got models.Profile
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&got))
		s.Equal(s.child, got.ID)
	})

	s.Run("bad birthdate never reaches the service", func() {
		resp := s.do(http.MethodPost, "/children", map[string]string{
			"name": "Mia", "birthdate": "01/03/2018", "language": "en", "relationship": "legal_guardian",
		})
		s.Equal(http.StatusBadRequest, resp.Code)
	})

	s.Run("unknown fields are rejected", func() {
		resp := s.do(http.MethodPost, "/children", map[string]string{"name": "Mia", "nickname": "M"})
		s.Equal(http.StatusBadRequest, resp.Code)
	})
}

func (s *HandlerSuite) TestStoreInteraction() {
	body := map[string]any{"kind": "voice", "audio": []byte("RIFF"), "audio_content_type": "audio/wav", "transcript": "hi"}

	s.Run("created", func() {
		iid := id.NewInteractionID()
		s.service.EXPECT().StoreInteraction(gomock.Any(), s.child, service.InteractionInput{
			Kind: models.InteractionVoice, Audio: []byte("RIFF"), AudioContentType: "audio/wav", Transcript: "hi",
		}).Return(&service.InteractionResult{InteractionID: iid, Version: 2}, nil)

		resp := s.do(http.MethodPost, s.path("/interactions"), body)

		s.Equal(http.StatusCreated, resp.Code)
		var got service.InteractionResult
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&got))
		s.Equal(iid, got.InteractionID)
		s.Equal(int64(2), got.Version)
	})

	s.Run("missing consent is forbidden with the categories", func() {
		s.service.EXPECT().StoreInteraction(gomock.Any(), s.child, gomock.Any()).
			Return(nil, &consentmodels.ConsentRequiredError{ChildID: s.child, Missing: []id.ConsentCategory{id.ConsentVoiceRecording, id.ConsentDataCollection}})

		resp := s.do(http.MethodPost, s.path("/interactions"), body)

		s.Equal(http.StatusForbidden, resp.Code)
		var got struct {
			Error       string         `json:"error"`
			Description string         `json:"error_description"`
			Details     map[string]any `json:"details"`
		}
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&got))
		s.Equal(string(dErrors.CodeMissingConsent), got.Error)
		s.Contains(got.Description, "data_collection, voice_recording")
		s.NotEmpty(got.Details)
	})

	s.Run("blocked response is 451", func() {
		s.service.EXPECT().StoreInteraction(gomock.Any(), s.child, gomock.Any()).
			Return(&service.InteractionResult{Safety: &safetymodels.Result{RecommendedAction: safetymodels.ActionBlock}},
				dErrors.New(dErrors.CodeContentBlocked, "assistant response was not delivered"))

		resp := s.do(http.MethodPost, s.path("/interactions"), body)

		s.Equal(http.StatusUnavailableForLegalReasons, resp.Code)
		s.Equal(string(dErrors.CodeContentBlocked), s.errorCode(resp))
	})

	s.Run("unknown kind is rejected", func() {
		resp := s.do(http.MethodPost, s.path("/interactions"), map[string]any{"kind": "video"})
		s.Equal(http.StatusBadRequest, resp.Code)
	})
}

func (s *HandlerSuite) TestTouchInteraction() {
	s.service.EXPECT().TouchInteraction(gomock.Any(), s.child).Return(&models.Profile{ID: s.child}, nil)

	resp := s.do(http.MethodPost, s.path("/interactions/touch"), nil)

	s.Equal(http.StatusNoContent, resp.Code)
}

func (s *HandlerSuite) TestTopics() {
	s.Run("topic is normalized before the service", func() {
		s.service.EXPECT().AddAllowedTopic(gomock.Any(), s.child, "space").Return(&models.Profile{ID: s.child, AllowedTopics: []string{"space"}}, nil)

		resp := s.do(http.MethodPost, s.path("/topics/allowed"), map[string]string{"topic": "  Space "})

		s.Equal(http.StatusOK, resp.Code)
	})

	s.Run("duplicate restricted topic is a conflict", func() {
		s.service.EXPECT().AddRestrictedTopic(gomock.Any(), s.child, "news").
			Return(nil, dErrors.New(dErrors.CodeInvariantViolation, `topic "news" is already restricted`))

		resp := s.do(http.MethodPost, s.path("/topics/restricted"), map[string]string{"topic": "news"})

		s.Equal(http.StatusConflict, resp.Code)
		s.Equal(string(dErrors.CodeInvariantViolation), s.errorCode(resp))
	})

	s.Run("empty topic", func() {
		resp := s.do(http.MethodPost, s.path("/topics/allowed"), map[string]string{"topic": " "})
		s.Equal(http.StatusBadRequest, resp.Code)
	})
}

func (s *HandlerSuite) TestParentalControls() {
	s.Run("all fields are required", func() {
		resp := s.do(http.MethodPut, s.path("/parental-controls"), map[string]any{"daily_limit_minutes": 30, "filter_level": "strict"})
		s.Equal(http.StatusBadRequest, resp.Code)
	})

	s.Run("valid controls are passed through", func() {
		want := models.ParentalControls{DailyLimitMinutes: 0, QuietHoursStart: 21, QuietHoursEnd: 6, FilterLevel: models.FilterModerate}
		s.service.EXPECT().UpdateParentalControls(gomock.Any(), s.child, want).Return(&models.Profile{ID: s.child, Controls: want}, nil)

		resp := s.do(http.MethodPut, s.path("/parental-controls"), map[string]any{
			"daily_limit_minutes": 0, "quiet_hours_start": 21, "quiet_hours_end": 6, "filter_level": "moderate",
		})

		s.Equal(http.StatusOK, resp.Code)
	})
}

func (s *HandlerSuite) TestRequestDataDeletion() {
	s.Run("whole profile", func() {
		s.service.EXPECT().RequestDataDeletion(gomock.Any(), s.child, models.ScopeAll, id.InteractionID{}, nil).
			Return(&models.Profile{ID: s.child, Erased: true}, nil)

		resp := s.do(http.MethodPost, s.path("/deletion-requests"), map[string]any{"scope": "all"})

		s.Equal(http.StatusOK, resp.Code)
	})

	s.Run("one category of one interaction", func() {
		iid := id.NewInteractionID()
		s.service.EXPECT().RequestDataDeletion(gomock.Any(), s.child, models.ScopeInteraction, iid, []id.DataCategory{id.DataVoiceRecording}).
			Return(&models.Profile{ID: s.child}, nil)

		resp := s.do(http.MethodPost, s.path("/deletion-requests"), map[string]any{
			"scope": "interaction", "interaction_id": iid.String(), "categories": []string{"voice_recording"},
		})

		s.Equal(http.StatusOK, resp.Code)
	})

	s.Run("profile is not an interaction category", func() {
		resp := s.do(http.MethodPost, s.path("/deletion-requests"), map[string]any{
			"scope": "interaction", "interaction_id": id.NewInteractionID().String(), "categories": []string{"profile"},
		})
		s.Equal(http.StatusBadRequest, resp.Code)
	})

	s.Run("a failed purge is retryable", func() {
		s.service.EXPECT().RequestDataDeletion(gomock.Any(), s.child, models.ScopeAll, gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeRetentionDeletionFailed, "failed to delete stored content"))

		resp := s.do(http.MethodPost, s.path("/deletion-requests"), map[string]any{"scope": "all"})

		s.Equal(http.StatusServiceUnavailable, resp.Code)
	})
}

func (s *HandlerSuite) TestPairDevice() {
	s.Run("verified parent receives a token bound to the child", func() {
		s.service.EXPECT().Get(gomock.Any(), s.child).Return(&models.Profile{ID: s.child}, nil)

		resp := s.do(http.MethodPost, s.path("/devices"), map[string]string{"device_id": " speaker-1 "})

		s.Require().Equal(http.StatusCreated, resp.Code)
		var got PairDeviceResponse
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&got))
		s.Equal("speaker-1", got.DeviceID)
		s.Equal(s.child, got.ChildID)
		claims, err := s.tokens.ValidateToken(got.AccessToken)
		s.Require().NoError(err)
		s.Equal(jwttoken.KindDevice, claims.Kind)
		s.Equal(s.child.String(), claims.ChildID)
		s.Empty(claims.ParentID)
	})

	s.Run("unverified parent gets no token", func() {
		s.service.EXPECT().Get(gomock.Any(), s.child).
			Return(nil, &consentmodels.RelationshipNotVerifiedError{ParentID: s.parent, ChildID: s.child, Status: consentmodels.RelationshipPending})

		resp := s.do(http.MethodPost, s.path("/devices"), map[string]string{"device_id": "speaker-1"})

		s.Equal(http.StatusForbidden, resp.Code)
		s.Equal(string(dErrors.CodeRelationshipNotVerified), s.errorCode(resp))
	})

	s.Run("erased child cannot be paired", func() {
		s.service.EXPECT().Get(gomock.Any(), s.child).Return(&models.Profile{ID: s.child, Erased: true}, nil)

		resp := s.do(http.MethodPost, s.path("/devices"), map[string]string{"device_id": "speaker-1"})

		s.Equal(http.StatusConflict, resp.Code)
	})

	s.Run("device id is required", func() {
		resp := s.do(http.MethodPost, s.path("/devices"), map[string]string{"device_id": "  "})
		s.Equal(http.StatusBadRequest, resp.Code)
	})
}
