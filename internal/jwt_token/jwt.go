package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	authmw "guardian/pkg/platform/middleware/auth"
)

// Principal kinds carried in the "kind" claim.
const (
	KindParent = "parent"
	KindDevice = "device"
)

// Claims represents the JWT claims for parent and device access tokens.
type Claims struct {
	Kind     string `json:"kind"`
	ParentID string `json:"parent_id,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	// ChildID binds a device token to the one child it was paired with.
	ChildID string `json:"child_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// GenerateParentToken issues a token that authenticates a parent.
func (s *JWTService) GenerateParentToken(parentID id.ParentID, expiresIn time.Duration) (string, error) {
	return s.sign(Claims{Kind: KindParent, ParentID: parentID.String()}, expiresIn)
}

// GenerateDeviceToken issues a token for a device paired with one child.
// Devices never act on behalf of a parent.
func (s *JWTService) GenerateDeviceToken(deviceID string, childID id.ChildID, expiresIn time.Duration) (string, error) {
	if deviceID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "device id is required")
	}
	if childID.IsNil() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "device must be paired with a child")
	}
	return s.sign(Claims{Kind: KindDevice, DeviceID: deviceID, ChildID: childID.String()}, expiresIn)
}

func (s *JWTService) sign(claims Claims, expiresIn time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	switch claims.Kind {
	case KindParent:
		if _, err := id.ParseParentID(claims.ParentID); err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
		}
	case KindDevice:
		if claims.DeviceID == "" {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
		}
		if _, err := id.ParseChildID(claims.ChildID); err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "device token is not paired with a child")
		}
	default:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Adapter exposes the service to the auth middleware.
type Adapter struct {
	service *JWTService
}

func NewAdapter(service *JWTService) *Adapter {
	return &Adapter{service: service}
}

func (a *Adapter) ValidateToken(tokenString string) (*authmw.Principal, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.Principal{
		Kind:     claims.Kind,
		ParentID: claims.ParentID,
		DeviceID: claims.DeviceID,
		ChildID:  claims.ChildID,
		JTI:      claims.ID,
	}, nil
}
