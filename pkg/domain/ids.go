package domain

import (
	"github.com/google/uuid"

	dErrors "guardian/pkg/domain-errors"
)

// Typed identifiers. Each aggregate references the others only through these
// opaque values, never through object pointers, so consent, relationship and
// profile records can live in separate stores without ownership cycles.
type (
	ChildID        uuid.UUID
	ParentID       uuid.UUID
	ConsentID      uuid.UUID
	RelationshipID uuid.UUID
	RegistrationID uuid.UUID
	InteractionID  uuid.UUID
)

func (id ChildID) String() string        { return uuid.UUID(id).String() }
func (id ParentID) String() string       { return uuid.UUID(id).String() }
func (id ConsentID) String() string      { return uuid.UUID(id).String() }
func (id RelationshipID) String() string { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id InteractionID) String() string  { return uuid.UUID(id).String() }

func (id ChildID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ParentID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id RelationshipID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id InteractionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// NewChildID and friends allocate random identifiers.
func NewChildID() ChildID               { return ChildID(uuid.New()) }
func NewParentID() ParentID             { return ParentID(uuid.New()) }
func NewConsentID() ConsentID           { return ConsentID(uuid.New()) }
func NewRelationshipID() RelationshipID { return RelationshipID(uuid.New()) }
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }
func NewInteractionID() InteractionID   { return InteractionID(uuid.New()) }

// parseUUID is the single parsing rule for every identifier type: non-empty,
// well-formed, and not the nil UUID.
func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is malformed")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is malformed")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

func ParseChildID(s string) (ChildID, error) {
	u, err := parseUUID("child id", s)
	return ChildID(u), err
}

func ParseParentID(s string) (ParentID, error) {
	u, err := parseUUID("parent id", s)
	return ParentID(u), err
}

func ParseConsentID(s string) (ConsentID, error) {
	u, err := parseUUID("consent id", s)
	return ConsentID(u), err
}

func ParseRelationshipID(s string) (RelationshipID, error) {
	u, err := parseUUID("relationship id", s)
	return RelationshipID(u), err
}

func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID("registration id", s)
	return RegistrationID(u), err
}

func ParseInteractionID(s string) (InteractionID, error) {
	u, err := parseUUID("interaction id", s)
	return InteractionID(u), err
}

// Text marshaling keeps identifiers readable in event payloads and JSON
// responses instead of encoding as byte arrays.

func (id ChildID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id ParentID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id ConsentID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id RelationshipID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RegistrationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id InteractionID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }

func (id *ChildID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ParentID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ConsentID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RelationshipID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RegistrationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *InteractionID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
