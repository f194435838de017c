package models

import (
	"fmt"
	"strings"

	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

// ConsentRequiredError names the categories a child lacks for an operation.
type ConsentRequiredError struct {
	ChildID id.ChildID
	Missing []id.ConsentCategory
}

func (e *ConsentRequiredError) Error() string {
	return e.coded().Error()
}

func (e *ConsentRequiredError) Unwrap() error {
	return e.coded()
}

func (e *ConsentRequiredError) coded() *dErrors.Error {
	names := make([]string, len(e.Missing))
	for i, c := range id.SortCategories(e.Missing) {
		names[i] = string(c)
	}
	return dErrors.New(dErrors.CodeMissingConsent,
		fmt.Sprintf("parental consent required for: %s", strings.Join(names, ", ")))
}

func (e *ConsentRequiredError) Details() map[string]any {
	names := make([]string, len(e.Missing))
	for i, c := range id.SortCategories(e.Missing) {
		names[i] = string(c)
	}
	return map[string]any{
		"child_id":           e.ChildID.String(),
		"missing_categories": names,
		"next_step":          "request consent for each missing category and complete verification",
	}
}

// RelationshipNotVerifiedError says the acting parent has no verified link to the child.
type RelationshipNotVerifiedError struct {
	ParentID id.ParentID
	ChildID  id.ChildID
	// Status is the best relationship state found, empty when none exists.
	Status RelationshipStatus
}

func (e *RelationshipNotVerifiedError) Error() string {
	return e.coded().Error()
}

func (e *RelationshipNotVerifiedError) Unwrap() error {
	return e.coded()
}

func (e *RelationshipNotVerifiedError) coded() *dErrors.Error {
	switch e.Status {
	case RelationshipPending:
		return dErrors.New(dErrors.CodeRelationshipNotVerified, "relationship to this child is pending verification")
	case RelationshipRejected:
		return dErrors.New(dErrors.CodeRelationshipNotVerified, "relationship to this child was rejected")
	default:
		return dErrors.New(dErrors.CodeRelationshipNotVerified, "no relationship to this child is on file")
	}
}

func (e *RelationshipNotVerifiedError) Details() map[string]any {
	status := string(e.Status)
	next := "complete relationship verification"
	if status == "" {
		status = "none"
		next = "create a relationship to this child and verify it"
	}
	return map[string]any{
		"child_id":            e.ChildID.String(),
		"parent_id":           e.ParentID.String(),
		"relationship_status": status,
		"next_step":           next,
	}
}
