package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/repositories"
)

// Domain errors returned by the services. Each one is an application error,
// so its status and message reach the client unchanged through the normalizer.
var (
	// Authentication
	ErrInvalidCredentials = apperr.New(http.StatusUnauthorized, "Invalid credentials")

	// Users
	ErrUserNotFound  = apperr.NotFound("User not found")
	ErrUsernameTaken = apperr.Conflict("Username already exists")
	ErrInvalidUserID = apperr.BadRequest("Invalid user id")

	// Records
	ErrRecordNotFound  = apperr.NotFound("Record not found")
	ErrRecordExists    = apperr.Conflict("Record already exists")
	ErrPatientNotFound = apperr.NotFound("Patient not found")
	ErrNotPatient      = apperr.BadRequest("Record owner must be a patient")
	ErrAccessDenied    = apperr.Forbidden("Access denied")

	// Permissions
	ErrUnknownAction   = apperr.BadRequest("Unknown action")
	ErrNotRecordOwner  = apperr.Forbidden("Only the record owner can manage access")
	ErrGranteeNotFound = apperr.NotFound("Grantee not found")
	ErrGrantNotFound   = apperr.NotFound("Permission not found")
	ErrExpiryInPast    = apperr.BadRequest("Expiration time cannot be in the past")
)

// translateRepoError maps repository sentinels onto the domain error for the
// entity in question. Anything else is wrapped as an internal failure so the
// normalizer hides the cause from the client.
func translateRepoError(err error, notFound, duplicate error, op string) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, repositories.ErrNotFound):
		return notFound
	case duplicate != nil && errors.Is(err, repositories.ErrDuplicate):
		return duplicate
	default:
		return apperr.Unhandled(fmt.Errorf("%s: %w", op, err))
	}
}
