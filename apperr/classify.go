package apperr

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

// ClassifyTokenError maps a golang-jwt parse error onto the closed taxonomy.
// Only a token whose signature checked out but whose exp has passed counts as
// expired; every other failure is an invalid token. A token that is both
// expired and from the wrong issuer is invalid.
func ClassifyTokenError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if errors.Is(err, jwt.ErrTokenExpired) &&
		!errors.Is(err, jwt.ErrTokenSignatureInvalid) &&
		!errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		return Expired(err)
	}
	return InvalidToken(err)
}

// ClassifyValidationError maps a go-playground/validator error. Field errors
// become ValidationFailed with one message per field; anything else means the
// schema could not be applied and becomes a schema error.
func ClassifyValidationError(err error, messages func(validator.ValidationErrors) []string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return ValidationFailed(messages(fieldErrs))
	}
	return SchemaError(err)
}
