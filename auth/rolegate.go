package auth

import "github.com/upb/emr-gateway/apperr"

// Authorize is the role gate. It passes when required is empty or contains
// the principal's role, otherwise it fails with a message keyed by the
// required role.
func Authorize(p Principal, required RoleSet) error {
	if len(required) == 0 {
		return nil
	}
	if required.Contains(p.Role) {
		return nil
	}
	return apperr.Forbidden(RequirementMessage(required))
}

// RequirementMessage is the client-facing text for a failed role check.
func RequirementMessage(required RoleSet) string {
	if len(required) == 1 {
		for r := range required {
			return r.Title() + " access required"
		}
	}
	return "Insufficient permissions"
}
