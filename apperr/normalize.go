package apperr

import "net/http"

// Envelope is the only failure body the gateway ever sends.
type Envelope struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

const envelopeStatus = "error"

// Normalize maps any error to an HTTP status and envelope. Application errors
// with an explicit status are echoed verbatim; token, role and validation
// failures keep their specific status and message; everything else collapses
// to an opaque 500.
func Normalize(err error) (int, Envelope) {
	appErr, ok := As(err)
	if !ok {
		return generic()
	}

	switch appErr.Kind {
	case KindMissingToken:
		return http.StatusUnauthorized, envelope(MsgMissingToken, nil)
	case KindMalformedHeader:
		return http.StatusUnauthorized, envelope(MsgMalformedHeader, nil)
	case KindExpired:
		return http.StatusUnauthorized, envelope(MsgTokenExpired, nil)
	case KindInvalidToken:
		return http.StatusForbidden, envelope(MsgInvalidToken, nil)
	case KindForbidden:
		msg := appErr.Message
		if msg == "" {
			msg = "Access forbidden"
		}
		return http.StatusForbidden, envelope(msg, nil)
	case KindValidationFailed:
		return http.StatusBadRequest, envelope(MsgValidationFailed, appErr.Details)
	case KindApplication:
		if appErr.Status < 400 || appErr.Status > 599 {
			return generic()
		}
		return appErr.Status, envelope(appErr.Message, appErr.Details)
	default:
		// KindValidationSchemaError, KindUnhandled
		return generic()
	}
}

// IsServerError reports whether err normalizes to a 5xx response.
func IsServerError(err error) bool {
	status, _ := Normalize(err)
	return status >= http.StatusInternalServerError
}

func generic() (int, Envelope) {
	return http.StatusInternalServerError, envelope(MsgGeneric, nil)
}

func envelope(message string, details []string) Envelope {
	return Envelope{Status: envelopeStatus, Message: message, Errors: details}
}
