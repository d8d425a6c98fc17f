package handlers

import (
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/upb/emr-gateway/apperr"
	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/middleware"
	"github.com/upb/emr-gateway/services"
)

var errInvalidPagination = apperr.BadRequest("Invalid pagination parameters")

// requestMeta collects the request fields copied onto audit events.
// RemoteAddr has already been rewritten by chi's RealIP when present.
func requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		RequestID: middleware.GetRequestIDFromContext(r.Context()),
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// principal returns the authenticated caller. Handlers mounted behind the
// auth pipeline always have one; its absence is a wiring bug.
func principal(r *http.Request) (auth.Principal, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return auth.Principal{}, apperr.Unhandled(fmt.Errorf("no principal on %s %s", r.Method, r.URL.Path))
	}
	return p, nil
}

// body returns the payload stored by middleware.ValidateBody.
func body[T any](r *http.Request) (*T, error) {
	b, ok := middleware.BodyFromContext[*T](r.Context())
	if !ok || b == nil {
		return nil, apperr.Unhandled(fmt.Errorf("no validated body on %s %s", r.Method, r.URL.Path))
	}
	return b, nil
}

// pagination reads limit and offset query parameters. Absent values are
// zero and get defaulted by the service.
func pagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, errInvalidPagination
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errInvalidPagination
		}
	}
	return limit, offset, nil
}
