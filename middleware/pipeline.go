package middleware

import (
	"fmt"
	"net/http"

	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/utils"
	"go.uber.org/zap"
)

// Stage names a step of the request pipeline.
type Stage string

const (
	StageAuthenticate Stage = "authenticate"
	StageAuthorize    Stage = "authorize"
)

// Outcomes reported to an AuthObserver.
const (
	OutcomeGranted  = "granted"
	OutcomeRejected = "rejected"
)

// AuthObserver receives one outcome per pipeline run.
type AuthObserver interface {
	ObserveAuth(stage, outcome string)
}

// StageError records which stage stopped the request.
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline runs token verification then the role gate, in that order, and
// stops at the first failure.
type Pipeline struct {
	verifier TokenVerifier
	required auth.RoleSet
	observer AuthObserver
	logger   *zap.Logger
}

// NewPipeline creates a pipeline. With no roles any authenticated principal
// is admitted.
func NewPipeline(verifier TokenVerifier, logger *zap.Logger, roles ...auth.Role) *Pipeline {
	return &Pipeline{
		verifier: verifier,
		required: auth.NewRoleSet(roles...),
		logger:   logger,
	}
}

// WithObserver attaches o to the pipeline. A nil o disables reporting.
func (p *Pipeline) WithObserver(o AuthObserver) *Pipeline {
	p.observer = o
	return p
}

func (p *Pipeline) observe(stage Stage, outcome string) {
	if p.observer != nil {
		p.observer.ObserveAuth(string(stage), outcome)
	}
}

// Run executes the stages against r. On success the returned request carries
// the principal in its context. Run never writes a response.
func (p *Pipeline) Run(r *http.Request) (*http.Request, error) {
	principal, err := p.verifier.Verify(r.Header.Get("Authorization"))
	if err != nil {
		p.observe(StageAuthenticate, OutcomeRejected)
		return nil, &StageError{Stage: StageAuthenticate, Err: err}
	}

	if err := auth.Authorize(principal, p.required); err != nil {
		p.observe(StageAuthorize, OutcomeRejected)
		return nil, &StageError{Stage: StageAuthorize, Err: err}
	}
	p.observe(StageAuthorize, OutcomeGranted)

	return r.WithContext(WithPrincipal(r.Context(), principal)), nil
}

// Wrap turns the pipeline into middleware. next is called exactly once when
// every stage passes and never otherwise.
func (p *Pipeline) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorized, err := p.Run(r)
		if err != nil {
			utils.WriteError(w, r, err, p.logger)
			return
		}
		next.ServeHTTP(w, authorized)
	})
}
