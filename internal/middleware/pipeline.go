// Package middleware implements the guarded request pipeline for API routes.
// Stages run in the order they are listed when the pipeline is built:
// rate limit first, then CORS, then the method gate, then authentication.
// A stage that writes a response stops the walk; the terminal handler only
// runs when every stage passes.
package middleware

import (
	"context"
	"net/http"
	"sort"

	"screenhub/internal/httpx"
)

// Identity is the authenticated caller resolved by the auth stage. It lives
// for one request and is handed to terminal handlers as an explicit argument.
type Identity struct {
	UserID string
	Email  string
}

// AuthedHandler is a terminal handler behind the auth stage.
type AuthedHandler func(w http.ResponseWriter, r *http.Request, user Identity)

// Verifier checks a bearer token and resolves the identity behind it.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (Identity, error)
}

// RequestState is scratch space shared by the stages of one request.
// Only the auth stage populates the identity.
type RequestState struct {
	Identity      Identity
	Authenticated bool
	Methods       []string
}

// Stage is one step of the pipeline. Run returns false after writing a
// response to short-circuit the remaining stages.
type Stage interface {
	Name() string
	Run(w http.ResponseWriter, r *http.Request, state *RequestState) bool
}

// Pipeline is an ordered, immutable list of stages built once at bootstrap.
type Pipeline struct {
	stages []Stage
}

func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// StageNames exposes the execution order, mostly for wiring assertions.
func (p *Pipeline) StageNames() []string {
	names := make([]string, 0, len(p.stages))
	for _, stage := range p.stages {
		names = append(names, stage.Name())
	}
	return names
}

// Dispatch selects the terminal for one verb of a route. Exactly one of
// Authed or Public is set; Authed terminals require the auth stage to pass.
type Dispatch struct {
	Authed AuthedHandler
	Public http.HandlerFunc
}

// Route dispatches every verb of one path through the pipeline. Routes must
// be registered on method-less mux patterns: an OPTIONS preflight has to
// reach the CORS stage, and a wrong verb has to reach the method gate, so
// the mux itself must never answer for them. The auth stage is skipped for
// verbs with a public terminal and for verbs the route does not serve (the
// method gate rejects those first).
func (p *Pipeline) Route(byMethod map[string]Dispatch) http.Handler {
	methods := make([]string, 0, len(byMethod))
	for method := range byMethod {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dispatch, known := byMethod[r.Method]
		needsAuth := known && dispatch.Authed != nil

		state := &RequestState{Methods: methods}
		for _, stage := range p.stages {
			if stage.Name() == StageAuth && !needsAuth {
				continue
			}
			if !stage.Run(w, r, state) {
				return
			}
		}

		if !known {
			// Only reachable without a method gate in the pipeline.
			httpx.WriteFailure(w, http.StatusMethodNotAllowed, httpx.ErrMethodNotAllowed, "method not allowed")
			return
		}

		if dispatch.Authed != nil {
			if !state.Authenticated {
				// A pipeline without an auth stage must not serve protected routes.
				httpx.WriteFailure(w, http.StatusUnauthorized, httpx.ErrAuth, "Missing token")
				return
			}
			dispatch.Authed(w, r, state.Identity)
			return
		}

		dispatch.Public(w, r)
	})
}

// Handler dispatches a protected route: all stages run, then the terminal
// handler receives the identity resolved by the auth stage.
func (p *Pipeline) Handler(methods []string, terminal AuthedHandler) http.Handler {
	byMethod := make(map[string]Dispatch, len(methods))
	for _, method := range methods {
		byMethod[method] = Dispatch{Authed: terminal}
	}
	return p.Route(byMethod)
}

// Public dispatches an unauthenticated route through the same stages except
// authentication, so public routes keep rate limiting and CORS.
func (p *Pipeline) Public(methods []string, terminal http.HandlerFunc) http.Handler {
	byMethod := make(map[string]Dispatch, len(methods))
	for _, method := range methods {
		byMethod[method] = Dispatch{Public: terminal}
	}
	return p.Route(byMethod)
}

// Stage names, in canonical execution order.
const (
	StageRateLimit = "rate_limit"
	StageCORS      = "cors"
	StageMethods   = "methods"
	StageAuth      = "auth"
)

// MethodStage rejects verbs the terminal handler did not enumerate.
type MethodStage struct{}

func (MethodStage) Name() string { return StageMethods }

func (MethodStage) Run(w http.ResponseWriter, r *http.Request, state *RequestState) bool {
	if len(state.Methods) == 0 {
		return true
	}
	for _, method := range state.Methods {
		if r.Method == method {
			return true
		}
	}

	httpx.WriteFailure(w, http.StatusMethodNotAllowed, httpx.ErrMethodNotAllowed, "method not allowed")
	return false
}
