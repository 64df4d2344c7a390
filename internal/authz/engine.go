package authz

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/openshelf/openshelf/internal"
	"github.com/openshelf/openshelf/internal/audit"
	"github.com/openshelf/openshelf/internal/auth"
)

type DenyReason string

const (
	DenyUnauthenticated DenyReason = "UNAUTHENTICATED"
	DenyForbidden       DenyReason = "FORBIDDEN"
	DenyNotFound        DenyReason = "NOT_FOUND"
)

// Decision is the outcome of a single authorization check.
type Decision struct {
	Allowed  bool       `json:"allowed"`
	Reason   DenyReason `json:"reason,omitempty"`
	Required []string   `json:"required,omitempty"`
	Missing  []string   `json:"missing,omitempty"`
	Resource string     `json:"resource,omitempty"`
}

// OwnerLookup resolves the owning user id for a resource id. found=false
// means the resource does not exist; that is a NOT_FOUND deny, not an error.
type OwnerLookup func(ctx context.Context, id int64) (ownerID int64, found bool, err error)

// Engine evaluates permission and ownership gates and audits every decision.
type Engine struct {
	resolver Resolver
	sink     audit.Sink
	logger   *slog.Logger
}

func NewEngine(resolver Resolver, sink audit.Sink, logger *slog.Logger) *Engine {
	return &Engine{
		resolver: resolver,
		sink:     sink,
		logger:   logger,
	}
}

// Check evaluates a permission requirement against an already-resolved set.
// AND semantics: every required label must be present unless the caller is a
// superuser.
func Check(set PermissionSet, resource string, required ...string) Decision {
	if set.Superuser || set.HasAll(required) {
		return Decision{Allowed: true, Required: required, Resource: resource}
	}
	return Decision{
		Allowed:  false,
		Reason:   DenyForbidden,
		Required: required,
		Missing:  set.Missing(required),
		Resource: resource,
	}
}

// RequirePermission gates a route on one or more permission labels (AND
// semantics for a list). Unauthenticated callers are rejected before any
// permission resolution happens.
func (e *Engine) RequirePermission(resource string, required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				e.deny(w, r, nil, Decision{
					Reason:   DenyUnauthenticated,
					Required: required,
					Resource: resource,
				})
				return
			}

			set, err := e.resolver.Resolve(r.Context(), user.ID)
			if err != nil {
				e.logger.ErrorContext(r.Context(), "permission resolution failed",
					"error", err, "user_id", user.ID, "required", required)
				writeDecisionError(w, internal.NewInternalError("authorization check failed", err))
				return
			}

			decision := Check(set, resource, required...)
			e.record(r, user, strings.Join(required, ","), resource, decision.Allowed)

			if !decision.Allowed {
				e.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"required", required,
					"missing", decision.Missing)
				e.deny(w, r, user, decision)
				return
			}

			ctx := ContextWithPermissions(r.Context(), set)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated admits any authenticated caller and attaches the
// resolved permission set for downstream use. Used for public-rule writes.
func (e *Engine) RequireAuthenticated(resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				e.deny(w, r, nil, Decision{Reason: DenyUnauthenticated, Resource: resource})
				return
			}

			set, err := e.resolver.Resolve(r.Context(), user.ID)
			if err != nil {
				e.logger.ErrorContext(r.Context(), "permission resolution failed",
					"error", err, "user_id", user.ID)
				writeDecisionError(w, internal.NewInternalError("authorization check failed", err))
				return
			}

			ctx := ContextWithPermissions(r.Context(), set)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAction gates a route from the static resource policy. Ownership
// rules are wired with RequireOwnership, which carries the lookups.
func (e *Engine) RequireAction(kind string, action Action) func(http.Handler) http.Handler {
	policy, ok := PolicyFor(kind)
	if !ok {
		panic("authz: no policy for resource kind " + kind)
	}

	if action == ActionRead {
		if policy.ReadPublic {
			return passthrough
		}
		return e.RequireAuthenticated(kind)
	}

	rule := policy.RuleFor(action)
	switch {
	case rule.Public:
		return e.RequireAuthenticated(kind)
	case rule.Permission != "":
		return e.RequirePermission(kind, rule.Permission)
	default:
		// Owner-only rule with no ownership lookup configured on this
		// route: only the admin bypass can pass.
		return e.RequirePermission(kind, PermAdmin)
	}
}

// OwnershipConfig describes how to find a resource's owner. Direct mode uses
// Owner alone; indirect mode resolves resource -> parent -> owner, one level
// deep.
type OwnershipConfig struct {
	Resource    string
	IDParam     string
	Owner       OwnerLookup
	Parent      OwnerLookup
	ParentOwner OwnerLookup
}

// RequireOwnership gates a route on resource ownership with admin bypass. A
// nonexistent resource is a NOT_FOUND deny, distinct from FORBIDDEN.
func (e *Engine) RequireOwnership(cfg OwnershipConfig) func(http.Handler) http.Handler {
	idParam := cfg.IDParam
	if idParam == "" {
		idParam = "id"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				e.deny(w, r, nil, Decision{Reason: DenyUnauthenticated, Resource: cfg.Resource})
				return
			}

			set, err := e.resolver.Resolve(r.Context(), user.ID)
			if err != nil {
				e.logger.ErrorContext(r.Context(), "permission resolution failed",
					"error", err, "user_id", user.ID)
				writeDecisionError(w, internal.NewInternalError("authorization check failed", err))
				return
			}

			id, perr := strconv.ParseInt(chi.URLParam(r, idParam), 10, 64)
			if perr != nil {
				e.record(r, user, "ownership", cfg.Resource, false)
				e.deny(w, r, user, Decision{Reason: DenyNotFound, Resource: cfg.Resource})
				return
			}

			ownerID, found, err := e.lookupOwner(r, cfg, id)
			if err != nil {
				e.logger.ErrorContext(r.Context(), "ownership lookup failed",
					"error", err, "resource", cfg.Resource, "id", id)
				writeDecisionError(w, internal.NewInternalError("authorization check failed", err))
				return
			}

			if !found {
				e.record(r, user, "ownership", cfg.Resource, false)
				e.deny(w, r, user, Decision{Reason: DenyNotFound, Resource: cfg.Resource})
				return
			}

			allowed := set.Superuser || ownerID == user.ID
			e.record(r, user, "ownership", cfg.Resource, allowed)

			if !allowed {
				e.logger.WarnContext(r.Context(), "access denied: not the resource owner",
					"user_id", user.ID,
					"owner_id", ownerID,
					"resource", cfg.Resource,
					"resource_id", id)
				e.deny(w, r, user, Decision{
					Reason:   DenyForbidden,
					Required: []string{"ownership"},
					Resource: cfg.Resource,
				})
				return
			}

			ctx := ContextWithPermissions(r.Context(), set)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (e *Engine) lookupOwner(r *http.Request, cfg OwnershipConfig, id int64) (int64, bool, error) {
	if cfg.Parent != nil {
		parentID, found, err := cfg.Parent(r.Context(), id)
		if err != nil || !found {
			return 0, found, err
		}
		return cfg.ParentOwner(r.Context(), parentID)
	}
	return cfg.Owner(r.Context(), id)
}

// record appends one audit entry for the decision just made.
func (e *Engine) record(r *http.Request, user *auth.User, action, resource string, granted bool) {
	entry := audit.Entry{
		Action:     action,
		Resource:   resource,
		ResourceID: chi.URLParam(r, "id"),
		Granted:    granted,
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	}
	if user != nil {
		entry.ActorID = user.ID
		entry.ActorEmail = user.Email
	}
	e.sink.Record(r.Context(), entry)
}

func (e *Engine) deny(w http.ResponseWriter, r *http.Request, user *auth.User, decision Decision) {
	if user == nil {
		// Anonymous denials are audited too; no resolution was attempted.
		e.record(r, nil, strings.Join(decision.Required, ","), decision.Resource, false)
	}

	var appErr *internal.AppError
	switch decision.Reason {
	case DenyUnauthenticated:
		appErr = internal.NewUnauthenticatedError("authentication required", internal.ErrCodeUnauthenticated)
	case DenyNotFound:
		appErr = internal.NewNotFoundError("resource not found", internal.ErrCodeNotFound)
	default:
		appErr = internal.NewForbiddenError("insufficient permissions", internal.ErrCodeForbidden).
			WithDetails(decision)
	}
	writeDecisionError(w, appErr)
}

func writeDecisionError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func passthrough(next http.Handler) http.Handler {
	return next
}
