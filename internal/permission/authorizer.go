// AngelaMos | 2026
// authorizer.go

package permission

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

const (
	StrategyStatic  = "static"
	StrategyPerUser = "per_user"
)

var authzDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "perumahan_authz_decisions_total",
		Help: "Authorization decisions by strategy, module, action and outcome",
	},
	[]string{"strategy", "module", "action", "outcome"},
)

// Subject is the caller being authorized.
type Subject struct {
	UserID string
	Role   rbac.Role
}

// Rule names what a route needs. The per-user strategy reads Module and
// Action; the static strategy reads Key, or derives it from Module and
// Action when Key is empty.
type Rule struct {
	Module string
	Action Action
	Key    rbac.Key
}

func (r Rule) staticKey() rbac.Key {
	if r.Key != "" {
		return r.Key
	}
	return rbac.KeyFor(r.Module, string(r.Action))
}

type Authorizer interface {
	Authorize(ctx context.Context, subject Subject, rule Rule) error
}

// StaticRoleAuthorizer checks role membership in the compiled permission
// table. It never touches the store.
type StaticRoleAuthorizer struct{}

func NewStaticRoleAuthorizer() *StaticRoleAuthorizer {
	return &StaticRoleAuthorizer{}
}

func (a *StaticRoleAuthorizer) Authorize(
	ctx context.Context,
	subject Subject,
	rule Rule,
) error {
	key := rule.staticKey()

	allowed, ok := rbac.Lookup(key)
	if !ok {
		err := core.InternalError(
			"Permission configuration error",
			fmt.Errorf("unknown permission key %q", key),
		)
		observe(ctx, StrategyStatic, rule, err)
		return err
	}

	if rbac.Allowed(key, subject.Role) {
		observe(ctx, StrategyStatic, rule, nil)
		return nil
	}

	err := core.ForbiddenError("You do not have permission to perform this action").
		WithDetails(map[string]any{
			"required":     key,
			"yourRole":     subject.Role,
			"allowedRoles": allowed,
		})
	observe(ctx, StrategyStatic, rule, err)
	return err
}

// PerUserGrantAuthorizer reads the user_permissions row for the module.
// Superadmin is allowed without a lookup; a missing row denies.
type PerUserGrantAuthorizer struct {
	store Store
}

func NewPerUserGrantAuthorizer(store Store) *PerUserGrantAuthorizer {
	return &PerUserGrantAuthorizer{store: store}
}

func (a *PerUserGrantAuthorizer) Authorize(
	ctx context.Context,
	subject Subject,
	rule Rule,
) error {
	if subject.Role.IsSuperAdmin() {
		observe(ctx, StrategyPerUser, rule, nil)
		return nil
	}

	grants, found, err := a.store.GetGrants(ctx, subject.UserID, rule.Module)
	if err != nil {
		appErr := core.InternalError("Failed to check permission", err)
		observe(ctx, StrategyPerUser, rule, appErr)
		return appErr
	}

	if !found || !grants.Allows(rule.Action) {
		denied := core.ForbiddenError(fmt.Sprintf(
			"You do not have %s permission for module %s",
			rule.Action,
			rule.Module,
		)).WithDetails(map[string]any{
			"module": rule.Module,
			"action": rule.Action,
		})
		observe(ctx, StrategyPerUser, rule, denied)
		return denied
	}

	observe(ctx, StrategyPerUser, rule, nil)
	return nil
}

// Selector routes each rule to the per-user strategy when its module is
// configured as division-customizable, and to the static table otherwise.
type Selector struct {
	static  Authorizer
	perUser Authorizer
	modules map[string]struct{}
}

func NewSelector(static, perUser Authorizer, perUserModules []string) *Selector {
	modules := make(map[string]struct{}, len(perUserModules))
	for _, m := range perUserModules {
		modules[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &Selector{static: static, perUser: perUser, modules: modules}
}

func (s *Selector) Strategy(module string) string {
	if _, ok := s.modules[strings.ToLower(module)]; ok {
		return StrategyPerUser
	}
	return StrategyStatic
}

func (s *Selector) Authorize(ctx context.Context, subject Subject, rule Rule) error {
	if s.Strategy(rule.Module) == StrategyPerUser {
		return s.perUser.Authorize(ctx, subject, rule)
	}
	return s.static.Authorize(ctx, subject, rule)
}

// Require gates a route on rule. It must run after the Authenticator.
func Require(authorizer Authorizer, rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := middleware.GetIdentity(r.Context())
			if identity == nil {
				core.JSONError(w, core.UnauthorizedError("User not authenticated"))
				return
			}

			subject := Subject{UserID: identity.ID, Role: identity.Role}
			if err := authorizer.Authorize(r.Context(), subject, rule); err != nil {
				core.HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func observe(ctx context.Context, strategy string, rule Rule, err error) {
	outcome := "allow"
	if err != nil {
		outcome = "deny"
		if appErr, ok := core.AsAppError(err); ok && appErr.StatusCode >= http.StatusInternalServerError {
			outcome = "error"
		}
	}

	action := string(rule.Action)
	if action == "" {
		action = string(rule.Key)
	}

	authzDecisions.WithLabelValues(strategy, rule.Module, action, outcome).Inc()
	core.AddSpanEvent(ctx, "authz.decision",
		attribute.String("authz.strategy", strategy),
		attribute.String("authz.module", rule.Module),
		attribute.String("authz.action", action),
		attribute.String("authz.outcome", outcome),
	)
}
