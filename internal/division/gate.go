// AngelaMos | 2026
// gate.go

package division

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

// Gate answers division-scoped authorization questions. Superadmin
// passes every check without a lookup.
type Gate struct {
	store MembershipStore
}

func NewGate(store MembershipStore) *Gate {
	return &Gate{store: store}
}

func (g *Gate) BelongsToDivision(
	ctx context.Context,
	actorID string,
	actorRole rbac.Role,
	divisionID string,
) error {
	if actorRole.IsSuperAdmin() {
		return nil
	}

	ok, err := g.store.IsMember(ctx, actorID, divisionID)
	if err != nil {
		return core.InternalError("Failed to check division access", err)
	}
	if !ok {
		return core.ForbiddenError("Anda tidak memiliki akses ke divisi ini")
	}
	return nil
}

func (g *Gate) IsDivisionAdmin(ctx context.Context, actorID string, actorRole rbac.Role) error {
	if actorRole.IsSuperAdmin() {
		return nil
	}

	memberships, err := g.store.Memberships(ctx, actorID)
	if err != nil {
		return core.InternalError("Failed to check division access", err)
	}
	for _, m := range memberships {
		if m.IsDivisionAdmin {
			return nil
		}
	}
	return core.ForbiddenError("Anda bukan admin divisi")
}

// CanManageUser requires the actor to administer a division the target
// belongs to. Another division admin of that division is off limits.
func (g *Gate) CanManageUser(
	ctx context.Context,
	actorID string,
	actorRole rbac.Role,
	targetID string,
) error {
	if actorRole.IsSuperAdmin() {
		return nil
	}

	actorRows, err := g.store.Memberships(ctx, actorID)
	if err != nil {
		return core.InternalError("Failed to check division access", err)
	}
	administered := make(map[string]struct{})
	for _, m := range actorRows {
		if m.IsDivisionAdmin {
			administered[m.DivisionID] = struct{}{}
		}
	}
	if len(administered) == 0 {
		return core.ForbiddenError("Anda bukan admin divisi")
	}

	targetRows, err := g.store.Memberships(ctx, targetID)
	if err != nil {
		return core.InternalError("Failed to check division access", err)
	}

	shared := false
	for _, m := range targetRows {
		if _, ok := administered[m.DivisionID]; !ok {
			continue
		}
		shared = true
		if !m.IsDivisionAdmin || targetID == actorID {
			return nil
		}
	}

	if shared {
		return core.ForbiddenError("Tidak bisa mengubah permissions division admin lain")
	}
	return core.ForbiddenError("User tidak ada dalam divisi Anda")
}

// RequireDivisionAdmin is the middleware form of IsDivisionAdmin.
func (g *Gate) RequireDivisionAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := g.IsDivisionAdmin(ctx, middleware.GetUserID(ctx), middleware.GetUserRole(ctx)); err != nil {
			core.HandleError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireMembership is the middleware form of BelongsToDivision for the
// division id in the named path parameter.
func (g *Gate) RequireMembership(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			err := g.BelongsToDivision(ctx,
				middleware.GetUserID(ctx),
				middleware.GetUserRole(ctx),
				chi.URLParam(r, param),
			)
			if err != nil {
				core.HandleError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
