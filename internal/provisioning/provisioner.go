// AngelaMos | 2026
// provisioner.go

// Package provisioning seeds default module grants and division
// memberships for a user the first time they are mirrored locally.
package provisioning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carterperez-dev/perumahan-api/internal/permission"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
)

// RolesModule is the one module admins may view but not change.
const RolesModule = "roles"

var defaultUserModules = []string{"dashboard", "keuangan", "properti", "penjualan", "persediaan"}

type GrantSeeder interface {
	ActiveModules(ctx context.Context) ([]permission.Module, error)
	Seed(ctx context.Context, grant permission.Grant) (bool, error)
	ResetDefault(ctx context.Context, grant permission.Grant) (bool, error)
	DeleteForUser(ctx context.Context, userID string) (int64, error)
}

type DivisionEnroller interface {
	ActiveIDs(ctx context.Context) ([]string, error)
	Enroll(ctx context.Context, userID, divisionID string) (bool, error)
}

// Policy decides the default grant set per role and module.
type Policy struct {
	userModules map[string]struct{}
}

// NewPolicy builds a policy whose plain users may view the given modules.
// An empty list falls back to the operational defaults.
func NewPolicy(userViewModules []string) Policy {
	if len(userViewModules) == 0 {
		userViewModules = defaultUserModules
	}
	set := make(map[string]struct{}, len(userViewModules))
	for _, m := range userViewModules {
		set[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return Policy{userModules: set}
}

func (p Policy) DefaultGrants(role rbac.Role, moduleCode string) permission.Grants {
	switch role {
	case rbac.RoleSuperAdmin:
		return permission.FullGrants()
	case rbac.RoleAdmin:
		manage := moduleCode != RolesModule
		return permission.Grants{View: true, Create: manage, Update: manage, Delete: manage}
	default:
		_, ok := p.userModules[moduleCode]
		return permission.Grants{View: ok}
	}
}

// Result reports what one provisioning run wrote.
type Result struct {
	UserID          string    `json:"user_id"`
	Role            rbac.Role `json:"role"`
	GrantsCreated   int       `json:"grants_created"`
	GrantsReset     int       `json:"grants_reset,omitempty"`
	DivisionsJoined int       `json:"divisions_joined"`
	GrantsPurged    int64     `json:"grants_purged,omitempty"`
}

type Provisioner struct {
	grants    GrantSeeder
	divisions DivisionEnroller
	policy    Policy
	logger    *slog.Logger
}

func NewProvisioner(
	grants GrantSeeder,
	divisions DivisionEnroller,
	policy Policy,
	logger *slog.Logger,
) *Provisioner {
	return &Provisioner{
		grants:    grants,
		divisions: divisions,
		policy:    policy,
		logger:    logger,
	}
}

// OnUserFirstSeen seeds a freshly mirrored user. Every write is an
// insert that leaves existing rows alone, so running it twice is safe.
// Superadmin gets no grant rows; its access is computed.
func (p *Provisioner) OnUserFirstSeen(
	ctx context.Context,
	userID string,
	role rbac.Role,
) (Result, error) {
	result := Result{UserID: userID, Role: role}

	if !role.IsSuperAdmin() {
		created, err := p.seedGrants(ctx, userID, role)
		result.GrantsCreated = created
		if err != nil {
			return result, err
		}
	}

	if role.IsAdmin() {
		joined, err := p.enrollAll(ctx, userID)
		result.DivisionsJoined = joined
		if err != nil {
			return result, err
		}
	}

	p.logger.InfoContext(ctx, "user provisioned",
		"user_id", userID,
		"role", role,
		"grants_created", result.GrantsCreated,
		"divisions_joined", result.DivisionsJoined,
	)
	return result, nil
}

// OnRoleChanged keeps stored rows consistent with a new role. Promotion
// to superadmin drops the now redundant grant rows. Any other change
// rewrites provisioning-owned rows to the new role's defaults; rows an
// actor granted are kept. Promotion to admin or above enrolls the user in
// every active division.
func (p *Provisioner) OnRoleChanged(
	ctx context.Context,
	userID string,
	oldRole, newRole rbac.Role,
) error {
	if oldRole == newRole {
		return nil
	}

	result := Result{UserID: userID, Role: newRole}

	if newRole.IsSuperAdmin() {
		purged, err := p.grants.DeleteForUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("purge grants: %w", err)
		}
		result.GrantsPurged = purged
	} else {
		reset, err := p.writeDefaults(ctx, userID, newRole, p.grants.ResetDefault)
		result.GrantsReset = reset
		if err != nil {
			return err
		}
	}

	if newRole.IsAdmin() && !oldRole.IsAdmin() {
		joined, err := p.enrollAll(ctx, userID)
		result.DivisionsJoined = joined
		if err != nil {
			return err
		}
	}

	p.logger.InfoContext(ctx, "user reprovisioned after role change",
		"user_id", userID,
		"old_role", oldRole,
		"new_role", newRole,
		"grants_reset", result.GrantsReset,
		"grants_purged", result.GrantsPurged,
		"divisions_joined", result.DivisionsJoined,
	)
	return nil
}

func (p *Provisioner) seedGrants(ctx context.Context, userID string, role rbac.Role) (int, error) {
	return p.writeDefaults(ctx, userID, role, p.grants.Seed)
}

func (p *Provisioner) writeDefaults(
	ctx context.Context,
	userID string,
	role rbac.Role,
	write func(context.Context, permission.Grant) (bool, error),
) (int, error) {
	modules, err := p.grants.ActiveModules(ctx)
	if err != nil {
		return 0, fmt.Errorf("list modules: %w", err)
	}

	written := 0
	for _, m := range modules {
		ok, err := write(ctx, permission.Grant{
			UserID:   userID,
			ModuleID: m.ID,
			Grants:   p.policy.DefaultGrants(role, m.Code),
		})
		if err != nil {
			return written, fmt.Errorf("write default %s: %w", m.Code, err)
		}
		if ok {
			written++
		}
	}
	return written, nil
}

func (p *Provisioner) enrollAll(ctx context.Context, userID string) (int, error) {
	ids, err := p.divisions.ActiveIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list divisions: %w", err)
	}

	joined := 0
	for _, id := range ids {
		inserted, err := p.divisions.Enroll(ctx, userID, id)
		if err != nil {
			return joined, fmt.Errorf("enroll division %s: %w", id, err)
		}
		if inserted {
			joined++
		}
	}
	return joined, nil
}
