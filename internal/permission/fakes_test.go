// AngelaMos | 2026
// fakes_test.go

package permission

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/rbac"
	"github.com/carterperez-dev/perumahan-api/internal/user"
)

type fakeModule struct {
	Module
	active bool
}

type memStore struct {
	mu        sync.Mutex
	modules   []fakeModule
	rows      map[string]map[string]UserPermission
	divisions map[string][]DivisionRef
	upserts   int
}

func newMemStore() *memStore {
	codes := []string{"dashboard", "keuangan", "properti", "penjualan", "persediaan", "laporan", "users", "roles", "divisions"}
	m := &memStore{
		rows:      map[string]map[string]UserPermission{},
		divisions: map[string][]DivisionRef{},
	}
	for i, c := range codes {
		m.modules = append(m.modules, fakeModule{
			Module: Module{ID: "mod-" + c, Code: c, Name: c, SortOrder: i + 1},
			active: true,
		})
	}
	return m
}

func (m *memStore) deactivate(code string) {
	for i := range m.modules {
		if m.modules[i].Code == code {
			m.modules[i].active = false
		}
	}
}

func (m *memStore) moduleByID(id string) (fakeModule, bool) {
	for _, mod := range m.modules {
		if mod.ID == id {
			return mod, true
		}
	}
	return fakeModule{}, false
}

func (m *memStore) rowCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[userID])
}

func (m *memStore) GetGrants(_ context.Context, userID, moduleCode string) (Grants, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mod := range m.modules {
		if mod.Code != moduleCode {
			continue
		}
		if !mod.active {
			return Grants{}, false, nil
		}
		p, ok := m.rows[userID][mod.ID]
		if !ok {
			return Grants{}, false, nil
		}
		return p.Grants(), true, nil
	}
	return Grants{}, false, nil
}

func (m *memStore) ListForUser(_ context.Context, userID string) ([]ModuleGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ModuleGrant
	for _, mod := range m.modules {
		if !mod.active {
			continue
		}
		mg := ModuleGrant{Module: mod.Module}
		if p, ok := m.rows[userID][mod.ID]; ok {
			mg.CanView, mg.CanCreate, mg.CanUpdate, mg.CanDelete = p.CanView, p.CanCreate, p.CanUpdate, p.CanDelete
		}
		out = append(out, mg)
	}
	return out, nil
}

func (m *memStore) Upsert(_ context.Context, g Grant) (*UserPermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mod, ok := m.moduleByID(g.ModuleID)
	if !ok {
		return nil, fmt.Errorf("upsert permission: %w", core.ErrNotFound)
	}
	if m.rows[g.UserID] == nil {
		m.rows[g.UserID] = map[string]UserPermission{}
	}
	grantedBy := g.GrantedBy
	p := UserPermission{
		ID:         g.UserID + "/" + g.ModuleID,
		UserID:     g.UserID,
		ModuleID:   g.ModuleID,
		ModuleCode: mod.Code,
		CanView:    g.Grants.View,
		CanCreate:  g.Grants.Create,
		CanUpdate:  g.Grants.Update,
		CanDelete:  g.Grants.Delete,
		GrantedBy:  &grantedBy,
	}
	m.rows[g.UserID][g.ModuleID] = p
	m.upserts++
	return &p, nil
}

func (m *memStore) Seed(_ context.Context, g Grant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[g.UserID][g.ModuleID]; ok {
		return false, nil
	}
	if m.rows[g.UserID] == nil {
		m.rows[g.UserID] = map[string]UserPermission{}
	}
	mod, _ := m.moduleByID(g.ModuleID)
	m.rows[g.UserID][g.ModuleID] = UserPermission{
		UserID: g.UserID, ModuleID: g.ModuleID, ModuleCode: mod.Code,
		CanView: g.Grants.View, CanCreate: g.Grants.Create,
		CanUpdate: g.Grants.Update, CanDelete: g.Grants.Delete,
	}
	return true, nil
}

func (m *memStore) ResetDefault(_ context.Context, g Grant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[g.UserID][g.ModuleID]; ok && row.GrantedBy != nil {
		return false, nil
	}
	if m.rows[g.UserID] == nil {
		m.rows[g.UserID] = map[string]UserPermission{}
	}
	mod, _ := m.moduleByID(g.ModuleID)
	m.rows[g.UserID][g.ModuleID] = UserPermission{
		UserID: g.UserID, ModuleID: g.ModuleID, ModuleCode: mod.Code,
		CanView: g.Grants.View, CanCreate: g.Grants.Create,
		CanUpdate: g.Grants.Update, CanDelete: g.Grants.Delete,
	}
	return true, nil
}

func (m *memStore) Delete(_ context.Context, userID, moduleCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mod := range m.modules {
		if mod.Code == moduleCode {
			if _, ok := m.rows[userID][mod.ID]; ok {
				delete(m.rows[userID], mod.ID)
				return nil
			}
		}
	}
	return fmt.Errorf("delete permission: %w", core.ErrNotFound)
}

func (m *memStore) DeleteForUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.rows[userID]))
	delete(m.rows, userID)
	return n, nil
}

func (m *memStore) ActiveModules(_ context.Context) ([]Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Module
	for _, mod := range m.modules {
		if mod.active {
			out = append(out, mod.Module)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *memStore) ModuleIDsByCode(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for _, mod := range m.modules {
		if mod.active {
			out[mod.Code] = mod.ID
		}
	}
	return out, nil
}

func (m *memStore) DivisionsForUser(_ context.Context, userID string) ([]DivisionRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.divisions[userID], nil
}

type fakeUsers map[string]*user.User

func (f fakeUsers) GetUser(_ context.Context, id string) (*user.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, core.NotFoundError("User")
	}
	cp := *u
	return &cp, nil
}

// scopeFunc adapts a function to ManageScope.
type scopeFunc func(actorID string, actorRole rbac.Role, targetID string) error

func (f scopeFunc) CanManageUser(_ context.Context, actorID string, actorRole rbac.Role, targetID string) error {
	return f(actorID, actorRole, targetID)
}

func allowAll() ManageScope {
	return scopeFunc(func(string, rbac.Role, string) error { return nil })
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	superID = "00000000-0000-0000-0000-000000000001"
	adminID = "00000000-0000-0000-0000-000000000002"
	admin2  = "00000000-0000-0000-0000-000000000003"
	userID  = "00000000-0000-0000-0000-000000000004"
	user2   = "00000000-0000-0000-0000-000000000005"
	super2  = "00000000-0000-0000-0000-000000000006"
)

func seededUsers() fakeUsers {
	mk := func(id, name string, role rbac.Role) *user.User {
		return &user.User{ID: id, Username: name, Email: name + "@example.com", Role: role, IsActive: true}
	}
	return fakeUsers{
		superID: mk(superID, "root", rbac.RoleSuperAdmin),
		super2:  mk(super2, "root2", rbac.RoleSuperAdmin),
		adminID: mk(adminID, "admin", rbac.RoleAdmin),
		admin2:  mk(admin2, "admin2", rbac.RoleAdmin),
		userID:  mk(userID, "budi", rbac.RoleUser),
		user2:   mk(user2, "siti", rbac.RoleUser),
	}
}
