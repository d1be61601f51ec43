// AngelaMos | 2026
// permissions.go

package rbac

import (
	"sort"
	"strings"
)

// Key names a coarse permission in the static role table.
type Key string

const (
	// UsersRead allows listing and viewing local users.
	UsersRead Key = "USERS_READ"
	// UsersCreate allows creating users.
	UsersCreate Key = "USERS_CREATE"
	// UsersUpdate allows editing users.
	UsersUpdate Key = "USERS_UPDATE"
	// UsersDelete allows deleting users at the provider and locally.
	UsersDelete Key = "USERS_DELETE"
	// UsersUpdateRole allows role mutation.
	UsersUpdateRole Key = "USERS_UPDATE_ROLE"

	KeuanganRead   Key = "KEUANGAN_READ"
	KeuanganCreate Key = "KEUANGAN_CREATE"
	KeuanganUpdate Key = "KEUANGAN_UPDATE"
	KeuanganDelete Key = "KEUANGAN_DELETE"

	PropertiRead         Key = "PROPERTI_READ"
	PropertiCreate       Key = "PROPERTI_CREATE"
	PropertiUpdate       Key = "PROPERTI_UPDATE"
	PropertiDelete       Key = "PROPERTI_DELETE"
	PropertiUpdateStatus Key = "PROPERTI_UPDATE_STATUS"

	PersediaanRead        Key = "PERSEDIAAN_READ"
	PersediaanCreate      Key = "PERSEDIAAN_CREATE"
	PersediaanUpdate      Key = "PERSEDIAAN_UPDATE"
	PersediaanDelete      Key = "PERSEDIAAN_DELETE"
	PersediaanTransaction Key = "PERSEDIAAN_TRANSACTION"

	PenjualanRead     Key = "PENJUALAN_READ"
	PenjualanCreate   Key = "PENJUALAN_CREATE"
	PenjualanUpdate   Key = "PENJUALAN_UPDATE"
	PenjualanDelete   Key = "PENJUALAN_DELETE"
	PenjualanComplete Key = "PENJUALAN_COMPLETE"
)

var (
	superAdminOnly = []Role{RoleSuperAdmin}
	adminAndUp     = []Role{RoleSuperAdmin, RoleAdmin}
	everyone       = []Role{RoleSuperAdmin, RoleAdmin, RoleUser}
)

type entry struct {
	roles       []Role
	description string
}

var table = map[Key]entry{
	UsersRead:       {superAdminOnly, "Melihat daftar users"},
	UsersCreate:     {superAdminOnly, "Membuat user baru"},
	UsersUpdate:     {superAdminOnly, "Mengubah data user"},
	UsersDelete:     {superAdminOnly, "Menghapus user"},
	UsersUpdateRole: {superAdminOnly, "Mengubah role user"},

	KeuanganRead:   {everyone, "Melihat transaksi keuangan"},
	KeuanganCreate: {adminAndUp, "Membuat transaksi keuangan"},
	KeuanganUpdate: {adminAndUp, "Mengubah transaksi keuangan"},
	KeuanganDelete: {adminAndUp, "Menghapus transaksi keuangan"},

	PropertiRead:         {everyone, "Melihat data properti"},
	PropertiCreate:       {adminAndUp, "Membuat properti baru"},
	PropertiUpdate:       {adminAndUp, "Mengubah data properti"},
	PropertiDelete:       {adminAndUp, "Menghapus properti"},
	PropertiUpdateStatus: {adminAndUp, "Mengubah status properti"},

	PersediaanRead:        {everyone, "Melihat data persediaan"},
	PersediaanCreate:      {adminAndUp, "Membuat item persediaan"},
	PersediaanUpdate:      {adminAndUp, "Mengubah item persediaan"},
	PersediaanDelete:      {adminAndUp, "Menghapus item persediaan"},
	PersediaanTransaction: {adminAndUp, "Mencatat transaksi persediaan"},

	PenjualanRead:     {everyone, "Melihat data penjualan"},
	PenjualanCreate:   {adminAndUp, "Membuat penjualan baru"},
	PenjualanUpdate:   {adminAndUp, "Mengubah data penjualan"},
	PenjualanDelete:   {adminAndUp, "Menghapus penjualan"},
	PenjualanComplete: {adminAndUp, "Menyelesaikan penjualan"},
}

// Lookup returns the roles allowed for key. ok is false for keys missing
// from the table, which callers treat as a configuration error.
func Lookup(key Key) ([]Role, bool) {
	e, ok := table[key]
	if !ok {
		return nil, false
	}
	out := make([]Role, len(e.roles))
	copy(out, e.roles)
	return out, true
}

func Allowed(key Key, role Role) bool {
	e, ok := table[key]
	if !ok {
		return false
	}
	for _, r := range e.roles {
		if r == role {
			return true
		}
	}
	return false
}

func Describe(key Key) string {
	if e, ok := table[key]; ok {
		return e.description
	}
	return "Unknown permission"
}

// Keys returns every key in the table, sorted.
func Keys() []Key {
	keys := make([]Key, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// PermissionsFor lists the keys role holds, sorted.
func PermissionsFor(role Role) []Key {
	out := make([]Key, 0, len(table))
	for _, k := range Keys() {
		if Allowed(k, role) {
			out = append(out, k)
		}
	}
	return out
}

// KeyFor derives the static key for a module/verb pair, e.g.
// ("penjualan", "complete") -> PENJUALAN_COMPLETE. "view" maps to READ.
func KeyFor(module, verb string) Key {
	verb = strings.ToUpper(verb)
	if verb == "VIEW" {
		verb = "READ"
	}
	return Key(strings.ToUpper(module) + "_" + verb)
}

type MatrixRow struct {
	SuperAdmin   bool   `json:"superadmin"`
	Admin        bool   `json:"admin"`
	User         bool   `json:"user"`
	AllowedRoles []Role `json:"allowedRoles"`
}

type MatrixSummary struct {
	TotalPermissions      int `json:"totalPermissions"`
	SuperAdminPermissions int `json:"superadminPermissions"`
	AdminPermissions      int `json:"adminPermissions"`
	UserPermissions       int `json:"userPermissions"`
}

func Matrix() (map[Key]MatrixRow, MatrixSummary) {
	matrix := make(map[Key]MatrixRow, len(table))
	for k, e := range table {
		roles := make([]Role, len(e.roles))
		copy(roles, e.roles)
		matrix[k] = MatrixRow{
			SuperAdmin:   Allowed(k, RoleSuperAdmin),
			Admin:        Allowed(k, RoleAdmin),
			User:         Allowed(k, RoleUser),
			AllowedRoles: roles,
		}
	}

	return matrix, MatrixSummary{
		TotalPermissions:      len(table),
		SuperAdminPermissions: len(PermissionsFor(RoleSuperAdmin)),
		AdminPermissions:      len(PermissionsFor(RoleAdmin)),
		UserPermissions:       len(PermissionsFor(RoleUser)),
	}
}

type HierarchyLevel struct {
	Level       int    `json:"level"`
	Description string `json:"description"`
	Permissions []Key  `json:"permissions"`
	CanManage   []Role `json:"canManage"`
}

var roleDescriptions = map[Role]string{
	RoleSuperAdmin: "Full access ke semua fitur termasuk user management",
	RoleAdmin:      "CRUD access untuk operasional (keuangan, properti, persediaan, penjualan)",
	RoleUser:       "Read-only access untuk sebagian besar data",
}

func Hierarchy() map[Role]HierarchyLevel {
	out := make(map[Role]HierarchyLevel, 3)
	for _, r := range All() {
		out[r] = HierarchyLevel{
			Level:       r.Level(),
			Description: roleDescriptions[r],
			Permissions: PermissionsFor(r),
			CanManage:   r.CanManage(),
		}
	}
	return out
}
