// AngelaMos | 2026
// features.go

package rbac

type Endpoint struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	Permission Key    `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

type Feature struct {
	Name      string     `json:"name"`
	Endpoints []Endpoint `json:"endpoints"`
	CanAccess bool       `json:"canAccess"`
	CanCreate bool       `json:"canCreate"`
	CanUpdate bool       `json:"canUpdate"`
	CanDelete bool       `json:"canDelete"`
}

type FeatureSummary struct {
	TotalFeatures       int  `json:"totalFeatures"`
	AccessibleFeatures  int  `json:"accessibleFeatures"`
	TotalEndpoints      int  `json:"totalEndpoints"`
	AccessibleEndpoints int  `json:"accessibleEndpoints"`
	CanCreate           bool `json:"canCreate"`
	CanUpdate           bool `json:"canUpdate"`
	CanDelete           bool `json:"canDelete"`
}

type featureSpec struct {
	code      string
	name      string
	read      Key
	create    Key
	update    Key
	delete    Key
	endpoints []Endpoint
}

var featureCatalog = []featureSpec{
	{
		code: "users", name: "User Management", read: UsersRead,
		endpoints: []Endpoint{
			{Method: "GET", Path: "/api/users", Permission: UsersRead},
			{Method: "GET", Path: "/api/users/:id", Permission: UsersRead},
			{Method: "PATCH", Path: "/api/users/:id/role", Permission: UsersUpdateRole},
			{Method: "DELETE", Path: "/api/users/:id", Permission: UsersDelete},
		},
	},
	{
		code: "keuangan", name: "Financial Transactions",
		read: KeuanganRead, create: KeuanganCreate, update: KeuanganUpdate, delete: KeuanganDelete,
		endpoints: []Endpoint{
			{Method: "GET", Path: "/api/keuangan", Permission: KeuanganRead},
			{Method: "POST", Path: "/api/keuangan", Permission: KeuanganCreate},
			{Method: "PUT", Path: "/api/keuangan/:id", Permission: KeuanganUpdate},
			{Method: "DELETE", Path: "/api/keuangan/:id", Permission: KeuanganDelete},
		},
	},
	{
		code: "properti", name: "Properties",
		read: PropertiRead, create: PropertiCreate, update: PropertiUpdate, delete: PropertiDelete,
		endpoints: []Endpoint{
			{Method: "GET", Path: "/api/properti", Permission: PropertiRead},
			{Method: "POST", Path: "/api/properti", Permission: PropertiCreate},
			{Method: "PUT", Path: "/api/properti/:id", Permission: PropertiUpdate},
			{Method: "DELETE", Path: "/api/properti/:id", Permission: PropertiDelete},
			{Method: "PATCH", Path: "/api/properti/:id/status", Permission: PropertiUpdateStatus},
		},
	},
	{
		code: "persediaan", name: "Inventory",
		read: PersediaanRead, create: PersediaanCreate, update: PersediaanUpdate, delete: PersediaanDelete,
		endpoints: []Endpoint{
			{Method: "GET", Path: "/api/persediaan", Permission: PersediaanRead},
			{Method: "POST", Path: "/api/persediaan", Permission: PersediaanCreate},
			{Method: "PUT", Path: "/api/persediaan/:id", Permission: PersediaanUpdate},
			{Method: "DELETE", Path: "/api/persediaan/:id", Permission: PersediaanDelete},
			{Method: "POST", Path: "/api/persediaan/:id/transaction", Permission: PersediaanTransaction},
		},
	},
	{
		code: "penjualan", name: "Property Sales",
		read: PenjualanRead, create: PenjualanCreate, update: PenjualanUpdate, delete: PenjualanDelete,
		endpoints: []Endpoint{
			{Method: "GET", Path: "/api/penjualan", Permission: PenjualanRead},
			{Method: "POST", Path: "/api/penjualan", Permission: PenjualanCreate},
			{Method: "PUT", Path: "/api/penjualan/:id", Permission: PenjualanUpdate},
			{Method: "DELETE", Path: "/api/penjualan/:id", Permission: PenjualanDelete},
			{Method: "POST", Path: "/api/penjualan/:id/complete", Permission: PenjualanComplete},
		},
	},
	{
		code: "roles", name: "Role Management", read: UsersRead,
		endpoints: []Endpoint{
			{Method: "GET", Path: "/api/roles/hierarchy", Permission: UsersRead},
			{Method: "GET", Path: "/api/roles/permissions/matrix", Permission: UsersRead},
			{Method: "GET", Path: "/api/roles/users", Permission: UsersRead},
			{Method: "PATCH", Path: "/api/roles/users/:id/role", Permission: UsersUpdateRole},
		},
	},
}

// FeatureAccess groups the static table by application area for role.
func FeatureAccess(role Role) (map[string]Feature, FeatureSummary) {
	features := make(map[string]Feature, len(featureCatalog))
	var summary FeatureSummary

	for _, feat := range featureCatalog {
		f := Feature{
			Name:      feat.name,
			Endpoints: make([]Endpoint, 0, len(feat.endpoints)),
			CanAccess: Allowed(feat.read, role),
			CanCreate: feat.create != "" && Allowed(feat.create, role),
			CanUpdate: feat.update != "" && Allowed(feat.update, role),
			CanDelete: feat.delete != "" && Allowed(feat.delete, role),
		}

		for _, ep := range feat.endpoints {
			ep.Allowed = Allowed(ep.Permission, role)
			if ep.Allowed {
				summary.AccessibleEndpoints++
			}
			f.Endpoints = append(f.Endpoints, ep)
		}

		summary.TotalFeatures++
		summary.TotalEndpoints += len(f.Endpoints)
		if f.CanAccess {
			summary.AccessibleFeatures++
		}
		summary.CanCreate = summary.CanCreate || f.CanCreate
		summary.CanUpdate = summary.CanUpdate || f.CanUpdate
		summary.CanDelete = summary.CanDelete || f.CanDelete

		features[feat.code] = f
	}

	return features, summary
}
