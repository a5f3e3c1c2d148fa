// Package auth holds the admin role model, the permission table, and
// verification of access tokens issued by the external auth backend.
package auth

import "sort"

// Role is an admin account role. Roles are stored on the user profile.
type Role string

const (
	SuperAdmin Role = "super_admin"
	Admin      Role = "admin"
	Editor     Role = "editor"
	Moderator  Role = "moderator"
	Viewer     Role = "viewer"
)

// Roles lists every role from most to least privileged.
var Roles = []Role{SuperAdmin, Admin, Editor, Moderator, Viewer}

// ParseRole reports whether s names a known role.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Permission names one gated action.
type Permission string

const (
	PermViewDashboard   Permission = "dashboard:view"
	PermViewQuestions   Permission = "questions:view"
	PermEditQuestions   Permission = "questions:edit"
	PermDeleteQuestions Permission = "questions:delete"
	PermImportQuestions Permission = "questions:import"
	PermExportQuestions Permission = "questions:export"
	PermViewQuizzes     Permission = "quizzes:view"
	PermEditQuizzes     Permission = "quizzes:edit"
	PermPublishQuizzes  Permission = "quizzes:publish"
	PermManageTaxonomy  Permission = "taxonomy:manage"
	PermViewReports     Permission = "reports:view"
	PermResolveReports  Permission = "reports:resolve"
	PermViewUsers       Permission = "users:view"
	PermManageUsers     Permission = "users:manage"
	PermViewAuditLog    Permission = "audit:view"
)

// permissions maps each permission to the roles allowed to use it.
var permissions = map[Permission][]Role{
	PermViewDashboard:   {SuperAdmin, Admin, Editor, Moderator, Viewer},
	PermViewQuestions:   {SuperAdmin, Admin, Editor, Moderator, Viewer},
	PermEditQuestions:   {SuperAdmin, Admin, Editor},
	PermDeleteQuestions: {SuperAdmin, Admin},
	PermImportQuestions: {SuperAdmin, Admin, Editor},
	PermExportQuestions: {SuperAdmin, Admin, Editor},
	PermViewQuizzes:     {SuperAdmin, Admin, Editor, Viewer},
	PermEditQuizzes:     {SuperAdmin, Admin, Editor},
	PermPublishQuizzes:  {SuperAdmin, Admin},
	PermManageTaxonomy:  {SuperAdmin, Admin, Editor},
	PermViewReports:     {SuperAdmin, Admin, Moderator},
	PermResolveReports:  {SuperAdmin, Admin, Moderator},
	PermViewUsers:       {SuperAdmin, Admin},
	PermManageUsers:     {SuperAdmin},
	PermViewAuditLog:    {SuperAdmin, Admin},
}

// HasPermission reports whether role may use perm. Unknown roles and
// unknown permissions are denied.
func HasPermission(role Role, perm Permission) bool {
	for _, r := range permissions[perm] {
		if r == role {
			return true
		}
	}
	return false
}

// PermissionsFor returns the sorted permissions granted to role.
func PermissionsFor(role Role) []Permission {
	var out []Permission
	for p, roles := range permissions {
		for _, r := range roles {
			if r == role {
				out = append(out, p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NavItem is one entry of the admin side menu.
type NavItem struct {
	Label string     `json:"label"`
	Path  string     `json:"path"`
	Perm  Permission `json:"permission"`
}

var navigation = []NavItem{
	{Label: "Dashboard", Path: "/", Perm: PermViewDashboard},
	{Label: "Questions", Path: "/questions", Perm: PermViewQuestions},
	{Label: "Import", Path: "/import", Perm: PermImportQuestions},
	{Label: "Quizzes & Exams", Path: "/quizzes", Perm: PermViewQuizzes},
	{Label: "Topics & Tags", Path: "/topics", Perm: PermManageTaxonomy},
	{Label: "Reports", Path: "/reports", Perm: PermViewReports},
	{Label: "Users", Path: "/users", Perm: PermViewUsers},
	{Label: "Audit Log", Path: "/audit", Perm: PermViewAuditLog},
}

// NavItems returns the menu entries visible to role, in menu order.
func NavItems(role Role) []NavItem {
	items := make([]NavItem, 0, len(navigation))
	for _, item := range navigation {
		if HasPermission(role, item.Perm) {
			items = append(items, item)
		}
	}
	return items
}
