// Package authz derives what a user may do from their base role.  The
// derivation is a pure function of model.User.Role; it is recomputed on
// every request and never cached or persisted.
package authz

import (
	"strings"

	"github.com/iliyamo/src-portal/internal/model"
)

// Capability names a class of action a page can require.
type Capability string

const (
	CapMember          Capability = "member"
	CapAdmin           Capability = "admin"
	CapSuperAdmin      Capability = "super_admin"
	CapManageBudget    Capability = "manage_budget"
	CapApproveBudget   Capability = "approve_budget"
	CapManageMinutes   Capability = "manage_minutes"
	CapManageEvents    Capability = "manage_events"
	CapManageContent   Capability = "manage_content"
	CapManageElections Capability = "manage_elections"
	CapSendMessages    Capability = "send_messages"
	CapManageSenate    Capability = "manage_senate"
	CapManageSettings  Capability = "manage_settings"
	CapManageUsers     Capability = "manage_users"
	CapViewDiagnostics Capability = "view_diagnostics"
)

// Capabilities is the derived capability set of a user.
type Capabilities struct {
	IsSuperAdmin        bool
	IsAdmin             bool
	IsMember            bool
	IsFinance           bool
	HasAdminPrivileges  bool
	HasMemberPrivileges bool

	CanManageBudget    bool
	CanApproveBudget   bool
	CanManageMinutes   bool
	CanManageEvents    bool
	CanManageContent   bool
	CanManageElections bool
	CanSendMessages    bool
	CanManageSenate    bool
	CanManageSettings  bool
	CanManageUsers     bool
	CanViewDiagnostics bool
}

// ParseRole normalizes a role string.  Hyphens, spaces and case are
// ignored, so "Super-Admin", "super admin" and "SUPER_ADMIN" all map to
// model.RoleSuperAdmin; "superadmin" is accepted as well.
func ParseRole(s string) (model.Role, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if norm == "superadmin" {
		norm = string(model.RoleSuperAdmin)
	}
	for _, r := range model.Roles {
		if string(r) == norm {
			return r, true
		}
	}
	return "", false
}

// Compute derives the capability set for u.  An unknown role yields the
// zero value, which grants nothing.
func Compute(u model.User) Capabilities {
	role, _ := ParseRole(string(u.Role))

	var c Capabilities
	c.IsSuperAdmin = role == model.RoleSuperAdmin
	c.IsAdmin = role == model.RoleAdmin
	c.IsMember = role == model.RoleMember
	c.IsFinance = role == model.RoleFinance
	c.HasAdminPrivileges = c.IsSuperAdmin || c.IsAdmin
	c.HasMemberPrivileges = c.HasAdminPrivileges || c.IsMember || c.IsFinance

	// Page capabilities are listed one by one; they are not aliases of the
	// base flags even where the rule happens to coincide.
	c.CanManageBudget = c.HasAdminPrivileges || c.IsFinance
	c.CanApproveBudget = c.HasAdminPrivileges
	c.CanManageMinutes = c.HasMemberPrivileges
	c.CanManageEvents = c.HasMemberPrivileges
	c.CanManageContent = c.HasMemberPrivileges
	c.CanManageElections = c.HasAdminPrivileges
	c.CanSendMessages = c.HasMemberPrivileges
	c.CanManageSenate = c.HasAdminPrivileges
	c.CanManageSettings = c.HasAdminPrivileges
	c.CanManageUsers = c.IsSuperAdmin
	c.CanViewDiagnostics = c.IsSuperAdmin
	return c
}

// Has reports whether the set grants capability want.  Unknown capability
// names are never granted.
func (c Capabilities) Has(want Capability) bool {
	switch want {
	case CapMember:
		return c.HasMemberPrivileges
	case CapAdmin:
		return c.HasAdminPrivileges
	case CapSuperAdmin:
		return c.IsSuperAdmin
	case CapManageBudget:
		return c.CanManageBudget
	case CapApproveBudget:
		return c.CanApproveBudget
	case CapManageMinutes:
		return c.CanManageMinutes
	case CapManageEvents:
		return c.CanManageEvents
	case CapManageContent:
		return c.CanManageContent
	case CapManageElections:
		return c.CanManageElections
	case CapSendMessages:
		return c.CanSendMessages
	case CapManageSenate:
		return c.CanManageSenate
	case CapManageSettings:
		return c.CanManageSettings
	case CapManageUsers:
		return c.CanManageUsers
	case CapViewDiagnostics:
		return c.CanViewDiagnostics
	}
	return false
}
