package domain

// Action names a gated resource operation.
type Action string

const (
	ActionCreateLead            Action = "lead:create"
	ActionReadLeads             Action = "lead:read"
	ActionManageLeads           Action = "lead:manage"
	ActionCreateStaff           Action = "staff:create"
	ActionManageStaff           Action = "staff:manage"
	ActionCreateClient          Action = "client:create"
	ActionReadClients           Action = "client:read"
	ActionManageClients         Action = "client:manage"
	ActionConvertLead           Action = "lead:convert"
	ActionCreateProject         Action = "project:create"
	ActionReadProjects          Action = "project:read"
	ActionUpdateProject         Action = "project:update"
	ActionUpdateProjectProgress Action = "project:update_progress"
	ActionDeleteProject         Action = "project:delete"
	ActionRegisterUser          Action = "user:register"
)

// Scope qualifies how much of a resource a role reaches for an action.
type Scope string

const (
	ScopeNone     Scope = "none"
	ScopeAssigned Scope = "assigned"
	ScopeOwn      Scope = "own"
	ScopeAll      Scope = "all"
)

// Policy is the authorization table. Every gate and the /api/policy endpoint
// read from here; roles missing from an entry have ScopeNone.
var Policy = map[Action]map[Role]Scope{
	ActionCreateLead:    {RoleAdmin: ScopeAll},
	ActionCreateStaff:   {RoleAdmin: ScopeAll},
	ActionCreateClient:  {RoleAdmin: ScopeAll},
	ActionCreateProject: {RoleAdmin: ScopeAll},
	ActionReadLeads:     {RoleAdmin: ScopeAll},
	ActionReadClients:   {RoleAdmin: ScopeAll},
	ActionConvertLead:   {RoleAdmin: ScopeAll},
	ActionReadProjects: {
		RoleAdmin:  ScopeAll,
		RoleStaff:  ScopeAssigned,
		RoleClient: ScopeOwn,
	},
	ActionUpdateProject: {RoleAdmin: ScopeAll},
	ActionUpdateProjectProgress: {
		RoleAdmin: ScopeAll,
		RoleStaff: ScopeAssigned,
	},
	ActionDeleteProject: {RoleAdmin: ScopeAll},

	ActionManageLeads:   {RoleAdmin: ScopeAll},
	ActionManageStaff:   {RoleAdmin: ScopeAll},
	ActionManageClients: {RoleAdmin: ScopeAll},
	ActionRegisterUser: {
		RoleAdmin: ScopeAll,
		RoleStaff: ScopeAll,
	},
}

// Roles in display order.
var Roles = []Role{RoleAdmin, RoleStaff, RoleClient, RoleLead}

// ScopeFor returns the scope role has for action.
func ScopeFor(role Role, action Action) Scope {
	if s, ok := Policy[action][role]; ok {
		return s
	}
	return ScopeNone
}

// Can reports whether role reaches action at any scope.
func Can(role Role, action Action) bool {
	return ScopeFor(role, action) != ScopeNone
}

// AllowedRoles lists the roles that reach action, in Roles order.
func AllowedRoles(action Action) []Role {
	var out []Role
	for _, r := range Roles {
		if Can(r, action) {
			out = append(out, r)
		}
	}
	return out
}
