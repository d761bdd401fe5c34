// Package permission decides who may read, write or manage project resources.
// Every function is total: unknown or empty roles simply grant nothing.
package permission

// ProjectRole is a membership-scoped role.
type ProjectRole string

const (
	Owner   ProjectRole = "owner"
	Manager ProjectRole = "manager"
	Member  ProjectRole = "member"
)

// Global roles carried on the user record.
const (
	GlobalAdmin   = "admin"
	GlobalManager = "manager"
	GlobalMember  = "member"
)

// Subject is the role context of the acting user. Zero values mean "absent".
type Subject struct {
	GlobalRole      string
	ProjectRole     string // raw value from the membership row, "" when not a member
	IsProjectMember bool
}

// NormalizeRole maps input onto one of the three project roles; anything else is Member.
func NormalizeRole(input string) ProjectRole {
	switch ProjectRole(input) {
	case Owner:
		return Owner
	case Manager:
		return Manager
	default:
		return Member
	}
}

// IsValidRole reports whether input is exactly one of the project roles.
func IsValidRole(input string) bool {
	switch ProjectRole(input) {
	case Owner, Manager, Member:
		return true
	}
	return false
}

// IsAdmin reports whether the global role grants full access.
func IsAdmin(globalRole string) bool {
	return globalRole == GlobalAdmin
}

// CanManageMembers: admins, project owners and project managers.
func CanManageMembers(s Subject) bool {
	if IsAdmin(s.GlobalRole) {
		return true
	}
	role := ProjectRole(s.ProjectRole)
	return role == Owner || role == Manager
}

// CanManageProject gates renaming and deleting a project: admins and owners.
func CanManageProject(s Subject) bool {
	return IsAdmin(s.GlobalRole) || ProjectRole(s.ProjectRole) == Owner
}

// CanReadWiki: admins, otherwise any project member.
func CanReadWiki(s Subject) bool {
	if IsAdmin(s.GlobalRole) {
		return true
	}
	return s.IsProjectMember
}

// CanWriteWiki: admins, otherwise any confirmed membership role.
// The raw role is checked, so a missing membership does not normalize into Member.
func CanWriteWiki(s Subject) bool {
	if IsAdmin(s.GlobalRole) {
		return true
	}
	return IsValidRole(s.ProjectRole)
}

// CanEditTasks gates creating and changing tasks and subtasks. Same audience as wiki writes.
func CanEditTasks(s Subject) bool {
	return CanWriteWiki(s)
}

// CanResolveAbsence reports whether approver may approve or reject an absence
// filed by requester. It mirrors the absence notification recipient rule.
func CanResolveAbsence(approverID, approverRole, approverDept, requesterID, requesterDept string) bool {
	if approverID == "" || approverID == requesterID {
		return false
	}
	if IsAdmin(approverRole) {
		return true
	}
	return approverRole == GlobalManager && requesterDept != "" && approverDept == requesterDept
}
