package portal

// Role is the closed set of portal roles carried by a Profile.
type Role string

const (
	// RoleAdmin manages the institution side of the portal
	RoleAdmin Role = "admin"
	// RoleAlumni is a graduated member
	RoleAlumni Role = "alumni"
	// RoleStudent is a current student
	RoleStudent Role = "student"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAlumni, RoleStudent:
		return true
	default:
		return false
	}
}

// HomePath returns the landing route for the role, used by the route
// guard when redirecting a misrouted visitor.
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleAlumni:
		return "/alumni/dashboard"
	case RoleStudent:
		return "/student/dashboard"
	default:
		return "/"
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{RoleAdmin, RoleAlumni, RoleStudent}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// Audience is a page's declared set of permitted roles. Pages declare
// their audience once; the guard resolves it instead of each page
// re-implementing ad hoc role checks.
type Audience string

const (
	AudienceAdmin            Audience = "admin"
	AudienceAlumni           Audience = "alumni"
	AudienceStudent          Audience = "student"
	AudienceAlumniOrAdmin    Audience = "alumni_or_admin"
	AudienceStudentOrAdmin   Audience = "student_or_admin"
	AudienceAnyAuthenticated Audience = "any_authenticated"
)

// IsValid checks if the audience is one of the predefined declarations
func (a Audience) IsValid() bool {
	switch a {
	case AudienceAdmin, AudienceAlumni, AudienceStudent,
		AudienceAlumniOrAdmin, AudienceStudentOrAdmin, AudienceAnyAuthenticated:
		return true
	default:
		return false
	}
}

// Allows reports whether a resolved role matches the audience.
func (a Audience) Allows(r Role) bool {
	switch a {
	case AudienceAnyAuthenticated:
		return r.IsValid()
	case AudienceAdmin:
		return r == RoleAdmin
	case AudienceAlumni:
		return r == RoleAlumni
	case AudienceStudent:
		return r == RoleStudent
	case AudienceAlumniOrAdmin:
		return r == RoleAlumni || r == RoleAdmin
	case AudienceStudentOrAdmin:
		return r == RoleStudent || r == RoleAdmin
	default:
		return false
	}
}

// Roles expands the audience into its member roles.
func (a Audience) Roles() []Role {
	switch a {
	case AudienceAdmin:
		return []Role{RoleAdmin}
	case AudienceAlumni:
		return []Role{RoleAlumni}
	case AudienceStudent:
		return []Role{RoleStudent}
	case AudienceAlumniOrAdmin:
		return []Role{RoleAlumni, RoleAdmin}
	case AudienceStudentOrAdmin:
		return []Role{RoleStudent, RoleAdmin}
	case AudienceAnyAuthenticated:
		return GetAllRoles()
	default:
		return nil
	}
}
