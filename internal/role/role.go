// File: internal/role/role.go

// Package role maps a profile onto the role that gates navigation.
package role

// Role is the navigation role of a signed-in user.
type Role string

const (
	None    Role = ""
	Trainer Role = "trainer"
	Student Role = "student"
)

// Dashboard paths per role.
const (
	TrainerHome = "/trainer/dashboard"
	StudentHome = "/student/dashboard"
)

// Subject is anything carrying a user type, normally a *profile.Profile. Implementations must
// tolerate a nil receiver.
type Subject interface {
	GetUserType() *string
}

// Of returns the role stored on s. A nil subject, a missing user type or an unknown value all
// resolve to None.
func Of(s Subject) Role {
	if s == nil {
		return None
	}
	return Parse(s.GetUserType())
}

// Parse interprets a raw user_type value.
func Parse(userType *string) Role {
	if userType == nil {
		return None
	}
	switch Role(*userType) {
	case Trainer:
		return Trainer
	case Student:
		return Student
	default:
		return None
	}
}

// Valid reports whether r is a concrete role.
func (r Role) Valid() bool {
	return r == Trainer || r == Student
}

// Home returns the dashboard of r, or "" for None.
func (r Role) Home() string {
	switch r {
	case Trainer:
		return TrainerHome
	case Student:
		return StudentHome
	default:
		return ""
	}
}

func (r Role) String() string {
	if r == None {
		return "none"
	}
	return string(r)
}
