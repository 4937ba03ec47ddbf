package access

import (
	"time"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/student"
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleStudent      Role = "student"
	RoleUnauthorized Role = "unauthorized"
)

const (
	NotEnrolledMessage  = "This email is not enrolled with NihongoWithMoeno. If you are a student, please use your registered email or contact us for support."
	VerifyFailedMessage = "Unable to verify student status. Please try again later."
	SignInMessage       = "Please sign in to continue."
	ExpiredMessage      = "Your session has expired. Please sign in again."
)

// ErrNoSession is returned for unknown, expired or purged sessions.
var ErrNoSession = &core.AuthError{Code: "session-not-found", Message: ExpiredMessage, Status: 401}

// Identity is a signed-in account as reported by the identity provider.
type Identity struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName,omitempty"`
	PhotoURL      string `json:"photoURL,omitempty"`
}

// Decision is the outcome of classifying an identity.
type Decision struct {
	Role    Role
	Student *student.Student // set for RoleStudent
	Message string           // explanation for RoleUnauthorized
}

// Session replaces the client-side cached student record: the role and record snapshot
// travel together with the time they were last checked.
type Session struct {
	ID            string           `json:"id"`
	Identity      Identity         `json:"identity"`
	Role          Role             `json:"role"`
	Student       *student.Student `json:"student,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	RevalidatedAt time.Time        `json:"revalidatedAt"`
	ExpiresAt     time.Time        `json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// Owns reports whether the session is the student registered with email.
func (s Session) Owns(email string) bool {
	return s.Role == RoleStudent && s.Student != nil &&
		core.CleanString(s.Student.Email, true) == core.CleanString(email, true)
}
