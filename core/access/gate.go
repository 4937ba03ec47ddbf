package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/student"
	"github.com/nihongowithmoeno/moeno/metrics"
)

// StudentFinder looks a student up by email; a miss is a core.NotFoundError.
type StudentFinder interface {
	GetByEmail(ctx context.Context, email string) (student.Student, error)
}

// Gate classifies identities into roles.
type Gate struct {
	admins   map[string]struct{}
	students StudentFinder
}

func NewGate(adminEmails []string, students StudentFinder) *Gate {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		if email = core.CleanString(email, true); email != "" {
			admins[email] = struct{}{}
		}
	}
	return &Gate{admins: admins, students: students}
}

func (g *Gate) IsAdmin(email string) bool {
	_, ok := g.admins[core.CleanString(email, true)]
	return ok
}

// Classify never returns an error together with a role other than RoleUnauthorized.
// When several students share the email, the first one wins.
func (g *Gate) Classify(ctx context.Context, ident *Identity) (Decision, error) {
	dec, err := g.classify(ctx, ident)
	metrics.AccessClassificationsTotal.WithLabelValues(string(dec.Role)).Inc()
	return dec, err
}

func (g *Gate) classify(ctx context.Context, ident *Identity) (Decision, error) {
	if ident == nil || core.CleanString(ident.Email) == "" {
		return Decision{Role: RoleUnauthorized, Message: SignInMessage}, nil
	}
	if g.IsAdmin(ident.Email) {
		return Decision{Role: RoleAdmin}, nil
	}

	st, err := g.students.GetByEmail(ctx, ident.Email)
	switch {
	case core.IsNotFound(err):
		return Decision{Role: RoleUnauthorized, Message: NotEnrolledMessage}, nil
	case err != nil:
		return Decision{Role: RoleUnauthorized, Message: VerifyFailedMessage}, errors.Wrap(err, "verifying student")
	}
	return Decision{Role: RoleStudent, Student: &st}, nil
}
