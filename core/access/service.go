package access

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core"
)

const revalidateTimeout = 30 * time.Second

var ErrIDTokenRequired = core.NewValidationError(errors.New("Missing required field: idToken"))

// IdentityProvider verifies sign-in tokens and can destroy the account behind one.
type IdentityProvider interface {
	Lookup(ctx context.Context, idToken string) (Identity, error)
	Teardown(ctx context.Context, idToken string) error
}

// SessionStore persists sessions. Get returns ErrNoSession for unknown or expired ids.
type SessionStore interface {
	Save(ctx context.Context, sess Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

type Options struct {
	TTL             time.Duration
	RevalidateAfter time.Duration
}

// Service owns the session lifecycle: sign-in, optimistic reads with background revalidation, sign-out.
type Service struct {
	gate     *Gate
	provider IdentityProvider
	store    SessionStore
	opts     Options
	logger   core.Logger

	nowFunc func() time.Time
	goFunc  func(func()) // runs background revalidations

	mu       sync.Mutex
	inFlight map[string]struct{}
	writers  map[string]*idLock
}

// idLock serializes the writes of one session id.
type idLock struct {
	sync.Mutex
	refs int
}

func NewService(gate *Gate, provider IdentityProvider, store SessionStore, opts Options, logger core.Logger) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.RevalidateAfter <= 0 {
		opts.RevalidateAfter = 5 * time.Minute
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Service{
		gate:     gate,
		provider: provider,
		store:    store,
		opts:     opts,
		logger:   logger,
		nowFunc:  time.Now,
		goFunc:   func(f func()) { go f() },
		inFlight: make(map[string]struct{}),
		writers:  make(map[string]*idLock),
	}
}

// Begin signs an identity in. Identities that are neither admins nor enrolled students are torn down
// at the provider and rejected with an explanatory AuthError.
func (svc *Service) Begin(ctx context.Context, idToken string) (Session, error) {
	if core.CleanString(idToken) == "" {
		return Session{}, ErrIDTokenRequired
	}

	ident, err := svc.provider.Lookup(ctx, idToken)
	if err != nil {
		return Session{}, err
	}

	dec, err := svc.gate.Classify(ctx, &ident)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("classifying %s: %v", ident.Email, err), err, ident)
	}
	if dec.Role == RoleUnauthorized {
		if tErr := svc.provider.Teardown(ctx, idToken); tErr != nil {
			svc.logger.Warn(fmt.Sprintf("tearing down identity %s: %v", ident.Email, tErr), tErr, ident)
		}
		return Session{}, &core.AuthError{Code: "not-enrolled", Message: dec.Message, Status: http.StatusForbidden}
	}

	now := svc.nowFunc()
	sess := Session{
		ID:            uuid.NewString(),
		Identity:      ident,
		Role:          dec.Role,
		Student:       dec.Student,
		CreatedAt:     now,
		RevalidatedAt: now,
		ExpiresAt:     now.Add(svc.opts.TTL),
	}
	if err := svc.store.Save(ctx, sess); err != nil {
		return Session{}, pkgerrors.Wrap(err, "saving session")
	}
	return sess, nil
}

// Current returns the stored snapshot right away. A stale student snapshot is revalidated in the background;
// the outcome is only visible on the next call.
func (svc *Service) Current(ctx context.Context, id string) (Session, error) {
	if core.CleanString(id) == "" {
		return Session{}, ErrNoSession
	}
	sess, err := svc.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}

	if sess.Role == RoleStudent && svc.nowFunc().Sub(sess.RevalidatedAt) >= svc.opts.RevalidateAfter && svc.claim(id) {
		svc.goFunc(func() {
			defer svc.release(id)
			bgCtx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
			defer cancel()
			if _, err := svc.Revalidate(bgCtx, id); err != nil && err != ErrNoSession {
				svc.logger.Warn(fmt.Sprintf("revalidating session %s: %v", id, err), err)
			}
		})
	}
	return sess, nil
}

// Revalidate refreshes a student snapshot. A student that no longer matches any record loses the session.
// Lookup failures keep the current snapshot. A session ended while the gate is consulted stays ended.
func (svc *Service) Revalidate(ctx context.Context, id string) (Session, error) {
	sess, err := svc.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.Role != RoleStudent {
		return sess, nil
	}

	dec, err := svc.gate.Classify(ctx, &sess.Identity)
	if err != nil {
		return sess, err
	}

	unlock := svc.lock(id)
	defer unlock()
	if dec.Role != RoleStudent {
		if err := svc.store.Delete(ctx, id); err != nil {
			return Session{}, pkgerrors.Wrap(err, "purging session")
		}
		return Session{}, ErrNoSession
	}
	if sess, err = svc.store.Get(ctx, id); err != nil {
		return Session{}, err
	}

	sess.Student = dec.Student
	sess.RevalidatedAt = svc.nowFunc()
	if err := svc.store.Save(ctx, sess); err != nil {
		return Session{}, pkgerrors.Wrap(err, "saving session")
	}
	return sess, nil
}

// End signs out; ending an unknown session is not an error.
func (svc *Service) End(ctx context.Context, id string) error {
	if core.CleanString(id) == "" {
		return nil
	}
	unlock := svc.lock(id)
	defer unlock()
	return svc.store.Delete(ctx, id)
}

// lock holds the write lock of id until the returned func is called.
func (svc *Service) lock(id string) func() {
	svc.mu.Lock()
	l, ok := svc.writers[id]
	if !ok {
		l = &idLock{}
		svc.writers[id] = l
	}
	l.refs++
	svc.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		svc.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(svc.writers, id)
		}
		svc.mu.Unlock()
	}
}

func (svc *Service) claim(id string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if _, busy := svc.inFlight[id]; busy {
		return false
	}
	svc.inFlight[id] = struct{}{}
	return true
}

func (svc *Service) release(id string) {
	svc.mu.Lock()
	delete(svc.inFlight, id)
	svc.mu.Unlock()
}
