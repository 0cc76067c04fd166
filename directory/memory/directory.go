// Package memory is an in-process AccountDirectory for tests and the
// development server.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/sessionkit"
)

// Directory is a mutex-guarded account map. Usernames and emails are
// unique, emails case-insensitively.
type Directory struct {
	mu         sync.RWMutex
	byID       map[string]*sessionkit.Account
	byEmail    map[string]string
	byUsername map[string]string
	now        func() time.Time
}

var _ sessionkit.AccountDirectory = (*Directory)(nil)

// New returns an empty Directory.
func New() *Directory {
	return &Directory{
		byID:       make(map[string]*sessionkit.Account),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

func (d *Directory) Create(ctx context.Context, in sessionkit.NewAccount) (sessionkit.Account, error) {
	if err := ctx.Err(); err != nil {
		return sessionkit.Account{}, err
	}

	email := strings.ToLower(in.Email)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byEmail[email]; ok {
		return sessionkit.Account{}, sessionkit.ErrDuplicateAccount
	}
	if _, ok := d.byUsername[in.Username]; ok {
		return sessionkit.Account{}, sessionkit.ErrDuplicateAccount
	}

	acc := &sessionkit.Account{
		ID:             uuid.NewString(),
		Username:       in.Username,
		Email:          email,
		PasswordDigest: in.PasswordDigest,
		FullName:       in.FullName,
		CreatedAt:      d.now().UTC(),
	}
	d.byID[acc.ID] = acc
	d.byEmail[email] = acc.ID
	d.byUsername[in.Username] = acc.ID

	return *acc, nil
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (sessionkit.Account, error) {
	if err := ctx.Err(); err != nil {
		return sessionkit.Account{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lookup(d.byEmail, strings.ToLower(email))
}

func (d *Directory) FindByIdentifier(ctx context.Context, identifier string) (sessionkit.Account, error) {
	if err := ctx.Err(); err != nil {
		return sessionkit.Account{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if strings.Contains(identifier, "@") {
		return d.lookup(d.byEmail, strings.ToLower(identifier))
	}
	return d.lookup(d.byUsername, identifier)
}

func (d *Directory) MarkVerified(ctx context.Context, id string) error {
	return d.update(ctx, id, func(acc *sessionkit.Account) { acc.Verified = true })
}

func (d *Directory) UpdatePasswordDigest(ctx context.Context, id, digest string) error {
	return d.update(ctx, id, func(acc *sessionkit.Account) { acc.PasswordDigest = digest })
}

// Delete removes an account. Not part of AccountDirectory; used by tests.
func (d *Directory) Delete(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acc, ok := d.byID[id]
	if !ok {
		return
	}
	delete(d.byEmail, acc.Email)
	delete(d.byUsername, acc.Username)
	delete(d.byID, id)
}

// Len returns the number of stored accounts.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

func (d *Directory) lookup(index map[string]string, key string) (sessionkit.Account, error) {
	id, ok := index[key]
	if !ok {
		return sessionkit.Account{}, sessionkit.ErrAccountNotFound
	}
	return *d.byID[id], nil
}

func (d *Directory) update(ctx context.Context, id string, fn func(*sessionkit.Account)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	acc, ok := d.byID[id]
	if !ok {
		return sessionkit.ErrAccountNotFound
	}
	fn(acc)
	return nil
}
