package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/sessionkit"
)

func TestCreateAndFind(t *testing.T) {
	d := New()
	ctx := context.Background()

	acc, err := d.Create(ctx, sessionkit.NewAccount{Username: "ada", Email: "Ada@Example.com", PasswordDigest: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, acc.ID)
	assert.Equal(t, "ada@example.com", acc.Email)
	assert.False(t, acc.Verified)

	byEmail, err := d.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byEmail.ID)

	byName, err := d.FindByIdentifier(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byName.ID)

	byMail, err := d.FindByIdentifier(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byMail.ID)

	_, err = d.FindByIdentifier(ctx, "ADA")
	assert.ErrorIs(t, err, sessionkit.ErrAccountNotFound)
}

func TestCreateRejectsDuplicates(t *testing.T) {
	d := New()
	ctx := context.Background()

	_, err := d.Create(ctx, sessionkit.NewAccount{Username: "ada", Email: "ada@example.com"})
	require.NoError(t, err)

	_, err = d.Create(ctx, sessionkit.NewAccount{Username: "ada", Email: "other@example.com"})
	assert.ErrorIs(t, err, sessionkit.ErrDuplicateAccount)
	_, err = d.Create(ctx, sessionkit.NewAccount{Username: "grace", Email: "ADA@example.com"})
	assert.ErrorIs(t, err, sessionkit.ErrDuplicateAccount)

	assert.Equal(t, 1, d.Len())
	_, err = d.FindByIdentifier(ctx, "grace")
	assert.ErrorIs(t, err, sessionkit.ErrAccountNotFound)
}

func TestConcurrentCreateAdmitsOne(t *testing.T) {
	d := New()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		oks int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Create(context.Background(), sessionkit.NewAccount{Username: "ada", Email: "ada@example.com"}); err == nil {
				mu.Lock()
				oks++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, oks)
}

func TestUpdates(t *testing.T) {
	d := New()
	ctx := context.Background()
	acc, err := d.Create(ctx, sessionkit.NewAccount{Username: "ada", Email: "ada@example.com", PasswordDigest: "old"})
	require.NoError(t, err)

	require.NoError(t, d.MarkVerified(ctx, acc.ID))
	require.NoError(t, d.UpdatePasswordDigest(ctx, acc.ID, "new"))

	got, err := d.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.Equal(t, "new", got.PasswordDigest)

	assert.ErrorIs(t, d.MarkVerified(ctx, "missing"), sessionkit.ErrAccountNotFound)
	assert.ErrorIs(t, d.UpdatePasswordDigest(ctx, "missing", "x"), sessionkit.ErrAccountNotFound)
}

func TestReturnedAccountsAreCopies(t *testing.T) {
	d := New()
	ctx := context.Background()
	acc, err := d.Create(ctx, sessionkit.NewAccount{Username: "ada", Email: "ada@example.com"})
	require.NoError(t, err)

	acc.Verified = true
	got, err := d.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.False(t, got.Verified)
}

func TestDelete(t *testing.T) {
	d := New()
	ctx := context.Background()
	acc, err := d.Create(ctx, sessionkit.NewAccount{Username: "ada", Email: "ada@example.com"})
	require.NoError(t, err)

	d.Delete(acc.ID)
	_, err = d.FindByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, sessionkit.ErrAccountNotFound)

	_, err = d.Create(ctx, sessionkit.NewAccount{Username: "ada", Email: "ada@example.com"})
	assert.NoError(t, err)
}

func TestCanceledContext(t *testing.T) {
	d := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.FindByEmail(ctx, "ada@example.com")
	assert.ErrorIs(t, err, context.Canceled)
}
