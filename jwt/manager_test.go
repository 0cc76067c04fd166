package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newHSManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Issuer:        "sessionkit",
		Audience:      "api",
		Clock:         clock.Now,
	})
	require.NoError(t, err)
	return m
}

func TestSignAndVerify(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	token, stamped, err := m.Sign(Claims{
		Kind:             KindAccess,
		Username:         "ada",
		Email:            "ada@example.com",
		RegisteredClaims: gjwt.RegisteredClaims{Subject: "acc-1"},
	}, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(time.Hour), stamped.Expiry())
	assert.NotEmpty(t, stamped.ID)

	claims, err := m.Verify(token, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, stamped.ID, claims.ID)
}

func TestEachTokenHasDistinctID(t *testing.T) {
	m := newHSManager(t, &fakeClock{now: time.Now()})
	_, a, err := m.Sign(Claims{Kind: KindAccess}, time.Minute)
	require.NoError(t, err)
	_, b, err := m.Sign(Claims{Kind: KindAccess}, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	m := newHSManager(t, &fakeClock{now: time.Now()})

	refresh, _, err := m.Sign(Claims{Kind: KindRefresh}, time.Hour)
	require.NoError(t, err)

	_, err = m.Verify(refresh, KindAccess)
	assert.ErrorIs(t, err, ErrTokenKind)
	_, err = m.Inspect(refresh, KindAccess)
	assert.ErrorIs(t, err, ErrTokenKind)

	_, err = m.Verify(refresh, KindRefresh)
	assert.NoError(t, err)
}

func TestExpiryIsStrict(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newHSManager(t, clock)

	token, _, err := m.Sign(Claims{Kind: KindAccess}, time.Minute)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Minute - time.Second)
	_, err = m.Verify(token, KindAccess)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Second)
	_, err = m.Verify(token, KindAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)

	claims, err := m.Inspect(token, KindAccess)
	require.NoError(t, err)
	assert.False(t, clock.now.Before(claims.Expiry()))
}

func TestExpiryIsStrictWithLeeway(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Leeway:        time.Minute,
		Clock:         clock.Now,
	})
	require.NoError(t, err)

	token, _, err := m.Sign(Claims{Kind: KindAccess}, time.Minute)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Minute)
	_, err = m.Verify(token, KindAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)

	clock.now = clock.now.Add(30 * time.Second)
	_, err = m.Verify(token, KindAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestLeewayWidensIssuedAtTolerance(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	ahead := &fakeClock{now: base.Add(maxFutureIAT + 30*time.Second)}
	signer, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Clock: ahead.Now})
	require.NoError(t, err)
	token, _, err := signer.Sign(Claims{Kind: KindAccess}, time.Hour)
	require.NoError(t, err)

	local := &fakeClock{now: base}
	strict, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Clock: local.Now})
	require.NoError(t, err)
	_, err = strict.Verify(token, KindAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	tolerant, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Leeway: time.Minute, Clock: local.Now})
	require.NoError(t, err)
	_, err = tolerant.Verify(token, KindAccess)
	assert.NoError(t, err)
}

func TestVerifyRejectsTampering(t *testing.T) {
	m := newHSManager(t, &fakeClock{now: time.Now()})
	token, _, err := m.Sign(Claims{Kind: KindAccess, Username: "ada"}, time.Hour)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = m.Verify(tampered, KindAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
	_, err = m.Inspect(tampered, KindAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, err = m.Verify("", KindAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
	_, err = m.Verify("not.a.token", KindAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newHSManager(t, clock)

	other, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("ffffffffffffffffffffffffffffffff"),
		Issuer:        "sessionkit",
		Audience:      "api",
		Clock:         clock.Now,
	})
	require.NoError(t, err)

	token, _, err := other.Sign(Claims{Kind: KindAccess}, time.Hour)
	require.NoError(t, err)
	_, err = m.Verify(token, KindAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub})
	require.NoError(t, err)

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)

	_, err = m.Verify(token, KindAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, _, err = m.Sign(Claims{Kind: KindAccess}, time.Minute)
	assert.Error(t, err, "verify-only manager must not sign")
}

func TestVerifyChecksIssuerAndAudience(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newHSManager(t, clock)

	foreign, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Issuer:        "someone-else",
		Audience:      "api",
		Clock:         clock.Now,
	})
	require.NoError(t, err)

	token, _, err := foreign.Sign(Claims{Kind: KindAccess}, time.Hour)
	require.NoError(t, err)
	_, err = m.Verify(token, KindAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
	_, err = m.Inspect(token, KindAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestEd25519RoundTrip(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv})
	require.NoError(t, err)

	token, _, err := m.Sign(Claims{Kind: KindVerification, Email: "ada@example.com"}, time.Minute)
	require.NoError(t, err)
	claims, err := m.Verify(token, KindVerification)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestNewManagerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "short secret", cfg: Config{SigningMethod: MethodHS256, PrivateKey: []byte("short")}},
		{name: "unknown method", cfg: Config{SigningMethod: "rs256", PrivateKey: testSecret}},
		{name: "ed25519 without keys", cfg: Config{SigningMethod: MethodEd25519}},
		{name: "bad ed25519 key", cfg: Config{SigningMethod: MethodEd25519, PublicKey: []byte("nope")}},
		{name: "huge leeway", cfg: Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Leeway: time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSignRejectsBadInput(t *testing.T) {
	m := newHSManager(t, &fakeClock{now: time.Now()})
	_, _, err := m.Sign(Claims{Kind: KindAccess}, 0)
	assert.Error(t, err)
	_, _, err = m.Sign(Claims{Kind: "admin"}, time.Minute)
	assert.ErrorIs(t, err, ErrTokenKind)
}
