package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	token, err := m.Issue("user-1")
	require.NoError(t, err)

	sub, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestTokenRejections(t *testing.T) {
	m, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	other, err := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue("user-1")
	require.NoError(t, err)

	expiredMgr, err := NewTokenManager(testSecret, time.Minute)
	require.NoError(t, err)
	expiredMgr.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredMgr.Issue("user-1")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user-1",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"wrong secret":   foreign,
		"expired":        expired,
		"alg none":       noneAlg,
		"missing sub":    noSubject,
		"missing expiry": noExpiry,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenManagerValidation(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenManager(testSecret, 0)
	assert.Error(t, err)
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("pw")
	require.NoError(t, err)
	assert.NotEqual(t, "pw", hash)

	again, err := h.Hash("pw")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes should be salted per call")

	assert.NoError(t, h.Check(hash, "pw"))
	assert.ErrorIs(t, h.Check(hash, "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, h.Check("not-a-hash", "pw"), ErrInvalidCredentials)
}

func TestHasherRejectsPasswordsOverBcryptLimit(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", 72))
	require.NoError(t, err)

	_, err = h.Hash(strings.Repeat("é", 72))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNewHasherFallsBackToDefaultCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(1).cost)
	assert.Equal(t, 12, NewHasher(12).cost)
}

func FuzzVerify(f *testing.F) {
	m, err := NewTokenManager(testSecret, time.Hour)
	if err != nil {
		f.Fatalf("new token manager: %v", err)
	}
	valid, err := m.Issue("user-1")
	if err != nil {
		f.Fatalf("issue token: %v", err)
	}
	f.Add(valid)
	f.Add("")
	f.Add("a.b.c")
	f.Add(strings.Repeat("x", 512))

	f.Fuzz(func(t *testing.T, token string) {
		sub, err := m.Verify(token)
		if err == nil && sub == "" {
			t.Fatalf("accepted token without subject")
		}
	})
}
