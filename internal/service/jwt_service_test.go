package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"auth-api/internal/domain"
)

func newTestJWTService(t *testing.T, secret, algorithm string, accessTTL time.Duration) *JWTService {
	t.Helper()
	svc, err := NewJWTService(secret, algorithm, accessTTL, 30*time.Minute, NewMemoryRefreshTokenStore())
	if err != nil {
		t.Fatalf("new jwt service: %v", err)
	}
	return svc
}

func TestJWTService_GenerateParseAccess(t *testing.T) {
	svc := newTestJWTService(t, "secret", "HS256", 15*time.Minute)
	user := domain.User{ID: "u1", Email: "user@example.com"}

	pair, err := svc.GeneratePair(user)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected tokens")
	}

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "user@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTService_ExpiryWithinWindow(t *testing.T) {
	const window = 30 * time.Minute
	svc := newTestJWTService(t, "secret", "HS256", window)
	before := time.Now().UTC()

	pair, err := svc.GeneratePair(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	claims, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	exp := claims.ExpiresAt.Time
	if !exp.After(before) {
		t.Fatalf("expiry not in the future: %v", exp)
	}
	if exp.After(before.Add(window + time.Minute)) {
		t.Fatalf("expiry beyond window: %v", exp)
	}
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	svc := newTestJWTService(t, "secret", "HS256", 15*time.Minute)
	expired, err := svc.signToken(domain.User{ID: "u1"}, time.Now().UTC().Add(-time.Hour), time.Minute, "access", "")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := svc.ParseAccessToken(expired); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
}

func TestJWTService_RefreshRotation(t *testing.T) {
	svc := newTestJWTService(t, "secret", "HS256", 15*time.Minute)

	pair, err := svc.GeneratePair(domain.User{ID: "u1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	refreshed, err := svc.RefreshPair(pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh pair: %v", err)
	}
	if refreshed.AccessToken == "" || refreshed.RefreshToken == "" {
		t.Fatalf("expected refreshed tokens")
	}

	if _, err := svc.RefreshPair(pair.RefreshToken); err == nil {
		t.Fatalf("expected old refresh token to be revoked")
	}
}

func TestJWTService_RevokeRefresh(t *testing.T) {
	svc := newTestJWTService(t, "secret", "HS256", 15*time.Minute)
	pair, err := svc.GeneratePair(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	if err := svc.RevokeRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("revoke refresh: %v", err)
	}
	if _, err := svc.RefreshPair(pair.RefreshToken); err == nil {
		t.Fatalf("expected refresh to fail after revoke")
	}
}

func TestJWTService_RejectsAccessTokenInRefreshFlow(t *testing.T) {
	svc := newTestJWTService(t, "secret", "HS256", 15*time.Minute)
	pair, err := svc.GeneratePair(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	if _, err := svc.RefreshPair(pair.AccessToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for access token, got %v", err)
	}
}

func TestNewJWTService_ConfigurationErrors(t *testing.T) {
	if _, err := NewJWTService("", "HS256", time.Minute, time.Minute, nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration on empty secret, got %v", err)
	}
	if _, err := NewJWTService("secret", "", time.Minute, time.Minute, nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration on empty algorithm, got %v", err)
	}
	if _, err := NewJWTService("secret", "none", time.Minute, time.Minute, nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration on alg none, got %v", err)
	}
	if _, err := NewJWTService("secret", "RS256", time.Minute, time.Minute, nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration on non-HMAC alg, got %v", err)
	}
	if _, err := NewJWTService("secret", "HS512", time.Minute, time.Minute, nil); err != nil {
		t.Fatalf("HS512 should be supported, got %v", err)
	}
}

func TestJWTService_ConfiguredAlgorithmSigns(t *testing.T) {
	svc := newTestJWTService(t, "secret", "HS384", 15*time.Minute)
	pair, err := svc.GeneratePair(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	token, _, err := jwt.NewParser().ParseUnverified(pair.AccessToken, &Claims{})
	if err != nil {
		t.Fatalf("parse unverified: %v", err)
	}
	if token.Method.Alg() != "HS384" {
		t.Fatalf("expected HS384, got %s", token.Method.Alg())
	}
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	svc := newTestJWTService(t, "secret", "HS256", 15*time.Minute)
	other := newTestJWTService(t, "other-secret", "HS256", 15*time.Minute)

	pair, err := other.GeneratePair(domain.User{ID: "u1"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := svc.ParseAccessToken(pair.AccessToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for foreign signature, got %v", err)
	}
}
