package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Token kinds.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// ErrWrongKind is returned when a token of the other kind is presented.
var ErrWrongKind = errors.New("jwt: unexpected token kind")

// Claims defines JWT payload. TeamID is the session's working team and may be empty.
type Claims struct {
	UserID string `json:"user_id"`
	TeamID string `json:"team_id,omitempty"`
	Kind   string `json:"kind"`
	jwtlib.RegisteredClaims
}

// GenerateToken issues a signed JWT with provided secret and ttl.
func GenerateToken(userID, teamID, kind, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		TeamID: teamID,
		Kind:   kind,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "wordgen",
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates the token and checks it is of the expected kind.
func Parse(token, secret, kind string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}), jwtlib.WithIssuer("wordgen"))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	if kind != "" && claims.Kind != kind {
		return nil, ErrWrongKind
	}
	return claims, nil
}
