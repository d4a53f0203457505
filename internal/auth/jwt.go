package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims a chat platform access token carries. The
// notify service only reads them; tokens are minted by the auth
// collaborator (and by tests).
type Claims struct {
	UserID   uint64 `json:"user_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// JWTConfig holds token verification settings shared with the platform.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Identity is the authenticated user attached to a stream connection.
type Identity struct {
	UserID   uint64
	Fullname string
	Email    string
}

// Verifier turns bearer tokens into identities.
type Verifier struct {
	cfg *JWTConfig
}

// NewVerifier builds a verifier for the given config.
func NewVerifier(cfg *JWTConfig) *Verifier {
	return &Verifier{cfg: cfg}
}

// Verify parses and validates a token and returns the identity it
// asserts. Any failure means the stream request is rejected before
// subscription state exists.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	claims, err := ValidateToken(v.cfg, tokenString)
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID:   claims.UserID,
		Fullname: claims.Fullname,
		Email:    claims.Email,
	}, nil
}

// GenerateToken creates a signed token for the given user. Used by tests
// and local tooling; production tokens come from the auth collaborator.
func GenerateToken(cfg *JWTConfig, userID uint64, fullname, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Fullname: fullname,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses and validates a JWT token.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}

	if cfg.Audience != "" {
		validAudience := false
		for _, aud := range claims.Audience {
			if aud == cfg.Audience {
				validAudience = true
				break
			}
		}
		if !validAudience {
			return nil, fmt.Errorf("invalid audience")
		}
	}

	return claims, nil
}
