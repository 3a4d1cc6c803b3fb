package jwtutil

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claim names used by the backend's ASP.NET identity tokens
const (
	claimNameID    = "nameid"
	claimEmail     = "email"
	claimRole      = "role"
	claimURINameID = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	claimURIEmail  = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	claimURIRole   = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrNoSubject      = errors.New("token carries no subject")
	ErrTokenExpired   = errors.New("token expired")
)

// UserClaims is the subset of the bearer token the storefront reads
type UserClaims struct {
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Key identifies the user across requests
func (c *UserClaims) Key() string {
	if c.Subject != "" {
		return c.Subject
	}
	return strings.ToLower(c.Email)
}

// Expired reports whether the token has an expiry before now
func (c *UserClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ParseUnverified decodes the token without checking its signature. The
// backend owns the signing key and rejects forged tokens with 401; the
// storefront only needs a stable key for the session.
func ParseUnverified(tokenString string) (*UserClaims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrMalformedToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	uc := &UserClaims{
		Subject: first(claims, "sub", claimNameID, claimURINameID),
		Email:   first(claims, claimEmail, claimURIEmail),
		Role:    first(claims, claimRole, claimURIRole),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		uc.ExpiresAt = exp.Time
	}
	if uc.Key() == "" {
		return nil, ErrNoSubject
	}
	return uc, nil
}

// Resolve parses the token and rejects it when expired
func Resolve(tokenString string, now time.Time) (*UserClaims, error) {
	uc, err := ParseUnverified(tokenString)
	if err != nil {
		return nil, err
	}
	if uc.Expired(now) {
		return nil, ErrTokenExpired
	}
	return uc, nil
}

// first returns the first non-empty string claim among names. Role claims
// may be arrays; the first element wins.
func first(claims jwt.MapClaims, names ...string) string {
	for _, name := range names {
		switch v := claims[name].(type) {
		case string:
			if v != "" {
				return v
			}
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}
