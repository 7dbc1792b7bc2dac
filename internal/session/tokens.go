package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"project-tracker/internal/model"
)

const (
	bearerPrefix = "Bearer "
	tokenIssuer  = "project-tracker"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

// Tokens issues and validates HS256 bearer tokens for API clients.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{
		secret: secret,
		ttl:    ttl,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		now:    time.Now,
	}
}

// tokenClaims adds the credential stamp to the registered claims.
type tokenClaims struct {
	jwt.RegisteredClaims
	Stamp string `json:"stm,omitempty"`
}

// Stamp is derived from the user's password hash, so it changes whenever
// the password does.
func (t *Tokens) Stamp(user *model.User) string {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte("credential-stamp:"))
	mac.Write([]byte(user.PasswordHash))
	return hex.EncodeToString(mac.Sum(nil))[:32]
}

// Issue signs a token whose subject is the user id.
func (t *Tokens) Issue(user *model.User) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Stamp: t.Stamp(user),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Subject validates an Authorization header value and returns the token's
// user id and credential stamp.
func (t *Tokens) Subject(header string) (uint, string, error) {
	raw, err := bearerToken(header)
	if err != nil {
		return 0, "", err
	}

	var claims tokenClaims
	if _, err := t.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}); err != nil {
		return 0, "", err
	}
	if !claims.VerifyIssuer(tokenIssuer, true) {
		return 0, "", errors.New("invalid issuer")
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, "", errors.New("missing sub")
	}
	return uint(id), claims.Stamp, nil
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingAuthorization
	}
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", errBadAuthorization
	}
	token := header[len(bearerPrefix):]
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
