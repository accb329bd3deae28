package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessClaims carries iat/exp/username as strings on the wire, which is
// the token contract the service has always exposed.
type accessClaims struct {
	Iat      string `json:"iat"`
	Exp      string `json:"exp"`
	Username string `json:"username"`
}

func (c accessClaims) numericDate(value string) (*jwt.NumericDate, error) {
	if value == "" {
		return nil, nil
	}
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed timestamp claim: %w", err)
	}
	return jwt.NewNumericDate(time.Unix(seconds, 0)), nil
}

func (c accessClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.numericDate(c.Exp) }
func (c accessClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.numericDate(c.Iat) }
func (c accessClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c accessClaims) GetIssuer() (string, error)                   { return "", nil }
func (c accessClaims) GetSubject() (string, error)                  { return c.Username, nil }
func (c accessClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// TokenIssuer signs and verifies HMAC-SHA256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	expire int64 // seconds
}

func NewTokenIssuer(secret string, expire int64) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), expire: expire}
}

func (i *TokenIssuer) Issue(username string, now time.Time) (string, error) {
	claims := accessClaims{
		Iat:      strconv.FormatInt(now.Unix(), 10),
		Exp:      strconv.FormatInt(now.Unix()+i.expire, 10),
		Username: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the wallet address the
// token was issued for.
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if claims.Username == "" {
		return "", fmt.Errorf("token has no username claim")
	}
	return claims.Username, nil
}
