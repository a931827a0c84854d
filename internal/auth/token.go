package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "jewelpo"

// Claims is the JWT payload that carries a RequestContext.
type Claims struct {
	CompanyID int64    `json:"company_id"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer for the given shared secret.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for rc and returns it with its expiry.
func (t *TokenIssuer) Issue(rc RequestContext) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	roles := make([]string, len(rc.Roles))
	for i, r := range rc.Roles {
		roles[i] = string(r)
	}
	claims := Claims{
		CompanyID: rc.CompanyID,
		Username:  rc.Username,
		Roles:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(rc.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies a token and rebuilds the RequestContext it carries.
func (t *TokenIssuer) Parse(tokenString string) (RequestContext, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return RequestContext{}, err
	}
	if !token.Valid {
		return RequestContext{}, errors.New("invalid token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return RequestContext{}, errors.New("invalid token subject")
	}
	rc := RequestContext{UserID: userID, CompanyID: claims.CompanyID, Username: claims.Username}
	for _, r := range claims.Roles {
		if role := Role(r); role.Valid() {
			rc.Roles = append(rc.Roles, role)
		}
	}
	return rc, nil
}
