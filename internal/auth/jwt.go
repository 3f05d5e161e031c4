package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kirinyoku/resto-go/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Role domain.Role `json:"role"`
	Name string      `json:"name"`
	jwt.RegisteredClaims
}

type Token struct {
	Token string    `json:"access_token"`
	Exp   time.Time `json:"expires_at"`
}

// Issuer signs and verifies HS256 access tokens for staff.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (i *Issuer) Issue(e domain.Employee) (Token, error) {
	const op = "auth.Issuer.Issue"

	now := i.now().UTC()
	exp := now.Add(i.ttl)

	claims := Claims{
		Role: e.Role,
		Name: e.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(e.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("%s:%w", op, err)
	}

	return Token{Token: signed, Exp: exp}, nil
}

// Parse validates raw and resolves the actor it was issued for.
func (i *Issuer) Parse(raw string) (domain.Actor, error) {
	const op = "auth.Issuer.Parse"

	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return domain.Actor{}, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return domain.Actor{}, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	return domain.NewActor(id, claims.Name, claims.Role), nil
}
