package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Действия, проверяемые предикатом Can.
const (
	ActionRead  = "READ"
	ActionWrite = "WRITE"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims - клеймы access токена: субъект и список разрешённых действий.
type Claims struct {
	Perms []string `json:"perms"`
	jwt.RegisteredClaims
}

// Principal - пользователь, от имени которого выполняется запрос.
type Principal struct {
	Subject string
	Perms   []string
}

// Can сообщает, разрешено ли пользователю действие.
func (p *Principal) Can(action string) bool {
	if p == nil {
		return false
	}
	for _, perm := range p.Perms {
		if perm == action {
			return true
		}
	}
	return false
}

// TokenManager отвечает за выпуск и проверку JWT.
type TokenManager struct {
	secret []byte
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

// Issue выпускает токен с указанными правами.
func (m *TokenManager) Issue(subject string, perms []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Perms: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse проверяет подпись и срок токена.
func (m *TokenManager) Parse(token string) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return &Principal{Subject: claims.Subject, Perms: claims.Perms}, nil
}

type principalKey struct{}

// WithPrincipal кладёт пользователя в контекст запроса.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext достаёт пользователя из контекста.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}
