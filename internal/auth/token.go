package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/apperror"
	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity аутентифицированный пользователь из токена
type Identity struct {
	UserID    int64
	Role      model.Role
	TokenID   string
	ExpiresAt time.Time
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет HS256 токены
type TokenManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

func NewTokenManager(secretKey string, duration time.Duration) *TokenManager {
	return &TokenManager{
		secretKey:     []byte(secretKey),
		tokenDuration: duration,
		now:           time.Now,
	}
}

// WithClock подменяет часы, используется в тестах
func (m *TokenManager) WithClock(now func() time.Time) *TokenManager {
	m.now = now
	return m
}

// Generate выпускает токен с уникальным jti
func (m *TokenManager) Generate(userID int64, role model.Role) (string, *Identity, error) {
	issuedAt := m.now()
	id := &Identity{
		UserID:    userID,
		Role:      role,
		TokenID:   uuid.NewString(),
		ExpiresAt: issuedAt.Add(m.tokenDuration).Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        id.TokenID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(id.ExpiresAt),
		},
	})

	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, id, nil
}

// Parse проверяет подпись и срок действия токена
func (m *TokenManager) Parse(tokenStr string) (*Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (any, error) {
		return m.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}
	role, err := model.ParseRole(c.Role)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}
	if c.ID == "" {
		return nil, apperror.ErrInvalidToken
	}

	return &Identity{
		UserID:    userID,
		Role:      role,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
