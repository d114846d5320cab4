package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/voxelmesh/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "voxelmesh"

// ErrInvalidToken возвращается для просроченного, подделанного или чужого токена
var ErrInvalidToken = errors.New("invalid token")

// Claims represents JWT claims
type Claims struct {
	UserID   uint64 `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Authenticator выдаёт и проверяет токены операторов (HS256).
type Authenticator struct {
	repo        UserRepository
	secret      []byte
	tokenExpiry time.Duration
	now         func() time.Time
}

// NewAuthenticator создает аутентификатор.
// Пустой секрет заменяется случайным: токены не переживут перезапуск.
func NewAuthenticator(repo UserRepository, secret []byte, tokenExpiry time.Duration) (*Authenticator, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("не удалось сгенерировать JWT секрет: %w", err)
		}
		logging.Warn("⚠️ JWT secret not configured, using ephemeral secret")
	} else if len(secret) < 32 {
		return nil, errors.New("secret key must be at least 32 bytes")
	}
	if tokenExpiry <= 0 {
		tokenExpiry = time.Hour
	}

	return &Authenticator{
		repo:        repo,
		secret:      secret,
		tokenExpiry: tokenExpiry,
		now:         time.Now,
	}, nil
}

// Login проверяет пароль и выдаёт токен.
func (a *Authenticator) Login(username, password string) (string, *User, error) {
	user, err := a.repo.ValidateCredentials(username, password)
	if err != nil {
		logging.Warn("🔐 Failed login for %q", username)
		return "", nil, err
	}

	token, err := a.GenerateJWT(user)
	if err != nil {
		return "", nil, err
	}
	logging.Info("🔐 Operator %s logged in", user.Username)
	return token, user, nil
}

// GenerateJWT creates a signed token for the given user
func (a *Authenticator) GenerateJWT(user *User) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   user.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return signed, nil
}

// ValidateJWT checks token validity and returns its claims
func (a *Authenticator) ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(a.now))

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenExpiry возвращает срок жизни выдаваемых токенов
func (a *Authenticator) TokenExpiry() time.Duration { return a.tokenExpiry }

// GenerateSecureSecret generates a new secure secret key
func GenerateSecureSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeSecret декодирует секрет из base64 (формат конфигурации)
func DecodeSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("jwt secret is not base64: %w", err)
	}
	if len(decoded) < 32 {
		return nil, errors.New("secret key must be at least 32 bytes")
	}
	return decoded, nil
}
