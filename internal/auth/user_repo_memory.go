package auth

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryUserRepo is a threadsafe in-memory storage of operators.
// ID counter starts from 1.
type MemoryUserRepo struct {
	mu     sync.RWMutex
	users  map[string]*User // key = lowercase(username)
	byID   map[uint64]*User
	nextID uint64
}

// OperatorSeed описывает оператора из конфигурации (пароль уже в bcrypt).
type OperatorSeed struct {
	Username     string
	PasswordHash string
	Admin        bool
}

// NewMemoryUserRepo returns an empty repository.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		users:  make(map[string]*User),
		byID:   make(map[uint64]*User),
		nextID: 1,
	}
}

// NewMemoryUserRepoFromSeeds создаёт репозиторий с операторами из конфигурации.
func NewMemoryUserRepoFromSeeds(seeds []OperatorSeed) (*MemoryUserRepo, error) {
	repo := NewMemoryUserRepo()
	for _, s := range seeds {
		if s.Username == "" || s.PasswordHash == "" {
			return nil, fmt.Errorf("оператор без имени или хеша пароля")
		}
		if _, err := repo.CreateUser(s.Username, s.PasswordHash, s.Admin); err != nil {
			return nil, fmt.Errorf("оператор %q: %w", s.Username, err)
		}
	}
	return repo, nil
}

// GetUserByUsername retrieves user by case-insensitive username.
func (r *MemoryUserRepo) GetUserByUsername(username string) (*User, error) {
	key := normalize(username)
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[key]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateUser inserts a new user if username not present.
func (r *MemoryUserRepo) CreateUser(username string, passwordHash string, isAdmin bool) (*User, error) {
	key := normalize(username)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[key]; exists {
		return nil, ErrUserExists
	}

	user := &User{
		ID:           r.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		IsAdmin:      isAdmin,
	}
	r.nextID++
	r.users[key] = user
	r.byID[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepo) GetUserByID(id uint64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ValidateCredentials сверяет пароль и обновляет LastLogin.
// Неизвестное имя и неверный пароль дают одну и ту же ошибку.
func (r *MemoryUserRepo) ValidateCredentials(username, password string) (*User, error) {
	user, err := r.GetUserByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	r.mu.Lock()
	user.LastLogin = time.Now()
	r.mu.Unlock()
	return user, nil
}

// Helper to normalise usernames.
func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
