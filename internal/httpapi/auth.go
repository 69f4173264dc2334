package httpapi

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"posdesk/internal/domain"
)

var errBadCredentials = errors.New("invalid credentials")

// UserStore is the slice of the repository the auth layer needs:
// persisted accounts plus the ability to rewrite a password hash.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// AuthManager issues and validates HS256 access tokens and keeps an
// in-memory account cache in front of the user store.
type AuthManager struct {
	mu       sync.RWMutex
	secret   []byte
	tokenTTL time.Duration
	store    UserStore
	accounts map[string]account
}

// account is the cached credential row. The password field always holds
// a bcrypt hash once syncAccounts has seen the user.
type account struct {
	passwordHash string
	role         string
	active       bool
	createdAt    time.Time
}

type accessClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, store UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	m := &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		store:    store,
		accounts: make(map[string]account),
	}
	// No request context exists yet at construction time.
	m.syncAccounts(context.Background())
	return m
}

// Login checks the credentials against the cached accounts and returns
// a signed access token. Unknown user and wrong password read the same
// to the caller.
func (m *AuthManager) Login(req domain.LoginRequest) (domain.LoginResponse, error) {
	m.syncAccounts(context.Background())

	acct, ok := m.lookup(strings.TrimSpace(req.Username))
	if !ok || !checkPassword(acct.passwordHash, req.Password) {
		return domain.LoginResponse{}, errBadCredentials
	}
	if !acct.active {
		return domain.LoginResponse{}, errors.New("account is inactive")
	}

	expiresAt := time.Now().UTC().Add(m.tokenTTL)
	token, err := m.sign(strings.TrimSpace(req.Username), acct.role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        acct.role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (m *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &accessClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}

func (m *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "posdesk",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *AuthManager) lookup(username string) (account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[username]
	return acct, ok
}

// CreateCashier registers a new cashier account, persisting it first so
// a store failure never leaves a cache-only user.
func (m *AuthManager) CreateCashier(req domain.CashierCreateRequest) (domain.CashierUser, error) {
	m.syncAccounts(context.Background())

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if err := validateCashier(username, req.Password); err != nil {
		return domain.CashierUser{}, err
	}
	if _, exists := m.lookup(username); exists {
		return domain.CashierUser{}, fmt.Errorf("username already exists")
	}

	now := time.Now().UTC()
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.CashierUser{}, fmt.Errorf("failed to hash password")
	}

	if m.store != nil {
		err := m.store.CreateUser(context.Background(), domain.UserAccount{
			Username:  username,
			Password:  passwordHash,
			Role:      "cashier",
			Active:    true,
			CreatedAt: now,
		})
		if err != nil {
			return domain.CashierUser{}, err
		}
	}

	m.mu.Lock()
	m.accounts[username] = account{
		passwordHash: passwordHash,
		role:         "cashier",
		active:       true,
		createdAt:    now,
	}
	m.mu.Unlock()

	return domain.CashierUser{
		Username:  username,
		Role:      "cashier",
		Active:    true,
		CreatedAt: now,
	}, nil
}

func validateCashier(username string, password string) error {
	if len(username) < 4 {
		return fmt.Errorf("username must be at least 4 characters")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return fmt.Errorf("username must not contain spaces")
	}
	if strings.TrimSpace(password) == "" || len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	return nil
}

func (m *AuthManager) ListCashiers() []domain.CashierUser {
	m.syncAccounts(context.Background())

	m.mu.RLock()
	result := make([]domain.CashierUser, 0, len(m.accounts))
	for username, acct := range m.accounts {
		if acct.role != "cashier" {
			continue
		}
		result = append(result, domain.CashierUser{
			Username:  username,
			Role:      acct.role,
			Active:    acct.active,
			CreatedAt: acct.createdAt,
		})
	}
	m.mu.RUnlock()

	slices.SortFunc(result, func(a, b domain.CashierUser) int {
		return strings.Compare(a.Username, b.Username)
	})
	return result
}

// syncAccounts refreshes the cache from the user store. Legacy
// plain-text passwords get hashed and written back on the way in.
func (m *AuthManager) syncAccounts(ctx context.Context) {
	if m.store == nil {
		return
	}

	users, err := m.store.ListUsers(ctx)
	if err != nil || len(users) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range users {
		username := strings.ToLower(strings.TrimSpace(user.Username))
		if username == "" {
			continue
		}
		passwordHash := user.Password
		if !isBcryptHash(passwordHash) {
			hashed, err := hashPassword(passwordHash)
			if err == nil {
				passwordHash = hashed
				_ = m.store.UpdateUserPassword(ctx, username, hashed)
			}
		}
		m.accounts[username] = account{
			passwordHash: passwordHash,
			role:         user.Role,
			active:       user.Active,
			createdAt:    user.CreatedAt,
		}
	}
}

func checkPassword(storedHash string, input string) bool {
	if storedHash == "" || strings.TrimSpace(input) == "" || !isBcryptHash(storedHash) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func isBcryptHash(value string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
