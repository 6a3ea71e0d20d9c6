package service

import (
	"crypto/rand"
	"crypto/sha256"
	"dbconsole/internal/core"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	userRepo   core.UserRepository
	apiKeyRepo core.ApiKeyRepository
}

func NewAuthService(userRepo core.UserRepository, apiKeyRepo core.ApiKeyRepository) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		apiKeyRepo: apiKeyRepo,
	}
}

// SetupAdmin creates the first console user, only allowed if no users exist
func (s *AuthService) SetupAdmin(username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}

	count, err := s.userRepo.CountUsers()
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("setup already completed")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.userRepo.CreateUser(username, string(hashedPassword))
	return err
}

// Authenticate checks credentials and returns the user if valid
func (s *AuthService) Authenticate(username, password string) (*core.User, error) {
	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials // Don't leak if user exists
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GenerateApiKey creates a key for userID. The plain key is only returned here;
// the store keeps its SHA-256.
func (s *AuthService) GenerateApiKey(userID int64, description string) (string, *core.ApiKey, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", nil, err
	}
	key := hex.EncodeToString(bytes)

	apiKey := &core.ApiKey{
		UserID:      userID,
		KeyPrefix:   key[:8],
		KeyHash:     hashKey(key),
		Description: description,
		CreatedAt:   time.Now(),
		IsActive:    true,
	}

	if err := s.apiKeyRepo.Create(apiKey); err != nil {
		return "", nil, err
	}

	return key, apiKey, nil
}

// VerifyApiKey resolves a plain key to the active user owning it.
func (s *AuthService) VerifyApiKey(plainKey string) (*core.User, error) {
	apiKey, err := s.apiKeyRepo.GetByHash(hashKey(plainKey))
	if err != nil {
		return nil, err
	}
	if apiKey == nil {
		return nil, errors.New("invalid api key")
	}

	user, err := s.userRepo.GetByID(apiKey.UserID)
	if err != nil || !user.IsActive {
		return nil, errors.New("invalid api key")
	}

	// Ignore error to not block auth
	_ = s.apiKeyRepo.UpdateLastUsed(apiKey.ID)

	return user, nil
}

// UserByID returns the active user behind a login session.
func (s *AuthService) UserByID(id int64) (*core.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) ListApiKeys(userID int64) ([]core.ApiKey, error) {
	return s.apiKeyRepo.ListByUser(userID)
}

func (s *AuthService) RevokeApiKey(userID, keyID int64) error {
	return s.apiKeyRepo.Revoke(userID, keyID)
}

// HasUsers checks if system is set up
func (s *AuthService) HasUsers() (bool, error) {
	count, err := s.userRepo.CountUsers()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ResetPassword resets a user's password by username
func (s *AuthService) ResetPassword(username, newPassword string) error {
	user, err := s.userRepo.GetUserByUsername(username)
	if err != nil {
		return errors.New("user not found: " + username)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashedPassword)
	return s.userRepo.Update(user)
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
