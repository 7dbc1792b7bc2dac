package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"project-tracker/internal/model"
	"project-tracker/internal/repository"
	"project-tracker/internal/validation"
)

// ErrInvalidCredentials is returned for unknown accounts and wrong passwords
// alike, so callers cannot tell which one happened.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService registers and authenticates user accounts.
type AuthService struct {
	users *repository.UserRepository
	cost  int
	now   func() time.Time
}

func NewAuthService(users *repository.UserRepository) *AuthService {
	return &AuthService{users: users, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithCost overrides the bcrypt work factor for new password hashes.
func (s *AuthService) WithCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// Register validates f, then stores the account with default settings.
// Validation failures come back as validation.Errors.
func (s *AuthService) Register(ctx context.Context, f *validation.RegistrationForm) (*model.User, error) {
	errs, err := validation.ValidateRegistration(ctx, f, s.users)
	if err != nil {
		return nil, err
	}
	if !errs.Empty() {
		return nil, errs
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(f.Password1), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{
		Username:     f.Username,
		Email:        f.Email,
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.users.CreateWithSettings(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate resolves identifier as an email when it contains "@", and as a
// username otherwise, then checks the password.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*model.User, error) {
	identifier = strings.TrimSpace(identifier)
	var (
		user *model.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.FindByEmail(ctx, identifier)
	} else {
		user, err = s.users.FindByUsername(ctx, identifier)
	}
	if errors.Is(err, repository.ErrNotFound) {
		// Equalise timing with the wrong-password path.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !checkPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password and stores the new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, f *validation.ChangePasswordForm) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if f.CurrentPassword != "" && !checkPassword(user.PasswordHash, f.CurrentPassword) {
		errs := validation.Errors{}
		errs.Add("current_password", "Current password is incorrect.")
		return errs
	}
	if errs := validation.ValidateChangePassword(f); !errs.Empty() {
		return errs
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(f.NewPassword1), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

// ActiveUsers lists every account that can sign in, for the team page.
func (s *AuthService) ActiveUsers(ctx context.Context) ([]model.User, error) {
	return s.users.ListActive(ctx)
}

func (s *AuthService) UserByID(ctx context.Context, id uint) (*model.User, error) {
	return s.users.FindByID(ctx, id)
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unused-password"), bcrypt.DefaultCost)
