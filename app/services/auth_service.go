package services

import (
	"context"
	"errors"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/pkg/auth"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthService struct {
	users *repositories.UserRepository
}

func NewAuthService(users *repositories.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Authenticate checks the password of the user with email.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, orm.ErrNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if !auth.CheckPassword(u.Password, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues a JWT.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, models.User, error) {
	u, err := s.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return "", models.User{}, err
	}
	token, err := auth.GenerateToken(u.ID, u.Role)
	if err != nil {
		return "", models.User{}, err
	}
	return token, u, nil
}

func (s *AuthService) User(ctx context.Context, id uint) (models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	return u, notFound(err)
}
