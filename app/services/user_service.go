package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/pkg/auth"
	"github.com/anfisaforfriends/anfisa/pkg/validate"
)

type UserInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin staff user"`
}

type UserService struct {
	users *repositories.UserRepository
}

func NewUserService(users *repositories.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Create(ctx context.Context, in UserInput) (models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := invalid(validate.Struct(in)); err != nil {
		return models.User{}, err
	}

	taken, err := s.users.EmailTaken(ctx, in.Email)
	if err != nil {
		return models.User{}, fmt.Errorf("user: check email: %w", err)
	}
	if taken {
		return models.User{}, fieldError("email", uniqueMsg("User", "Email"))
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("user: hash password: %w", err)
	}

	u := models.User{Name: in.Name, Email: in.Email, Password: hash, Role: in.Role}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, fieldError("email", uniqueMsg("User", "Email"))
		}
		return models.User{}, fmt.Errorf("user: save: %w", err)
	}
	return u, nil
}
