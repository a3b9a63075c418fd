package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/app/models"
)

type UserRepository struct {
	crud[models.User]
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{crud[models.User]{db: db}}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := r.query(ctx).Where("email = ?", email).First(&u)
	return u, err
}

func (r *UserRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	n, err := r.query(ctx).Where("email = ?", email).Count()
	return n > 0, err
}
