package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
	"github.com/anfisaforfriends/anfisa/pkg/validate"
)

type ToppingInput struct {
	Title       string `json:"title" validate:"required,max=256"`
	Slug        string `json:"slug" validate:"required,max=64,slug"`
	IsPublished *bool  `json:"is_published"`
}

type ToppingService struct {
	repo *repositories.ToppingRepository
	notifier
}

func NewToppingService(repo *repositories.ToppingRepository, n notifier) *ToppingService {
	return &ToppingService{repo: repo, notifier: n}
}

func (s *ToppingService) Get(ctx context.Context, id uint) (models.Topping, error) {
	t, err := s.repo.FindByID(ctx, id)
	return t, notFound(err)
}

func (s *ToppingService) List(ctx context.Context, opts repositories.ListOptions) ([]models.Topping, orm.Pagination, error) {
	return s.repo.List(ctx, opts)
}

func (s *ToppingService) All(ctx context.Context) ([]models.Topping, error) {
	return s.repo.All(ctx)
}

func (s *ToppingService) check(ctx context.Context, in *ToppingInput, id uint) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	if err := invalid(validate.Struct(in)); err != nil {
		return err
	}
	taken, err := s.repo.SlugTaken(ctx, in.Slug, id)
	if err != nil {
		return fmt.Errorf("topping: check slug: %w", err)
	}
	if taken {
		return fieldError("slug", uniqueMsg("Topping", "Slug"))
	}
	return nil
}

func (s *ToppingService) Create(ctx context.Context, in ToppingInput) (models.Topping, error) {
	if err := s.check(ctx, &in, 0); err != nil {
		return models.Topping{}, err
	}
	t := models.Topping{
		Publishable: models.Publishable{IsPublished: boolOr(in.IsPublished, true), CreatedAt: time.Now()},
		Title:       in.Title,
		Slug:        in.Slug,
	}
	if err := s.repo.Create(ctx, &t); err != nil {
		return models.Topping{}, toppingWriteErr(err)
	}
	s.changed(ctx, EntityTopping, ActionCreated, t.ID, t.Title)
	return t, nil
}

func (s *ToppingService) Update(ctx context.Context, id uint, in ToppingInput) (models.Topping, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return t, err
	}
	if err := s.check(ctx, &in, id); err != nil {
		return t, err
	}
	t.Title, t.Slug = in.Title, in.Slug
	t.IsPublished = boolOr(in.IsPublished, true)
	if err := s.repo.Save(ctx, &t); err != nil {
		return t, toppingWriteErr(err)
	}
	s.changed(ctx, EntityTopping, ActionUpdated, t.ID, t.Title)
	return t, nil
}

// Delete removes the topping from every ice cream that had it.
func (s *ToppingService) Delete(ctx context.Context, id uint) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.changed(ctx, EntityTopping, ActionDeleted, id, t.Title)
	return nil
}

func ToppingInputFrom(t models.Topping) ToppingInput {
	published := t.IsPublished
	return ToppingInput{Title: t.Title, Slug: t.Slug, IsPublished: &published}
}

func toppingWriteErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fieldError("slug", uniqueMsg("Topping", "Slug"))
	}
	return fmt.Errorf("topping: save: %w", err)
}
