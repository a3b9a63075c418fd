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

// CategoryInput is the writable shape of a category. Nil pointers take the
// model defaults (published, output order 100).
type CategoryInput struct {
	Title       string `json:"title" validate:"required,max=256"`
	Slug        string `json:"slug" validate:"required,max=64,slug"`
	OutputOrder *int   `json:"output_order" validate:"omitempty,gte=0,lte=32767"`
	IsPublished *bool  `json:"is_published"`
}

func (in *CategoryInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
}

type CategoryService struct {
	repo *repositories.CategoryRepository
	notifier
}

func NewCategoryService(repo *repositories.CategoryRepository, n notifier) *CategoryService {
	return &CategoryService{repo: repo, notifier: n}
}

func (s *CategoryService) Get(ctx context.Context, id uint) (models.Category, error) {
	c, err := s.repo.FindByID(ctx, id)
	return c, notFound(err)
}

func (s *CategoryService) BySlug(ctx context.Context, slug string) (models.Category, error) {
	c, err := s.repo.FindBySlug(ctx, slug)
	return c, notFound(err)
}

func (s *CategoryService) List(ctx context.Context, opts repositories.ListOptions) ([]models.Category, orm.Pagination, error) {
	return s.repo.List(ctx, opts)
}

func (s *CategoryService) All(ctx context.Context) ([]models.Category, error) {
	return s.repo.All(ctx)
}

// IceCreams lists the ice creams that belong to category id.
func (s *CategoryService) IceCreams(ctx context.Context, id uint, onlyPublished bool) ([]models.IceCream, error) {
	return s.repo.IceCreams(ctx, id, onlyPublished)
}

func (s *CategoryService) check(ctx context.Context, in *CategoryInput, id uint) error {
	in.normalize()
	if err := invalid(validate.Struct(in)); err != nil {
		return err
	}
	taken, err := s.repo.SlugTaken(ctx, in.Slug, id)
	if err != nil {
		return fmt.Errorf("category: check slug: %w", err)
	}
	if taken {
		return fieldError("slug", uniqueMsg("Category", "Slug"))
	}
	return nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (models.Category, error) {
	if err := s.check(ctx, &in, 0); err != nil {
		return models.Category{}, err
	}

	c := models.Category{
		Publishable: models.Publishable{IsPublished: boolOr(in.IsPublished, true), CreatedAt: time.Now()},
		Title:       in.Title,
		Slug:        in.Slug,
		OutputOrder: intOr(in.OutputOrder, DefaultOutputOrder),
	}
	if err := s.repo.Create(ctx, &c); err != nil {
		return models.Category{}, categoryWriteErr(err)
	}

	s.changed(ctx, EntityCategory, ActionCreated, c.ID, c.Title)
	return c, nil
}

// Update replaces every writable field of category id.
func (s *CategoryService) Update(ctx context.Context, id uint, in CategoryInput) (models.Category, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return c, err
	}
	if err := s.check(ctx, &in, id); err != nil {
		return c, err
	}

	c.Title = in.Title
	c.Slug = in.Slug
	c.OutputOrder = intOr(in.OutputOrder, DefaultOutputOrder)
	c.IsPublished = boolOr(in.IsPublished, true)
	if err := s.repo.Save(ctx, &c); err != nil {
		return c, categoryWriteErr(err)
	}

	s.changed(ctx, EntityCategory, ActionUpdated, c.ID, c.Title)
	return c, nil
}

// Delete removes the category; its ice creams go with it.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.changed(ctx, EntityCategory, ActionDeleted, id, c.Title)
	return nil
}

// CategoryInputFrom returns the input that would recreate c unchanged.
func CategoryInputFrom(c models.Category) CategoryInput {
	order, published := c.OutputOrder, c.IsPublished
	return CategoryInput{Title: c.Title, Slug: c.Slug, OutputOrder: &order, IsPublished: &published}
}

func categoryWriteErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fieldError("slug", uniqueMsg("Category", "Slug"))
	}
	return fmt.Errorf("category: save: %w", err)
}
