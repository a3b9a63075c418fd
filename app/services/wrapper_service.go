package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
	"github.com/anfisaforfriends/anfisa/pkg/validate"
)

// WrapperTitleHelp is shown next to the title field in forms. Uniqueness is
// a convention only and is not checked.
const WrapperTitleHelp = "Unique wrapper name, at most 256 characters"

type WrapperInput struct {
	Title       string `json:"title" validate:"required,max=256"`
	IsPublished *bool  `json:"is_published"`
}

type WrapperService struct {
	repo *repositories.WrapperRepository
	notifier
}

func NewWrapperService(repo *repositories.WrapperRepository, n notifier) *WrapperService {
	return &WrapperService{repo: repo, notifier: n}
}

func (s *WrapperService) Get(ctx context.Context, id uint) (models.Wrapper, error) {
	w, err := s.repo.FindByID(ctx, id)
	return w, notFound(err)
}

func (s *WrapperService) List(ctx context.Context, opts repositories.ListOptions) ([]models.Wrapper, orm.Pagination, error) {
	return s.repo.List(ctx, opts)
}

func (s *WrapperService) All(ctx context.Context) ([]models.Wrapper, error) {
	return s.repo.All(ctx)
}

func (s *WrapperService) check(in *WrapperInput) error {
	in.Title = strings.TrimSpace(in.Title)
	return invalid(validate.Struct(in))
}

func (s *WrapperService) Create(ctx context.Context, in WrapperInput) (models.Wrapper, error) {
	if err := s.check(&in); err != nil {
		return models.Wrapper{}, err
	}
	w := models.Wrapper{
		Publishable: models.Publishable{IsPublished: boolOr(in.IsPublished, true), CreatedAt: time.Now()},
		Title:       in.Title,
	}
	if err := s.repo.Create(ctx, &w); err != nil {
		return models.Wrapper{}, fmt.Errorf("wrapper: save: %w", err)
	}
	s.changed(ctx, EntityWrapper, ActionCreated, w.ID, w.Title)
	return w, nil
}

func (s *WrapperService) Update(ctx context.Context, id uint, in WrapperInput) (models.Wrapper, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return w, err
	}
	if err := s.check(&in); err != nil {
		return w, err
	}
	w.Title = in.Title
	w.IsPublished = boolOr(in.IsPublished, true)
	if err := s.repo.Save(ctx, &w); err != nil {
		return w, fmt.Errorf("wrapper: save: %w", err)
	}
	s.changed(ctx, EntityWrapper, ActionUpdated, w.ID, w.Title)
	return w, nil
}

// Delete removes the wrapper. An ice cream that used it keeps existing
// with no wrapper.
func (s *WrapperService) Delete(ctx context.Context, id uint) error {
	w, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.changed(ctx, EntityWrapper, ActionDeleted, id, w.Title)
	return nil
}

func WrapperInputFrom(w models.Wrapper) WrapperInput {
	published := w.IsPublished
	return WrapperInput{Title: w.Title, IsPublished: &published}
}
