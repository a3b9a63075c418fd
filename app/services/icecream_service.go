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
	"github.com/anfisaforfriends/anfisa/pkg/cache"
	"github.com/anfisaforfriends/anfisa/pkg/collection"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
	"github.com/anfisaforfriends/anfisa/pkg/validate"
)

// FeaturedCacheKey holds the homepage list; any catalog change forgets it.
const FeaturedCacheKey = "catalog:featured"

const FeaturedTTL = 5 * time.Minute

type IceCreamInput struct {
	Title       string `json:"title" validate:"required,max=256"`
	Description string `json:"description" validate:"required"`
	CategoryID  uint   `json:"category_id" validate:"required"`
	WrapperID   *uint  `json:"wrapper_id"`
	ToppingIDs  []uint `json:"toppings" validate:"dive,required"`
	IsPublished *bool  `json:"is_published"`
	IsOnMain    bool   `json:"is_on_main"`
}

type IceCreamService struct {
	repo       *repositories.IceCreamRepository
	categories *repositories.CategoryRepository
	wrappers   *repositories.WrapperRepository
	toppings   *repositories.ToppingRepository
	notifier
}

func NewIceCreamService(
	repo *repositories.IceCreamRepository,
	categories *repositories.CategoryRepository,
	wrappers *repositories.WrapperRepository,
	toppings *repositories.ToppingRepository,
	n notifier,
) *IceCreamService {
	return &IceCreamService{repo: repo, categories: categories, wrappers: wrappers, toppings: toppings, notifier: n}
}

func (s *IceCreamService) Get(ctx context.Context, id uint) (models.IceCream, error) {
	ic, err := s.repo.Get(ctx, id)
	return ic, notFound(err)
}

func (s *IceCreamService) List(ctx context.Context, opts repositories.ListOptions) ([]models.IceCream, orm.Pagination, error) {
	return s.repo.List(ctx, opts)
}

// Featured is the cached homepage list.
func (s *IceCreamService) Featured(ctx context.Context) ([]models.IceCream, error) {
	return cache.Remember(ctx, FeaturedCacheKey, FeaturedTTL, func() ([]models.IceCream, error) {
		return s.repo.Featured(ctx)
	})
}

// check validates in and resolves its toppings.
func (s *IceCreamService) check(ctx context.Context, in *IceCreamInput, id uint) ([]models.Topping, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ToppingIDs = collection.Unique(in.ToppingIDs)

	fields := validate.Struct(in)

	if in.CategoryID != 0 {
		ok, err := s.categories.Exists(ctx, in.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("ice cream: check category: %w", err)
		}
		if !ok {
			fields["category_id"] = msgInvalidChoice
		}
	}

	if in.WrapperID != nil {
		ok, err := s.wrappers.Exists(ctx, *in.WrapperID)
		if err != nil {
			return nil, fmt.Errorf("ice cream: check wrapper: %w", err)
		}
		switch {
		case !ok:
			fields["wrapper_id"] = msgInvalidChoice
		default:
			used, err := s.wrappers.InUse(ctx, *in.WrapperID, id)
			if err != nil {
				return nil, fmt.Errorf("ice cream: check wrapper: %w", err)
			}
			if used {
				fields["wrapper_id"] = uniqueMsg("Ice cream", "Wrapper")
			}
		}
	}

	toppings, err := s.toppings.FindByIDs(ctx, in.ToppingIDs)
	if err != nil {
		return nil, fmt.Errorf("ice cream: load toppings: %w", err)
	}
	if len(toppings) != len(in.ToppingIDs) {
		found := make(map[uint]bool, len(toppings))
		for _, t := range toppings {
			found[t.ID] = true
		}
		for _, tid := range in.ToppingIDs {
			if !found[tid] {
				fields["toppings"] = fmt.Sprintf("Select a valid choice. %d is not one of the available choices.", tid)
				break
			}
		}
	}

	return toppings, invalid(fields)
}

func (s *IceCreamService) Create(ctx context.Context, in IceCreamInput) (models.IceCream, error) {
	toppings, err := s.check(ctx, &in, 0)
	if err != nil {
		return models.IceCream{}, err
	}

	ic := models.IceCream{
		Publishable: models.Publishable{IsPublished: boolOr(in.IsPublished, true), CreatedAt: time.Now()},
		Title:       in.Title,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		WrapperID:   in.WrapperID,
		IsOnMain:    in.IsOnMain,
	}
	if err := s.repo.CreateWithToppings(ctx, &ic, toppings); err != nil {
		return models.IceCream{}, iceCreamWriteErr(err)
	}

	s.changed(ctx, EntityIceCream, ActionCreated, ic.ID, ic.Title)
	return s.Get(ctx, ic.ID)
}

// Update replaces every writable field of ice cream id, toppings included.
func (s *IceCreamService) Update(ctx context.Context, id uint, in IceCreamInput) (models.IceCream, error) {
	ic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ic, notFound(err)
	}
	toppings, err := s.check(ctx, &in, id)
	if err != nil {
		return ic, err
	}

	ic.Title = in.Title
	ic.Description = in.Description
	ic.CategoryID = in.CategoryID
	ic.WrapperID = in.WrapperID
	ic.IsOnMain = in.IsOnMain
	ic.IsPublished = boolOr(in.IsPublished, true)
	if err := s.repo.SaveWithToppings(ctx, &ic, toppings); err != nil {
		return ic, iceCreamWriteErr(err)
	}

	s.changed(ctx, EntityIceCream, ActionUpdated, ic.ID, ic.Title)
	return s.Get(ctx, ic.ID)
}

func (s *IceCreamService) Delete(ctx context.Context, id uint) error {
	ic, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.changed(ctx, EntityIceCream, ActionDeleted, id, ic.Title)
	return nil
}

// IceCreamInputFrom returns the input that would recreate ic unchanged.
// ic.Toppings must be loaded.
func IceCreamInputFrom(ic models.IceCream) IceCreamInput {
	published := ic.IsPublished
	ids := make([]uint, len(ic.Toppings))
	for i, t := range ic.Toppings {
		ids[i] = t.ID
	}
	var wrapper *uint
	if ic.WrapperID != nil {
		w := *ic.WrapperID
		wrapper = &w
	}
	return IceCreamInput{
		Title:       ic.Title,
		Description: ic.Description,
		CategoryID:  ic.CategoryID,
		WrapperID:   wrapper,
		ToppingIDs:  ids,
		IsPublished: &published,
		IsOnMain:    ic.IsOnMain,
	}
}

func iceCreamWriteErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fieldError("wrapper_id", uniqueMsg("Ice cream", "Wrapper"))
	}
	return fmt.Errorf("ice cream: save: %w", err)
}
