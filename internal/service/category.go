package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
)

const maxCategoryName = 50

// CategoryInput is the payload of category create and update.  Update
// replaces both fields.
type CategoryInput struct {
	Name     string
	ParentID *uint64
}

// CategoryService manages the category tree.
type CategoryService struct {
	categories CategoryStore
	log        *zap.Logger
}

func NewCategoryService(categories CategoryStore, log *zap.Logger) *CategoryService {
	return &CategoryService{categories: categories, log: log}
}

// List returns the active categories.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	return s.categories.ListActive(ctx)
}

// Create adds an active category.  A parent, if given, must be active.
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*model.Category, error) {
	name, err := categoryName(in.Name)
	if err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		if err := s.requireActiveParent(ctx, *in.ParentID); err != nil {
			return nil, err
		}
	}
	c := &model.Category{Name: name, ParentID: in.ParentID, IsActive: true}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("category created", zap.Uint64("category_id", c.ID))
	return c, nil
}

// Update replaces name and parent of an active category.  The new parent
// must be active and must not be the category itself or one of its
// descendants.
func (s *CategoryService) Update(ctx context.Context, id uint64, in CategoryInput) (*model.Category, error) {
	c, err := s.categories.GetActive(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("category")
		}
		return nil, err
	}
	name, err := categoryName(in.Name)
	if err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		if err := s.requireActiveParent(ctx, *in.ParentID); err != nil {
			return nil, err
		}
		if err := s.checkCycle(ctx, id, *in.ParentID); err != nil {
			return nil, err
		}
	}
	c.Name = name
	c.ParentID = in.ParentID
	if err := s.categories.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("category")
		}
		return nil, err
	}
	return c, nil
}

// Delete soft-deletes an active category.  Child categories and products
// keep pointing at it.
func (s *CategoryService) Delete(ctx context.Context, id uint64) error {
	if err := s.categories.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("category")
		}
		return err
	}
	s.log.Info("category deactivated", zap.Uint64("category_id", id))
	return nil
}

func (s *CategoryService) requireActiveParent(ctx context.Context, parentID uint64) error {
	if _, err := s.categories.GetActive(ctx, parentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalidRef("parent category")
		}
		return err
	}
	return nil
}

// checkCycle walks up from parentID and fails if it reaches id.
func (s *CategoryService) checkCycle(ctx context.Context, id, parentID uint64) error {
	seen := map[uint64]bool{}
	for cur := &parentID; cur != nil; {
		if *cur == id {
			return newError(ErrInvalidReference, "category cannot be its own ancestor")
		}
		if seen[*cur] {
			// pre-existing loop that does not involve id
			return nil
		}
		seen[*cur] = true
		c, err := s.categories.Get(ctx, *cur)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}
		cur = c.ParentID
	}
	return nil
}

func categoryName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxCategoryName {
		return "", validation("name must be 1-%d characters", maxCategoryName)
	}
	return name, nil
}
