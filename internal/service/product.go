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

const (
	maxProductName        = 100
	maxProductDescription = 500
	maxProductImageURL    = 200
)

// ProductInput is the payload of product creation.
type ProductInput struct {
	Name        string
	Description *string
	Price       float64
	ImageURL    *string
	Stock       int
	CategoryID  uint64
}

// ProductPatch holds the fields a seller wants to change; nil means keep.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	ImageURL    *string
	Stock       *int
	CategoryID  *uint64
}

// ProductService implements the catalogue rules for products.
type ProductService struct {
	products   ProductStore
	categories CategoryStore
	log        *zap.Logger
}

func NewProductService(products ProductStore, categories CategoryStore, log *zap.Logger) *ProductService {
	return &ProductService{products: products, categories: categories, log: log}
}

// List returns the active products.
func (s *ProductService) List(ctx context.Context) ([]model.Product, error) {
	return s.products.ListActive(ctx)
}

// ListByCategory returns the active products of an active category.
func (s *ProductService) ListByCategory(ctx context.Context, categoryID uint64) ([]model.Product, error) {
	if _, err := s.categories.GetActive(ctx, categoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("category")
		}
		return nil, err
	}
	return s.products.ListActiveByCategory(ctx, categoryID)
}

// Get returns an active product whose category is also active.
func (s *ProductService) Get(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.categories.GetActive(ctx, p.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("category")
		}
		return nil, err
	}
	return p, nil
}

// Create adds an active product owned by seller.
func (s *ProductService) Create(ctx context.Context, seller *model.User, in ProductInput) (*model.Product, error) {
	if err := RequireRole(seller, model.RoleSeller); err != nil {
		return nil, err
	}
	p := &model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
		SellerID:    seller.ID,
		IsActive:    true,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.requireActiveCategory(ctx, p.CategoryID); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("product created", zap.Uint64("product_id", p.ID), zap.Uint64("seller_id", seller.ID))
	return p, nil
}

// Update applies patch to an active product owned by seller.
func (s *ProductService) Update(ctx context.Context, seller *model.User, id uint64, patch ProductPatch) (*model.Product, error) {
	p, err := s.owned(ctx, seller, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.ImageURL != nil {
		p.ImageURL = patch.ImageURL
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.requireActiveCategory(ctx, p.CategoryID); err != nil {
		return nil, err
	}
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("product")
		}
		return nil, err
	}
	return p, nil
}

// Delete soft-deletes an active product owned by seller.  Its reviews are
// kept and the rating is left as is.
func (s *ProductService) Delete(ctx context.Context, seller *model.User, id uint64) error {
	if _, err := s.owned(ctx, seller, id); err != nil {
		return err
	}
	if err := s.products.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("product")
		}
		return err
	}
	s.log.Info("product deactivated", zap.Uint64("product_id", id), zap.Uint64("seller_id", seller.ID))
	return nil
}

// owned loads the product and then checks ownership, so a foreign seller
// gets ErrForbidden rather than ErrNotFound.
func (s *ProductService) owned(ctx context.Context, seller *model.User, id uint64) (*model.Product, error) {
	if err := RequireRole(seller, model.RoleSeller); err != nil {
		return nil, err
	}
	p, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != seller.ID {
		return nil, newError(ErrForbidden, "you can only modify your own products")
	}
	return p, nil
}

func (s *ProductService) getActive(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := s.products.GetActive(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("product")
		}
		return nil, err
	}
	return p, nil
}

func (s *ProductService) requireActiveCategory(ctx context.Context, id uint64) error {
	if _, err := s.categories.GetActive(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalidRef("category")
		}
		return err
	}
	return nil
}

func validateProduct(p *model.Product) error {
	if n := utf8.RuneCountInString(p.Name); n == 0 || n > maxProductName {
		return validation("name must be 1-%d characters", maxProductName)
	}
	if p.Description != nil && utf8.RuneCountInString(*p.Description) > maxProductDescription {
		return validation("description must be at most %d characters", maxProductDescription)
	}
	if p.ImageURL != nil && utf8.RuneCountInString(*p.ImageURL) > maxProductImageURL {
		return validation("image_url must be at most %d characters", maxProductImageURL)
	}
	if p.Price <= 0 {
		return validation("price must be greater than 0")
	}
	if p.Stock < 0 {
		return validation("stock must not be negative")
	}
	if p.CategoryID == 0 {
		return validation("category_id is required")
	}
	return nil
}
