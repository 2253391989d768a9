package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shop-api/internal/core/cache"
	"shop-api/internal/domain"
	"shop-api/internal/repo"
)

type ProductService struct {
	cache *cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewProductService wires an optional read-through cache; c may be nil.
func NewProductService(c *cache.Cache, ttl time.Duration, l *zap.Logger) *ProductService {
	if l == nil {
		l = zap.NewNop()
	}
	return &ProductService{cache: c, ttl: ttl, log: l}
}

func productKey(id uint) string { return fmt.Sprintf("product:%d", id) }

func (s *ProductService) load(ctx context.Context, db *gorm.DB, id uint) (*domain.Product, error) {
	p, err := repo.NewProductRepo(db).FindByID(ctx, id)
	if err != nil {
		return nil, domain.Storage(err)
	}
	if p == nil {
		return nil, domain.NotFound("product", "Product not found.")
	}
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, db *gorm.DB, id uint) (*domain.Product, error) {
	return cache.LoadJSON(ctx, s.cache, productKey(id), s.ttl, func(ctx context.Context) (*domain.Product, error) {
		return s.load(ctx, db, id)
	})
}

func (s *ProductService) List(ctx context.Context, db *gorm.DB) ([]repo.ProductSummary, error) {
	out, err := repo.NewProductRepo(db).ListSummaries(ctx)
	if err != nil {
		return nil, domain.Storage(err)
	}
	return out, nil
}

// Invalidate drops cached copies; failures only cost freshness.
func (s *ProductService) Invalidate(ctx context.Context, ids ...uint) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("product cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

type ProductInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

func (in *ProductInput) validateValues() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return domain.Invalid("product", "name", "Product name must not be empty.")
	}
	if in.Price != nil && in.Price.IsNegative() {
		return domain.Invalid("product", "price", "Product price must not be negative.")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return domain.Invalid("product", "stock", "Product stock must not be negative.")
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, db *gorm.DB, in ProductInput) (*domain.Product, error) {
	var missing []string
	if in.Name == nil {
		missing = append(missing, "name")
	}
	if in.Description == nil {
		missing = append(missing, "description")
	}
	if in.Category == nil {
		missing = append(missing, "category")
	}
	if in.Price == nil {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return nil, domain.MissingFields("product", missing...)
	}
	if err := in.validateValues(); err != nil {
		return nil, err
	}

	products := repo.NewProductRepo(db)
	if err := s.ensureNameFree(ctx, products, *in.Name, 0); err != nil {
		return nil, err
	}
	p := &domain.Product{
		Name:        *in.Name,
		Description: *in.Description,
		Category:    *in.Category,
		Price:       *in.Price,
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if err := products.Create(ctx, p); err != nil {
		if isDupKey(err) {
			return nil, productNameTaken(*in.Name)
		}
		return nil, domain.Storage(err)
	}
	return p, nil
}

// Update applies the fields present in in and returns the stored product.
func (s *ProductService) Update(ctx context.Context, db *gorm.DB, id uint, in ProductInput) (*domain.Product, error) {
	if err := in.validateValues(); err != nil {
		return nil, err
	}
	products := repo.NewProductRepo(db)
	p, err := products.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Storage(err)
	}
	if p == nil {
		return nil, domain.NotFound("product", "Product not found.")
	}

	changes := map[string]any{}
	if in.Name != nil && *in.Name != p.Name {
		if err := s.ensureNameFree(ctx, products, *in.Name, id); err != nil {
			return nil, err
		}
		changes["name"] = *in.Name
	}
	if in.Description != nil {
		changes["description"] = *in.Description
	}
	if in.Category != nil {
		changes["category"] = *in.Category
	}
	if in.Price != nil {
		changes["price"] = *in.Price
	}
	if in.Stock != nil {
		changes["stock"] = *in.Stock
	}
	if len(changes) > 0 {
		if err := products.Update(ctx, id, changes); err != nil {
			if isDupKey(err) {
				return nil, productNameTaken(*in.Name)
			}
			return nil, domain.Storage(err)
		}
		s.Invalidate(ctx, id)
	}
	return s.load(ctx, db, id)
}

func (s *ProductService) Delete(ctx context.Context, db *gorm.DB, id uint) (*domain.Product, error) {
	products := repo.NewProductRepo(db)
	p, err := products.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Storage(err)
	}
	if p == nil {
		return nil, domain.NotFound("product", "Product not found.")
	}
	if _, err := products.Delete(ctx, id); err != nil {
		return nil, domain.Storage(err)
	}
	s.Invalidate(ctx, id)
	return p, nil
}

func (s *ProductService) ensureNameFree(ctx context.Context, products *repo.ProductRepo, name string, self uint) error {
	other, err := products.FindByName(ctx, name)
	if err != nil {
		return domain.Storage(err)
	}
	if other != nil && other.ID != self {
		return productNameTaken(name)
	}
	return nil
}

func productNameTaken(name string) error {
	return domain.Conflict("product", fmt.Sprintf("Product %s already exist.", name))
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
