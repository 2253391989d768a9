package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shop-api/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindByID returns (nil, nil) when the product does not exist.
func (r *ProductRepo) FindByID(ctx context.Context, id uint) (*domain.Product, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindForUpdate is FindByID holding a row lock until the surrounding
// transaction ends. Dialects without row locks (SQLite) ignore the clause.
func (r *ProductRepo) FindForUpdate(ctx context.Context, id uint) (*domain.Product, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), id)
}

func (r *ProductRepo) find(tx *gorm.DB, id uint) (*domain.Product, error) {
	var p domain.Product
	err := tx.First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type ProductSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func (r *ProductRepo) ListSummaries(ctx context.Context) ([]ProductSummary, error) {
	out := []ProductSummary{}
	err := r.db.WithContext(ctx).Model(&domain.Product{}).Select("id", "name").Order("id ASC").Scan(&out).Error
	return out, err
}

func (r *ProductRepo) Update(ctx context.Context, id uint, changes map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Updates(changes).Error
}

func (r *ProductRepo) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	return res.RowsAffected, res.Error
}

// TakeStock decrements stock only while at least one unit remains afterwards.
// It reports false when a concurrent writer got there first.
func (r *ProductRepo) TakeStock(ctx context.Context, id uint, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND stock - ? > 0", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReturnStock reverses TakeStock.
func (r *ProductRepo) ReturnStock(ctx context.Context, id uint, qty int) error {
	return r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}

func (r *ProductRepo) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).First(&p, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
