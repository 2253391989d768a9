package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shop-api/internal/domain"
)

type OrderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepo) CreateLine(ctx context.Context, l *domain.OrderLine) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *OrderRepo) DeleteLines(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.OrderLine{}).Error
}

// List returns orders by ascending id; ownerID 0 means every owner.
func (r *OrderRepo) List(ctx context.Context, ownerID uint) ([]domain.Order, error) {
	q := r.db.WithContext(ctx).Model(&domain.Order{})
	if ownerID != 0 {
		q = q.Where("user_id = ?", ownerID)
	}
	var out []domain.Order
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Find returns (nil, nil) when no order matches; ownerID 0 skips the
// ownership filter.
func (r *OrderRepo) Find(ctx context.Context, id, ownerID uint) (*domain.Order, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if ownerID != 0 {
		q = q.Where("user_id = ?", ownerID)
	}
	var o domain.Order
	err := q.First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, o *domain.Order, status domain.OrderStatus) error {
	if err := r.db.WithContext(ctx).Model(o).Update("status", status).Error; err != nil {
		return err
	}
	o.Status = status
	return nil
}

func (r *OrderRepo) Lines(ctx context.Context, orderID uint) ([]domain.OrderLine, error) {
	var out []domain.OrderLine
	err := r.db.WithContext(ctx).Where("command_id = ?", orderID).Order("id ASC").Find(&out).Error
	return out, err
}

// LineViews joins each line to the product's current name. Lines whose
// product has since been deleted are dropped, as an inner join would.
func (r *OrderRepo) LineViews(ctx context.Context, orderID uint) ([]domain.LineView, error) {
	out := []domain.LineView{}
	err := r.db.WithContext(ctx).
		Table("commands_lign AS l").
		Select("l.product_id AS product_id, p.name AS name, l.quantity AS quantity, l.price AS price").
		Joins("JOIN products AS p ON p.id = l.product_id").
		Where("l.command_id = ?", orderID).
		Order("l.id ASC").
		Scan(&out).Error
	return out, err
}

func (r *OrderRepo) CountLines(ctx context.Context, orderID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.OrderLine{}).Where("command_id = ?", orderID).Count(&n).Error
	return n, err
}
