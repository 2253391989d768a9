package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/core/events"
	"shop-api/internal/domain"
	"shop-api/internal/repo"
)

type OrderOptions struct {
	// AtomicPlacement wraps the header and every line in one transaction.
	// When false the header is committed first and survives a failed
	// placement (legacy behavior).
	AtomicPlacement bool
	// DecrementStock takes the ordered quantity out of Product.stock.
	DecrementStock bool
}

type OrderService struct {
	opts     OrderOptions
	products *ProductService
	events   events.Publisher
	log      *zap.Logger
	now      func() time.Time
}

func NewOrderService(opts OrderOptions, products *ProductService, pub events.Publisher, l *zap.Logger) *OrderService {
	if pub == nil {
		pub = events.Nop{}
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &OrderService{opts: opts, products: products, events: pub, log: l, now: time.Now}
}

type PlaceOrderInput struct {
	AddressDelivery *string `json:"address_delivery"`
	ProductIDs      []uint  `json:"product_id"`
}

func (in *PlaceOrderInput) validate() error {
	var missing []string
	if in.AddressDelivery == nil {
		missing = append(missing, "address_delivery")
	}
	if in.ProductIDs == nil {
		missing = append(missing, "product_id")
	}
	if len(missing) > 0 {
		return domain.MissingFields("command", missing...)
	}
	if strings.TrimSpace(*in.AddressDelivery) == "" {
		return domain.Invalid("command", "address_delivery", "Command address_delivery must not be empty.")
	}
	if len(in.ProductIDs) == 0 {
		return domain.Invalid("command", "product_id",
			"Command should be a list of product and contain at least one product.")
	}
	return nil
}

// Place creates an order for caller. db is the request session; the
// placement opens its own (nested) transaction when running atomically.
func (s *OrderService) Place(ctx context.Context, db *gorm.DB, caller *auth.Identity, in PlaceOrderInput) (*domain.Order, error) {
	if caller == nil {
		return nil, domain.Unauthorized("Token missing")
	}
	if err := in.validate(); err != nil {
		observePlacement(err)
		return nil, err
	}

	order := &domain.Order{
		UserID:          caller.UserID,
		Status:          domain.StatusOnHold,
		AddressDelivery: *in.AddressDelivery,
		CreatedAt:       s.now(),
	}
	reqs := domain.CollapseProductIDs(in.ProductIDs)

	var err error
	if s.opts.AtomicPlacement {
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := repo.NewOrderRepo(tx).Create(ctx, order); err != nil {
				return domain.Storage(err)
			}
			for _, r := range reqs {
				if _, err := s.addLine(ctx, tx, order, r, true); err != nil {
					return err
				}
			}
			return nil
		})
	} else {
		err = s.placeLegacy(ctx, db, order, reqs)
	}
	observePlacement(err)
	if err != nil {
		s.log.Info("order placement rejected",
			zap.Uint("user_id", caller.UserID), zap.Uint("order_id", order.ID), zap.Error(err))
		return nil, domain.Storage(err)
	}

	if s.opts.DecrementStock && s.products != nil {
		ids := make([]uint, len(reqs))
		for i, r := range reqs {
			ids[i] = r.ProductID
		}
		s.products.Invalidate(ctx, ids...)
	}
	s.publish(ctx, events.OrderPlaced, order)
	return order, nil
}

// placeLegacy commits the header and then each line on its own. On failure
// it removes the lines written by this call but keeps the header.
func (s *OrderService) placeLegacy(ctx context.Context, db *gorm.DB, order *domain.Order, reqs []domain.LineRequest) error {
	if err := repo.NewOrderRepo(db).Create(ctx, order); err != nil {
		return domain.Storage(err)
	}
	var written []*domain.OrderLine
	for _, r := range reqs {
		var line *domain.OrderLine
		err := db.Transaction(func(tx *gorm.DB) error {
			var e error
			line, e = s.addLine(ctx, tx, order, r, false)
			return e
		})
		if err != nil {
			if cerr := s.undoLines(ctx, db, written); cerr != nil {
				return errors.Join(err, domain.Storage(cerr))
			}
			return err
		}
		written = append(written, line)
	}
	return nil
}

func (s *OrderService) undoLines(ctx context.Context, db *gorm.DB, lines []*domain.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		ids := make([]uint, len(lines))
		for i, l := range lines {
			ids[i] = l.ID
			if s.opts.DecrementStock {
				if err := repo.NewProductRepo(tx).ReturnStock(ctx, l.ProductID, l.Quantity); err != nil {
					return err
				}
			}
		}
		return repo.NewOrderRepo(tx).DeleteLines(ctx, ids)
	})
}

func (s *OrderService) addLine(ctx context.Context, tx *gorm.DB, order *domain.Order, r domain.LineRequest, lock bool) (*domain.OrderLine, error) {
	products := repo.NewProductRepo(tx)
	var (
		p   *domain.Product
		err error
	)
	if lock {
		p, err = products.FindForUpdate(ctx, r.ProductID)
	} else {
		p, err = products.FindByID(ctx, r.ProductID)
	}
	if err != nil {
		return nil, domain.Storage(err)
	}
	if p == nil {
		return nil, domain.ProductNotFound(r.ProductID)
	}
	if !p.CanFulfil(r.Quantity) {
		return nil, domain.InsufficientStock(r.Quantity, p.Stock, p.Name)
	}
	if s.opts.DecrementStock {
		ok, err := products.TakeStock(ctx, p.ID, r.Quantity)
		if err != nil {
			return nil, domain.Storage(err)
		}
		if !ok {
			return nil, domain.InsufficientStock(r.Quantity, p.Stock, p.Name)
		}
	}

	line := &domain.OrderLine{
		OrderID:   order.ID,
		ProductID: p.ID,
		Quantity:  r.Quantity,
		Price:     p.Price,
	}
	if err := repo.NewOrderRepo(tx).CreateLine(ctx, line); err != nil {
		return nil, domain.Storage(err)
	}
	return line, nil
}

func ownerScope(caller *auth.Identity) uint {
	if caller.IsAdmin() {
		return 0
	}
	return caller.UserID
}

// List returns the caller's orders, or every order for an admin.
func (s *OrderService) List(ctx context.Context, db *gorm.DB, caller *auth.Identity) ([]domain.Order, error) {
	if caller == nil {
		return nil, domain.Unauthorized("Token missing")
	}
	orders, err := repo.NewOrderRepo(db).List(ctx, ownerScope(caller))
	if err != nil {
		return nil, domain.Storage(err)
	}
	if len(orders) == 0 {
		return nil, domain.NotFound("command", "Commands not found.")
	}
	return orders, nil
}

// Get hides orders the caller does not own behind the same not-found error
// as a missing id.
func (s *OrderService) Get(ctx context.Context, db *gorm.DB, caller *auth.Identity, id uint) (*domain.Order, error) {
	if caller == nil {
		return nil, domain.Unauthorized("Token missing")
	}
	o, err := repo.NewOrderRepo(db).Find(ctx, id, ownerScope(caller))
	if err != nil {
		return nil, domain.Storage(err)
	}
	if o == nil {
		return nil, domain.NotFound("command", "Command not found.")
	}
	return o, nil
}

func (s *OrderService) Lines(ctx context.Context, db *gorm.DB, caller *auth.Identity, id uint) (*domain.Order, []domain.LineView, error) {
	o, err := s.Get(ctx, db, caller, id)
	if err != nil {
		return nil, nil, err
	}
	lines, err := repo.NewOrderRepo(db).LineViews(ctx, o.ID)
	if err != nil {
		return nil, nil, domain.Storage(err)
	}
	return o, lines, nil
}

type UpdateStatusInput struct {
	Status *string `json:"status"`
}

func (s *OrderService) UpdateStatus(ctx context.Context, db *gorm.DB, caller *auth.Identity, id uint, in UpdateStatusInput) (*domain.Order, error) {
	if !caller.IsAdmin() {
		return nil, domain.Forbidden("Admin role is required.")
	}
	// Reported as 404 for compatibility with existing clients.
	if in.Status == nil {
		return nil, domain.WithStatus(domain.Invalid("command", "status", "Command status must be set."), 404)
	}
	status, ok := domain.ParseOrderStatus(*in.Status)
	if !ok {
		return nil, domain.Invalid("command", "status",
			fmt.Sprintf("Command status %q is not one of on_hold, validated, canceled, shipped.", *in.Status))
	}

	orders := repo.NewOrderRepo(db)
	o, err := orders.Find(ctx, id, 0)
	if err != nil {
		return nil, domain.Storage(err)
	}
	if o == nil {
		return nil, domain.NotFound("command", "Command not found.")
	}
	prev := o.Status
	if err := orders.UpdateStatus(ctx, o, status); err != nil {
		return nil, domain.Storage(err)
	}
	if prev != status {
		s.publish(ctx, events.OrderStatusChanged, statusChange{Order: o, Previous: prev})
	}
	return o, nil
}

type statusChange struct {
	*domain.Order
	Previous domain.OrderStatus `json:"previous_status"`
}

// publish is best effort: the order is already committed, so a broker
// failure is logged instead of failing the request.
func (s *OrderService) publish(ctx context.Context, eventType string, payload any) {
	var id uint
	switch p := payload.(type) {
	case *domain.Order:
		id = p.ID
	case statusChange:
		id = p.ID
	}
	if err := s.events.Publish(ctx, eventType, fmt.Sprintf("order-%d", id), payload); err != nil {
		s.log.Error("publish order event failed",
			zap.String("type", eventType), zap.Uint("order_id", id), zap.Error(err))
	}
}
