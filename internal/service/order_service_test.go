package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"shop-api/internal/core/events"
	"shop-api/internal/domain"
	"shop-api/internal/repo"
)

func newOrders(opts OrderOptions) (*OrderService, *capturePublisher) {
	pub := &capturePublisher{}
	return NewOrderService(opts, NewProductService(nil, 0, nil), pub, nil), pub
}

func TestPlaceCollapsesRepeatedProducts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@x.com", domain.RoleUser)
	chips := seedProduct(t, db, "Chips", "2.50", 20)
	soda := seedProduct(t, db, "Soda", "1.10", 20)

	svc, pub := newOrders(OrderOptions{AtomicPlacement: true})
	o, err := svc.Place(ctx, db, alice, PlaceOrderInput{
		AddressDelivery: strPtr("1 rue de Paris"),
		ProductIDs:      []uint{chips.ID, soda.ID, chips.ID, chips.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOnHold, o.Status)
	assert.Equal(t, alice.UserID, o.UserID)
	assert.False(t, o.CreatedAt.IsZero())

	lines, err := repo.NewOrderRepo(db).Lines(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, chips.ID, lines[0].ProductID)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("2.50").Equal(lines[0].Price))
	assert.Equal(t, soda.ID, lines[1].ProductID)
	assert.Equal(t, 1, lines[1].Quantity)

	got := pub.events()
	require.Len(t, got, 1)
	assert.Equal(t, events.OrderPlaced, got[0].Type)
	assert.Equal(t, "order-1", got[0].Key)
}

func TestPlaceValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@x.com", domain.RoleUser)
	svc, pub := newOrders(OrderOptions{AtomicPlacement: true})

	cases := []struct {
		name string
		in   PlaceOrderInput
		msg  string
	}{
		{"missing both", PlaceOrderInput{}, "Missing fields : ['address_delivery', 'product_id']"},
		{"missing address", PlaceOrderInput{ProductIDs: []uint{1}}, "Missing fields : ['address_delivery']"},
		{"empty list", PlaceOrderInput{AddressDelivery: strPtr("here"), ProductIDs: []uint{}},
			"Command should be a list of product and contain at least one product."},
		{"blank address", PlaceOrderInput{AddressDelivery: strPtr("  "), ProductIDs: []uint{1}},
			"Command address_delivery must not be empty."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Place(ctx, db, alice, tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, tc.msg, err.Error())
		})
	}
	assert.Zero(t, countRows(t, db, &domain.Order{}))
	assert.Empty(t, pub.events())
}

func TestPlaceRequiresCaller(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newOrders(OrderOptions{AtomicPlacement: true})
	_, err := svc.Place(context.Background(), db, nil, PlaceOrderInput{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPlaceStockMustLeaveOneUnit(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		name := "legacy"
		if atomic {
			name = "atomic"
		}
		t.Run(name, func(t *testing.T) {
			db := newTestDB(t)
			ctx := context.Background()
			alice := seedUser(t, db, "alice@x.com", domain.RoleUser)
			p := seedProduct(t, db, "Chips", "2.50", 10)

			ids := make([]uint, 10)
			for i := range ids {
				ids[i] = p.ID
			}
			svc, pub := newOrders(OrderOptions{AtomicPlacement: atomic})
			_, err := svc.Place(ctx, db, alice, PlaceOrderInput{AddressDelivery: strPtr("here"), ProductIDs: ids})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			assert.Equal(t, "Product quantity is not sufficient 10 > 10 for Chips.", err.Error())

			assert.Zero(t, countRows(t, db, &domain.OrderLine{}))
			if atomic {
				assert.Zero(t, countRows(t, db, &domain.Order{}))
			} else {
				assert.EqualValues(t, 1, countRows(t, db, &domain.Order{}), "legacy mode keeps the header")
			}
			assert.Empty(t, pub.events())

			_, err = svc.Place(ctx, db, alice, PlaceOrderInput{AddressDelivery: strPtr("here"), ProductIDs: ids[:9]})
			assert.NoError(t, err)
		})
	}
}

func TestPlaceUnknownProduct(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		t.Run(map[bool]string{true: "atomic", false: "legacy"}[atomic], func(t *testing.T) {
			db := newTestDB(t)
			ctx := context.Background()
			alice := seedUser(t, db, "alice@x.com", domain.RoleUser)
			chips := seedProduct(t, db, "Chips", "2.50", 10)

			svc, _ := newOrders(OrderOptions{AtomicPlacement: atomic})
			_, err := svc.Place(ctx, db, alice, PlaceOrderInput{
				AddressDelivery: strPtr("here"),
				ProductIDs:      []uint{chips.ID, 99},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrProductNotFound)
			assert.Equal(t, "Product id : 99 not exist.", err.Error())
			// The valid first line is never left behind.
			assert.Zero(t, countRows(t, db, &domain.OrderLine{}))
		})
	}
}

func TestPlaceDecrementStock(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@x.com", domain.RoleUser)
	chips := seedProduct(t, db, "Chips", "2.50", 5)

	svc, _ := newOrders(OrderOptions{AtomicPlacement: true, DecrementStock: true})
	_, err := svc.Place(ctx, db, alice, PlaceOrderInput{
		AddressDelivery: strPtr("here"),
		ProductIDs:      []uint{chips.ID, chips.ID},
	})
	require.NoError(t, err)

	p, err := repo.NewProductRepo(db).FindByID(ctx, chips.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	// 3 - 3 leaves nothing; rejected and stock untouched.
	_, err = svc.Place(ctx, db, alice, PlaceOrderInput{
		AddressDelivery: strPtr("here"),
		ProductIDs:      []uint{chips.ID, chips.ID, chips.ID},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	p, err = repo.NewProductRepo(db).FindByID(ctx, chips.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
}

func TestPlaceLegacyReturnsStockOnFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@x.com", domain.RoleUser)
	chips := seedProduct(t, db, "Chips", "2.50", 5)
	soda := seedProduct(t, db, "Soda", "1.10", 1)

	svc, _ := newOrders(OrderOptions{AtomicPlacement: false, DecrementStock: true})
	_, err := svc.Place(ctx, db, alice, PlaceOrderInput{
		AddressDelivery: strPtr("here"),
		ProductIDs:      []uint{chips.ID, soda.ID},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	p, err := repo.NewProductRepo(db).FindByID(ctx, chips.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
	assert.Zero(t, countRows(t, db, &domain.OrderLine{}))
	assert.EqualValues(t, 1, countRows(t, db, &domain.Order{}))
}

func TestPlaceSurvivesPublisherFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@x.com", domain.RoleUser)
	chips := seedProduct(t, db, "Chips", "2.50", 5)

	core, logs := observer.New(zapcore.ErrorLevel)
	pub := &capturePublisher{fail: errors.New("broker down")}
	svc := NewOrderService(OrderOptions{AtomicPlacement: true}, nil, pub, zap.New(core))

	o, err := svc.Place(ctx, db, alice, PlaceOrderInput{AddressDelivery: strPtr("here"), ProductIDs: []uint{chips.ID}})
	require.NoError(t, err)
	assert.NotZero(t, o.ID)
	require.Equal(t, 1, logs.FilterMessage("publish order event failed").Len())
}

func TestListAndGetAreScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@x.com", domain.RoleUser)
	bob := seedUser(t, db, "bob@x.com", domain.RoleUser)
	admin := seedUser(t, db, "admin@x.com", domain.RoleAdmin)
	chips := seedProduct(t, db, "Chips", "2.50", 50)

	svc, _ := newOrders(OrderOptions{AtomicPlacement: true})
	place := func(who string) *domain.Order {
		caller := alice
		if who == "bob" {
			caller = bob
		}
		o, err := svc.Place(ctx, db, caller, PlaceOrderInput{AddressDelivery: strPtr(who + " street"), ProductIDs: []uint{chips.ID}})
		require.NoError(t, err)
		return o
	}
	a1 := place("alice")
	b1 := place("bob")
	a2 := place("alice")

	mine, err := svc.List(ctx, db, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, a1.ID, mine[0].ID)
	assert.Equal(t, a2.ID, mine[1].ID)

	all, err := svc.List(ctx, db, admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.Get(ctx, db, alice, b1.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Command not found.", err.Error())

	got, err := svc.Get(ctx, db, admin, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob street", got.AddressDelivery)
}

func TestListEmptyIsNotFound(t *testing.T) {
	db := newTestDB(t)
	alice := seedUser(t, db, "alice@x.com", domain.RoleUser)
	svc, _ := newOrders(OrderOptions{AtomicPlacement: true})

	_, err := svc.List(context.Background(), db, alice)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Commands not found.", err.Error())
}

func TestLinesJoinProductNames(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@x.com", domain.RoleUser)
	bob := seedUser(t, db, "bob@x.com", domain.RoleUser)
	chips := seedProduct(t, db, "Chips", "2.50", 50)
	soda := seedProduct(t, db, "Soda", "1.10", 50)

	svc, _ := newOrders(OrderOptions{AtomicPlacement: true})
	o, err := svc.Place(ctx, db, alice, PlaceOrderInput{
		AddressDelivery: strPtr("here"),
		ProductIDs:      []uint{soda.ID, chips.ID, soda.ID},
	})
	require.NoError(t, err)

	_, lines, err := svc.Lines(ctx, db, alice, o.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, soda.ID, lines[0].ProductID)
	assert.Equal(t, "Soda", lines[0].Name)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("1.10").Equal(lines[0].Price))
	assert.Equal(t, "Chips", lines[1].Name)

	_, _, err = svc.Lines(ctx, db, bob, o.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice@x.com", domain.RoleUser)
	admin := seedUser(t, db, "admin@x.com", domain.RoleAdmin)
	chips := seedProduct(t, db, "Chips", "2.50", 50)

	svc, pub := newOrders(OrderOptions{AtomicPlacement: true})
	o, err := svc.Place(ctx, db, alice, PlaceOrderInput{AddressDelivery: strPtr("here"), ProductIDs: []uint{chips.ID}})
	require.NoError(t, err)

	t.Run("non admin", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, db, alice, o.ID, UpdateStatusInput{Status: strPtr("shipped")})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.Equal(t, "Admin role is required.", err.Error())
	})

	t.Run("missing status reports 404", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, db, admin, o.ID, UpdateStatusInput{})
		var de *domain.Error
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 404, de.Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, db, admin, o.ID, UpdateStatusInput{Status: strPtr("lost")})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := svc.UpdateStatus(ctx, db, admin, 404, UpdateStatusInput{Status: strPtr("shipped")})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ok", func(t *testing.T) {
		got, err := svc.UpdateStatus(ctx, db, admin, o.ID, UpdateStatusInput{Status: strPtr("shipped")})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusShipped, got.Status)

		stored, err := repo.NewOrderRepo(db).Find(ctx, o.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusShipped, stored.Status)

		evs := pub.events()
		require.Len(t, evs, 2)
		assert.Equal(t, events.OrderStatusChanged, evs[1].Type)
		change, ok := evs[1].Payload.(statusChange)
		require.True(t, ok)
		assert.Equal(t, domain.StatusOnHold, change.Previous)
	})

	t.Run("same status publishes nothing", func(t *testing.T) {
		before := len(pub.events())
		_, err := svc.UpdateStatus(ctx, db, admin, o.ID, UpdateStatusInput{Status: strPtr("shipped")})
		require.NoError(t, err)
		assert.Len(t, pub.events(), before)
	})
}

func TestPlacementResult(t *testing.T) {
	assert.Equal(t, "ok", placementResult(nil))
	assert.Equal(t, "invalid", placementResult(domain.MissingFields("command", "product_id")))
	assert.Equal(t, "product_not_found", placementResult(domain.ProductNotFound(3)))
	assert.Equal(t, "insufficient_stock", placementResult(domain.InsufficientStock(2, 2, "x")))
	assert.Equal(t, "error", placementResult(domain.Storage(errors.New("boom"))))
}
