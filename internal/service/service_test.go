package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/core/database"
	"shop-api/internal/domain"
	"shop-api/internal/repo"
	"shop-api/pkg/utils"
)

func init() { utils.HashCost = bcrypt.MinCost }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string, role domain.Role) *auth.Identity {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, repo.NewUserRepo(db).Create(context.Background(), u))
	return auth.IdentityOf(u)
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		Name:        name,
		Description: name + " description",
		Category:    "snacks",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
	}
	require.NoError(t, repo.NewProductRepo(db).Create(context.Background(), p))
	return p
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }

type published struct {
	Type    string
	Key     string
	Payload any
}

type capturePublisher struct {
	mu   sync.Mutex
	got  []published
	fail error
}

func (c *capturePublisher) Publish(_ context.Context, eventType, key string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.got = append(c.got, published{Type: eventType, Key: key, Payload: payload})
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) events() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.got...)
}
