package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/core/database"
	"shop-api/internal/domain"
	"shop-api/internal/repo"
	"shop-api/internal/service"
	"shop-api/pkg/utils"
)

func newSeeder(t *testing.T) (*Seeder, *gorm.DB) {
	t.Helper()
	utils.HashCost = bcrypt.MinCost
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          "file:" + t.Name() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	users := service.NewUserService(auth.NewJWTer("s", "shop-api", time.Hour))
	return New(users, service.NewProductService(nil, 0, nil), nil), db
}

func TestAccountsIsIdempotent(t *testing.T) {
	s, db := newSeeder(t)
	ctx := context.Background()
	accts := []Account{
		{Email: "admin@x.com", Password: "admin", Name: "admin", Role: domain.RoleAdmin},
		{Email: "john@x.com", Password: "john123", Name: "john", Role: domain.RoleUser},
	}

	rep, err := s.Accounts(ctx, db, accts)
	require.NoError(t, err)
	assert.Equal(t, Report{Created: 2}, rep)

	rep, err = s.Accounts(ctx, db, accts)
	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 2}, rep)

	u, err := repo.NewUserRepo(db).FindByEmail(ctx, "admin@x.com")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
}

func TestProductsImport(t *testing.T) {
	s, db := newSeeder(t)
	ctx := context.Background()
	csvData := "\ufeffNom de produit,Description du produit,Catégorie du produit,Prix unitaire,Quantité en stock,Date d'ajout du produit\n" +
		"Laptop,\"Fast, light\",Electronics,1500.00,12,2021-01-01\n" +
		"Mouse,Wireless,Electronics,20.5,,2021-02-01\n"

	rep, err := s.Products(ctx, db, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, Report{Created: 2}, rep)

	p, err := repo.NewProductRepo(db).FindByName(ctx, "Laptop")
	require.NoError(t, err)
	assert.Equal(t, "Fast, light", p.Description)
	assert.Equal(t, 12, p.Stock)

	rep, err = s.Products(ctx, db, strings.NewReader("name,description,category,price\nLaptop,x,y,1\nDesk,x,y,99.99\n"))
	require.NoError(t, err)
	assert.Equal(t, Report{Created: 1, Skipped: 1}, rep)
}

func TestProductsImportRejectsBadInput(t *testing.T) {
	s, db := newSeeder(t)
	ctx := context.Background()

	_, err := s.Products(ctx, db, strings.NewReader("name,price\nA,1\n"))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "'category', 'description'")

	_, err = s.Products(ctx, db, strings.NewReader("name,description,category,price\nA,d,c,cheap\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = s.Products(ctx, db, strings.NewReader("name,description,category,price,stock\nB,d,c,1,-4\n"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
