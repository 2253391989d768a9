// Package seed provisions accounts and bulk-loads the catalog for a fresh
// database.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shop-api/internal/domain"
	"shop-api/internal/service"
)

type Account struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
}

type Report struct {
	Created int
	Skipped int
}

type Seeder struct {
	users    *service.UserService
	products *service.ProductService
	log      *zap.Logger
}

func New(users *service.UserService, products *service.ProductService, l *zap.Logger) *Seeder {
	if l == nil {
		l = zap.NewNop()
	}
	return &Seeder{users: users, products: products, log: l}
}

// Accounts creates the accounts that do not exist yet. Existing accounts
// are left untouched, passwords included.
func (s *Seeder) Accounts(ctx context.Context, db *gorm.DB, accts []Account) (Report, error) {
	var rep Report
	for _, a := range accts {
		_, created, err := s.users.EnsureUser(ctx, db, a.Email, a.Password, a.Name, a.Role)
		if err != nil {
			return rep, fmt.Errorf("account %s: %w", a.Email, err)
		}
		if created {
			rep.Created++
			s.log.Info("account created", zap.String("email", a.Email), zap.String("role", string(a.Role)))
		} else {
			rep.Skipped++
		}
	}
	return rep, nil
}

type column int

const (
	colName column = iota
	colDescription
	colCategory
	colPrice
	colStock
)

// Both the English headers and the ones of the historical catalog export
// are accepted.
var headerAliases = map[string]column{
	"name":                   colName,
	"nom de produit":         colName,
	"description":            colDescription,
	"description du produit": colDescription,
	"category":               colCategory,
	"catégorie du produit":   colCategory,
	"price":                  colPrice,
	"prix unitaire":          colPrice,
	"stock":                  colStock,
	"quantité en stock":      colStock,
}

var columnNames = map[column]string{
	colName: "name", colDescription: "description", colCategory: "category", colPrice: "price", colStock: "stock",
}

// Products imports a CSV catalog with a header row. Products whose name is
// already taken are skipped; any malformed row aborts the import.
func (s *Seeder) Products(ctx context.Context, db *gorm.DB, r io.Reader) (Report, error) {
	var rep Report
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return rep, fmt.Errorf("read header: %w", err)
	}
	idx := map[column]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if c, ok := headerAliases[h]; ok {
			idx[c] = i
		}
	}
	var missing []string
	for _, c := range []column{colName, colDescription, colCategory, colPrice} {
		if _, ok := idx[c]; !ok {
			missing = append(missing, columnNames[c])
		}
	}
	if len(missing) > 0 {
		return rep, domain.MissingFields("product", missing...)
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rep, nil
		}
		if err != nil {
			return rep, fmt.Errorf("line %d: %w", line, err)
		}
		in, err := rowInput(rec, idx)
		if err != nil {
			return rep, fmt.Errorf("line %d: %w", line, err)
		}
		_, err = s.products.Create(ctx, db, in)
		switch {
		case errors.Is(err, domain.ErrConflict):
			rep.Skipped++
		case err != nil:
			return rep, fmt.Errorf("line %d: %w", line, err)
		default:
			rep.Created++
		}
	}
}

func rowInput(rec []string, idx map[column]int) (service.ProductInput, error) {
	field := func(c column) string {
		i, ok := idx[c]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	name, desc, cat := field(colName), field(colDescription), field(colCategory)
	price, err := decimal.NewFromString(field(colPrice))
	if err != nil {
		return service.ProductInput{}, fmt.Errorf("price %q: %w", field(colPrice), err)
	}
	in := service.ProductInput{Name: &name, Description: &desc, Category: &cat, Price: &price}
	if raw := field(colStock); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return service.ProductInput{}, fmt.Errorf("stock %q: %w", raw, err)
		}
		in.Stock = &n
	}
	return in, nil
}
