// Command admin migrates the schema and seeds accounts and the product
// catalog.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/core/config"
	"shop-api/internal/core/database"
	"shop-api/internal/core/logger"
	"shop-api/internal/domain"
	"shop-api/internal/seed"
	"shop-api/internal/service"
)

func main() {
	var (
		cfgPath   = pflag.StringP("config", "c", os.Getenv("CONFIG_PATH"), "config file")
		migrate   = pflag.Bool("migrate", true, "create or update tables")
		adminMail = pflag.String("admin-email", "admin@hotmail.com", "admin account email")
		adminPass = pflag.String("admin-password", "admin", "admin account password")
		demoUser  = pflag.Bool("demo-user", false, "also create john@hotmail.com / john123")
		products  = pflag.String("products", "", "CSV catalog to import")
	)
	pflag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db := mustOpenDB(cfg, log)
	defer func() { _ = database.Close(db) }()

	if err := run(context.Background(), db, cfg, log, options{
		migrate:   *migrate,
		adminMail: *adminMail,
		adminPass: *adminPass,
		demoUser:  *demoUser,
		products:  *products,
	}); err != nil {
		log.Error("admin task failed", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
}

type options struct {
	migrate   bool
	adminMail string
	adminPass string
	demoUser  bool
	products  string
}

func run(ctx context.Context, db *gorm.DB, cfg *config.Config, log *zap.Logger, o options) error {
	if o.migrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrate done", zap.String("driver", cfg.DB.Driver))
	}

	jwter := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenTTLMin)*time.Minute)
	s := seed.New(service.NewUserService(jwter), service.NewProductService(nil, 0, log), log)

	accts := []seed.Account{{Email: o.adminMail, Password: o.adminPass, Name: "admin", Role: domain.RoleAdmin}}
	if o.demoUser {
		accts = append(accts, seed.Account{Email: "john@hotmail.com", Password: "john123", Name: "john", Role: domain.RoleUser})
	}
	rep, err := s.Accounts(ctx, db, accts)
	if err != nil {
		return err
	}
	log.Info("accounts seeded", zap.Int("created", rep.Created), zap.Int("existing", rep.Skipped))

	if o.products == "" {
		return nil
	}
	f, err := os.Open(o.products)
	if err != nil {
		return err
	}
	defer f.Close()
	rep, err = s.Products(ctx, db, f)
	if err != nil {
		return fmt.Errorf("import %s: %w", o.products, err)
	}
	log.Info("products imported", zap.String("file", o.products), zap.Int("created", rep.Created), zap.Int("skipped", rep.Skipped))
	return nil
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
