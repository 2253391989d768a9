package database

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	applog "shop-api/internal/core/logger"
	"shop-api/internal/domain"
)

var ErrUnsupportedDriver = errors.New("unsupported db driver")

type Opts struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	PrepareStmt        bool
	LogLevel           string
	SlowThreshold      time.Duration
	Logger             *zap.Logger
}

func dialector(o Opts) (gorm.Dialector, error) {
	switch o.Driver {
	case "postgres":
		return postgres.Open(o.DSN), nil
	case "mysql":
		dsn := normalizeMySQLDSN(o.DSN, o.Username, o.Password)
		if o.Logger != nil {
			o.Logger.Info("mysql dsn", zap.String("dsn", maskDSN(dsn)))
		}
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(o.DSN), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, o.Driver)
	}
}

func NewGorm(o Opts) (*gorm.DB, error) {
	dial, err := dialector(o)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: applog.NewGorm(o.Logger, applog.GormLevel(o.LogLevel), o.SlowThreshold),
		// Transactions are opened explicitly by the request pipeline.
		SkipDefaultTransaction: true,
		PrepareStmt:            o.PrepareStmt,
		CreateBatchSize:        200,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if o.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	}
	if o.ConnMaxLifetimeMin > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.Product{}, &domain.Order{}, &domain.OrderLine{})
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func maskDSN(dsn string) string {
	at := strings.Index(dsn, "@")
	if at <= 0 {
		return dsn
	}
	if colon := strings.Index(dsn[:at], ":"); colon > 0 {
		return dsn[:colon+1] + "****" + dsn[at:]
	}
	return dsn
}

// normalizeMySQLDSN passes go-sql-driver DSNs through and converts
// mysql:// or jdbc:mysql:// URLs, translating the common JDBC parameters.
// Explicit credentials win over the ones embedded in the URL.
func normalizeMySQLDSN(input, user, pass string) string {
	in := strings.TrimPrefix(strings.TrimSpace(input), "jdbc:")
	if !strings.HasPrefix(in, "mysql://") {
		return in
	}
	u, err := url.Parse(in)
	if err != nil {
		return in
	}

	cfg := mysqldrv.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}

	q := u.Query()
	take := func(key string) string {
		v := q.Get(key)
		q.Del(key)
		return v
	}
	if v := take("user"); v != "" {
		cfg.User = v
	}
	if v := take("password"); v != "" {
		cfg.Passwd = v
	}
	if user != "" {
		cfg.User = user
	}
	if pass != "" {
		cfg.Passwd = pass
	}
	if v := take("useSSL"); v != "" {
		cfg.TLSConfig = jdbcTLS(v)
	}
	if tz := take("serverTimezone"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			cfg.Loc = loc
		}
	}
	charset := take("characterEncoding")
	take("useUnicode")
	take("zeroDateTimeBehavior")
	take("parseTime")
	if v := take("charset"); v != "" {
		charset = v
	}
	if charset == "" {
		charset = "utf8mb4"
	}

	cfg.Params = map[string]string{"charset": charset}
	for k := range q {
		cfg.Params[k] = q.Get(k)
	}
	return cfg.FormatDSN()
}

func jdbcTLS(useSSL string) string {
	switch strings.ToLower(useSSL) {
	case "true", "1":
		return "true"
	case "skip-verify", "preferred":
		return strings.ToLower(useSSL)
	}
	return "false"
}
