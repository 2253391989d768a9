package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"shop-api/internal/core/auth"
	"shop-api/internal/core/config"
	"shop-api/internal/core/server"
	"shop-api/internal/domain"
	"shop-api/internal/service"
	"shop-api/internal/transport/http/ez"
	mdw "shop-api/internal/transport/http/middleware"
)

type Deps struct {
	DB       *gorm.DB
	Log      *zap.Logger
	JWT      *auth.JWTer
	Users    *service.UserService
	Products *service.ProductService
	Orders   *service.OrderService
	// Zero values switch the corresponding guard off.
	Limits config.Limits
}

func NewAPIEngine(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := server.NewRouter()
	r.Use(mdw.RequestID(), mdw.Recovery(d.Log))
	r.Use(guards(d.Limits)...)
	r.Use(mdw.Metrics(), mdw.AccessLog(d.Log))

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": 0, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	resolve := func(ctx context.Context, uid uint) (*auth.Identity, error) {
		return d.Users.Resolve(ctx, d.DB.WithContext(ctx), uid)
	}
	user := api.Group("")
	user.Use(mdw.AuthJWT(d.JWT, resolve, ""))
	admin := api.Group("")
	admin.Use(mdw.AuthJWT(d.JWT, resolve, domain.RoleAdmin))

	MountAll(Groups{
		DB:     d.DB,
		Public: ez.New(api, d.Log),
		User:   ez.New(user, d.Log),
		Admin:  ez.New(admin, d.Log),
	},
		accountsModule{users: d.Users},
		productsModule{products: d.Products},
		ordersModule{orders: d.Orders},
		adminModule{users: d.Users},
	)
	return r
}

func guards(l config.Limits) []gin.HandlerFunc {
	var hs []gin.HandlerFunc
	if l.RPS > 0 {
		hs = append(hs, mdw.RateLimit(rate.Limit(l.RPS), l.Burst))
	}
	if l.PerIPRPS > 0 {
		hs = append(hs, mdw.RateLimitPerIP(rate.Limit(l.PerIPRPS), l.PerIPBurst, 10*time.Minute))
	}
	if l.MaxInFlight > 0 {
		hs = append(hs, mdw.ConcurrencyLimit(l.MaxInFlight))
	}
	if l.MaxBodyBytes > 0 {
		hs = append(hs, mdw.MaxBodyBytes(l.MaxBodyBytes))
	}
	if l.RequestTimeMs > 0 {
		hs = append(hs, mdw.Timeout(time.Duration(l.RequestTimeMs)*time.Millisecond))
	}
	return hs
}
