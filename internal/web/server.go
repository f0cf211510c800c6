// Package web Web API 服务
package web

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/service"
	pkglogger "github.com/smysle/raffle-storefront-go/pkg/logger"
)

// Deps 服务依赖，由调用方构造后注入
type Deps struct {
	DB       *gorm.DB
	Auth     *service.AuthService
	Raffles  *service.RaffleService
	Entries  *service.EntryService
	Claims   *service.ClaimService
	Draws    *service.DrawService
	Payments *service.PaymentService
	Tax      *service.TaxService
	Shipping *service.ShippingService
}

// Server Web 服务器
type Server struct {
	app       *fiber.App
	cfg       *config.Config
	deps      Deps
	startTime time.Time
}

// New 创建 Web 服务器
func New(cfg *config.Config, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// 中间件
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${status} ${method} ${path} ${latency}\n",
		Output: pkglogger.Writer(),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.API.AllowOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: !containsWildcard(cfg.API.AllowOrigins),
	}))

	server := &Server{
		app:       app,
		cfg:       cfg,
		deps:      deps,
		startTime: time.Now(),
	}
	app.Use(server.authenticate)

	// 注册路由
	server.registerRoutes()

	return server
}

// registerRoutes 注册路由
func (s *Server) registerRoutes() {
	// 健康检查
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/status", s.detailedStatus)

	s.app.Post("/auth/login", s.login)
	s.app.Post("/auth/logout", s.logout)

	// 前台抽奖
	raffles := s.app.Group("/contests/raffles")
	raffles.Get("/", s.listRaffles)
	raffles.Get("/:slug", s.getRaffle)
	raffles.Get("/:slug/card.png", s.raffleCard)
	raffles.Post("/:slug/entries", s.requireUser, s.enterRaffle)
	raffles.Get("/:slug/claim", s.requireUser, s.getClaim)
	raffles.Post("/:slug/claim", s.requireUser, s.purchaseClaim)

	// 后台
	admin := s.app.Group("/admin/raffles", s.requireUser, s.requireAdmin)
	admin.Get("/", s.adminListRaffles)
	admin.Post("/", s.adminCreateRaffle)
	admin.Post("/:slug/status", s.adminChangeStatus)
	admin.Get("/:slug/entries", s.adminListEntries)
	admin.Post("/:slug/draw", s.adminDraw)
	admin.Get("/:slug/winners", s.adminWinners)
	admin.Post("/:slug/winners/:id/notify", s.adminNotifyWinner)

	// 结账
	api := s.app.Group("/api")
	api.Post("/paypal/create-order", s.requireUser, s.createPayPalOrder)
	api.Post("/paypal/capture-order", s.requireUser, s.capturePayPalOrder)
	api.Post("/webhooks/paypal", s.paypalWebhook)
	api.Post("/tax/calculate", s.calculateTax)
	api.Get("/tax/calculate", s.taxStatus)
	api.Post("/shipping/rates", s.shippingRates)
}

// App 返回底层 fiber 应用
func (s *Server) App() *fiber.App {
	return s.app
}

// Start 启动服务器
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.API.Host, s.cfg.API.Port)
	pkglogger.Info().Str("addr", addr).Msg("【API服务】启动中...")

	return s.app.Listen(addr)
}

// Stop 停止服务器
func (s *Server) Stop() error {
	return s.app.Shutdown()
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// healthCheck 健康检查
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

// StatusResponse 详细状态响应
type StatusResponse struct {
	Status       string             `json:"status"`
	Uptime       string             `json:"uptime"`
	System       SystemInfo         `json:"system"`
	Database     DatabaseStatus     `json:"database"`
	Integrations IntegrationsStatus `json:"integrations"`
}

// SystemInfo 系统信息
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     string `json:"mem_alloc"`
}

// DatabaseStatus 数据库状态
type DatabaseStatus struct {
	Connected bool   `json:"connected"`
	Driver    string `json:"driver"`
}

// IntegrationsStatus 第三方服务是否已配置
type IntegrationsStatus struct {
	PayPal      bool `json:"paypal"`
	ShipStation bool `json:"shipstation"`
	TaxCloud    bool `json:"taxcloud"`
	Email       bool `json:"email"`
	Telegram    bool `json:"telegram"`
}

// detailedStatus 详细状态
func (s *Server) detailedStatus(c *fiber.Ctx) error {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbConnected := false
	if s.deps.DB != nil {
		if sqlDB, err := s.deps.DB.DB(); err == nil && sqlDB.PingContext(c.UserContext()) == nil {
			dbConnected = true
		}
	}

	return c.JSON(StatusResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
		System: SystemInfo{
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     fmt.Sprintf("%.2f MB", float64(memStats.Alloc)/1024/1024),
		},
		Database: DatabaseStatus{
			Connected: dbConnected,
			Driver:    s.cfg.Database.Driver,
		},
		Integrations: IntegrationsStatus{
			PayPal:      s.cfg.PayPalConfigured(),
			ShipStation: s.cfg.ShipStationConfigured(),
			TaxCloud:    s.cfg.TaxCloudConfigured(),
			Email:       s.cfg.Email.Enabled,
			Telegram:    s.cfg.Telegram.Enabled,
		},
	})
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// bindJSON 解析请求体，失败时返回 400
func bindJSON(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}
