// Raffle Storefront - 抽奖商城后端
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/database"
	"github.com/smysle/raffle-storefront-go/internal/mailer"
	"github.com/smysle/raffle-storefront-go/internal/notify"
	"github.com/smysle/raffle-storefront-go/internal/paypal"
	"github.com/smysle/raffle-storefront-go/internal/scheduler"
	"github.com/smysle/raffle-storefront-go/internal/service"
	"github.com/smysle/raffle-storefront-go/internal/shipstation"
	"github.com/smysle/raffle-storefront-go/internal/taxcloud"
	"github.com/smysle/raffle-storefront-go/internal/web"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
)

var (
	configPath = flag.String("config", "config.json", "配置文件路径")
	debug      = flag.Bool("debug", false, "调试模式")
)

func main() {
	flag.Parse()

	// 初始化日志
	logger.Init(*debug)
	logger.Info().Msg("抽奖商城启动中...")

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	logger.Info().Msg("✅ 配置加载完成")

	// 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal().Err(err).Msg("初始化数据库失败")
	}
	defer database.Close()
	db := database.GetDB()

	// 第三方客户端，未配置时保持 nil 接口
	var (
		mail     service.Mailer
		payments service.PayPalAPI
		rates    service.RateFetcher
		taxes    service.TaxCalculator
		notifier service.AdminNotifier
	)
	if cfg.Email.Enabled && cfg.Email.APIKey != "" {
		mail = mailer.NewClient(cfg.Email)
	} else {
		logger.Warn().Msg("邮件未配置，抽奖邮件只记录为 skipped")
	}
	if cfg.PayPalConfigured() {
		payments = paypal.NewClient(cfg.PayPal)
	} else {
		logger.Warn().Msg("PayPal 未配置")
	}
	if cfg.ShipStationConfigured() {
		rates = shipstation.NewClient(cfg.ShipStation)
	}
	if cfg.TaxCloudConfigured() {
		taxes = taxcloud.NewClient(cfg.TaxCloud)
	}
	tg, err := notify.NewTelegram(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("Telegram 通知不可用")
	} else if tg != nil {
		notifier = tg
	}

	emails := service.NewRaffleEmailService(db, cfg, mail)
	deps := web.Deps{
		DB:       db,
		Auth:     service.NewAuthService(db, cfg.Auth),
		Raffles:  service.NewRaffleService(db),
		Entries:  service.NewEntryService(db, emails),
		Claims:   service.NewClaimService(db, cfg, emails, notifier),
		Draws:    service.NewDrawService(db, cfg, emails, notifier),
		Payments: service.NewPaymentService(db, cfg, payments),
		Tax:      service.NewTaxService(db, cfg, taxes),
		Shipping: service.NewShippingService(cfg, rates),
	}

	// 定时任务
	sched := scheduler.New(cfg.Scheduler, service.NewReminderService(db, cfg, emails))
	if err := sched.Start(); err != nil {
		logger.Fatal().Err(err).Msg("注册定时任务失败")
	}
	defer sched.Stop()

	// Web 服务
	server := web.New(cfg, deps)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("Web 服务启动失败")
		}
	}()

	logger.Info().Str("site", cfg.SiteURL).Msg("🚀 抽奖商城启动成功")

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务...")
	if err := server.Stop(); err != nil {
		logger.Error().Err(err).Msg("关闭 Web 服务失败")
	}
	logger.Info().Msg("👋 再见!")
}
