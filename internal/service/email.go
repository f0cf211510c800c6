package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/database/repository"
	"github.com/smysle/raffle-storefront-go/internal/mailer"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
	"github.com/smysle/raffle-storefront-go/pkg/utils"
	"gorm.io/gorm"
)

// RaffleEmailService 抽奖相关邮件，每次发送都写 email_logs
type RaffleEmailService struct {
	db      *gorm.DB
	cfg     *config.Config
	mailer  Mailer
	enabled bool
	now     Clock
}

// NewRaffleEmailService 创建邮件服务，m 为 nil 或邮件未启用时只记录 skipped
func NewRaffleEmailService(db *gorm.DB, cfg *config.Config, m Mailer) *RaffleEmailService {
	return &RaffleEmailService{
		db:      db,
		cfg:     cfg,
		mailer:  m,
		enabled: cfg.Email.Enabled && m != nil,
		now:     utcNow,
	}
}

// emailContext 邮件所需的抽奖、商品和用户
type emailContext struct {
	raffle  *models.Raffle
	product *models.Product
	user    *models.User
}

func (s *RaffleEmailService) load(raffleID uint, userID string) (*emailContext, error) {
	raffle, err := repository.NewRaffleRepository(s.db).GetByID(raffleID)
	if err != nil {
		return nil, fmt.Errorf("raffle %d: %w", raffleID, err)
	}
	product, err := repository.NewProductRepository(s.db).GetByID(raffle.ProductID)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", raffle.ProductID, err)
	}
	user, err := repository.NewUserRepository(s.db).GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	return &emailContext{raffle: raffle, product: product, user: user}, nil
}

// SendEntryConfirmation 报名确认邮件
func (s *RaffleEmailService) SendEntryConfirmation(ctx context.Context, entry *models.RaffleEntry) error {
	ec, err := s.load(entry.RaffleID, entry.UserID)
	if err != nil {
		return err
	}
	return s.send(ctx, ec.user, mailer.Message{
		Template: mailer.TemplateEntryConfirmation,
		Subject:  "Entry Confirmed - " + ec.raffle.Name,
		MergeVars: map[string]string{
			"customer_name": nameOr(ec.user, "Valued Customer"),
			"raffle_name":   ec.raffle.Name,
			"product_name":  ec.product.Name,
			"entry_number":  strconv.Itoa(entry.EntryNumber),
			"draw_date":     utils.FormatDeadline(ec.raffle.DrawDate),
			"raffle_url":    s.cfg.RaffleURL(ec.raffle.Slug),
		},
	})
}

// SendWinnerNotification 中奖通知，成功后记录 notified_at
func (s *RaffleEmailService) SendWinnerNotification(ctx context.Context, winner *models.RaffleWinner) error {
	ec, err := s.load(winner.RaffleID, winner.UserID)
	if err != nil {
		return err
	}
	err = s.send(ctx, ec.user, mailer.Message{
		Template: mailer.TemplateWinner,
		Subject:  "🎉 You Won! - " + ec.raffle.Name,
		MergeVars: map[string]string{
			"customer_name":     nameOr(ec.user, "Winner"),
			"raffle_name":       ec.raffle.Name,
			"product_name":      ec.product.Name,
			"product_price":     utils.FormatCents(ec.product.BasePriceCents),
			"winner_position":   strconv.Itoa(winner.WinnerPosition),
			"purchase_deadline": utils.FormatDeadline(winner.PurchaseDeadline),
			"purchase_url":      s.cfg.ClaimURL(ec.raffle.Slug),
			"hours_to_purchase": strconv.Itoa(s.cfg.Raffle.PurchaseWindowHours),
		},
	})
	if err != nil {
		return err
	}
	return repository.NewWinnerRepository(s.db).SetNotified(winner.ID, s.now())
}

// SendPurchaseReminder 截止前提醒，成功后记录 reminded_at
func (s *RaffleEmailService) SendPurchaseReminder(ctx context.Context, winner *models.RaffleWinner) error {
	ec, err := s.load(winner.RaffleID, winner.UserID)
	if err != nil {
		return err
	}
	now := s.now()
	err = s.send(ctx, ec.user, mailer.Message{
		Template: mailer.TemplatePurchaseReminder,
		Subject:  "Reminder: Complete Your Purchase - " + ec.raffle.Name,
		MergeVars: map[string]string{
			"customer_name":     nameOr(ec.user, "Winner"),
			"raffle_name":       ec.raffle.Name,
			"product_name":      ec.product.Name,
			"hours_remaining":   strconv.FormatInt(utils.HoursUntil(winner.PurchaseDeadline, now), 10),
			"purchase_deadline": utils.FormatDeadline(winner.PurchaseDeadline),
			"purchase_url":      s.cfg.ClaimURL(ec.raffle.Slug),
		},
	})
	if err != nil {
		return err
	}
	return repository.NewWinnerRepository(s.db).SetReminded(winner.ID, now)
}

// SendExpiredNotice 购买窗口过期通知，成功后记录 expired_notified_at
func (s *RaffleEmailService) SendExpiredNotice(ctx context.Context, winner *models.RaffleWinner) error {
	ec, err := s.load(winner.RaffleID, winner.UserID)
	if err != nil {
		return err
	}
	err = s.send(ctx, ec.user, mailer.Message{
		Template: mailer.TemplateExpired,
		Subject:  "Purchase Window Expired - " + ec.raffle.Name,
		MergeVars: map[string]string{
			"customer_name":     nameOr(ec.user, "Valued Customer"),
			"raffle_name":       ec.raffle.Name,
			"product_name":      ec.product.Name,
			"purchase_deadline": utils.FormatDeadline(winner.PurchaseDeadline),
		},
	})
	if err != nil {
		return err
	}
	return repository.NewWinnerRepository(s.db).SetExpiredNotified(winner.ID, s.now())
}

// send 发送并写日志，邮件未启用时记为 skipped 且不返回错误
func (s *RaffleEmailService) send(ctx context.Context, user *models.User, msg mailer.Message) error {
	msg.To = user.Email
	msg.ToName = user.FullName

	entry := &models.EmailLog{
		Template:  msg.Template,
		Recipient: user.Email,
		Subject:   msg.Subject,
		UserID:    user.ID,
		CreatedAt: s.now(),
	}

	var sendErr error
	if !s.enabled {
		entry.Status = models.EmailSkipped
	} else {
		sendCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		entry.MessageID, sendErr = s.mailer.SendTemplate(sendCtx, msg)
		cancel()
		if sendErr != nil {
			entry.Status = models.EmailFailed
			entry.Error = truncate(sendErr.Error(), 500)
		} else {
			entry.Status = models.EmailSent
		}
	}

	if err := repository.NewEmailLogRepository(s.db).Create(entry); err != nil {
		logger.Warn().Err(err).Str("template", msg.Template).Msg("写入邮件日志失败")
	}

	if sendErr != nil {
		logger.Error().Err(sendErr).
			Str("template", msg.Template).
			Str("user_id", user.ID).
			Msg("邮件发送失败")
		return sendErr
	}

	logger.Debug().
		Str("template", msg.Template).
		Str("user_id", user.ID).
		Str("status", string(entry.Status)).
		Msg("邮件已处理")
	return nil
}

func nameOr(u *models.User, fallback string) string {
	if u.FullName != "" {
		return u.FullName
	}
	return fallback
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
