package service

import (
	"context"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/database/repository"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
	"gorm.io/gorm"
)

// ReminderService 定时提醒，只发送通知，不修改领奖状态
type ReminderService struct {
	db     *gorm.DB
	cfg    *config.Config
	emails *RaffleEmailService
	now    Clock
}

// NewReminderService 创建提醒服务
func NewReminderService(db *gorm.DB, cfg *config.Config, emails *RaffleEmailService) *ReminderService {
	return &ReminderService{db: db, cfg: cfg, emails: emails, now: utcNow}
}

// SendPurchaseReminders 给即将截止且未购买的中奖者发提醒，返回成功数量
func (s *ReminderService) SendPurchaseReminders(ctx context.Context) (int, error) {
	lead := time.Duration(s.cfg.Raffle.ReminderLeadHours) * time.Hour
	winners, err := repository.NewWinnerRepository(s.db).ListDueForReminder(s.now(), lead)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range winners {
		if err := s.emails.SendPurchaseReminder(ctx, &winners[i]); err != nil {
			logger.Warn().Err(err).Uint("winner_id", winners[i].ID).Msg("购买提醒发送失败")
			continue
		}
		sent++
	}
	return sent, nil
}

// SendExpiredNotices 给购买窗口已过期的中奖者发通知，返回成功数量
func (s *ReminderService) SendExpiredNotices(ctx context.Context) (int, error) {
	winners, err := repository.NewWinnerRepository(s.db).ListExpiredUnnotified(s.now())
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range winners {
		if err := s.emails.SendExpiredNotice(ctx, &winners[i]); err != nil {
			logger.Warn().Err(err).Uint("winner_id", winners[i].ID).Msg("过期通知发送失败")
			continue
		}
		sent++
	}
	return sent, nil
}
