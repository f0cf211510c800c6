// Package scheduler 定时任务调度
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
)

const (
	tagPurchaseReminders = "purchase_reminders"
	tagExpiredNotices    = "expired_notices"

	jobTimeout = 5 * time.Minute
)

// WinnerJobs 中奖者邮件任务
type WinnerJobs interface {
	SendPurchaseReminders(ctx context.Context) (int, error)
	SendExpiredNotices(ctx context.Context) (int, error)
}

// Scheduler 定时任务调度器
type Scheduler struct {
	cron *gocron.Scheduler
	cfg  config.SchedulerConfig
	jobs WinnerJobs
}

// New 创建调度器，任务按 UTC 调度
func New(cfg config.SchedulerConfig, jobs WinnerJobs) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SetMaxConcurrentJobs(2, gocron.RescheduleMode)
	s.SingletonModeAll()

	return &Scheduler{cron: s, cfg: cfg, jobs: jobs}
}

// Start 注册任务并异步启动
func (s *Scheduler) Start() error {
	logger.Info().Msg("启动定时任务调度器")
	if err := s.registerJobs(); err != nil {
		return err
	}
	s.cron.StartAsync()
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	logger.Info().Msg("停止定时任务调度器")
	s.cron.Stop()
}

// registerJobs 注册所有定时任务
func (s *Scheduler) registerJobs() error {
	// 购买提醒 - 每小时整点
	if s.cfg.PurchaseReminders {
		if _, err := s.cron.Every(1).Hour().StartAt(nextHour()).Tag(tagPurchaseReminders).Do(s.sendPurchaseReminders); err != nil {
			return err
		}
		logger.Info().Msg("已注册: 购买提醒任务 (每小时)")
	}

	// 过期通知 - 每小时半点
	if s.cfg.ExpiredNotices {
		if _, err := s.cron.Every(1).Hour().StartAt(nextHour().Add(30 * time.Minute)).Tag(tagExpiredNotices).Do(s.sendExpiredNotices); err != nil {
			return err
		}
		logger.Info().Msg("已注册: 过期通知任务 (每小时)")
	}
	return nil
}

// RunNow 立即执行指定任务
func (s *Scheduler) RunNow(tag string) error {
	return s.cron.RunByTag(tag)
}

func (s *Scheduler) sendPurchaseReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	sent, err := s.jobs.SendPurchaseReminders(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("发送购买提醒失败")
		return
	}
	logger.Info().Int("sent", sent).Msg("购买提醒任务完成")
}

func (s *Scheduler) sendExpiredNotices() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	sent, err := s.jobs.SendExpiredNotices(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("发送过期通知失败")
		return
	}
	logger.Info().Int("sent", sent).Msg("过期通知任务完成")
}

func nextHour() time.Time {
	return time.Now().UTC().Truncate(time.Hour).Add(time.Hour)
}
