package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/smysle/raffle-storefront-go/internal/database"
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/database/repository"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrRegistrationClosed = errors.New("registration for this raffle is not open")
	ErrAlreadyEntered     = errors.New("you have already entered this raffle")
)

// 报名号冲突时的重试次数
const entryNumberAttempts = 5

// EntryService 报名服务
type EntryService struct {
	db     *gorm.DB
	emails *RaffleEmailService
	now    Clock
}

// NewEntryService 创建报名服务
func NewEntryService(db *gorm.DB, emails *RaffleEmailService) *EntryService {
	return &EntryService{db: db, emails: emails, now: utcNow}
}

// EnterRequest 报名请求
type EnterRequest struct {
	Slug      string
	UserID    string
	IPAddress string
	UserAgent string
}

// Enter 报名，每个用户每个抽奖只能报名一次
func (s *EntryService) Enter(ctx context.Context, req *EnterRequest) (*models.RaffleEntry, error) {
	raffle, err := repository.NewRaffleRepository(s.db).GetBySlug(req.Slug)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrRaffleNotFound
		}
		return nil, err
	}
	if !raffle.IsRegistrationOpen(s.now()) {
		return nil, ErrRegistrationClosed
	}

	entryRepo := repository.NewEntryRepository(s.db)
	if _, err := entryRepo.GetByUser(raffle.ID, req.UserID); err == nil {
		return nil, ErrAlreadyEntered
	} else if !database.IsNotFound(err) {
		return nil, err
	}

	var entry *models.RaffleEntry
	for attempt := 0; attempt < entryNumberAttempts; attempt++ {
		number, err := entryRepo.NextEntryNumber(raffle.ID)
		if err != nil {
			return nil, err
		}
		entry = &models.RaffleEntry{
			RaffleID:    raffle.ID,
			UserID:      req.UserID,
			EntryNumber: number,
			Status:      models.EntryConfirmed,
			IPAddress:   req.IPAddress,
			UserAgent:   truncate(req.UserAgent, 500),
			CreatedAt:   s.now(),
		}
		err = entryRepo.Create(entry)
		if err == nil {
			break
		}
		if !database.IsDuplicateKey(err) {
			return nil, fmt.Errorf("创建报名失败: %w", err)
		}
		// 冲突可能来自同一用户并发报名，也可能是报名号被占用
		if _, lookupErr := entryRepo.GetByUser(raffle.ID, req.UserID); lookupErr == nil {
			return nil, ErrAlreadyEntered
		}
		entry = nil
	}
	if entry == nil {
		return nil, fmt.Errorf("分配报名号失败: raffle %d", raffle.ID)
	}

	InvalidatePublic()
	logger.Info().
		Str("slug", raffle.Slug).
		Str("user_id", req.UserID).
		Int("entry_number", entry.EntryNumber).
		Msg("用户报名")

	if s.emails != nil {
		if err := s.emails.SendEntryConfirmation(ctx, entry); err != nil {
			logger.Warn().Err(err).Uint("entry_id", entry.ID).Msg("报名确认邮件发送失败")
		}
	}
	return entry, nil
}
