package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/database"
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/database/repository"
	"github.com/smysle/raffle-storefront-go/internal/notify"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrDrawNotAllowed = errors.New("raffle must be closed before drawing")
	ErrAlreadyDrawn   = errors.New("winners have already been recorded for this raffle")
	ErrInvalidDraw    = errors.New("invalid winning entries")
)

// DrawService 记录开奖结果，中奖号码由管理员提供
type DrawService struct {
	db       *gorm.DB
	cfg      *config.Config
	emails   *RaffleEmailService
	notifier AdminNotifier
	now      Clock
}

// NewDrawService 创建开奖服务
func NewDrawService(db *gorm.DB, cfg *config.Config, emails *RaffleEmailService, notifier AdminNotifier) *DrawService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &DrawService{db: db, cfg: cfg, emails: emails, notifier: notifier, now: utcNow}
}

// DrawResult 开奖结果
type DrawResult struct {
	Raffle  *models.Raffle        `json:"raffle"`
	Winners []models.RaffleWinner `json:"winners"`
}

// Draw 按给定报名号依次生成第 1..n 名中奖者
func (s *DrawService) Draw(ctx context.Context, slug string, entryNumbers []int) (*DrawResult, error) {
	raffle, err := repository.NewRaffleRepository(s.db).GetBySlug(slug)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrRaffleNotFound
		}
		return nil, err
	}
	if raffle.Status != models.RaffleClosed && raffle.Status != models.RaffleDrawing {
		return nil, ErrDrawNotAllowed
	}

	entries, err := s.validateEntries(raffle, entryNumbers)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deadline := now.Add(time.Duration(s.cfg.Raffle.PurchaseWindowHours) * time.Hour)
	winners := make([]models.RaffleWinner, 0, len(entries))

	err = s.db.Transaction(func(tx *gorm.DB) error {
		raffleRepo := repository.NewRaffleRepository(tx)
		winnerRepo := repository.NewWinnerRepository(tx)

		count, err := raffleRepo.CountWinners(raffle.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyDrawn
		}

		if raffle.Status == models.RaffleClosed {
			ok, err := raffleRepo.UpdateStatus(raffle.ID, models.RaffleClosed, models.RaffleDrawing)
			if err != nil {
				return err
			}
			if !ok {
				return ErrStatusChanged
			}
		}
		if err := s.streamEvent(raffleRepo, raffle.ID, models.DrawingStarted, map[string]interface{}{
			"total_winners": len(entries),
		}, now); err != nil {
			return err
		}

		for i, e := range entries {
			w := models.RaffleWinner{
				RaffleID:         raffle.ID,
				UserID:           e.UserID,
				EntryNumber:      e.EntryNumber,
				WinnerPosition:   i + 1,
				SelectedAt:       now,
				PurchaseDeadline: deadline,
			}
			if err := winnerRepo.Create(&w); err != nil {
				if database.IsDuplicateKey(err) {
					return ErrAlreadyDrawn
				}
				return fmt.Errorf("创建中奖记录失败: %w", err)
			}
			winners = append(winners, w)

			if err := s.streamEvent(raffleRepo, raffle.ID, models.DrawingWinnerRevealed, map[string]interface{}{
				"position":     w.WinnerPosition,
				"entry_number": w.EntryNumber,
			}, now); err != nil {
				return err
			}
		}

		ok, err := raffleRepo.UpdateStatus(raffle.ID, models.RaffleDrawing, models.RaffleDrawn)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStatusChanged
		}
		return s.streamEvent(raffleRepo, raffle.ID, models.DrawingCompleted, map[string]interface{}{
			"winners": len(winners),
		}, now)
	})
	if err != nil {
		return nil, err
	}

	raffle.Status = models.RaffleDrawn
	InvalidatePublic()
	logger.Info().Str("slug", slug).Int("winners", len(winners)).Msg("开奖完成")

	s.notifyWinners(ctx, winners)
	s.notifier.NotifyAdmins(notify.DrawCompletedText(raffle.Name, len(winners), now))

	return &DrawResult{Raffle: raffle, Winners: winners}, nil
}

// validateEntries 报名号必须互不相同、已确认、属于不同用户，且不超过中奖名额
func (s *DrawService) validateEntries(raffle *models.Raffle, numbers []int) ([]models.RaffleEntry, error) {
	if len(numbers) == 0 {
		return nil, fmt.Errorf("%w: no entry numbers given", ErrInvalidDraw)
	}
	if len(numbers) > raffle.TotalWinners {
		return nil, fmt.Errorf("%w: %d entries given but only %d winners allowed", ErrInvalidDraw, len(numbers), raffle.TotalWinners)
	}

	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			return nil, fmt.Errorf("%w: entry %d listed twice", ErrInvalidDraw, n)
		}
		seen[n] = true
	}

	found, err := repository.NewEntryRepository(s.db).GetByNumbers(raffle.ID, numbers)
	if err != nil {
		return nil, err
	}
	byNumber := make(map[int]models.RaffleEntry, len(found))
	for _, e := range found {
		byNumber[e.EntryNumber] = e
	}

	ordered := make([]models.RaffleEntry, 0, len(numbers))
	users := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		e, ok := byNumber[n]
		if !ok {
			return nil, fmt.Errorf("%w: entry %d is not a confirmed entry", ErrInvalidDraw, n)
		}
		if users[e.UserID] {
			return nil, fmt.Errorf("%w: entry %d belongs to a user who already won", ErrInvalidDraw, n)
		}
		users[e.UserID] = true
		ordered = append(ordered, e)
	}
	return ordered, nil
}

func (s *DrawService) streamEvent(repo *repository.RaffleRepository, raffleID uint, typ models.DrawingEventType, payload map[string]interface{}, at time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return repo.CreateStreamEvent(&models.DrawingStreamEvent{
		RaffleID:  raffleID,
		EventType: typ,
		Payload:   string(data),
		CreatedAt: at,
	})
}

func (s *DrawService) notifyWinners(ctx context.Context, winners []models.RaffleWinner) {
	if s.emails == nil {
		return
	}
	for i := range winners {
		if err := s.emails.SendWinnerNotification(ctx, &winners[i]); err != nil {
			logger.Warn().Err(err).Uint("winner_id", winners[i].ID).Msg("中奖通知发送失败")
		}
	}
}
