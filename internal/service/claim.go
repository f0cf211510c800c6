package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/database"
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/database/repository"
	"github.com/smysle/raffle-storefront-go/internal/notify"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
	"github.com/smysle/raffle-storefront-go/pkg/utils"
	"gorm.io/gorm"
)

// ClaimState 领奖页面状态
type ClaimState string

const (
	ClaimNotEligible ClaimState = "not_eligible"
	ClaimPurchased   ClaimState = "purchased"
	ClaimExpired     ClaimState = "expired"
	ClaimOutOfStock  ClaimState = "out_of_stock"
	ClaimAvailable   ClaimState = "available"
)

var ErrWinnerNotFound = errors.New("winner not found")

// ClaimError 购买被拒绝，State 为拒绝时的领奖状态
type ClaimError struct {
	State   ClaimState
	OrderID *uint
}

func (e *ClaimError) Error() string {
	switch e.State {
	case ClaimPurchased:
		return "you have already completed your purchase for this raffle prize"
	case ClaimExpired:
		return "your purchase window has expired"
	case ClaimOutOfStock:
		return "this prize is out of stock"
	}
	return "you are not eligible to purchase this raffle prize"
}

// DeriveClaimState 按固定顺序推导领奖状态：资格、已购买、过期、库存
func DeriveClaimState(winner *models.RaffleWinner, product *models.Product, now time.Time) ClaimState {
	switch {
	case winner == nil:
		return ClaimNotEligible
	case winner.HasPurchased:
		return ClaimPurchased
	case winner.PurchaseDeadline.Before(now):
		return ClaimExpired
	case product == nil || !product.InStock():
		return ClaimOutOfStock
	}
	return ClaimAvailable
}

// ClaimService 中奖者领奖
type ClaimService struct {
	db       *gorm.DB
	cfg      *config.Config
	emails   *RaffleEmailService
	notifier AdminNotifier
	now      Clock
}

// NewClaimService 创建领奖服务
func NewClaimService(db *gorm.DB, cfg *config.Config, emails *RaffleEmailService, notifier AdminNotifier) *ClaimService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ClaimService{db: db, cfg: cfg, emails: emails, notifier: notifier, now: utcNow}
}

// ClaimRaffle 领奖页面中的抽奖信息
type ClaimRaffle struct {
	ID     uint                `json:"id"`
	Slug   string              `json:"slug"`
	Name   string              `json:"name"`
	Status models.RaffleStatus `json:"status"`
}

// ClaimView 领奖页面数据
type ClaimView struct {
	State            ClaimState   `json:"state"`
	Title            string       `json:"title"`
	Message          string       `json:"message"`
	Raffle           ClaimRaffle  `json:"raffle"`
	WinnerID         uint         `json:"winner_id,omitempty"`
	WinnerPosition   int          `json:"winner_position,omitempty"`
	PurchaseDeadline *time.Time   `json:"purchase_deadline,omitempty"`
	DeadlineText     string       `json:"deadline_text,omitempty"`
	SecondsRemaining int64        `json:"seconds_remaining"`
	HoursRemaining   int64        `json:"hours_remaining"`
	Urgent           bool         `json:"urgent"`
	Product          *ProductView `json:"product,omitempty"`
	OrderID          *uint        `json:"order_id,omitempty"`
	OrderURL         string       `json:"order_url,omitempty"`
	CanPurchase      bool         `json:"can_purchase"`
}

// GetClaim 获取当前用户的领奖页面状态，非中奖者返回 not_eligible 而不是错误
func (s *ClaimService) GetClaim(slug, userID string) (*ClaimView, error) {
	raffle, err := repository.NewRaffleRepository(s.db).GetBySlug(slug)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrRaffleNotFound
		}
		return nil, err
	}

	winner, err := repository.NewWinnerRepository(s.db).GetByRaffleAndUser(raffle.ID, userID)
	if err != nil && !database.IsNotFound(err) {
		return nil, err
	}
	if err != nil {
		winner = nil
	}

	var product *models.Product
	if winner != nil {
		product, err = repository.NewProductRepository(s.db).GetByID(raffle.ProductID)
		if err != nil && !database.IsNotFound(err) {
			return nil, err
		}
	}

	return buildClaimView(raffle, winner, product, s.now()), nil
}

func buildClaimView(raffle *models.Raffle, winner *models.RaffleWinner, product *models.Product, now time.Time) *ClaimView {
	state := DeriveClaimState(winner, product, now)
	view := &ClaimView{
		State:  state,
		Raffle: ClaimRaffle{ID: raffle.ID, Slug: raffle.Slug, Name: raffle.Name, Status: raffle.Status},
	}

	if winner != nil {
		deadline := winner.PurchaseDeadline
		view.WinnerID = winner.ID
		view.WinnerPosition = winner.WinnerPosition
		view.PurchaseDeadline = &deadline
		view.DeadlineText = utils.FormatDeadline(deadline)
		view.Product = newProductView(product)
	}

	switch state {
	case ClaimNotEligible:
		view.Title = "Not Eligible"
		view.Message = "You are not a winner of this raffle or your purchase window has expired."
	case ClaimPurchased:
		view.Title = "Purchase Complete!"
		view.Message = "You have already completed your purchase for this raffle prize."
		if winner.OrderID != nil {
			view.OrderID = winner.OrderID
			view.OrderURL = fmt.Sprintf("/account/orders/%d", *winner.OrderID)
		}
	case ClaimExpired:
		view.Title = "Purchase Window Expired"
		view.Message = fmt.Sprintf("Your purchase window expired on %s. The opportunity has been passed to an alternate winner.",
			view.DeadlineText)
	case ClaimOutOfStock:
		view.Title = "Prize Unavailable"
		view.Message = "This prize is currently out of stock. Please contact support."
	case ClaimAvailable:
		view.Title = "Congratulations!"
		view.Message = fmt.Sprintf("You're Winner #%d of the %s", winner.WinnerPosition, raffle.Name)
		view.SecondsRemaining = utils.SecondsUntil(winner.PurchaseDeadline, now)
		view.HoursRemaining = utils.HoursUntil(winner.PurchaseDeadline, now)
		view.Urgent = view.HoursRemaining <= 24
		view.CanPurchase = true
	}
	return view
}

// PurchaseResult 下单结果
type PurchaseResult struct {
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
	OrderURL    string `json:"order_url"`
	TotalCents  int64  `json:"total_cents"`
	Total       string `json:"total"`
}

// Purchase 在一个事务内抢占领奖资格、扣减库存并生成订单
func (s *ClaimService) Purchase(ctx context.Context, slug, userID string) (*PurchaseResult, error) {
	raffle, err := repository.NewRaffleRepository(s.db).GetBySlug(slug)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrRaffleNotFound
		}
		return nil, err
	}

	winner, err := repository.NewWinnerRepository(s.db).GetByRaffleAndUser(raffle.ID, userID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, &ClaimError{State: ClaimNotEligible}
		}
		return nil, err
	}

	product, err := repository.NewProductRepository(s.db).GetByID(raffle.ProductID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, &ClaimError{State: ClaimOutOfStock}
		}
		return nil, err
	}

	now := s.now()
	var order *models.Order

	err = s.db.Transaction(func(tx *gorm.DB) error {
		winnerRepo := repository.NewWinnerRepository(tx)

		claimed, err := winnerRepo.MarkPurchased(winner.ID, userID, now)
		if err != nil {
			return err
		}
		if !claimed {
			current, err := winnerRepo.GetByID(winner.ID)
			if err != nil {
				return err
			}
			return classifyFailedClaim(current, userID, now)
		}

		inStock, err := repository.NewProductRepository(tx).DecrementStock(product.ID)
		if err != nil {
			return err
		}
		if !inStock {
			return &ClaimError{State: ClaimOutOfStock}
		}

		winnerID := winner.ID
		order = &models.Order{
			OrderNumber:    uuid.New().String(),
			UserID:         userID,
			Status:         models.OrderPending,
			RaffleWinnerID: &winnerID,
			SubtotalCents:  product.BasePriceCents,
			TotalCents:     product.BasePriceCents,
			Currency:       s.cfg.PayPal.Currency,
			Items: []models.OrderItem{{
				ProductID:      product.ID,
				Name:           product.Name,
				Quantity:       1,
				UnitPriceCents: product.BasePriceCents,
			}},
		}
		if err := repository.NewOrderRepository(tx).Create(order); err != nil {
			if database.IsDuplicateKey(err) {
				return &ClaimError{State: ClaimPurchased}
			}
			return fmt.Errorf("创建订单失败: %w", err)
		}

		return winnerRepo.SetOrderID(winner.ID, order.ID)
	})
	if err != nil {
		var claimErr *ClaimError
		if errors.As(err, &claimErr) {
			logger.Info().
				Str("slug", slug).
				Str("user_id", userID).
				Str("state", string(claimErr.State)).
				Msg("领奖购买被拒绝")
		}
		return nil, err
	}

	logger.Info().
		Str("slug", slug).
		Uint("winner_id", winner.ID).
		Uint("order_id", order.ID).
		Msg("中奖者下单成功")
	s.notifier.NotifyAdmins(notify.PrizeClaimedText(raffle.Name, winner.WinnerPosition, order.OrderNumber))

	return &PurchaseResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OrderURL:    fmt.Sprintf("/account/orders/%d", order.ID),
		TotalCents:  order.TotalCents,
		Total:       utils.FormatCents(order.TotalCents),
	}, nil
}

// classifyFailedClaim 条件更新未命中时重新读取记录判断原因
func classifyFailedClaim(w *models.RaffleWinner, userID string, now time.Time) error {
	switch {
	case w.UserID != userID:
		return &ClaimError{State: ClaimNotEligible}
	case w.HasPurchased:
		return &ClaimError{State: ClaimPurchased, OrderID: w.OrderID}
	case w.PurchaseDeadline.Before(now):
		return &ClaimError{State: ClaimExpired}
	}
	return &ClaimError{State: ClaimNotEligible}
}

// WinnerRow 后台中奖者列表行
type WinnerRow struct {
	models.RaffleWinner
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Status   string `json:"status"` // purchased, pending, expired
}

// WinnersReport 后台中奖者报表
type WinnersReport struct {
	Raffle    *models.Raffle `json:"raffle"`
	Message   string         `json:"message,omitempty"`
	Winners   []WinnerRow    `json:"winners"`
	Purchased int            `json:"purchased"`
	Pending   int            `json:"pending"`
	Expired   int            `json:"expired"`
}

// Winners 后台中奖者列表和统计
func (s *ClaimService) Winners(slug string) (*WinnersReport, error) {
	raffle, err := repository.NewRaffleRepository(s.db).GetBySlug(slug)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrRaffleNotFound
		}
		return nil, err
	}

	report := &WinnersReport{Raffle: raffle, Winners: []WinnerRow{}}
	if raffle.Status != models.RaffleDrawn {
		report.Message = "Winners will be available after the raffle drawing is complete."
		return report, nil
	}

	winners, err := repository.NewWinnerRepository(s.db).ListByRaffle(raffle.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(winners))
	for _, w := range winners {
		ids = append(ids, w.UserID)
	}
	users := map[string]models.User{}
	if len(ids) > 0 {
		if users, err = repository.NewUserRepository(s.db).GetByIDs(ids); err != nil {
			return nil, err
		}
	}

	now := s.now()
	for _, w := range winners {
		row := WinnerRow{RaffleWinner: w, Email: users[w.UserID].Email, FullName: users[w.UserID].FullName}
		switch {
		case w.HasPurchased:
			row.Status = "purchased"
			report.Purchased++
		case w.IsExpired(now):
			row.Status = "expired"
			report.Expired++
		default:
			row.Status = "pending"
			report.Pending++
		}
		report.Winners = append(report.Winners, row)
	}
	return report, nil
}

// ResendWinnerNotification 后台重发中奖通知，已购买或已过期的中奖者返回 ClaimError
func (s *ClaimService) ResendWinnerNotification(ctx context.Context, slug string, winnerID uint) error {
	raffle, err := repository.NewRaffleRepository(s.db).GetBySlug(slug)
	if err != nil {
		if database.IsNotFound(err) {
			return ErrRaffleNotFound
		}
		return err
	}
	winner, err := repository.NewWinnerRepository(s.db).GetByID(winnerID)
	if err != nil {
		if database.IsNotFound(err) {
			return ErrWinnerNotFound
		}
		return err
	}
	if winner.RaffleID != raffle.ID {
		return ErrWinnerNotFound
	}

	// 只给仍在购买窗口内的中奖者重发
	switch {
	case winner.HasPurchased:
		return &ClaimError{State: ClaimPurchased, OrderID: winner.OrderID}
	case winner.PurchaseDeadline.Before(s.now()):
		return &ClaimError{State: ClaimExpired}
	}
	if s.emails == nil {
		return nil
	}
	return s.emails.SendWinnerNotification(ctx, winner)
}
