package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/database"
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/database/repository"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
	"github.com/smysle/raffle-storefront-go/pkg/utils"
	"gorm.io/gorm"
)

var (
	ErrRaffleNotFound    = errors.New("raffle not found")
	ErrInvalidTransition = errors.New("illegal raffle status transition")
	ErrStatusChanged     = errors.New("raffle status was changed by another request")
	ErrSlugTaken         = errors.New("slug already in use")
	ErrInvalidRaffle     = errors.New("invalid raffle")
	ErrProductNotFound   = errors.New("product not found")
)

const publicRafflesCacheKey = "raffles:public"

// RaffleService 抽奖管理服务
type RaffleService struct {
	db  *gorm.DB
	now Clock
}

// NewRaffleService 创建抽奖服务
func NewRaffleService(db *gorm.DB) *RaffleService {
	return &RaffleService{db: db, now: utcNow}
}

// RaffleSummary 公开列表中的抽奖
type RaffleSummary struct {
	models.Raffle
	EntryCount int64        `json:"entry_count"`
	Product    *ProductView `json:"product,omitempty"`
}

// PublicRaffles 公开列表，按状态分组
type PublicRaffles struct {
	Active   []RaffleSummary `json:"active"`
	Upcoming []RaffleSummary `json:"upcoming"`
	Past     []RaffleSummary `json:"past"`
}

// ListPublic 公开抽奖列表（缓存 1 分钟）
func (s *RaffleService) ListPublic() (*PublicRaffles, error) {
	val, err := utils.CacheGetOrSet(publicRafflesCacheKey, time.Minute, func() (interface{}, error) {
		return s.loadPublic()
	})
	if err != nil {
		return nil, err
	}
	return val.(*PublicRaffles), nil
}

func (s *RaffleService) loadPublic() (*PublicRaffles, error) {
	raffleRepo := repository.NewRaffleRepository(s.db)
	raffles, err := raffleRepo.ListByStatus(models.RaffleOpen, models.RaffleUpcoming, models.RaffleClosed, models.RaffleDrawing, models.RaffleDrawn)
	if err != nil {
		return nil, fmt.Errorf("查询抽奖列表失败: %w", err)
	}

	products := make(map[uint]*models.Product, len(raffles))
	if len(raffles) > 0 {
		ids := make([]uint, 0, len(raffles))
		for _, r := range raffles {
			ids = append(ids, r.ProductID)
		}
		found, err := repository.NewProductRepository(s.db).GetByIDs(ids)
		if err != nil {
			return nil, fmt.Errorf("查询商品失败: %w", err)
		}
		for i := range found {
			products[found[i].ID] = &found[i]
		}
	}

	result := &PublicRaffles{
		Active:   []RaffleSummary{},
		Upcoming: []RaffleSummary{},
		Past:     []RaffleSummary{},
	}
	for _, r := range raffles {
		count, err := raffleRepo.CountEntries(r.ID)
		if err != nil {
			return nil, err
		}
		summary := RaffleSummary{Raffle: r, EntryCount: count, Product: newProductView(products[r.ProductID])}
		switch {
		case r.Status == models.RaffleOpen:
			result.Active = append(result.Active, summary)
		case r.Status == models.RaffleUpcoming:
			result.Upcoming = append(result.Upcoming, summary)
		case r.Status.IsPast():
			result.Past = append(result.Past, summary)
		}
	}
	return result, nil
}

// InvalidatePublic 清除公开列表和分享卡片缓存
func InvalidatePublic() {
	utils.CacheDelete(publicRafflesCacheKey)
	utils.CacheDeletePrefix("raffle:card:")
}

// RaffleDetail 抽奖详情
type RaffleDetail struct {
	Raffle     *models.Raffle      `json:"raffle"`
	Product    *ProductView        `json:"product,omitempty"`
	EntryCount int64               `json:"entry_count"`
	CanEnter   bool                `json:"can_enter"`
	MyEntry    *models.RaffleEntry `json:"my_entry,omitempty"`
	IsWinner   bool                `json:"is_winner"`
}

// ProductView 对外展示的商品
type ProductView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Price       string `json:"price"`
	InStock     bool   `json:"in_stock"`
	ImageURL    string `json:"image_url,omitempty"`
}

func newProductView(p *models.Product) *ProductView {
	if p == nil {
		return nil
	}
	return &ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.BasePriceCents,
		Price:       utils.FormatCents(p.BasePriceCents),
		InStock:     p.InStock(),
		ImageURL:    p.ImageURL,
	}
}

// GetDetail 获取抽奖详情，userID 为空表示未登录
func (s *RaffleService) GetDetail(slug, userID string) (*RaffleDetail, error) {
	raffleRepo := repository.NewRaffleRepository(s.db)
	raffle, err := raffleRepo.GetBySlug(slug)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrRaffleNotFound
		}
		return nil, err
	}

	count, err := raffleRepo.CountEntries(raffle.ID)
	if err != nil {
		return nil, err
	}

	detail := &RaffleDetail{
		Raffle:     raffle,
		EntryCount: count,
		CanEnter:   raffle.IsRegistrationOpen(s.now()),
	}

	if product, err := repository.NewProductRepository(s.db).GetByID(raffle.ProductID); err == nil {
		detail.Product = newProductView(product)
	} else if !database.IsNotFound(err) {
		return nil, err
	}

	if userID != "" {
		entry, err := repository.NewEntryRepository(s.db).GetByUser(raffle.ID, userID)
		if err == nil {
			detail.MyEntry = entry
			detail.CanEnter = false
		} else if !database.IsNotFound(err) {
			return nil, err
		}
		if _, err := repository.NewWinnerRepository(s.db).GetByRaffleAndUser(raffle.ID, userID); err == nil {
			detail.IsWinner = true
		}
	}
	return detail, nil
}

// AdminRaffleRow 后台列表行
type AdminRaffleRow struct {
	models.Raffle
	EntryCount  int64                `json:"entry_count"`
	WinnerCount int64                `json:"winner_count"`
	NextStatus  *models.RaffleStatus `json:"next_status,omitempty"`
}

// AdminList 后台抽奖列表，每次读取数据库
func (s *RaffleService) AdminList() ([]AdminRaffleRow, error) {
	raffleRepo := repository.NewRaffleRepository(s.db)
	raffles, err := raffleRepo.List()
	if err != nil {
		return nil, fmt.Errorf("查询抽奖列表失败: %w", err)
	}

	rows := make([]AdminRaffleRow, 0, len(raffles))
	for _, r := range raffles {
		entries, err := raffleRepo.CountEntries(r.ID)
		if err != nil {
			return nil, err
		}
		winners, err := raffleRepo.CountWinners(r.ID)
		if err != nil {
			return nil, err
		}
		row := AdminRaffleRow{Raffle: r, EntryCount: entries, WinnerCount: winners}
		if next, ok := r.Status.Next(); ok {
			row.NextStatus = &next
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CreateRaffleRequest 创建抽奖请求
type CreateRaffleRequest struct {
	Slug                 string    `json:"slug"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	TotalWinners         int       `json:"total_winners"`
	RegistrationStartsAt time.Time `json:"registration_starts_at"`
	RegistrationEndsAt   time.Time `json:"registration_ends_at"`
	DrawDate             time.Time `json:"draw_date"`
	ProductID            uint      `json:"product_id"`
}

// Create 创建抽奖，初始状态为 upcoming
func (s *RaffleService) Create(req *CreateRaffleRequest) (*models.Raffle, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRaffle)
	}
	if req.TotalWinners <= 0 {
		return nil, fmt.Errorf("%w: total_winners must be positive", ErrInvalidRaffle)
	}
	if !req.RegistrationEndsAt.IsZero() && req.RegistrationEndsAt.Before(req.RegistrationStartsAt) {
		return nil, fmt.Errorf("%w: registration window ends before it starts", ErrInvalidRaffle)
	}

	slug := utils.Slugify(req.Slug)
	if slug == "" {
		slug = utils.Slugify(name)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrInvalidRaffle)
	}

	if _, err := repository.NewProductRepository(s.db).GetByID(req.ProductID); err != nil {
		if database.IsNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	raffle := &models.Raffle{
		Slug:                 slug,
		Name:                 name,
		Description:          req.Description,
		Status:               models.RaffleUpcoming,
		TotalWinners:         req.TotalWinners,
		RegistrationStartsAt: req.RegistrationStartsAt.UTC(),
		RegistrationEndsAt:   req.RegistrationEndsAt.UTC(),
		DrawDate:             req.DrawDate.UTC(),
		ProductID:            req.ProductID,
	}
	if err := repository.NewRaffleRepository(s.db).Create(raffle); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("创建抽奖失败: %w", err)
	}

	InvalidatePublic()
	logger.Info().Str("slug", slug).Uint("raffle_id", raffle.ID).Msg("创建抽奖")
	return raffle, nil
}

// StatusChange 状态变更结果
type StatusChange struct {
	Raffle   *models.Raffle `json:"raffle"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	Redirect string         `json:"redirect,omitempty"`
}

// ChangeStatus 按状态机迁移抽奖状态
func (s *RaffleService) ChangeStatus(slug string, target models.RaffleStatus) (*StatusChange, error) {
	raffleRepo := repository.NewRaffleRepository(s.db)
	raffle, err := raffleRepo.GetBySlug(slug)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrRaffleNotFound
		}
		return nil, err
	}

	from := raffle.Status
	if !from.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
	}

	ok, err := raffleRepo.UpdateStatus(raffle.ID, from, target)
	if err != nil {
		return nil, fmt.Errorf("更新抽奖状态失败: %w", err)
	}
	if !ok {
		return nil, ErrStatusChanged
	}
	raffle.Status = target
	InvalidatePublic()

	logger.Info().
		Str("slug", slug).
		Str("from", string(from)).
		Str("to", string(target)).
		Msg("抽奖状态变更")

	change := &StatusChange{Raffle: raffle, From: string(from), To: string(target)}
	switch target {
	case models.RaffleClosed:
		change.Redirect = "/admin/raffles/" + slug + "/draw"
	case models.RaffleDrawn:
		change.Redirect = "/admin/raffles/" + slug + "/winners"
	}
	return change, nil
}

// EntryRow 后台报名列表行
type EntryRow struct {
	models.RaffleEntry
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// ListEntries 后台报名列表
func (s *RaffleService) ListEntries(slug string) ([]EntryRow, error) {
	raffle, err := repository.NewRaffleRepository(s.db).GetBySlug(slug)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrRaffleNotFound
		}
		return nil, err
	}

	entries, err := repository.NewEntryRepository(s.db).ListByRaffle(raffle.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	users := map[string]models.User{}
	if len(ids) > 0 {
		if users, err = repository.NewUserRepository(s.db).GetByIDs(ids); err != nil {
			return nil, err
		}
	}

	rows := make([]EntryRow, 0, len(entries))
	for _, e := range entries {
		u := users[e.UserID]
		rows = append(rows, EntryRow{RaffleEntry: e, Email: u.Email, FullName: u.FullName})
	}
	return rows, nil
}
