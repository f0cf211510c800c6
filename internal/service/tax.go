package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/database"
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/database/repository"
	"github.com/smysle/raffle-storefront-go/internal/taxcloud"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
	"github.com/smysle/raffle-storefront-go/pkg/utils"
	"gorm.io/gorm"
)

var ErrInvalidTaxRequest = errors.New("invalid tax request")

const taxSettingsCacheKey = "tax:settings"

// TaxFallbackMessage 税费计算失败时给结账页面的提示
const TaxFallbackMessage = "Tax could not be calculated. You may proceed with checkout."

// TaxCalculator TaxCloud 购物车接口
type TaxCalculator interface {
	CreateCart(ctx context.Context, req *taxcloud.CartRequest) (*taxcloud.CartResponse, error)
}

// TaxService 销售税计算
type TaxService struct {
	db     *gorm.DB
	cfg    *config.Config
	client TaxCalculator
	now    Clock
}

// NewTaxService 创建税费服务，client 为 nil 表示未配置 TaxCloud
func NewTaxService(db *gorm.DB, cfg *config.Config, client TaxCalculator) *TaxService {
	return &TaxService{db: db, cfg: cfg, client: client, now: utcNow}
}

// TaxItem 计税商品，价格单位为美元
type TaxItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	TaxCode  string  `json:"tax_code,omitempty"`
}

// Address 收货地址
type Address struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country,omitempty"`
}

// TaxRequest 计税请求
type TaxRequest struct {
	Items           []TaxItem `json:"items"`
	ShippingAddress *Address  `json:"shipping_address"`
	ShippingAmount  float64   `json:"shipping_amount"`
	CustomerID      string    `json:"customer_id,omitempty"`
}

// TaxLine 逐项税额
type TaxLine struct {
	ItemID    string  `json:"item_id"`
	TaxAmount float64 `json:"tax_amount"`
	TaxRate   float64 `json:"tax_rate"`
}

// TaxResult 计税结果，失败时税额为 0 且 Success 为 false
type TaxResult struct {
	Success      bool      `json:"success"`
	Enabled      bool      `json:"enabled"`
	Provider     string    `json:"provider,omitempty"`
	TotalTax     float64   `json:"total_tax"`
	TaxRate      float64   `json:"tax_rate"`
	Breakdown    []TaxLine `json:"breakdown,omitempty"`
	CartID       string    `json:"cart_id,omitempty"`
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
	TaxExempt    bool      `json:"tax_exempt,omitempty"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// Validate 校验请求
func (r *TaxRequest) Validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: Items are required for tax calculation", ErrInvalidTaxRequest)
	}
	if r.ShippingAddress == nil || strings.TrimSpace(r.ShippingAddress.State) == "" || strings.TrimSpace(r.ShippingAddress.ZipCode) == "" {
		return fmt.Errorf("%w: Valid shipping address with state and zip code is required", ErrInvalidTaxRequest)
	}
	for _, it := range r.Items {
		if it.Quantity <= 0 || it.Price < 0 {
			return fmt.Errorf("%w: item %q has invalid price or quantity", ErrInvalidTaxRequest, it.ID)
		}
	}
	return nil
}

// Calculate 计算税费，除参数错误外从不返回错误
func (s *TaxService) Calculate(ctx context.Context, req *TaxRequest) (*TaxResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.now()

	if s.client == nil || !s.cfg.TaxCloudConfigured() {
		return &TaxResult{Success: true, Message: "Tax calculation is not configured", CalculatedAt: now}, nil
	}

	settings := s.settings()
	if !settings.Enabled {
		return &TaxResult{Success: true, Message: "Tax calculation is disabled", CalculatedAt: now}, nil
	}

	state := strings.ToUpper(strings.TrimSpace(req.ShippingAddress.State))
	if !settings.IsStateTaxable(state) {
		return &TaxResult{
			Success:      true,
			Enabled:      true,
			Message:      "No tax collected for " + state,
			TaxExempt:    true,
			CalculatedAt: now,
		}, nil
	}

	result, err := s.calculateWithTaxCloud(ctx, req, settings)
	if err != nil {
		logger.Warn().Err(err).Str("state", state).Msg("税费计算失败，返回零税额")
		return &TaxResult{
			Success:      false,
			Enabled:      true,
			Error:        err.Error(),
			Message:      TaxFallbackMessage,
			CalculatedAt: now,
		}, nil
	}
	result.CalculatedAt = now
	return result, nil
}

func (s *TaxService) calculateWithTaxCloud(ctx context.Context, req *TaxRequest, settings *models.TaxSettings) (*TaxResult, error) {
	origin := taxcloud.Address{
		Line1: firstNonEmpty(settings.OriginLine1, s.cfg.ShipStation.FromAddress),
		City:  firstNonEmpty(settings.OriginCity, s.cfg.ShipStation.FromCity),
		State: firstNonEmpty(settings.OriginState, s.cfg.ShipStation.FromState),
		Zip:   zip5(firstNonEmpty(settings.OriginZip, s.cfg.ShipStation.FromPostalCode)),
	}
	if origin.Line1 == "" || origin.City == "" || origin.State == "" || origin.Zip == "" {
		return nil, errors.New("Origin address not configured")
	}

	lines := make([]taxcloud.LineItem, 0, len(req.Items)+1)
	for i, it := range req.Items {
		tic, _ := strconv.Atoi(it.TaxCode)
		lines = append(lines, taxcloud.LineItem{
			Index:    i,
			ItemID:   it.ID,
			Price:    it.Price,
			Quantity: it.Quantity,
			TIC:      tic,
		})
	}
	if req.ShippingAmount > 0 && settings.TaxShipping {
		lines = append(lines, taxcloud.LineItem{
			Index:    len(lines),
			ItemID:   "SHIPPING",
			Price:    req.ShippingAmount,
			Quantity: 1,
			TIC:      taxcloud.TICShipping,
		})
	}

	customerID := req.CustomerID
	if customerID == "" {
		customerID = "guest"
	}
	cartID := "cart-" + uuid.New().String()

	timeout := time.Duration(s.cfg.TaxCloud.TimeoutSeconds) * time.Second
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.client.CreateCart(callCtx, &taxcloud.CartRequest{
		Items: []taxcloud.Cart{{
			CartID:     cartID,
			CustomerID: customerID,
			Currency:   map[string]interface{}{},
			Origin:     origin,
			Destination: taxcloud.Address{
				Line1: req.ShippingAddress.Address,
				City:  req.ShippingAddress.City,
				State: strings.ToUpper(req.ShippingAddress.State),
				Zip:   zip5(req.ShippingAddress.ZipCode),
			},
			LineItems: lines,
		}},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, errors.New("empty TaxCloud cart response")
	}

	known := make(map[string]bool, len(req.Items))
	for _, it := range req.Items {
		known[it.ID] = true
	}

	var totalTax, totalAmount float64
	breakdown := []TaxLine{}
	for _, li := range resp.Items[0].LineItems {
		var tax, rate float64
		if li.Tax != nil {
			tax, rate = li.Tax.Amount, li.Tax.Rate
		}
		totalTax += tax
		totalAmount += li.Price * float64(li.Quantity)

		if li.ItemID == "SHIPPING" {
			if tax > 0 {
				breakdown = append(breakdown, TaxLine{ItemID: "SHIPPING", TaxAmount: round(tax, 2), TaxRate: rate})
			}
		} else if known[li.ItemID] {
			breakdown = append(breakdown, TaxLine{ItemID: li.ItemID, TaxAmount: round(tax, 2), TaxRate: rate})
		}
	}

	var effective float64
	if totalAmount > 0 {
		effective = totalTax / totalAmount
	}
	return &TaxResult{
		Success:   true,
		Enabled:   true,
		Provider:  "TaxCloud v3",
		TotalTax:  round(totalTax, 2),
		TaxRate:   round(effective, 6),
		Breakdown: breakdown,
		CartID:    cartID,
	}, nil
}

// TaxStatus 税费配置状态
type TaxStatus struct {
	Configured bool     `json:"configured"`
	Enabled    bool     `json:"enabled"`
	Provider   string   `json:"provider,omitempty"`
	States     []string `json:"states,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// Status 返回税费配置状态
func (s *TaxService) Status() *TaxStatus {
	settings, err := repository.NewTaxSettingsRepository(s.db).Get()
	if err != nil || s.client == nil || !s.cfg.TaxCloudConfigured() {
		return &TaxStatus{Message: "Tax settings not configured"}
	}
	states := settings.EnabledStates()
	if states == nil {
		states = []string{}
	}
	return &TaxStatus{
		Configured: true,
		Enabled:    settings.Enabled,
		Provider:   "taxcloud_v3",
		States:     states,
	}
}

// settings 读取税费设置（缓存 5 分钟），没有记录时默认启用
func (s *TaxService) settings() *models.TaxSettings {
	val, err := utils.CacheGetOrSet(taxSettingsCacheKey, 5*time.Minute, func() (interface{}, error) {
		settings, err := repository.NewTaxSettingsRepository(s.db).Get()
		if err != nil {
			if database.IsNotFound(err) {
				return &models.TaxSettings{Enabled: true, TaxShipping: true}, nil
			}
			return nil, err
		}
		return settings, nil
	})
	if err != nil {
		logger.Warn().Err(err).Msg("读取税费设置失败，使用默认设置")
		return &models.TaxSettings{Enabled: true, TaxShipping: true}
	}
	return val.(*models.TaxSettings)
}

// InvalidateTaxSettings 清除税费设置缓存
func InvalidateTaxSettings() {
	utils.CacheDelete(taxSettingsCacheKey)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func zip5(zip string) string {
	zip = strings.TrimSpace(zip)
	if len(zip) > 5 {
		return zip[:5]
	}
	return zip
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
