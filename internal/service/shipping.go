package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/shipstation"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
	"github.com/smysle/raffle-storefront-go/pkg/utils"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidShippingRequest = errors.New("invalid shipping request")
	ErrShippingNotConfigured  = errors.New("ShipStation API not configured. Please set SHIPSTATION_API_KEY_V1 and SHIPSTATION_API_SECRET_V1")
	ErrNoShippingRates        = errors.New("No shipping rates available for this destination")
	ErrShippingUpstream       = errors.New("Unable to get shipping rates from ShipStation")
)

// 保留的服务及预计送达天数
var shippingServices = map[string]string{
	"usps_ground_advantage":      "2-5",
	"usps_priority_mail":         "1-3",
	"usps_priority_mail_express": "1-2",
	"ups_ground":                 "1-5",
	"ups_2nd_day_air":            "2",
	"ups_next_day_air":           "1",
}

var carrierNames = map[string]string{
	"stamps_com":   "USPS",
	"usps":         "USPS",
	"ups":          "UPS",
	"ups_walleted": "UPS",
	"fedex":        "FedEx",
}

const (
	defaultItemWeightLbs = 1.0
	minPackageWeightLbs  = 0.1
)

// RateFetcher ShipStation 报价接口
type RateFetcher interface {
	GetRates(ctx context.Context, req *shipstation.RateRequest) ([]shipstation.Rate, error)
}

// ShippingService 运费报价
type ShippingService struct {
	cfg    *config.Config
	client RateFetcher
}

// NewShippingService 创建运费服务，client 为 nil 表示未配置
func NewShippingService(cfg *config.Config, client RateFetcher) *ShippingService {
	return &ShippingService{cfg: cfg, client: client}
}

// PackageDimensions 商品尺寸（英寸）
type PackageDimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ShippingItem 待发货商品，重量单位为磅
type ShippingItem struct {
	ProductID   string             `json:"product_id"`
	ProductName string             `json:"product_name"`
	Quantity    int                `json:"quantity"`
	Weight      float64            `json:"weight,omitempty"`
	Dimensions  *PackageDimensions `json:"dimensions,omitempty"`
}

// RatesRequest 报价请求
type RatesRequest struct {
	Items           []ShippingItem `json:"items"`
	ShippingAddress *Address       `json:"shipping_address"`
}

// ShippingRate 单条报价
type ShippingRate struct {
	ID                string  `json:"id"`
	Carrier           string  `json:"carrier"`
	Service           string  `json:"service"`
	ServiceCode       string  `json:"service_code"`
	Amount            float64 `json:"amount"`
	AmountCents       int64   `json:"amount_cents"`
	Currency          string  `json:"currency"`
	DeliveryDays      string  `json:"delivery_days,omitempty"`
	TrackingAvailable bool    `json:"tracking_available"`
}

// ShipPoint 发货地或收货地
type ShipPoint struct {
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	State      string `json:"state"`
}

// RatesResult 报价结果
type RatesResult struct {
	Success      bool           `json:"success"`
	Rates        []ShippingRate `json:"rates"`
	ShipFrom     ShipPoint      `json:"ship_from"`
	ShipTo       ShipPoint      `json:"ship_to"`
	TotalWeight  float64        `json:"total_weight"`
	PackageCount int            `json:"package_count"`
}

// Validate 校验请求
func (r *RatesRequest) Validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: Items are required", ErrInvalidShippingRequest)
	}
	if r.ShippingAddress == nil {
		return fmt.Errorf("%w: Shipping address is required", ErrInvalidShippingRequest)
	}
	if strings.TrimSpace(r.ShippingAddress.ZipCode) == "" {
		return fmt.Errorf("%w: Shipping address zip code is required", ErrInvalidShippingRequest)
	}
	for _, it := range r.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %q has invalid quantity", ErrInvalidShippingRequest, it.ProductID)
		}
	}
	return nil
}

// packageFor 合并成一个包裹：重量累加，长宽取最大，高度叠放
func packageFor(items []ShippingItem) (float64, shipstation.Dimensions) {
	var weight, length, width, height float64
	for _, it := range items {
		w := it.Weight
		if w <= 0 {
			w = defaultItemWeightLbs
		}
		weight += w * float64(it.Quantity)

		if it.Dimensions != nil {
			length = math.Max(length, it.Dimensions.Length)
			width = math.Max(width, it.Dimensions.Width)
			height += it.Dimensions.Height * float64(it.Quantity)
		}
	}
	if length == 0 {
		length, width, height = 12, 12, 6
	}
	return weight, shipstation.Dimensions{Length: length, Width: width, Height: height, Units: "inches"}
}

// GetRates 并发查询各承运商报价，过滤、去重后按价格排序
func (s *ShippingService) GetRates(ctx context.Context, req *RatesRequest) (*RatesResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.client == nil || !s.cfg.ShipStationConfigured() {
		return nil, ErrShippingNotConfigured
	}

	weight, dims := packageFor(req.Items)
	country := req.ShippingAddress.Country
	if country == "" {
		country = "US"
	}

	carriers := s.cfg.ShipStation.Carriers
	results := make([][]shipstation.Rate, len(carriers))
	failures := make([]error, len(carriers))

	g, gctx := errgroup.WithContext(ctx)
	for i, carrier := range carriers {
		i, carrier := i, carrier
		g.Go(func() error {
			rates, err := s.client.GetRates(gctx, &shipstation.RateRequest{
				CarrierCode:    carrier,
				PackageCode:    "package",
				FromPostalCode: s.cfg.ShipStation.FromPostalCode,
				ToState:        req.ShippingAddress.State,
				ToCountry:      country,
				ToPostalCode:   req.ShippingAddress.ZipCode,
				ToCity:         req.ShippingAddress.City,
				Weight:         shipstation.Weight{Value: math.Max(weight, minPackageWeightLbs), Units: "pounds"},
				Dimensions:     &dims,
				Confirmation:   "none",
				Residential:    true,
			})
			if err != nil {
				// 单个承运商失败不影响其他承运商
				logger.Warn().Err(err).Str("carrier", carrier).Msg("ShipStation 报价失败")
				failures[i] = err
				return nil
			}
			results[i] = rates
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range failures {
		if err != nil {
			failed++
		}
	}
	if failed == len(carriers) {
		return nil, ErrShippingUpstream
	}

	rates := normalizeRates(carriers, results)
	if len(rates) == 0 {
		return nil, ErrNoShippingRates
	}

	return &RatesResult{
		Success: true,
		Rates:   rates,
		ShipFrom: ShipPoint{
			PostalCode: s.cfg.ShipStation.FromPostalCode,
			City:       s.cfg.ShipStation.FromCity,
			State:      s.cfg.ShipStation.FromState,
		},
		ShipTo: ShipPoint{
			PostalCode: req.ShippingAddress.ZipCode,
			City:       req.ShippingAddress.City,
			State:      req.ShippingAddress.State,
		},
		TotalWeight:  weight,
		PackageCount: 1,
	}, nil
}

// normalizeRates 只保留白名单服务，去掉 0 元报价，同一承运商服务保留最便宜的一条
func normalizeRates(carriers []string, results [][]shipstation.Rate) []ShippingRate {
	best := make(map[string]ShippingRate)
	for i, rates := range results {
		carrier := carrierNames[carriers[i]]
		if carrier == "" {
			carrier = strings.ToUpper(carriers[i])
		}
		for _, r := range rates {
			days, wanted := shippingServices[r.ServiceCode]
			if !wanted {
				continue
			}
			amount := round(r.Total(), 2)
			if amount <= 0 {
				continue
			}
			service := r.ServiceName
			if service == "" {
				service = "Standard"
			}
			rate := ShippingRate{
				ID:                carriers[i] + "_" + r.ServiceCode,
				Carrier:           carrier,
				Service:           service,
				ServiceCode:       r.ServiceCode,
				Amount:            amount,
				AmountCents:       utils.DollarsToCents(amount),
				Currency:          "USD",
				DeliveryDays:      days,
				TrackingAvailable: true,
			}
			key := carrier + "-" + service
			if cur, ok := best[key]; !ok || rate.Amount < cur.Amount {
				best[key] = rate
			}
		}
	}

	out := make([]ShippingRate, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount == out[j].Amount {
			return out[i].ID < out[j].ID
		}
		return out[i].Amount < out[j].Amount
	})
	return out
}
