package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/shipstation"
)

// fakeShipStation 按承运商返回预设报价
type fakeShipStation struct {
	mu       sync.Mutex
	rates    map[string][]shipstation.Rate
	errs     map[string]error
	requests []*shipstation.RateRequest
}

func (f *fakeShipStation) GetRates(_ context.Context, req *shipstation.RateRequest) ([]shipstation.Rate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err := f.errs[req.CarrierCode]; err != nil {
		return nil, err
	}
	return f.rates[req.CarrierCode], nil
}

func shippingConfig() *config.Config {
	cfg := testConfig()
	cfg.ShipStation.APIKey = "key"
	cfg.ShipStation.APISecret = "secret"
	return cfg
}

func ratesRequest() *RatesRequest {
	return &RatesRequest{
		Items: []ShippingItem{
			{ProductID: "p1", Quantity: 2, Weight: 1.5},
			{ProductID: "p2", Quantity: 1},
		},
		ShippingAddress: &Address{City: "Austin", State: "TX", ZipCode: "73301"},
	}
}

func TestShippingService_GetRates(t *testing.T) {
	client := &fakeShipStation{rates: map[string][]shipstation.Rate{
		"stamps_com": {
			{ServiceName: "USPS Ground Advantage", ServiceCode: "usps_ground_advantage", ShipmentCost: 8.5, OtherCost: 0.25},
			{ServiceName: "USPS Ground Advantage", ServiceCode: "usps_ground_advantage", ShipmentCost: 9.5},
			{ServiceName: "USPS Media Mail", ServiceCode: "usps_media_mail", ShipmentCost: 4},
			{ServiceName: "USPS Priority Mail", ServiceCode: "usps_priority_mail", ShipmentCost: 0},
		},
		"ups": {
			{ServiceName: "UPS Ground", ServiceCode: "ups_ground", ShipmentCost: 12},
			{ServiceName: "UPS Next Day Air", ServiceCode: "ups_next_day_air", ShipmentCost: 45.1},
		},
	}}
	svc := NewShippingService(shippingConfig(), client)

	result, err := svc.GetRates(context.Background(), ratesRequest())
	if err != nil {
		t.Fatalf("GetRates() 出错: %v", err)
	}

	want := []struct {
		id    string
		cents int64
	}{
		{"stamps_com_usps_ground_advantage", 875},
		{"ups_ups_ground", 1200},
		{"ups_ups_next_day_air", 4510},
	}
	if len(result.Rates) != len(want) {
		t.Fatalf("报价数量 = %d, want %d: %+v", len(result.Rates), len(want), result.Rates)
	}
	for i, w := range want {
		if result.Rates[i].ID != w.id || result.Rates[i].AmountCents != w.cents {
			t.Errorf("第 %d 条报价 = %s/%d, want %s/%d", i, result.Rates[i].ID, result.Rates[i].AmountCents, w.id, w.cents)
		}
	}
	if result.Rates[0].Carrier != "USPS" || result.Rates[0].DeliveryDays != "2-5" {
		t.Errorf("承运商名称或时效不正确: %+v", result.Rates[0])
	}

	// 2*1.5 + 1*默认 1 磅
	if result.TotalWeight != 4 {
		t.Errorf("TotalWeight = %v, want 4", result.TotalWeight)
	}
	if len(client.requests) != 2 {
		t.Errorf("应该向 2 个承运商询价，实际 %d 次", len(client.requests))
	}
	if req := client.requests[0]; req.ToCountry != "US" || req.FromPostalCode != "93065" || req.Dimensions.Length != 12 {
		t.Errorf("询价请求不正确: %+v", req)
	}
}

func TestShippingService_GetRates_Errors(t *testing.T) {
	upstream := errors.New("ShipStation API error: 500")

	tests := []struct {
		name   string
		cfg    *config.Config
		client *fakeShipStation
		req    *RatesRequest
		want   error
	}{
		{
			name:   "未配置",
			cfg:    testConfig(),
			client: &fakeShipStation{},
			req:    ratesRequest(),
			want:   ErrShippingNotConfigured,
		},
		{
			name: "没有承运商",
			cfg: func() *config.Config {
				cfg := shippingConfig()
				cfg.ShipStation.Carriers = nil
				return cfg
			}(),
			client: &fakeShipStation{},
			req:    ratesRequest(),
			want:   ErrShippingNotConfigured,
		},
		{
			name:   "缺少邮编",
			cfg:    shippingConfig(),
			client: &fakeShipStation{},
			req:    &RatesRequest{Items: []ShippingItem{{Quantity: 1}}, ShippingAddress: &Address{State: "TX"}},
			want:   ErrInvalidShippingRequest,
		},
		{
			name:   "所有承运商都失败",
			cfg:    shippingConfig(),
			client: &fakeShipStation{errs: map[string]error{"stamps_com": upstream, "ups": upstream}},
			req:    ratesRequest(),
			want:   ErrShippingUpstream,
		},
		{
			name: "只有不支持的服务",
			cfg:  shippingConfig(),
			client: &fakeShipStation{
				errs:  map[string]error{"ups": upstream},
				rates: map[string][]shipstation.Rate{"stamps_com": {{ServiceCode: "usps_media_mail", ShipmentCost: 4}}},
			},
			req:  ratesRequest(),
			want: ErrNoShippingRates,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewShippingService(tt.cfg, tt.client)
			if _, err := svc.GetRates(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("GetRates() 错误 = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestShippingService_GetRates_PartialFailure(t *testing.T) {
	client := &fakeShipStation{
		errs:  map[string]error{"ups": errors.New("timeout")},
		rates: map[string][]shipstation.Rate{"stamps_com": {{ServiceName: "USPS Priority Mail", ServiceCode: "usps_priority_mail", ShipmentCost: 11}}},
	}
	svc := NewShippingService(shippingConfig(), client)

	result, err := svc.GetRates(context.Background(), ratesRequest())
	if err != nil {
		t.Fatalf("部分承运商失败时仍应该返回报价: %v", err)
	}
	if len(result.Rates) != 1 || result.Rates[0].Carrier != "USPS" {
		t.Errorf("报价不正确: %+v", result.Rates)
	}
}
