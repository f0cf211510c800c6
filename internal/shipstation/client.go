// Package shipstation ShipStation V1 API 客户端
package shipstation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smysle/raffle-storefront-go/internal/config"
)

// Client ShipStation API 客户端
type Client struct {
	httpClient *resty.Client
}

// NewClient 创建 ShipStation 客户端
func NewClient(cfg config.ShipStationConfig) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetBasicAuth(cfg.APIKey, cfg.APISecret)
	client.SetTimeout(20 * time.Second)
	client.SetRetryCount(0)
	client.SetHeader("Content-Type", "application/json")

	return &Client{httpClient: client}
}

// Weight 重量
type Weight struct {
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

// Dimensions 包裹尺寸
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Units  string  `json:"units"`
}

// RateRequest getrates 请求
type RateRequest struct {
	CarrierCode    string      `json:"carrierCode"`
	ServiceCode    *string     `json:"serviceCode"`
	PackageCode    string      `json:"packageCode"`
	FromPostalCode string      `json:"fromPostalCode"`
	ToState        string      `json:"toState"`
	ToCountry      string      `json:"toCountry"`
	ToPostalCode   string      `json:"toPostalCode"`
	ToCity         string      `json:"toCity"`
	Weight         Weight      `json:"weight"`
	Dimensions     *Dimensions `json:"dimensions,omitempty"`
	Confirmation   string      `json:"confirmation"`
	Residential    bool        `json:"residential"`
}

// Rate 单个服务报价
type Rate struct {
	ServiceName  string  `json:"serviceName"`
	ServiceCode  string  `json:"serviceCode"`
	ShipmentCost float64 `json:"shipmentCost"`
	OtherCost    float64 `json:"otherCost"`
}

// Total 运费合计
func (r Rate) Total() float64 {
	return r.ShipmentCost + r.OtherCost
}

// APIError ShipStation 返回的错误
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"Message"`
	Body       string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("shipstation: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("shipstation: %d: %s", e.StatusCode, e.Body)
}

// GetRates 查询某承运商的所有服务报价
func (c *Client) GetRates(ctx context.Context, req *RateRequest) ([]Rate, error) {
	var rates []Rate
	var apiErr APIError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&rates).
		SetError(&apiErr).
		Post("/shipments/getrates")
	if err != nil {
		return nil, fmt.Errorf("请求 ShipStation 报价失败: %w", err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		apiErr.Body = resp.String()
		return nil, &apiErr
	}
	return rates, nil
}
