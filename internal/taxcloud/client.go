// Package taxcloud TaxCloud v3 API 客户端
package taxcloud

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smysle/raffle-storefront-go/internal/config"
)

// TICShipping 运费的税码
const TICShipping = 11010

// Client TaxCloud API 客户端
type Client struct {
	connectionID string
	httpClient   *resty.Client
}

// NewClient 创建 TaxCloud 客户端
func NewClient(cfg config.TaxCloudConfig) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)
	client.SetRetryCount(0)
	client.SetHeader("X-API-KEY", cfg.APIKey)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		connectionID: cfg.ConnectionID,
		httpClient:   client,
	}
}

// Address 地址，邮编只取前 5 位
type Address struct {
	Line1 string `json:"line1"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

// LineTax 行税额
type LineTax struct {
	Amount float64 `json:"amount"`
	Rate   float64 `json:"rate"`
}

// LineItem 购物车行
type LineItem struct {
	Index    int      `json:"index"`
	ItemID   string   `json:"itemId"`
	Price    float64  `json:"price"`
	Quantity int      `json:"quantity"`
	TIC      int      `json:"tic"`
	Tax      *LineTax `json:"tax,omitempty"`
}

// Cart 购物车
type Cart struct {
	CartID      string                 `json:"cartId"`
	CustomerID  string                 `json:"customerId"`
	Currency    map[string]interface{} `json:"currency"`
	Origin      Address                `json:"origin"`
	Destination Address                `json:"destination"`
	LineItems   []LineItem             `json:"lineItems"`
}

// CartRequest 创建购物车请求
type CartRequest struct {
	Items []Cart `json:"items"`
}

// CartResponse 创建购物车响应
type CartResponse struct {
	Items []Cart `json:"items"`
}

// APIError TaxCloud 返回的错误
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case 401:
		return "Invalid TaxCloud API credentials. Check TAXCLOUD_CONNECTION_ID and TAXCLOUD_API_KEY"
	case 400:
		return "Invalid request: " + e.Body
	}
	return fmt.Sprintf("TaxCloud API returned %d: %s", e.StatusCode, e.Body)
}

// CreateCart 创建购物车并返回逐行税额
func (c *Client) CreateCart(ctx context.Context, req *CartRequest) (*CartResponse, error) {
	var result CartResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("connectionID", c.connectionID).
		SetBody(req).
		SetResult(&result).
		Post("/tax/connections/{connectionID}/carts")
	if err != nil {
		return nil, fmt.Errorf("Tax calculation service unavailable: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	if len(result.Items) == 0 {
		return nil, fmt.Errorf("Invalid TaxCloud response structure")
	}
	return &result, nil
}
