// Package paypal PayPal Orders v2 API 客户端
package paypal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smysle/raffle-storefront-go/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Client PayPal API 客户端
type Client struct {
	baseURL    string
	webhookID  string
	httpClient *resty.Client
}

// NewClient 创建 PayPal 客户端，访问令牌由 oauth2 客户端凭据模式自动获取和续期
func NewClient(cfg config.PayPalConfig) *Client {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.BaseURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: 15 * time.Second})
	client := resty.NewWithClient(cc.Client(tokenCtx))
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(0)
	client.SetHeader("Content-Type", "application/json")

	return &Client{
		baseURL:    cfg.BaseURL,
		webhookID:  cfg.WebhookID,
		httpClient: client,
	}
}

// APIError PayPal 返回的错误
type APIError struct {
	StatusCode int    `json:"-"`
	Name       string `json:"name"`
	Message    string `json:"message"`
	DebugID    string `json:"debug_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: %d %s: %s", e.StatusCode, e.Name, e.Message)
}

// Money 金额
type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// Breakdown 金额明细
type Breakdown struct {
	ItemTotal Money `json:"item_total"`
	Shipping  Money `json:"shipping"`
	TaxTotal  Money `json:"tax_total"`
}

// Amount 订单金额
type Amount struct {
	Money
	Breakdown *Breakdown `json:"breakdown,omitempty"`
}

// Item 订单商品
type Item struct {
	Name       string `json:"name"`
	UnitAmount Money  `json:"unit_amount"`
	Quantity   string `json:"quantity"`
}

// PurchaseUnit 购买单元
type PurchaseUnit struct {
	ReferenceID string   `json:"reference_id,omitempty"`
	CustomID    string   `json:"custom_id,omitempty"`
	Amount      Amount   `json:"amount"`
	Items       []Item   `json:"items,omitempty"`
	Payments    *Payment `json:"payments,omitempty"`
}

// ApplicationContext 结账页面配置
type ApplicationContext struct {
	ReturnURL          string `json:"return_url,omitempty"`
	CancelURL          string `json:"cancel_url,omitempty"`
	ShippingPreference string `json:"shipping_preference,omitempty"`
	UserAction         string `json:"user_action,omitempty"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Intent             string              `json:"intent"`
	PurchaseUnits      []PurchaseUnit      `json:"purchase_units"`
	ApplicationContext *ApplicationContext `json:"application_context,omitempty"`
}

// Capture 扣款记录
type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount Money  `json:"amount"`
}

// Payment 扣款集合
type Payment struct {
	Captures []Capture `json:"captures"`
}

// Link HATEOAS 链接
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// Payer 付款人
type Payer struct {
	PayerID      string `json:"payer_id"`
	EmailAddress string `json:"email_address"`
}

// Order PayPal 订单
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	Payer         *Payer         `json:"payer,omitempty"`
	Links         []Link         `json:"links"`
}

// ApproveURL 买家授权地址
func (o *Order) ApproveURL() string {
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

// FirstCapture 第一笔扣款
func (o *Order) FirstCapture() *Capture {
	for _, pu := range o.PurchaseUnits {
		if pu.Payments != nil && len(pu.Payments.Captures) > 0 {
			return &pu.Payments.Captures[0]
		}
	}
	return nil
}

// CreateOrder 创建订单
func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error) {
	var order Order
	var apiErr APIError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&order).
		SetError(&apiErr).
		Post("/v2/checkout/orders")
	if err != nil {
		return nil, fmt.Errorf("创建 PayPal 订单失败: %w", err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		return nil, &apiErr
	}
	return &order, nil
}

// CaptureOrder 扣款
func (c *Client) CaptureOrder(ctx context.Context, paypalOrderID string) (*Order, error) {
	var order Order
	var apiErr APIError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", paypalOrderID).
		SetBody(map[string]interface{}{}).
		SetResult(&order).
		SetError(&apiErr).
		Post("/v2/checkout/orders/{id}/capture")
	if err != nil {
		return nil, fmt.Errorf("PayPal 扣款失败: %w", err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		return nil, &apiErr
	}
	return &order, nil
}

// WebhookHeaders 验签所需的请求头
type WebhookHeaders struct {
	TransmissionID   string
	TransmissionTime string
	TransmissionSig  string
	CertURL          string
	AuthAlgo         string
}

// VerifyWebhookSignature 调用 PayPal 验证 Webhook 签名
func (c *Client) VerifyWebhookSignature(ctx context.Context, h WebhookHeaders, body []byte) (bool, error) {
	if c.webhookID == "" {
		return false, fmt.Errorf("未配置 PayPal webhook id")
	}

	payload := map[string]interface{}{
		"transmission_id":   h.TransmissionID,
		"transmission_time": h.TransmissionTime,
		"transmission_sig":  h.TransmissionSig,
		"cert_url":          h.CertURL,
		"auth_algo":         h.AuthAlgo,
		"webhook_id":        c.webhookID,
		"webhook_event":     rawJSON(body),
	}

	var result struct {
		VerificationStatus string `json:"verification_status"`
	}
	var apiErr APIError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		SetError(&apiErr).
		Post("/v1/notifications/verify-webhook-signature")
	if err != nil {
		return false, fmt.Errorf("验证 webhook 签名失败: %w", err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		return false, &apiErr
	}
	return result.VerificationStatus == "SUCCESS", nil
}

// rawJSON 原样嵌入已序列化的 JSON
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}
