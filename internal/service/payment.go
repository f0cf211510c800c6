package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/database"
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/database/repository"
	"github.com/smysle/raffle-storefront-go/internal/paypal"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
	"github.com/smysle/raffle-storefront-go/pkg/utils"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderNotPayable       = errors.New("order is not awaiting payment")
	ErrInvalidPayment        = errors.New("invalid payment request")
	ErrPaymentsNotConfigured = errors.New("payments are not configured")
	ErrPaymentUpstream       = errors.New("payment provider request failed")
	ErrInvalidWebhook        = errors.New("invalid webhook payload")
	ErrWebhookSignature      = errors.New("invalid webhook signature")
)

// PayPalAPI PayPal 接口
type PayPalAPI interface {
	CreateOrder(ctx context.Context, req *paypal.CreateOrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, paypalOrderID string) (*paypal.Order, error)
	VerifyWebhookSignature(ctx context.Context, h paypal.WebhookHeaders, body []byte) (bool, error)
}

// PaymentService 订单支付
type PaymentService struct {
	db     *gorm.DB
	cfg    *config.Config
	client PayPalAPI
	now    Clock
}

// NewPaymentService 创建支付服务，client 为 nil 表示未配置 PayPal
func NewPaymentService(db *gorm.DB, cfg *config.Config, client PayPalAPI) *PaymentService {
	return &PaymentService{db: db, cfg: cfg, client: client, now: utcNow}
}

// CreatePaymentRequest 为本地订单创建 PayPal 订单
type CreatePaymentRequest struct {
	OrderID       uint  `json:"order_id"`
	ShippingCents int64 `json:"shipping_cents"`
	TaxCents      int64 `json:"tax_cents"`
}

// CreatePaymentResult 创建结果
type CreatePaymentResult struct {
	OrderID       uint   `json:"order_id"`
	PayPalOrderID string `json:"paypal_order_id"`
	Status        string `json:"status"`
	ApproveURL    string `json:"approve_url,omitempty"`
	TotalCents    int64  `json:"total_cents"`
}

// CreatePayPalOrder 按订单明细创建 PayPal 订单，运费和税费由结账页面给出
func (s *PaymentService) CreatePayPalOrder(ctx context.Context, userID string, req *CreatePaymentRequest) (*CreatePaymentResult, error) {
	if s.client == nil {
		return nil, ErrPaymentsNotConfigured
	}
	if req.OrderID == 0 || req.ShippingCents < 0 || req.TaxCents < 0 {
		return nil, ErrInvalidPayment
	}

	orderRepo := repository.NewOrderRepository(s.db)
	order, err := orderRepo.GetByID(req.OrderID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if !order.IsPayable() {
		return nil, ErrOrderNotPayable
	}

	currency := order.Currency
	if currency == "" {
		currency = s.cfg.PayPal.Currency
	}

	var subtotal int64
	items := make([]paypal.Item, 0, len(order.Items))
	for _, it := range order.Items {
		subtotal += it.UnitPriceCents * int64(it.Quantity)
		items = append(items, paypal.Item{
			Name:       it.Name,
			UnitAmount: money(currency, it.UnitPriceCents),
			Quantity:   strconv.Itoa(it.Quantity),
		})
	}
	total := subtotal + req.ShippingCents + req.TaxCents

	ppReq := &paypal.CreateOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypal.PurchaseUnit{{
			ReferenceID: order.OrderNumber,
			CustomID:    strconv.FormatUint(uint64(order.ID), 10),
			Amount: paypal.Amount{
				Money: money(currency, total),
				Breakdown: &paypal.Breakdown{
					ItemTotal: money(currency, subtotal),
					Shipping:  money(currency, req.ShippingCents),
					TaxTotal:  money(currency, req.TaxCents),
				},
			},
			Items: items,
		}},
		ApplicationContext: &paypal.ApplicationContext{
			ReturnURL:          s.cfg.SiteURL + "/checkout/success",
			CancelURL:          s.cfg.SiteURL + "/cart",
			ShippingPreference: "SET_PROVIDED_ADDRESS",
			UserAction:         "PAY_NOW",
		},
	}

	ppOrder, err := s.client.CreateOrder(ctx, ppReq)
	if err != nil {
		logger.Error().Err(err).Uint("order_id", order.ID).Msg("创建 PayPal 订单失败")
		return nil, fmt.Errorf("%w: %v", ErrPaymentUpstream, err)
	}

	if err := orderRepo.UpdateAmounts(order.ID, req.ShippingCents, req.TaxCents, total); err != nil {
		return nil, err
	}
	if err := orderRepo.SetPayPalOrder(order.ID, ppOrder.ID, ppOrder.Status); err != nil {
		return nil, err
	}

	logger.Info().
		Uint("order_id", order.ID).
		Str("paypal_order_id", ppOrder.ID).
		Int64("total_cents", total).
		Msg("创建 PayPal 订单")

	return &CreatePaymentResult{
		OrderID:       order.ID,
		PayPalOrderID: ppOrder.ID,
		Status:        ppOrder.Status,
		ApproveURL:    ppOrder.ApproveURL(),
		TotalCents:    total,
	}, nil
}

// CaptureResult 扣款结果
type CaptureResult struct {
	OrderID       uint   `json:"order_id"`
	PayPalOrderID string `json:"paypal_order_id"`
	Status        string `json:"status"`
	CaptureID     string `json:"capture_id,omitempty"`
}

// CaptureOrder 扣款，订单已支付时直接返回当前状态
func (s *PaymentService) CaptureOrder(ctx context.Context, userID, paypalOrderID string) (*CaptureResult, error) {
	if s.client == nil {
		return nil, ErrPaymentsNotConfigured
	}
	if strings.TrimSpace(paypalOrderID) == "" {
		return nil, ErrInvalidPayment
	}

	orderRepo := repository.NewOrderRepository(s.db)
	order, err := orderRepo.GetByPayPalOrderID(paypalOrderID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if order.Status == models.OrderPaid || order.Status == models.OrderCompleted {
		result := &CaptureResult{OrderID: order.ID, PayPalOrderID: paypalOrderID, Status: order.PayPalStatus}
		if order.PayPalCaptureID != nil {
			result.CaptureID = *order.PayPalCaptureID
		}
		return result, nil
	}
	if !order.IsPayable() {
		return nil, ErrOrderNotPayable
	}

	captured, err := s.client.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		logger.Error().Err(err).Str("paypal_order_id", paypalOrderID).Msg("PayPal 扣款失败")
		return nil, fmt.Errorf("%w: %v", ErrPaymentUpstream, err)
	}

	result := &CaptureResult{OrderID: order.ID, PayPalOrderID: paypalOrderID, Status: captured.Status}
	if captured.Status == "COMPLETED" {
		var captureID, payerID string
		if c := captured.FirstCapture(); c != nil {
			captureID = c.ID
		}
		if captured.Payer != nil {
			payerID = captured.Payer.PayerID
		}
		if err := orderRepo.MarkPaid(order.ID, captureID, payerID, captured.Status, s.now()); err != nil {
			return nil, err
		}
		result.CaptureID = captureID
		logger.Info().Uint("order_id", order.ID).Str("capture_id", captureID).Msg("订单支付完成")
	}
	return result, nil
}

// webhookEvent PayPal Webhook 事件
type webhookEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	Summary      string          `json:"summary"`
	Resource     webhookResource `json:"resource"`
}

type webhookResource struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID   string `json:"order_id"`
			CaptureID string `json:"capture_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
	Links []paypal.Link `json:"links"`
}

// orderID 资源关联的 PayPal 订单号
func (r *webhookResource) orderID() string {
	if r.SupplementaryData.RelatedIDs.OrderID != "" {
		return r.SupplementaryData.RelatedIDs.OrderID
	}
	return r.ID
}

// captureID 退款资源通过 rel=up 链接指向原扣款
func (r *webhookResource) captureID() string {
	if r.SupplementaryData.RelatedIDs.CaptureID != "" {
		return r.SupplementaryData.RelatedIDs.CaptureID
	}
	for _, l := range r.Links {
		if l.Rel == "up" {
			if i := strings.LastIndex(l.Href, "/"); i >= 0 {
				return l.Href[i+1:]
			}
		}
	}
	return ""
}

// HandleWebhook 记录事件（按 event id 去重）并同步订单状态
func (s *PaymentService) HandleWebhook(ctx context.Context, headers paypal.WebhookHeaders, body []byte) error {
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.ID == "" || event.EventType == "" {
		return ErrInvalidWebhook
	}

	if s.cfg.PayPal.VerifyWebhooks {
		if s.client == nil {
			return ErrPaymentsNotConfigured
		}
		ok, err := s.client.VerifyWebhookSignature(ctx, headers, body)
		if err != nil || !ok {
			logger.Warn().Err(err).Str("event_id", event.ID).Msg("PayPal webhook 签名无效")
			return ErrWebhookSignature
		}
	}

	eventRepo := repository.NewWebhookEventRepository(s.db)
	err := eventRepo.Create(&models.PayPalWebhookEvent{
		EventID:      event.ID,
		EventType:    event.EventType,
		ResourceType: event.ResourceType,
		ResourceID:   event.Resource.ID,
		Summary:      truncate(event.Summary, 500),
		Payload:      string(body),
		CreatedAt:    s.now(),
	})
	if err != nil {
		if !database.IsDuplicateKey(err) {
			return fmt.Errorf("记录 webhook 事件失败: %w", err)
		}
		existing, err := eventRepo.GetByEventID(event.ID)
		if err == nil && existing.Processed {
			logger.Debug().Str("event_id", event.ID).Msg("重复的 webhook 事件，跳过")
			return nil
		}
	}

	processErr := s.processEvent(&event)
	if err := eventRepo.MarkProcessed(event.ID, processErr, s.now()); err != nil {
		logger.Warn().Err(err).Str("event_id", event.ID).Msg("更新 webhook 事件状态失败")
	}
	return processErr
}

// 只有已扣款的订单可以退款
var refundable = []models.OrderStatus{models.OrderPaid, models.OrderCompleted}

func (s *PaymentService) processEvent(event *webhookEvent) error {
	orderRepo := repository.NewOrderRepository(s.db)
	res := &event.Resource

	var (
		matched bool
		err     error
	)
	switch event.EventType {
	case "CHECKOUT.ORDER.COMPLETED":
		matched, err = orderRepo.CompleteByPayPalOrderID(res.orderID(), "")
	case "PAYMENT.CAPTURE.COMPLETED":
		matched, err = orderRepo.CompleteByPayPalOrderID(res.orderID(), res.ID)
	case "CHECKOUT.ORDER.APPROVED":
		matched, err = orderRepo.UpdateStatusByPayPalOrderID(res.orderID(), models.OrderApproved, "APPROVED", models.OrderPending)
	case "CHECKOUT.ORDER.CANCELLED", "PAYMENT.CAPTURE.DENIED":
		// 取消支付不释放领奖资格
		matched, err = orderRepo.UpdateStatusByPayPalOrderID(res.orderID(), models.OrderCancelled, strings.TrimPrefix(event.EventType, "PAYMENT.CAPTURE."), models.OrderPending, models.OrderApproved)
	case "PAYMENT.CAPTURE.REFUNDED":
		if id := res.SupplementaryData.RelatedIDs.OrderID; id != "" {
			matched, err = orderRepo.UpdateStatusByPayPalOrderID(id, models.OrderRefunded, "REFUNDED", refundable...)
		} else {
			matched, err = orderRepo.UpdateStatusByCaptureID(res.captureID(), models.OrderRefunded, "REFUNDED", refundable...)
		}
	default:
		logger.Info().Str("event_type", event.EventType).Msg("未处理的 PayPal webhook 事件")
		return nil
	}
	if err != nil {
		return err
	}
	if !matched {
		logger.Warn().Str("event_type", event.EventType).Str("resource_id", res.ID).Msg("webhook 事件没有匹配的订单或订单状态不允许变更")
	}
	return nil
}

func money(currency string, cents int64) paypal.Money {
	return paypal.Money{CurrencyCode: currency, Value: fmt.Sprintf("%.2f", utils.CentsToDollars(cents))}
}
