package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smysle/raffle-storefront-go/internal/paypal"
	"github.com/smysle/raffle-storefront-go/internal/service"
	pkglogger "github.com/smysle/raffle-storefront-go/pkg/logger"
)

// createPayPalOrder 为本地订单创建 PayPal 订单
func (s *Server) createPayPalOrder(c *fiber.Ctx) error {
	var req service.CreatePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result, err := s.deps.Payments.CreatePayPalOrder(c.UserContext(), currentUser(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// CaptureRequest 扣款请求
type CaptureRequest struct {
	PayPalOrderID string `json:"paypal_order_id"`
}

// capturePayPalOrder 扣款
func (s *Server) capturePayPalOrder(c *fiber.Ctx) error {
	var req CaptureRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.PayPalOrderID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Order ID required")
	}
	result, err := s.deps.Payments.CaptureOrder(c.UserContext(), currentUser(c), req.PayPalOrderID)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// paypalWebhook PayPal 事件通知
func (s *Server) paypalWebhook(c *fiber.Ctx) error {
	headers := paypal.WebhookHeaders{
		TransmissionID:   c.Get("PAYPAL-TRANSMISSION-ID"),
		TransmissionTime: c.Get("PAYPAL-TRANSMISSION-TIME"),
		TransmissionSig:  c.Get("PAYPAL-TRANSMISSION-SIG"),
		CertURL:          c.Get("PAYPAL-CERT-URL"),
		AuthAlgo:         c.Get("PAYPAL-AUTH-ALGO"),
	}

	// fiber 会复用请求体缓冲区
	body := append([]byte(nil), c.Body()...)
	if err := s.deps.Payments.HandleWebhook(c.UserContext(), headers, body); err != nil {
		pkglogger.Warn().Err(err).Msg("处理 PayPal webhook 失败")
		return err
	}
	return c.JSON(fiber.Map{"received": true})
}

// calculateTax 计税，上游失败时仍返回 200 和零税额
func (s *Server) calculateTax(c *fiber.Ctx) error {
	var req service.TaxRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result, err := s.deps.Tax.Calculate(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// taxStatus 税费配置状态
func (s *Server) taxStatus(c *fiber.Ctx) error {
	return c.JSON(s.deps.Tax.Status())
}

// shippingRates 运费报价
func (s *Server) shippingRates(c *fiber.Ctx) error {
	var req service.RatesRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result, err := s.deps.Shipping.GetRates(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
