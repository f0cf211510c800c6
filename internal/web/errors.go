package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/smysle/raffle-storefront-go/internal/service"
	pkglogger "github.com/smysle/raffle-storefront-go/pkg/logger"
)

// 业务错误到 HTTP 状态码
var errorStatus = []struct {
	err  error
	code int
}{
	{service.ErrRaffleNotFound, fiber.StatusNotFound},
	{service.ErrWinnerNotFound, fiber.StatusNotFound},
	{service.ErrOrderNotFound, fiber.StatusNotFound},
	{service.ErrProductNotFound, fiber.StatusNotFound},

	{service.ErrInvalidTransition, fiber.StatusConflict},
	{service.ErrStatusChanged, fiber.StatusConflict},
	{service.ErrSlugTaken, fiber.StatusConflict},
	{service.ErrAlreadyEntered, fiber.StatusConflict},
	{service.ErrDrawNotAllowed, fiber.StatusConflict},
	{service.ErrAlreadyDrawn, fiber.StatusConflict},
	{service.ErrOrderNotPayable, fiber.StatusConflict},

	{service.ErrRegistrationClosed, fiber.StatusBadRequest},
	{service.ErrInvalidRaffle, fiber.StatusBadRequest},
	{service.ErrInvalidDraw, fiber.StatusBadRequest},
	{service.ErrInvalidPayment, fiber.StatusBadRequest},
	{service.ErrInvalidWebhook, fiber.StatusBadRequest},
	{service.ErrInvalidTaxRequest, fiber.StatusBadRequest},
	{service.ErrInvalidShippingRequest, fiber.StatusBadRequest},
	{service.ErrNoShippingRates, fiber.StatusBadRequest},

	{service.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{service.ErrInvalidToken, fiber.StatusUnauthorized},
	{service.ErrWebhookSignature, fiber.StatusUnauthorized},

	{service.ErrPaymentUpstream, fiber.StatusBadGateway},
	{service.ErrShippingUpstream, fiber.StatusBadGateway},
	{service.ErrPaymentsNotConfigured, fiber.StatusServiceUnavailable},
	{service.ErrShippingNotConfigured, fiber.StatusServiceUnavailable},
}

// errorHandler 统一错误响应 {"error": msg}，领奖被拒绝时附带 state
func errorHandler(c *fiber.Ctx, err error) error {
	var claimErr *service.ClaimError
	if errors.As(err, &claimErr) {
		body := fiber.Map{"error": claimErr.Error(), "state": claimErr.State}
		if claimErr.OrderID != nil {
			body["order_id"] = *claimErr.OrderID
		}
		return c.Status(fiber.StatusConflict).JSON(body)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return c.Status(e.code).JSON(fiber.Map{"error": err.Error()})
		}
	}

	pkglogger.Error().Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("请求处理失败")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
