package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/service"
)

// adminListRaffles 后台抽奖列表
func (s *Server) adminListRaffles(c *fiber.Ctx) error {
	rows, err := s.deps.Raffles.AdminList()
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"raffles": rows})
}

// adminCreateRaffle 创建抽奖
func (s *Server) adminCreateRaffle(c *fiber.Ctx) error {
	var req service.CreateRaffleRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	raffle, err := s.deps.Raffles.Create(&req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(raffle)
}

// StatusRequest 状态变更请求
type StatusRequest struct {
	Status string `json:"status"`
}

// adminChangeStatus 状态变更
func (s *Server) adminChangeStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	target, err := models.ParseRaffleStatus(req.Status)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unknown raffle status: "+req.Status)
	}
	change, err := s.deps.Raffles.ChangeStatus(c.Params("slug"), target)
	if err != nil {
		return err
	}
	return c.JSON(change)
}

// adminListEntries 报名列表
func (s *Server) adminListEntries(c *fiber.Ctx) error {
	rows, err := s.deps.Raffles.ListEntries(c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"entries": rows, "total": len(rows)})
}

// DrawRequest 开奖请求，按名次顺序给出中奖报名号
type DrawRequest struct {
	EntryNumbers []int `json:"entry_numbers"`
}

// adminDraw 记录开奖结果
func (s *Server) adminDraw(c *fiber.Ctx) error {
	var req DrawRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	result, err := s.deps.Draws.Draw(c.UserContext(), c.Params("slug"), req.EntryNumbers)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// adminWinners 中奖者列表
func (s *Server) adminWinners(c *fiber.Ctx) error {
	report, err := s.deps.Claims.Winners(c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// adminNotifyWinner 重发中奖通知
func (s *Server) adminNotifyWinner(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid winner id")
	}
	if err := s.deps.Claims.ResendWinnerNotification(c.UserContext(), c.Params("slug"), uint(id)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}
