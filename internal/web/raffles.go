package web

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/smysle/raffle-storefront-go/internal/service"
	"github.com/smysle/raffle-storefront-go/pkg/imggen"
	"github.com/smysle/raffle-storefront-go/pkg/utils"
)

// listRaffles 公开抽奖列表
func (s *Server) listRaffles(c *fiber.Ctx) error {
	list, err := s.deps.Raffles.ListPublic()
	if err != nil {
		return err
	}
	return c.JSON(list)
}

// getRaffle 抽奖详情，登录时附带自己的报名
func (s *Server) getRaffle(c *fiber.Ctx) error {
	detail, err := s.deps.Raffles.GetDetail(c.Params("slug"), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(detail)
}

// enterRaffle 报名
func (s *Server) enterRaffle(c *fiber.Ctx) error {
	entry, err := s.deps.Entries.Enter(c.UserContext(), &service.EnterRequest{
		Slug:      c.Params("slug"),
		UserID:    currentUser(c),
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// getClaim 领奖页面状态，非中奖者也返回 200
func (s *Server) getClaim(c *fiber.Ctx) error {
	view, err := s.deps.Claims.GetClaim(c.Params("slug"), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(view)
}

// purchaseClaim 中奖者下单
func (s *Server) purchaseClaim(c *fiber.Ctx) error {
	result, err := s.deps.Claims.Purchase(c.UserContext(), c.Params("slug"), currentUser(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// raffleCard 分享卡片，缓存到抽奖数据变化为止
func (s *Server) raffleCard(c *fiber.Ctx) error {
	slug := c.Params("slug")
	val, err := utils.CacheGetOrSet("raffle:card:"+slug, 10*time.Minute, func() (interface{}, error) {
		detail, err := s.deps.Raffles.GetDetail(slug, "")
		if err != nil {
			return nil, err
		}
		card := imggen.RaffleCard{
			SiteName:     s.cfg.SiteName,
			RaffleName:   detail.Raffle.Name,
			Status:       string(detail.Raffle.Status),
			EntryCount:   detail.EntryCount,
			TotalWinners: detail.Raffle.TotalWinners,
			DrawDate:     detail.Raffle.DrawDate,
		}
		if detail.Product != nil {
			card.ProductName = detail.Product.Name
			card.Price = detail.Product.Price
		}
		return imggen.GenerateRaffleCard(card)
	})
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "public, max-age=600")
	return c.Send(val.([]byte))
}
