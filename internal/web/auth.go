package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// login 邮箱密码登录，令牌同时写入 cookie
func (s *Server) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	token, user, err := s.deps.Auth.Login(req.Email, req.Password)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(s.cfg.Auth.TokenTTLHours) * time.Hour),
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{"token": token, "user": user})
}

// logout 清除登录 cookie
func (s *Server) logout(c *fiber.Ctx) error {
	c.ClearCookie(s.cfg.Auth.CookieName)
	return c.JSON(fiber.Map{"success": true})
}
