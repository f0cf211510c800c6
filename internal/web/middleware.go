package web

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID = "userID"
	localEmail  = "email"
)

// authenticate 解析 Bearer 令牌或 cookie，无效令牌按未登录处理
func (s *Server) authenticate(c *fiber.Ctx) error {
	token := ""
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if token == "" {
		token = c.Cookies(s.cfg.Auth.CookieName)
	}
	if token == "" {
		return c.Next()
	}

	claims, err := s.deps.Auth.ParseToken(token)
	if err == nil {
		c.Locals(localUserID, claims.Subject)
		c.Locals(localEmail, claims.Email)
	}
	return c.Next()
}

// currentUser 当前用户 id，未登录为空
func currentUser(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// isPageRequest 浏览器页面请求（重定向而不是返回 JSON）
func isPageRequest(c *fiber.Ctx) bool {
	return c.Method() == fiber.MethodGet &&
		!strings.HasPrefix(c.Path(), "/api/") &&
		c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML
}

// requireUser 需要登录
func (s *Server) requireUser(c *fiber.Ctx) error {
	if currentUser(c) != "" {
		return c.Next()
	}
	if isPageRequest(c) {
		return c.Redirect("/auth/login?redirectTo="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}

// requireAdmin 需要管理员，以数据库中的 is_admin 为准
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	if s.deps.Auth.IsAdmin(currentUser(c)) {
		return c.Next()
	}
	if isPageRequest(c) {
		return c.Redirect("/", fiber.StatusFound)
	}
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
}
