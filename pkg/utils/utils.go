// Package utils 工具函数
package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DeadlineLayout 截止时间展示格式，例如 "March 5, 2026 3:04 PM"
const DeadlineLayout = "January 2, 2006 3:04 PM"

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// FormatCents 把分转换为美元字符串
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// CentsToDollars 分转美元（外部 API 使用小数金额）
func CentsToDollars(cents int64) float64 {
	return float64(cents) / 100
}

// DollarsToCents 美元转分，四舍五入
func DollarsToCents(amount float64) int64 {
	if amount < 0 {
		return -int64(-amount*100 + 0.5)
	}
	return int64(amount*100 + 0.5)
}

// Slugify 生成 URL 友好的 slug
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalid.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// HoursUntil 距离 t 还有多少个完整小时，已过去则为 0
func HoursUntil(t, now time.Time) int64 {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Hour)
}

// SecondsUntil 距离 t 还有多少秒，已过去则为 0
func SecondsUntil(t, now time.Time) int64 {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// FormatDeadline 格式化截止时间
func FormatDeadline(t time.Time) string {
	return t.UTC().Format(DeadlineLayout) + " UTC"
}
