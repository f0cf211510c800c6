// Package service 业务服务
package service

import (
	"context"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/mailer"
)

// Mailer 模板邮件发送
type Mailer interface {
	SendTemplate(ctx context.Context, msg mailer.Message) (string, error)
}

// AdminNotifier 管理员即时通知
type AdminNotifier interface {
	NotifyAdmins(text string)
}

// Clock 当前时间，测试中可替换
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

type nopNotifier struct{}

func (nopNotifier) NotifyAdmins(string) {}
