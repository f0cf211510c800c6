package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/mailer"
	"github.com/smysle/raffle-storefront-go/pkg/utils"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.SiteURL = "https://shop.example.com"
	cfg.Email.Enabled = true
	return cfg
}

// fakeMailer 记录发送的邮件
type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) SendTemplate(_ context.Context, msg mailer.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, msg)
	return "msg-" + msg.To, nil
}

func (m *fakeMailer) templates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.Template)
	}
	return out
}

// fakeNotifier 记录管理员通知
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) NotifyAdmins(text string) {
	n.mu.Lock()
	n.messages = append(n.messages, text)
	n.mu.Unlock()
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func resetCache(t *testing.T) {
	t.Helper()
	utils.CacheFlush()
	t.Cleanup(utils.CacheFlush)
}

func emailLogs(t *testing.T, db *gorm.DB, template string) []models.EmailLog {
	t.Helper()
	var logs []models.EmailLog
	if err := db.Where("template = ?", template).Find(&logs).Error; err != nil {
		t.Fatalf("查询邮件日志失败: %v", err)
	}
	return logs
}

func claimState(err error) ClaimState {
	var claimErr *ClaimError
	if errors.As(err, &claimErr) {
		return claimErr.State
	}
	return ""
}
