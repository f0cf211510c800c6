package service

import (
	"context"
	"testing"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/mailer"
	"github.com/smysle/raffle-storefront-go/internal/testutil"
)

func TestReminderService(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleDrawn, 5)
	now := time.Now().UTC()
	for _, id := range []string{"due", "later", "late", "bought"} {
		testutil.SeedUser(t, db, id, false)
	}
	testutil.SeedWinner(t, db, fx.Raffle.ID, "due", 1, now.Add(10*time.Hour))
	testutil.SeedWinner(t, db, fx.Raffle.ID, "later", 2, now.Add(40*time.Hour))
	testutil.SeedWinner(t, db, fx.Raffle.ID, "late", 3, now.Add(-time.Hour))
	bought := testutil.SeedWinner(t, db, fx.Raffle.ID, "bought", 4, now.Add(-time.Hour))
	db.Model(&models.RaffleWinner{}).Where("id = ?", bought.ID).Update("has_purchased", true)

	cfg := testConfig()
	m := &fakeMailer{}
	svc := NewReminderService(db, cfg, NewRaffleEmailService(db, cfg, m))

	sent, err := svc.SendPurchaseReminders(context.Background())
	if err != nil || sent != 1 {
		t.Fatalf("SendPurchaseReminders() = %d, %v, want 1", sent, err)
	}
	if sent, _ = svc.SendPurchaseReminders(context.Background()); sent != 0 {
		t.Errorf("提醒只能发送一次，第二次发送了 %d 封", sent)
	}

	expired, err := svc.SendExpiredNotices(context.Background())
	if err != nil || expired != 1 {
		t.Fatalf("SendExpiredNotices() = %d, %v, want 1", expired, err)
	}
	if expired, _ = svc.SendExpiredNotices(context.Background()); expired != 0 {
		t.Errorf("过期通知只能发送一次，第二次发送了 %d 封", expired)
	}

	if got := len(emailLogs(t, db, mailer.TemplatePurchaseReminder)); got != 1 {
		t.Errorf("提醒邮件日志应该有 1 条，实际 %d 条", got)
	}
	if got := len(emailLogs(t, db, mailer.TemplateExpired)); got != 1 {
		t.Errorf("过期邮件日志应该有 1 条，实际 %d 条", got)
	}

	// 提醒不修改领奖状态
	var w models.RaffleWinner
	db.Where("user_id = ?", "late").First(&w)
	if w.HasPurchased {
		t.Error("过期通知不应该修改购买状态")
	}
}
