package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/mailer"
	"github.com/smysle/raffle-storefront-go/internal/testutil"
	"gorm.io/gorm"
)

func seedDrawable(t *testing.T, db *gorm.DB) testutil.Fixture {
	t.Helper()
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleClosed, 5)
	for i, id := range []string{"a", "b", "c"} {
		testutil.SeedUser(t, db, id, false)
		testutil.SeedEntry(t, db, fx.Raffle.ID, id, i+1)
	}
	return fx
}

func TestDrawService_Draw(t *testing.T) {
	db := testutil.NewDB(t)
	resetCache(t)
	fx := seedDrawable(t, db)
	cfg := testConfig()
	m := &fakeMailer{}
	notifier := &fakeNotifier{}
	svc := NewDrawService(db, cfg, NewRaffleEmailService(db, cfg, m), notifier)
	now := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	svc.now = fixedClock(now)

	result, err := svc.Draw(context.Background(), "r1", []int{3, 1})
	if err != nil {
		t.Fatalf("Draw() 出错: %v", err)
	}
	if result.Raffle.Status != models.RaffleDrawn {
		t.Errorf("开奖后状态应该是 drawn，实际是 %s", result.Raffle.Status)
	}
	if len(result.Winners) != 2 {
		t.Fatalf("应该有 2 个中奖者，实际 %d 个", len(result.Winners))
	}

	first := result.Winners[0]
	if first.UserID != "c" || first.WinnerPosition != 1 || first.EntryNumber != 3 {
		t.Errorf("第一名应该是报名号 3 的用户 c: %+v", first)
	}
	if want := now.Add(48 * time.Hour); !first.PurchaseDeadline.Equal(want) {
		t.Errorf("购买截止时间 = %v, want %v", first.PurchaseDeadline, want)
	}

	var raffle models.Raffle
	db.First(&raffle, fx.Raffle.ID)
	if raffle.Status != models.RaffleDrawn {
		t.Errorf("数据库中状态应该是 drawn，实际是 %s", raffle.Status)
	}

	var events []models.DrawingStreamEvent
	db.Where("raffle_id = ?", fx.Raffle.ID).Order("id").Find(&events)
	wantTypes := []models.DrawingEventType{models.DrawingStarted, models.DrawingWinnerRevealed, models.DrawingWinnerRevealed, models.DrawingCompleted}
	if len(events) != len(wantTypes) {
		t.Fatalf("开奖事件数量 = %d, want %d", len(events), len(wantTypes))
	}
	for i, e := range events {
		if e.EventType != wantTypes[i] {
			t.Errorf("第 %d 个事件 = %s, want %s", i, e.EventType, wantTypes[i])
		}
	}

	if got := len(m.templates()); got != 2 {
		t.Errorf("应该发送 2 封中奖邮件，实际 %d 封", got)
	}
	var notified int64
	db.Model(&models.RaffleWinner{}).Where("notified_at IS NOT NULL").Count(&notified)
	if notified != 2 {
		t.Errorf("两个中奖者都应该记录 notified_at，实际 %d 个", notified)
	}
	if notifier.count() != 1 {
		t.Errorf("应该通知管理员一次，实际 %d 次", notifier.count())
	}

	// 已开奖的抽奖不能再次开奖
	if _, err := svc.Draw(context.Background(), "r1", []int{2}); !errors.Is(err, ErrDrawNotAllowed) {
		t.Errorf("重复开奖应该返回 ErrDrawNotAllowed，实际是 %v", err)
	}
}

func TestDrawService_Draw_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		numbers []int
		want    error
	}{
		{name: "没有报名号", numbers: nil, want: ErrInvalidDraw},
		{name: "超过中奖名额", numbers: []int{1, 2, 3}, want: ErrInvalidDraw},
		{name: "重复报名号", numbers: []int{1, 1}, want: ErrInvalidDraw},
		{name: "报名号不存在", numbers: []int{9}, want: ErrInvalidDraw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewDB(t)
			resetCache(t)
			fx := seedDrawable(t, db)
			svc := NewDrawService(db, testConfig(), nil, nil)

			if _, err := svc.Draw(context.Background(), "r1", tt.numbers); !errors.Is(err, tt.want) {
				t.Fatalf("Draw() 错误 = %v, want %v", err, tt.want)
			}

			var raffle models.Raffle
			db.First(&raffle, fx.Raffle.ID)
			if raffle.Status != models.RaffleClosed {
				t.Errorf("失败后状态应该保持 closed，实际是 %s", raffle.Status)
			}
			var winners int64
			db.Model(&models.RaffleWinner{}).Count(&winners)
			if winners != 0 {
				t.Errorf("失败后不应该有中奖记录，实际 %d 条", winners)
			}
		})
	}
}

func TestDrawService_Draw_NotClosed(t *testing.T) {
	db := testutil.NewDB(t)
	resetCache(t)
	testutil.SeedRaffle(t, db, "r1", models.RaffleOpen, 5)
	svc := NewDrawService(db, testConfig(), nil, nil)

	if _, err := svc.Draw(context.Background(), "r1", []int{1}); !errors.Is(err, ErrDrawNotAllowed) {
		t.Errorf("报名中的抽奖不能开奖，实际错误 %v", err)
	}
	if _, err := svc.Draw(context.Background(), "missing", []int{1}); !errors.Is(err, ErrRaffleNotFound) {
		t.Errorf("不存在的抽奖应该返回 ErrRaffleNotFound，实际是 %v", err)
	}
}

func TestRaffleEmailService_Skipped(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleDrawn, 1)
	testutil.SeedUser(t, db, "a", false)
	winner := testutil.SeedWinner(t, db, fx.Raffle.ID, "a", 1, time.Now().Add(time.Hour))

	cfg := testConfig()
	cfg.Email.Enabled = false
	m := &fakeMailer{}
	svc := NewRaffleEmailService(db, cfg, m)

	if err := svc.SendWinnerNotification(context.Background(), winner); err != nil {
		t.Fatalf("邮件未启用时不应该返回错误: %v", err)
	}
	if len(m.templates()) != 0 {
		t.Error("邮件未启用时不应该调用发送接口")
	}
	logs := emailLogs(t, db, mailer.TemplateWinner)
	if len(logs) != 1 || logs[0].Status != models.EmailSkipped {
		t.Errorf("应该记录一条 skipped 日志: %+v", logs)
	}
}

func TestRaffleEmailService_Failed(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleDrawn, 1)
	testutil.SeedUser(t, db, "a", false)
	winner := testutil.SeedWinner(t, db, fx.Raffle.ID, "a", 1, time.Now().Add(time.Hour))

	m := &fakeMailer{err: errors.New("rejected")}
	svc := NewRaffleEmailService(db, testConfig(), m)

	if err := svc.SendWinnerNotification(context.Background(), winner); err == nil {
		t.Fatal("发送失败时应该返回错误")
	}
	logs := emailLogs(t, db, mailer.TemplateWinner)
	if len(logs) != 1 || logs[0].Status != models.EmailFailed || logs[0].Error == "" {
		t.Errorf("应该记录一条 failed 日志: %+v", logs)
	}

	var w models.RaffleWinner
	db.First(&w, winner.ID)
	if w.NotifiedAt != nil {
		t.Error("发送失败时不应该记录 notified_at")
	}
}
