package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/mailer"
	"github.com/smysle/raffle-storefront-go/internal/testutil"
)

func TestEntryService_Enter(t *testing.T) {
	db := testutil.NewDB(t)
	resetCache(t)
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleOpen, 1)
	testutil.SeedUser(t, db, "a", false)
	testutil.SeedUser(t, db, "b", false)
	m := &fakeMailer{}
	svc := NewEntryService(db, NewRaffleEmailService(db, testConfig(), m))

	first, err := svc.Enter(context.Background(), &EnterRequest{Slug: "r1", UserID: "a", IPAddress: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Enter() 出错: %v", err)
	}
	second, err := svc.Enter(context.Background(), &EnterRequest{Slug: "r1", UserID: "b"})
	if err != nil {
		t.Fatalf("Enter() 出错: %v", err)
	}
	if first.EntryNumber != 1 || second.EntryNumber != 2 {
		t.Errorf("报名号应该依次为 1、2，实际是 %d、%d", first.EntryNumber, second.EntryNumber)
	}
	if first.RaffleID != fx.Raffle.ID || first.Status != models.EntryConfirmed {
		t.Errorf("报名记录不正确: %+v", first)
	}

	if _, err := svc.Enter(context.Background(), &EnterRequest{Slug: "r1", UserID: "a"}); !errors.Is(err, ErrAlreadyEntered) {
		t.Errorf("重复报名应该返回 ErrAlreadyEntered，实际是 %v", err)
	}

	if got := len(emailLogs(t, db, mailer.TemplateEntryConfirmation)); got != 2 {
		t.Errorf("应该记录 2 封报名确认邮件，实际 %d 封", got)
	}
}

func TestEntryService_Enter_Closed(t *testing.T) {
	tests := []struct {
		name   string
		status models.RaffleStatus
		clock  time.Duration
		want   error
	}{
		{name: "未开始", status: models.RaffleUpcoming, want: ErrRegistrationClosed},
		{name: "已截止", status: models.RaffleClosed, want: ErrRegistrationClosed},
		{name: "报名时间已过", status: models.RaffleOpen, clock: 72 * time.Hour, want: ErrRegistrationClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewDB(t)
			resetCache(t)
			testutil.SeedRaffle(t, db, "r1", tt.status, 1)
			svc := NewEntryService(db, nil)
			svc.now = fixedClock(time.Now().UTC().Add(tt.clock))

			if _, err := svc.Enter(context.Background(), &EnterRequest{Slug: "r1", UserID: "a"}); !errors.Is(err, tt.want) {
				t.Errorf("Enter() 错误 = %v, want %v", err, tt.want)
			}
		})
	}
}
