package repository

import (
	"testing"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/database"
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/testutil"
)

func TestRaffleRepository_UpdateStatus(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleOpen, 5)
	repo := NewRaffleRepository(db)

	ok, err := repo.UpdateStatus(fx.Raffle.ID, models.RaffleOpen, models.RaffleClosed)
	if err != nil || !ok {
		t.Fatalf("UpdateStatus(open->closed) = %v, %v", ok, err)
	}

	// 期望状态已经不是 open，第二次写入必须失败
	ok, err = repo.UpdateStatus(fx.Raffle.ID, models.RaffleOpen, models.RaffleClosed)
	if err != nil {
		t.Fatalf("UpdateStatus() 出错: %v", err)
	}
	if ok {
		t.Error("状态已变更后条件更新不应该成功")
	}

	raffle, err := repo.GetBySlug("r1")
	if err != nil {
		t.Fatalf("GetBySlug() 出错: %v", err)
	}
	if raffle.Status != models.RaffleClosed {
		t.Errorf("状态应该是 closed，实际是 %s", raffle.Status)
	}
}

func TestRaffleRepository_Counts(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleOpen, 5)
	repo := NewRaffleRepository(db)

	testutil.SeedEntry(t, db, fx.Raffle.ID, "a", 1)
	testutil.SeedEntry(t, db, fx.Raffle.ID, "b", 2)
	cancelled := &models.RaffleEntry{RaffleID: fx.Raffle.ID, UserID: "c", EntryNumber: 3, Status: models.EntryCancelled}
	if err := db.Create(cancelled).Error; err != nil {
		t.Fatalf("创建报名失败: %v", err)
	}
	testutil.SeedWinner(t, db, fx.Raffle.ID, "a", 1, time.Now().Add(time.Hour))

	entries, err := repo.CountEntries(fx.Raffle.ID)
	if err != nil || entries != 2 {
		t.Errorf("CountEntries() = %d, %v, want 2", entries, err)
	}
	winners, err := repo.CountWinners(fx.Raffle.ID)
	if err != nil || winners != 1 {
		t.Errorf("CountWinners() = %d, %v, want 1", winners, err)
	}
}

func TestEntryRepository_NextEntryNumber(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleOpen, 5)
	repo := NewEntryRepository(db)

	n, err := repo.NextEntryNumber(fx.Raffle.ID)
	if err != nil || n != 1 {
		t.Fatalf("空抽奖的下一个报名号应该是 1，实际是 %d (%v)", n, err)
	}

	testutil.SeedEntry(t, db, fx.Raffle.ID, "a", 7)
	n, err = repo.NextEntryNumber(fx.Raffle.ID)
	if err != nil || n != 8 {
		t.Errorf("下一个报名号应该是 8，实际是 %d (%v)", n, err)
	}
}

func TestEntryRepository_DuplicateUser(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleOpen, 5)
	repo := NewEntryRepository(db)

	testutil.SeedEntry(t, db, fx.Raffle.ID, "a", 1)
	err := repo.Create(&models.RaffleEntry{RaffleID: fx.Raffle.ID, UserID: "a", EntryNumber: 2, Status: models.EntryConfirmed})
	if !database.IsDuplicateKey(err) {
		t.Errorf("同一用户重复报名应该触发唯一索引冲突，实际是 %v", err)
	}
}

func TestWinnerRepository_MarkPurchased(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleDrawn, 5)
	repo := NewWinnerRepository(db)
	now := time.Now().UTC()

	active := testutil.SeedWinner(t, db, fx.Raffle.ID, "a", 1, now.Add(24*time.Hour))
	expired := testutil.SeedWinner(t, db, fx.Raffle.ID, "b", 2, now.Add(-time.Hour))

	tests := []struct {
		name     string
		id       uint
		userID   string
		expected bool
	}{
		{"他人无法购买", active.ID, "b", false},
		{"中奖者首次购买", active.ID, "a", true},
		{"重复购买", active.ID, "a", false},
		{"已过期", expired.ID, "b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.MarkPurchased(tt.id, tt.userID, now)
			if err != nil {
				t.Fatalf("MarkPurchased() 出错: %v", err)
			}
			if got != tt.expected {
				t.Errorf("MarkPurchased() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWinnerRepository_ReminderQueries(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleDrawn, 5)
	repo := NewWinnerRepository(db)
	now := time.Now().UTC()

	soon := testutil.SeedWinner(t, db, fx.Raffle.ID, "a", 1, now.Add(12*time.Hour))
	testutil.SeedWinner(t, db, fx.Raffle.ID, "b", 2, now.Add(40*time.Hour))
	gone := testutil.SeedWinner(t, db, fx.Raffle.ID, "c", 3, now.Add(-time.Hour))

	due, err := repo.ListDueForReminder(now, 24*time.Hour)
	if err != nil {
		t.Fatalf("ListDueForReminder() 出错: %v", err)
	}
	if len(due) != 1 || due[0].ID != soon.ID {
		t.Errorf("应该只有 12 小时后截止的中奖者需要提醒，实际 %d 条", len(due))
	}

	if err := repo.SetReminded(soon.ID, now); err != nil {
		t.Fatalf("SetReminded() 出错: %v", err)
	}
	due, _ = repo.ListDueForReminder(now, 24*time.Hour)
	if len(due) != 0 {
		t.Errorf("已提醒的中奖者不应该再次出现，实际 %d 条", len(due))
	}

	expired, err := repo.ListExpiredUnnotified(now)
	if err != nil {
		t.Fatalf("ListExpiredUnnotified() 出错: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != gone.ID {
		t.Errorf("应该只有一个过期中奖者，实际 %d 条", len(expired))
	}
}

func TestProductRepository_DecrementStock(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.SeedRaffle(t, db, "r1", models.RaffleDrawn, 1)
	repo := NewProductRepository(db)

	ok, err := repo.DecrementStock(fx.Product.ID)
	if err != nil || !ok {
		t.Fatalf("第一次扣减应该成功: %v, %v", ok, err)
	}
	ok, err = repo.DecrementStock(fx.Product.ID)
	if err != nil {
		t.Fatalf("DecrementStock() 出错: %v", err)
	}
	if ok {
		t.Error("库存为 0 时扣减不应该成功")
	}

	product, _ := repo.GetByID(fx.Product.ID)
	if product.StockQuantity != 0 {
		t.Errorf("库存应该是 0，实际是 %d", product.StockQuantity)
	}
}

func TestWebhookEventRepository_Dedup(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWebhookEventRepository(db)

	event := &models.PayPalWebhookEvent{EventID: "WH-1", EventType: "PAYMENT.CAPTURE.COMPLETED"}
	if err := repo.Create(event); err != nil {
		t.Fatalf("Create() 出错: %v", err)
	}
	err := repo.Create(&models.PayPalWebhookEvent{EventID: "WH-1", EventType: "PAYMENT.CAPTURE.COMPLETED"})
	if !database.IsDuplicateKey(err) {
		t.Errorf("重复事件应该触发唯一索引冲突，实际是 %v", err)
	}
}
