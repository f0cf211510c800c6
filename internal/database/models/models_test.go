// Package models 数据模型测试
package models

import (
	"testing"
	"time"
)

func TestRaffleStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     RaffleStatus
		to       RaffleStatus
		expected bool
	}{
		{"upcoming -> open", RaffleUpcoming, RaffleOpen, true},
		{"open -> closed", RaffleOpen, RaffleClosed, true},
		{"closed -> drawing", RaffleClosed, RaffleDrawing, true},
		{"drawing -> drawn", RaffleDrawing, RaffleDrawn, true},
		{"跳过状态 upcoming -> closed", RaffleUpcoming, RaffleClosed, false},
		{"回退 closed -> open", RaffleClosed, RaffleOpen, false},
		{"回退 drawn -> open", RaffleDrawn, RaffleOpen, false},
		{"同状态 open -> open", RaffleOpen, RaffleOpen, false},
		{"未知状态", RaffleOpen, RaffleStatus("archived"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.expected {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRaffleStatus_Next(t *testing.T) {
	if next, ok := RaffleOpen.Next(); !ok || next != RaffleClosed {
		t.Errorf("open 的下一状态应该是 closed，实际是 %s", next)
	}
	if _, ok := RaffleDrawn.Next(); ok {
		t.Error("drawn 不应该有下一状态")
	}
}

func TestParseRaffleStatus(t *testing.T) {
	if s, err := ParseRaffleStatus("drawing"); err != nil || s != RaffleDrawing {
		t.Errorf("ParseRaffleStatus(drawing) = %s, %v", s, err)
	}
	if _, err := ParseRaffleStatus("paused"); err == nil {
		t.Error("未知状态应该返回错误")
	}
}

func TestRaffle_IsRegistrationOpen(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		raffle   Raffle
		expected bool
	}{
		{"报名中", Raffle{Status: RaffleOpen, RegistrationStartsAt: now.Add(-time.Hour), RegistrationEndsAt: now.Add(time.Hour)}, true},
		{"状态不是 open", Raffle{Status: RaffleUpcoming, RegistrationStartsAt: now.Add(-time.Hour), RegistrationEndsAt: now.Add(time.Hour)}, false},
		{"尚未开始", Raffle{Status: RaffleOpen, RegistrationStartsAt: now.Add(time.Hour), RegistrationEndsAt: now.Add(2 * time.Hour)}, false},
		{"已截止", Raffle{Status: RaffleOpen, RegistrationStartsAt: now.Add(-2 * time.Hour), RegistrationEndsAt: now.Add(-time.Hour)}, false},
		{"未设置时间窗口", Raffle{Status: RaffleOpen}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.raffle.IsRegistrationOpen(now); got != tt.expected {
				t.Errorf("IsRegistrationOpen() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRaffleWinner_IsExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		winner   RaffleWinner
		expected bool
	}{
		{"截止时间已过", RaffleWinner{PurchaseDeadline: now.Add(-time.Minute)}, true},
		{"截止时间未到", RaffleWinner{PurchaseDeadline: now.Add(time.Hour)}, false},
		{"已购买", RaffleWinner{PurchaseDeadline: now.Add(-time.Hour), HasPurchased: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.winner.IsExpired(now); got != tt.expected {
				t.Errorf("IsExpired() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTaxSettings_IsStateTaxable(t *testing.T) {
	tests := []struct {
		name     string
		states   string
		state    string
		expected bool
	}{
		{"未限制州", "", "TX", true},
		{"在列表中", "CA, ny", "NY", true},
		{"小写输入", "CA,NY", "ca", true},
		{"不在列表中", "CA,NY", "OR", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &TaxSettings{TaxEnabledStates: tt.states}
			if got := s.IsStateTaxable(tt.state); got != tt.expected {
				t.Errorf("IsStateTaxable(%q) = %v, want %v", tt.state, got, tt.expected)
			}
		})
	}
}

func TestUser_DisplayName(t *testing.T) {
	if got := (&User{Email: "a@example.com"}).DisplayName(); got != "a@example.com" {
		t.Errorf("DisplayName() = %s", got)
	}
	if got := (&User{Email: "a@example.com", FullName: "Ann"}).DisplayName(); got != "Ann" {
		t.Errorf("DisplayName() = %s", got)
	}
}
