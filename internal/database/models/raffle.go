// Package models 抽奖数据模型
package models

import (
	"fmt"
	"time"
)

// RaffleStatus 抽奖状态
type RaffleStatus string

const (
	RaffleUpcoming RaffleStatus = "upcoming" // 未开始
	RaffleOpen     RaffleStatus = "open"     // 报名中
	RaffleClosed   RaffleStatus = "closed"   // 报名截止
	RaffleDrawing  RaffleStatus = "drawing"  // 开奖中
	RaffleDrawn    RaffleStatus = "drawn"    // 已开奖
)

// 每个状态唯一合法的下一状态
var raffleTransitions = map[RaffleStatus]RaffleStatus{
	RaffleUpcoming: RaffleOpen,
	RaffleOpen:     RaffleClosed,
	RaffleClosed:   RaffleDrawing,
	RaffleDrawing:  RaffleDrawn,
}

// ParseRaffleStatus 解析状态字符串
func ParseRaffleStatus(s string) (RaffleStatus, error) {
	status := RaffleStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("未知的抽奖状态: %q", s)
	}
	return status, nil
}

// Valid 是否为已知状态
func (s RaffleStatus) Valid() bool {
	switch s {
	case RaffleUpcoming, RaffleOpen, RaffleClosed, RaffleDrawing, RaffleDrawn:
		return true
	}
	return false
}

// Next 返回下一状态，drawn 之后没有下一状态
func (s RaffleStatus) Next() (RaffleStatus, bool) {
	next, ok := raffleTransitions[s]
	return next, ok
}

// CanTransitionTo 是否允许迁移到目标状态
func (s RaffleStatus) CanTransitionTo(target RaffleStatus) bool {
	next, ok := raffleTransitions[s]
	return ok && next == target
}

// IsPast 报名已结束（closed/drawing/drawn）
func (s RaffleStatus) IsPast() bool {
	return s == RaffleClosed || s == RaffleDrawing || s == RaffleDrawn
}

// Raffle 抽奖表
type Raffle struct {
	ID                   uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug                 string       `gorm:"column:slug;size:191;uniqueIndex;not null" json:"slug"`
	Name                 string       `gorm:"column:name;size:255;not null" json:"name"`
	Description          string       `gorm:"column:description;type:text" json:"description"`
	Status               RaffleStatus `gorm:"column:status;size:20;default:'upcoming';index" json:"status"`
	TotalWinners         int          `gorm:"column:total_winners;default:1" json:"total_winners"`
	RegistrationStartsAt time.Time    `gorm:"column:registration_starts_at" json:"registration_starts_at"`
	RegistrationEndsAt   time.Time    `gorm:"column:registration_ends_at" json:"registration_ends_at"`
	DrawDate             time.Time    `gorm:"column:draw_date" json:"draw_date"`
	ProductID            uint         `gorm:"column:product_id;index" json:"product_id"`
	CreatedAt            time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt            time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 表名
func (Raffle) TableName() string {
	return "raffles"
}

// IsRegistrationOpen 当前是否可以报名
func (r *Raffle) IsRegistrationOpen(now time.Time) bool {
	if r.Status != RaffleOpen {
		return false
	}
	if !r.RegistrationStartsAt.IsZero() && now.Before(r.RegistrationStartsAt) {
		return false
	}
	if !r.RegistrationEndsAt.IsZero() && now.After(r.RegistrationEndsAt) {
		return false
	}
	return true
}

// EntryStatus 报名状态
type EntryStatus string

const (
	EntryConfirmed EntryStatus = "confirmed"
	EntryPending   EntryStatus = "pending"
	EntryCancelled EntryStatus = "cancelled"
)

// RaffleEntry 报名记录，只有 confirmed 计入资格
type RaffleEntry struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	RaffleID    uint        `gorm:"column:raffle_id;not null;uniqueIndex:idx_entry_raffle_number;uniqueIndex:idx_entry_raffle_user" json:"raffle_id"`
	UserID      string      `gorm:"column:user_id;size:64;not null;uniqueIndex:idx_entry_raffle_user" json:"user_id"`
	EntryNumber int         `gorm:"column:entry_number;not null;uniqueIndex:idx_entry_raffle_number" json:"entry_number"`
	Status      EntryStatus `gorm:"column:status;size:20;default:'confirmed'" json:"status"`
	IPAddress   string      `gorm:"column:ip_address;size:64" json:"-"`
	UserAgent   string      `gorm:"column:user_agent;size:512" json:"-"`
	CreatedAt   time.Time   `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (RaffleEntry) TableName() string {
	return "raffle_entries"
}

// RaffleWinner 中奖记录，创建后只会修改购买和通知相关字段
type RaffleWinner struct {
	ID                uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	RaffleID          uint       `gorm:"column:raffle_id;not null;uniqueIndex:idx_winner_raffle_user;uniqueIndex:idx_winner_raffle_position" json:"raffle_id"`
	UserID            string     `gorm:"column:user_id;size:64;not null;uniqueIndex:idx_winner_raffle_user" json:"user_id"`
	EntryNumber       int        `gorm:"column:entry_number" json:"entry_number"`
	WinnerPosition    int        `gorm:"column:winner_position;not null;uniqueIndex:idx_winner_raffle_position" json:"winner_position"`
	SelectedAt        time.Time  `gorm:"column:selected_at" json:"selected_at"`
	NotifiedAt        *time.Time `gorm:"column:notified_at" json:"notified_at,omitempty"`
	RemindedAt        *time.Time `gorm:"column:reminded_at" json:"reminded_at,omitempty"`
	ExpiredNotifiedAt *time.Time `gorm:"column:expired_notified_at" json:"expired_notified_at,omitempty"`
	PurchaseDeadline  time.Time  `gorm:"column:purchase_deadline;index" json:"purchase_deadline"`
	HasPurchased      bool       `gorm:"column:has_purchased;default:false" json:"has_purchased"`
	OrderID           *uint      `gorm:"column:order_id" json:"order_id,omitempty"`
}

// TableName 表名
func (RaffleWinner) TableName() string {
	return "raffle_winners"
}

// IsExpired 未购买且已过截止时间
func (w *RaffleWinner) IsExpired(now time.Time) bool {
	return !w.HasPurchased && w.PurchaseDeadline.Before(now)
}

// DrawingEventType 开奖直播事件类型
type DrawingEventType string

const (
	DrawingStarted        DrawingEventType = "started"
	DrawingWinnerRevealed DrawingEventType = "winner_revealed"
	DrawingCompleted      DrawingEventType = "completed"
)

// DrawingStreamEvent 开奖过程事件
type DrawingStreamEvent struct {
	ID        uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	RaffleID  uint             `gorm:"column:raffle_id;index;not null" json:"raffle_id"`
	EventType DrawingEventType `gorm:"column:event_type;size:32" json:"event_type"`
	Payload   string           `gorm:"column:payload;type:text" json:"payload"`
	CreatedAt time.Time        `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (DrawingStreamEvent) TableName() string {
	return "drawing_stream_events"
}
