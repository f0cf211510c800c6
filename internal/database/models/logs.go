package models

import "time"

// EmailStatus 邮件发送状态
type EmailStatus string

const (
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
	EmailSkipped EmailStatus = "skipped"
)

// EmailLog 邮件发送日志
type EmailLog struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	Template  string      `gorm:"column:template;size:64;index" json:"template"`
	Recipient string      `gorm:"column:recipient;size:191" json:"recipient"`
	Subject   string      `gorm:"column:subject;size:255" json:"subject"`
	Status    EmailStatus `gorm:"column:status;size:16" json:"status"`
	UserID    string      `gorm:"column:user_id;size:64;index" json:"user_id"`
	MessageID string      `gorm:"column:message_id;size:64" json:"message_id,omitempty"`
	Error     string      `gorm:"column:error;size:512" json:"error,omitempty"`
	CreatedAt time.Time   `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (EmailLog) TableName() string {
	return "email_logs"
}

// PayPalWebhookEvent PayPal Webhook 事件，event_id 唯一用于去重
type PayPalWebhookEvent struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID      string     `gorm:"column:event_id;size:64;uniqueIndex;not null" json:"event_id"`
	EventType    string     `gorm:"column:event_type;size:64;index" json:"event_type"`
	ResourceType string     `gorm:"column:resource_type;size:64" json:"resource_type"`
	ResourceID   string     `gorm:"column:resource_id;size:64" json:"resource_id"`
	Summary      string     `gorm:"column:summary;size:512" json:"summary"`
	Payload      string     `gorm:"column:payload;type:text" json:"-"`
	Processed    bool       `gorm:"column:processed;default:false" json:"processed"`
	ProcessedAt  *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
	Error        string     `gorm:"column:error;size:512" json:"error,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (PayPalWebhookEvent) TableName() string {
	return "paypal_webhook_events"
}
