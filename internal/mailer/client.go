// Package mailer Mailchimp Transactional（Mandrill）模板邮件客户端
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smysle/raffle-storefront-go/internal/config"
)

// 模板名称
const (
	TemplateEntryConfirmation = "raffle_entry_confirmation"
	TemplateWinner            = "raffle_winner"
	TemplatePurchaseReminder  = "raffle_purchase_reminder"
	TemplateExpired           = "raffle_expired"
)

// Message 一封模板邮件
type Message struct {
	Template  string
	To        string
	ToName    string
	Subject   string
	MergeVars map[string]string
}

// Client Mandrill API 客户端
type Client struct {
	apiKey     string
	fromEmail  string
	fromName   string
	httpClient *resty.Client
}

// NewClient 创建邮件客户端
func NewClient(cfg config.EmailConfig) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(15 * time.Second)
	client.SetRetryCount(0)

	return &Client{
		apiKey:     cfg.APIKey,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		httpClient: client,
	}
}

type mergeVar struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type"`
}

type sendResult struct {
	Email        string `json:"email"`
	Status       string `json:"status"`
	ID           string `json:"_id"`
	RejectReason string `json:"reject_reason"`
}

// SendTemplate 发送模板邮件，返回 Mandrill 消息 ID
func (c *Client) SendTemplate(ctx context.Context, msg Message) (string, error) {
	vars := make([]mergeVar, 0, len(msg.MergeVars))
	for k, v := range msg.MergeVars {
		vars = append(vars, mergeVar{Name: k, Content: v})
	}

	body := map[string]interface{}{
		"key":              c.apiKey,
		"template_name":    msg.Template,
		"template_content": []mergeVar{},
		"message": map[string]interface{}{
			"subject":           msg.Subject,
			"from_email":        c.fromEmail,
			"from_name":         c.fromName,
			"to":                []recipient{{Email: msg.To, Name: msg.ToName, Type: "to"}},
			"global_merge_vars": vars,
			"merge":             true,
			"merge_language":    "handlebars",
		},
	}

	var results []sendResult
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&results).
		Post("/messages/send-template.json")
	if err != nil {
		return "", fmt.Errorf("发送邮件失败: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("Mandrill 返回 %d: %s", resp.StatusCode(), resp.String())
	}
	if len(results) == 0 {
		return "", fmt.Errorf("Mandrill 响应为空")
	}

	r := results[0]
	switch r.Status {
	case "sent", "queued", "scheduled":
		return r.ID, nil
	}
	return r.ID, fmt.Errorf("邮件被拒绝: %s %s", r.Status, r.RejectReason)
}
