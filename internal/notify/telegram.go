// Package notify 管理员 Telegram 通知
package notify

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/pkg/logger"
)

// Telegram 只发送消息的离线 Bot，不轮询更新
type Telegram struct {
	bot     *tele.Bot
	chatIDs []int64
}

// NewTelegram 创建通知器，未启用时返回 nil
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	if !cfg.Enabled || cfg.BotToken == "" || len(cfg.ChatIDs) == 0 {
		return nil, nil
	}

	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.BotToken,
		Offline: true,
		OnError: func(err error, c tele.Context) {
			logger.Error().Err(err).Msg("Telegram 错误")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Telegram Bot 失败: %w", err)
	}

	return &Telegram{bot: b, chatIDs: cfg.ChatIDs}, nil
}

// NotifyAdmins 向所有管理员会话发送消息，失败只记录日志
func (t *Telegram) NotifyAdmins(text string) {
	if t == nil {
		return
	}
	for _, id := range t.chatIDs {
		if _, err := t.bot.Send(&tele.Chat{ID: id}, text, &tele.SendOptions{
			ParseMode:             tele.ModeHTML,
			DisableWebPagePreview: true,
		}); err != nil {
			logger.Warn().Err(err).Int64("chat_id", id).Msg("发送管理员通知失败")
		}
	}
}

// DrawCompletedText 开奖完成通知
func DrawCompletedText(raffleName string, winners int, at time.Time) string {
	return fmt.Sprintf("🎉 <b>%s</b> 开奖完成\n中奖人数: %d\n时间: %s UTC",
		escape(raffleName), winners, at.UTC().Format("2006-01-02 15:04"))
}

// PrizeClaimedText 中奖者下单通知
func PrizeClaimedText(raffleName string, position int, orderNumber string) string {
	return fmt.Sprintf("🛒 <b>%s</b> 第 %d 名中奖者已下单\n订单号: <code>%s</code>",
		escape(raffleName), position, orderNumber)
}

func escape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '<':
			out = append(out, []rune("&lt;")...)
		case '>':
			out = append(out, []rune("&gt;")...)
		case '&':
			out = append(out, []rune("&amp;")...)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
