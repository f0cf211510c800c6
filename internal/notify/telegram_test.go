package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/config"
)

func TestNewTelegram_Disabled(t *testing.T) {
	tg, err := NewTelegram(config.TelegramConfig{Enabled: false, BotToken: "x", ChatIDs: []int64{1}})
	if err != nil || tg != nil {
		t.Fatalf("未启用时应该返回 nil, nil，实际是 %v, %v", tg, err)
	}
	// nil 接收者不应该 panic
	tg.NotifyAdmins("hello")
}

func TestTelegram_NotifyAdmins(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	var payloads []map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		_ = json.Unmarshal(b, &payload)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		payloads = append(payloads, payload)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`))
	}))
	defer srv.Close()

	tg, err := NewTelegram(config.TelegramConfig{
		Enabled:  true,
		BotToken: "123:abc",
		ChatIDs:  []int64{111, 222},
		APIURL:   srv.URL,
	})
	if err != nil || tg == nil {
		t.Fatalf("NewTelegram() = %v, %v", tg, err)
	}

	tg.NotifyAdmins(DrawCompletedText("Robotech <VF-1>", 2, time.Now()))

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 {
		t.Fatalf("应该发送 2 条消息，实际 %d 条", len(paths))
	}
	if paths[0] != "/bot123:abc/sendMessage" {
		t.Errorf("请求路径不正确: %s", paths[0])
	}
	if fmt.Sprint(payloads[0]["chat_id"]) != "111" || fmt.Sprint(payloads[1]["chat_id"]) != "222" {
		t.Errorf("chat_id 不正确: %v %v", payloads[0]["chat_id"], payloads[1]["chat_id"])
	}
	text, _ := payloads[0]["text"].(string)
	if !strings.Contains(text, "&lt;VF-1&gt;") {
		t.Errorf("抽奖名称应该被转义: %s", text)
	}
}
