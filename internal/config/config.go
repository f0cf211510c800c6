// Package config 配置管理模块
package config

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Config 全局配置结构
type Config struct {
	SiteName string `json:"site_name"`
	SiteURL  string `json:"site_url"`

	Database    DatabaseConfig    `json:"database"`
	API         APIConfig         `json:"api"`
	Auth        AuthConfig        `json:"auth"`
	Raffle      RaffleConfig      `json:"raffle"`
	PayPal      PayPalConfig      `json:"paypal"`
	ShipStation ShipStationConfig `json:"shipstation"`
	TaxCloud    TaxCloudConfig    `json:"taxcloud"`
	Email       EmailConfig       `json:"email"`
	Telegram    TelegramConfig    `json:"telegram"`
	Scheduler   SchedulerConfig   `json:"scheduler"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"` // mysql 或 postgres
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	SSLMode  string `json:"ssl_mode"`
}

// APIConfig Web 服务配置
type APIConfig struct {
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	AllowOrigins []string `json:"allow_origins"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	TokenTTLHours int    `json:"token_ttl_hours"`
	CookieName    string `json:"cookie_name"`
}

// RaffleConfig 抽奖配置
type RaffleConfig struct {
	PurchaseWindowHours int `json:"purchase_window_hours"` // 中奖后购买窗口
	ReminderLeadHours   int `json:"reminder_lead_hours"`   // 截止前多久发送提醒
}

// PayPalConfig PayPal 配置
type PayPalConfig struct {
	Sandbox        bool   `json:"sandbox"`
	BaseURL        string `json:"base_url"`
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	WebhookID      string `json:"webhook_id"`
	VerifyWebhooks bool   `json:"verify_webhooks"`
	Currency       string `json:"currency"`
}

// ShipStationConfig ShipStation 配置
type ShipStationConfig struct {
	BaseURL        string   `json:"base_url"`
	APIKey         string   `json:"api_key"`
	APISecret      string   `json:"api_secret"`
	Carriers       []string `json:"carriers"`
	FromPostalCode string   `json:"from_postal_code"`
	FromCity       string   `json:"from_city"`
	FromState      string   `json:"from_state"`
	FromAddress    string   `json:"from_address"`
}

// TaxCloudConfig TaxCloud 配置
type TaxCloudConfig struct {
	BaseURL        string `json:"base_url"`
	ConnectionID   string `json:"connection_id"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// EmailConfig 邮件（Mailchimp Transactional）配置
type EmailConfig struct {
	Enabled   bool   `json:"enabled"`
	BaseURL   string `json:"base_url"`
	APIKey    string `json:"api_key"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
}

// TelegramConfig 管理员 Telegram 通知配置
type TelegramConfig struct {
	Enabled  bool    `json:"enabled"`
	BotToken string  `json:"bot_token"`
	ChatIDs  []int64 `json:"chat_ids"`
	APIURL   string  `json:"api_url"` // 为空时使用 Telegram 官方地址
}

// SchedulerConfig 定时任务配置
type SchedulerConfig struct {
	PurchaseReminders bool `json:"purchase_reminders"`
	ExpiredNotices    bool `json:"expired_notices"`
}

var (
	cfg     *Config
	cfgLock sync.RWMutex
)

// Load 加载配置文件，.env 中的密钥会覆盖文件中的同名配置
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	// .env 不存在时忽略
	_ = godotenv.Load()
	config.applyEnv()

	// 设置默认值
	config.setDefaults()

	cfgLock.Lock()
	cfg = &config
	cfgLock.Unlock()

	return &config, nil
}

// Default 返回只含默认值的配置
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

// Get 获取全局配置（线程安全）
func Get() *Config {
	cfgLock.RLock()
	defer cfgLock.RUnlock()
	return cfg
}

// Save 保存配置到文件
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv 用环境变量覆盖密钥类配置
func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DB_PASSWORD":                 &c.Database.Password,
		"JWT_SECRET":                  &c.Auth.JWTSecret,
		"PAYPAL_CLIENT_ID":            &c.PayPal.ClientID,
		"PAYPAL_CLIENT_SECRET":        &c.PayPal.ClientSecret,
		"PAYPAL_WEBHOOK_ID":           &c.PayPal.WebhookID,
		"SHIPSTATION_API_KEY_V1":      &c.ShipStation.APIKey,
		"SHIPSTATION_API_SECRET_V1":   &c.ShipStation.APISecret,
		"TAXCLOUD_CONNECTION_ID":      &c.TaxCloud.ConnectionID,
		"TAXCLOUD_API_KEY":            &c.TaxCloud.APIKey,
		"MAILCHIMP_TRANSACTIONAL_KEY": &c.Email.APIKey,
		"TELEGRAM_BOT_TOKEN":          &c.Telegram.BotToken,
		"SITE_URL":                    &c.SiteURL,
	}
	for key, target := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*target = v
		}
	}
	if v, ok := os.LookupEnv("PAYPAL_SANDBOX"); ok {
		c.PayPal.Sandbox = v == "true"
	}
}

// setDefaults 设置默认值
func (c *Config) setDefaults() {
	if c.SiteName == "" {
		c.SiteName = "Toynami"
	}
	c.SiteURL = strings.TrimSuffix(c.SiteURL, "/")
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Port == 0 {
		if c.Database.Driver == "postgres" {
			c.Database.Port = 5432
		} else {
			c.Database.Port = 3306
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.API.Port == 0 {
		c.API.Port = 8838
	}
	if len(c.API.AllowOrigins) == 0 {
		c.API.AllowOrigins = []string{"*"}
	}
	if c.Auth.TokenTTLHours == 0 {
		c.Auth.TokenTTLHours = 72
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "sf_token"
	}
	if c.Raffle.PurchaseWindowHours == 0 {
		c.Raffle.PurchaseWindowHours = 48
	}
	if c.Raffle.ReminderLeadHours == 0 {
		c.Raffle.ReminderLeadHours = 24
	}
	if c.PayPal.BaseURL == "" {
		if c.PayPal.Sandbox {
			c.PayPal.BaseURL = "https://api-m.sandbox.paypal.com"
		} else {
			c.PayPal.BaseURL = "https://api-m.paypal.com"
		}
	}
	if c.PayPal.Currency == "" {
		c.PayPal.Currency = "USD"
	}
	if c.ShipStation.BaseURL == "" {
		c.ShipStation.BaseURL = "https://ssapi.shipstation.com"
	}
	if len(c.ShipStation.Carriers) == 0 {
		c.ShipStation.Carriers = []string{"stamps_com", "ups"}
	}
	if c.ShipStation.FromPostalCode == "" {
		c.ShipStation.FromPostalCode = "93065"
	}
	if c.ShipStation.FromCity == "" {
		c.ShipStation.FromCity = "Simi Valley"
	}
	if c.ShipStation.FromState == "" {
		c.ShipStation.FromState = "CA"
	}
	if c.TaxCloud.BaseURL == "" {
		c.TaxCloud.BaseURL = "https://api.v3.taxcloud.com"
	}
	if c.TaxCloud.TimeoutSeconds == 0 {
		c.TaxCloud.TimeoutSeconds = 10
	}
	if c.Email.BaseURL == "" {
		c.Email.BaseURL = "https://mandrillapp.com/api/1.0"
	}
	if c.Email.FromName == "" {
		c.Email.FromName = c.SiteName
	}
}

// TaxCloudConfigured TaxCloud 凭据是否齐全
func (c *Config) TaxCloudConfigured() bool {
	return c.TaxCloud.ConnectionID != "" && c.TaxCloud.APIKey != ""
}

// ShipStationConfigured ShipStation 凭据齐全且至少有一个承运商
func (c *Config) ShipStationConfigured() bool {
	return c.ShipStation.APIKey != "" && c.ShipStation.APISecret != "" && len(c.ShipStation.Carriers) > 0
}

// PayPalConfigured PayPal 凭据是否齐全
func (c *Config) PayPalConfigured() bool {
	return c.PayPal.ClientID != "" && c.PayPal.ClientSecret != ""
}

// ClaimURL 中奖者领奖页面地址
func (c *Config) ClaimURL(slug string) string {
	return c.SiteURL + "/contests/raffles/" + slug + "/claim"
}

// RaffleURL 抽奖详情页地址
func (c *Config) RaffleURL(slug string) string {
	return c.SiteURL + "/contests/raffles/" + slug
}
