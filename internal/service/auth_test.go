package service

import (
	"errors"
	"testing"
	"time"

	"github.com/smysle/raffle-storefront-go/internal/config"
	"github.com/smysle/raffle-storefront-go/internal/database/models"
	"github.com/smysle/raffle-storefront-go/internal/testutil"
)

func TestAuthService_Login(t *testing.T) {
	db := testutil.NewDB(t)
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword() 出错: %v", err)
	}
	user := &models.User{ID: "u1", Email: "admin@example.com", PasswordHash: hash, IsAdmin: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	svc := NewAuthService(db, config.AuthConfig{JWTSecret: "secret", TokenTTLHours: 1})

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "登录成功", email: "admin@example.com", password: "hunter22"},
		{name: "邮箱大小写不敏感", email: "Admin@Example.com", password: "hunter22"},
		{name: "密码错误", email: "admin@example.com", password: "wrong", wantErr: ErrInvalidCredentials},
		{name: "用户不存在", email: "nobody@example.com", password: "hunter22", wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, u, err := svc.Login(tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Login() 错误 = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() 出错: %v", err)
			}
			if token == "" || u.ID != "u1" {
				t.Errorf("Login() 返回不正确: token=%q user=%+v", token, u)
			}
		})
	}

	if !svc.IsAdmin("u1") || svc.IsAdmin("nobody") {
		t.Error("IsAdmin() 结果不正确")
	}
}

func TestAuthService_ParseToken(t *testing.T) {
	svc := NewAuthService(nil, config.AuthConfig{JWTSecret: "secret", TokenTTLHours: 1})
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = fixedClock(issued)

	token, err := svc.IssueToken(&models.User{ID: "u1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("IssueToken() 出错: %v", err)
	}

	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() 出错: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "a@example.com" {
		t.Errorf("Claims 不正确: %+v", claims)
	}

	svc.now = fixedClock(issued.Add(2 * time.Hour))
	if _, err := svc.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("过期令牌应该返回 ErrInvalidToken，实际是 %v", err)
	}

	other := NewAuthService(nil, config.AuthConfig{JWTSecret: "other", TokenTTLHours: 1})
	other.now = fixedClock(issued)
	if _, err := other.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("错误密钥签名的令牌应该被拒绝，实际是 %v", err)
	}
	if _, err := svc.ParseToken("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("无效令牌应该返回 ErrInvalidToken，实际是 %v", err)
	}
}
