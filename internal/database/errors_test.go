package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"gorm 翻译后的错误", gorm.ErrDuplicatedKey, true},
		{"包装后的 gorm 错误", fmt.Errorf("创建订单: %w", gorm.ErrDuplicatedKey), true},
		{"MySQL 1062", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"MySQL 其他错误", &mysql.MySQLError{Number: 1452, Message: "fk"}, false},
		{"sqlite 唯一约束", errors.New("constraint failed: UNIQUE constraint failed: orders.raffle_winner_id (2067)"), true},
		{"普通错误", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicateKey(tt.err); got != tt.expected {
				t.Errorf("IsDuplicateKey() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("查询: %w", gorm.ErrRecordNotFound)) {
		t.Error("包装后的 ErrRecordNotFound 应该被识别")
	}
	if IsNotFound(errors.New("x")) {
		t.Error("普通错误不应该被识别为 not found")
	}
}
