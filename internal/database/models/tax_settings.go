package models

import (
	"strings"
	"time"
)

// TaxSettings 税费设置，表中只有一行
type TaxSettings struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Enabled          bool      `gorm:"column:enabled;default:false" json:"enabled"`
	TaxShipping      bool      `gorm:"column:tax_shipping" json:"tax_shipping"`
	TaxEnabledStates string    `gorm:"column:tax_enabled_states;size:512" json:"tax_enabled_states"` // 逗号分隔的州代码，空表示全部
	OriginLine1      string    `gorm:"column:origin_line1;size:255" json:"origin_line1"`
	OriginCity       string    `gorm:"column:origin_city;size:128" json:"origin_city"`
	OriginState      string    `gorm:"column:origin_state;size:8" json:"origin_state"`
	OriginZip        string    `gorm:"column:origin_zip;size:16" json:"origin_zip"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 表名
func (TaxSettings) TableName() string {
	return "tax_settings"
}

// EnabledStates 解析启用计税的州
func (s *TaxSettings) EnabledStates() []string {
	var states []string
	for _, part := range strings.Split(s.TaxEnabledStates, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			states = append(states, part)
		}
	}
	return states
}

// IsStateTaxable 目的州是否需要计税
func (s *TaxSettings) IsStateTaxable(state string) bool {
	states := s.EnabledStates()
	if len(states) == 0 {
		return true
	}
	state = strings.ToUpper(strings.TrimSpace(state))
	for _, st := range states {
		if st == state {
			return true
		}
	}
	return false
}
