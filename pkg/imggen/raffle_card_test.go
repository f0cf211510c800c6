package imggen

import (
	"bytes"
	"image/png"
	"testing"
	"time"
)

func TestGenerateRaffleCard(t *testing.T) {
	tests := []struct {
		name string
		card RaffleCard
	}{
		{
			name: "完整数据",
			card: RaffleCard{
				SiteName:     "Toynami",
				RaffleName:   "Voltron Legendary Edition Lion Force Collector Set",
				ProductName:  "Voltron Lion Force",
				Price:        "$199.99",
				Status:       "open",
				EntryCount:   1234,
				TotalWinners: 5,
				DrawDate:     time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "最少数据",
			card: RaffleCard{SiteName: "Toynami", RaffleName: "R1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := GenerateRaffleCard(tt.card)
			if err != nil {
				t.Fatalf("GenerateRaffleCard() 出错: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("输出不是合法的 PNG: %v", err)
			}
			if b := img.Bounds(); b.Dx() != CardWidth || b.Dy() != CardHeight {
				t.Errorf("图片尺寸 = %dx%d, want %dx%d", b.Dx(), b.Dy(), CardWidth, CardHeight)
			}
		})
	}
}
