// Package imggen 图片生成模块
package imggen

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Open Graph 推荐尺寸
const (
	CardWidth  = 1200
	CardHeight = 630
)

// RaffleCard 抽奖分享卡片数据
type RaffleCard struct {
	SiteName     string
	RaffleName   string
	ProductName  string
	Price        string // 已格式化，如 $199.99
	Status       string
	EntryCount   int64
	TotalWinners int
	DrawDate     time.Time
}

// 颜色定义
var (
	bgTopColor    = color.RGBA{30, 60, 114, 255}   // 渐变起始
	bgBottomColor = color.RGBA{25, 25, 35, 255}    // 深色背景
	panelColor    = color.RGBA{35, 35, 50, 200}    // 信息面板
	goldColor     = color.RGBA{255, 215, 0, 255}   // 金色
	textColor     = color.RGBA{255, 255, 255, 255} // 白色文字
	subTextColor  = color.RGBA{180, 180, 180, 255} // 灰色文字
	accentColor   = color.RGBA{138, 43, 226, 255}  // 紫色强调
)

var (
	fontsOnce sync.Once
	fontsErr  error
	regular   *truetype.Font
	bold      *truetype.Font
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regular, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		bold, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// GenerateRaffleCard 生成抽奖分享卡片 PNG
func GenerateRaffleCard(card RaffleCard) ([]byte, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("加载字体失败: %w", err)
	}

	dc := gg.NewContext(CardWidth, CardHeight)
	drawBackground(dc)
	drawHeader(dc, card)
	drawDetails(dc, card)
	drawFooter(dc, card)

	return exportPNG(dc)
}

// drawBackground 纵向渐变背景
func drawBackground(dc *gg.Context) {
	for y := 0; y < CardHeight; y++ {
		t := float64(y) / float64(CardHeight)
		r := uint8(float64(bgTopColor.R)*(1-t) + float64(bgBottomColor.R)*t)
		g := uint8(float64(bgTopColor.G)*(1-t) + float64(bgBottomColor.G)*t)
		b := uint8(float64(bgTopColor.B)*(1-t) + float64(bgBottomColor.B)*t)
		dc.SetColor(color.RGBA{r, g, b, 255})
		dc.DrawRectangle(0, float64(y), CardWidth, 1)
		dc.Fill()
	}
}

func drawHeader(dc *gg.Context, card RaffleCard) {
	dc.SetFontFace(face(bold, 28))
	dc.SetColor(goldColor)
	dc.DrawStringAnchored(strings.ToUpper(card.SiteName+" Raffle"), 60, 70, 0, 0.5)

	dc.SetFontFace(face(bold, 64))
	dc.SetColor(textColor)
	dc.DrawStringWrapped(card.RaffleName, 60, 110, 0, 0, CardWidth-120, 1.15, gg.AlignLeft)

	dc.SetColor(accentColor)
	dc.SetLineWidth(3)
	dc.DrawLine(60, 300, CardWidth-60, 300)
	dc.Stroke()
}

func drawDetails(dc *gg.Context, card RaffleCard) {
	dc.SetColor(panelColor)
	dc.DrawRoundedRectangle(60, 330, CardWidth-120, 190, 16)
	dc.Fill()

	dc.SetFontFace(face(regular, 34))
	dc.SetColor(textColor)
	prize := card.ProductName
	if card.Price != "" {
		prize = fmt.Sprintf("%s  ·  %s", card.ProductName, card.Price)
	}
	dc.DrawStringAnchored(prize, 90, 380, 0, 0.5)

	dc.SetFontFace(face(regular, 28))
	dc.SetColor(subTextColor)
	stats := fmt.Sprintf("%d entries  |  %d winners", card.EntryCount, card.TotalWinners)
	if !card.DrawDate.IsZero() {
		stats += "  |  Draw " + card.DrawDate.UTC().Format("Jan 2, 2006")
	}
	dc.DrawStringAnchored(stats, 90, 440, 0, 0.5)

	if card.Status != "" {
		dc.SetFontFace(face(bold, 28))
		dc.SetColor(goldColor)
		dc.DrawStringAnchored(strings.ToUpper(card.Status), CardWidth-90, 440, 1, 0.5)
	}
}

func drawFooter(dc *gg.Context, card RaffleCard) {
	dc.SetFontFace(face(regular, 22))
	dc.SetColor(subTextColor)
	dc.DrawStringAnchored("Enter now at "+card.SiteName, CardWidth/2, CardHeight-50, 0.5, 0.5)
}

// exportPNG 导出为 PNG
func exportPNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}
