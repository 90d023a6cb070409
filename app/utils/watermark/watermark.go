package watermark

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// Prepare 将水印图片按最大宽度缩放后保存到目标目录，返回处理后的路径。
// 图片本身不超宽时直接复制为 PNG。
func Prepare(srcPath, destDir string, maxWidth int) (string, error) {
	img, err := imaging.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("打开水印图片失败: %w", err)
	}

	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		// 按宽度等比缩放
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("创建水印目录失败: %w", err)
	}

	name := filepath.Base(srcPath)
	ext := filepath.Ext(name)
	destPath := filepath.Join(destDir, name[:len(name)-len(ext)]+"_prepared.png")

	if err := imaging.Save(img, destPath); err != nil {
		return "", fmt.Errorf("保存水印图片失败: %w", err)
	}

	return destPath, nil
}

// RenderBadge 在没有配置水印图片时，用品牌文字生成一个简单的角标图片
func RenderBadge(text, destPath string) error {
	if text == "" {
		return fmt.Errorf("水印文字为空")
	}

	face := basicfont.Face7x13
	padding := 12.0

	// 先量文字尺寸再定画布大小
	measure := gg.NewContext(1, 1)
	measure.SetFontFace(face)
	w, h := measure.MeasureString(text)

	width := int(w + padding*2)
	height := int(h + padding*2)

	dc := gg.NewContext(width, height)
	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRoundedRectangle(0, 0, float64(width), float64(height), 6)
	dc.Fill()

	dc.SetFontFace(face)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(text, float64(width)/2, float64(height)/2, 0.5, 0.5)

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("创建水印目录失败: %w", err)
	}

	if err := dc.SavePNG(destPath); err != nil {
		return fmt.Errorf("保存文字水印失败: %w", err)
	}

	return nil
}
