package cloud

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// RenderQR draws content as a low-ECC QR code using half-block characters,
// two modules per text row.
func RenderQR(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "", err
	}
	bmp := qr.Bitmap()
	rows := len(bmp)
	if rows == 0 {
		return "", nil
	}
	cols := len(bmp[0])

	var buf strings.Builder
	for y := 0; y < rows; y += 2 {
		for x := 0; x < cols; x++ {
			top := bmp[y][x]
			bottom := y+1 < rows && bmp[y+1][x]
			switch {
			case top && bottom:
				buf.WriteRune('█')
			case top:
				buf.WriteRune('▀')
			case bottom:
				buf.WriteRune('▄')
			default:
				buf.WriteRune(' ')
			}
		}
		buf.WriteByte('\n')
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
