// Package imaging turns backend image blobs into terminal previews.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	// Register decoders for the formats the backend and upload inbox use.
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/charmbracelet/lipgloss"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// ErrEmpty is returned for a zero-length blob.
var ErrEmpty = errors.New("empty image")

const upperHalf = "▀"

// Decode parses an image blob and returns the format name.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmpty
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// FitSize returns the pixel size of src scaled to fit a box of cols x rows
// terminal cells. Each cell shows two vertically stacked pixels. The result
// keeps the aspect ratio and has an even height.
func FitSize(src image.Rectangle, cols, rows int) image.Point {
	w, h := src.Dx(), src.Dy()
	if w <= 0 || h <= 0 || cols <= 0 || rows <= 0 {
		return image.Point{}
	}
	maxW, maxH := float64(cols), float64(rows*2)
	scale := min(maxW/float64(w), maxH/float64(h))

	out := image.Pt(max(1, int(float64(w)*scale)), max(2, int(float64(h)*scale)))
	if out.Y%2 == 1 {
		out.Y--
	}
	return out
}

// Fit scales img into a box of cols x rows terminal cells.
func Fit(img image.Image, cols, rows int) image.Image {
	size := FitSize(img.Bounds(), cols, rows)
	if size == (image.Point{}) {
		return image.NewRGBA(image.Rectangle{})
	}
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// HalfBlocks renders img with one upper-half block per pair of pixel rows:
// the foreground carries the top pixel and the background the bottom one.
func HalfBlocks(img image.Image) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(hexColor(img.At(x, y)))
			if y+1 < b.Max.Y {
				style = style.Background(hexColor(img.At(x, y+1)))
			}
			sb.WriteString(style.Render(upperHalf))
		}
	}
	return sb.String()
}

func hexColor(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}

// Preview decodes data and renders it into a cols x rows cell box.
func Preview(data []byte, cols, rows int) (string, error) {
	img, _, err := Decode(data)
	if err != nil {
		return "", err
	}
	return HalfBlocks(Fit(img, cols, rows)), nil
}
