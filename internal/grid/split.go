// Package grid splits a rendered 3x3 comic page into its nine panel images.
package grid

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

const (
	// Rows and Cols describe the fixed page layout.
	Rows = 3
	Cols = 3
)

// Split cuts a page image into Rows*Cols panels in row-major order. Cell
// width and height are the integer thirds of the page dimensions; the last
// column and row absorb any remainder so the cells tile the page exactly.
func Split(page image.Image) ([]image.Image, error) {
	b := page.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < Cols || h < Rows {
		return nil, fmt.Errorf("page %dx%d too small to split into %dx%d grid", w, h, Cols, Rows)
	}

	cellW := w / Cols
	cellH := h / Rows

	panels := make([]image.Image, 0, Rows*Cols)
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			x0 := b.Min.X + col*cellW
			y0 := b.Min.Y + row*cellH
			x1 := x0 + cellW
			y1 := y0 + cellH
			if col == Cols-1 {
				x1 = b.Max.X
			}
			if row == Rows-1 {
				y1 = b.Max.Y
			}

			rect := image.Rect(x0, y0, x1, y1)
			cell := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
			draw.Draw(cell, cell.Bounds(), page, rect.Min, draw.Src)
			panels = append(panels, cell)
		}
	}
	return panels, nil
}

// DecodePNG decodes a PNG byte slice into an image.
func DecodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding png: %w", err)
	}
	return img, nil
}

// EncodePNG encodes an image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// SplitPNG decodes a PNG page and returns the nine panels re-encoded as PNG,
// row-major.
func SplitPNG(data []byte) ([][]byte, error) {
	page, err := DecodePNG(data)
	if err != nil {
		return nil, err
	}
	panels, err := Split(page)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(panels))
	for i, p := range panels {
		enc, err := EncodePNG(p)
		if err != nil {
			return nil, fmt.Errorf("panel %d: %w", i, err)
		}
		out = append(out, enc)
	}
	return out, nil
}
