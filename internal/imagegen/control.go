package imagegen

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ControlImage returns the PNG control image for a scene. A non-nil error
// means the reference could not be used; the blank canvas is still returned.
func ControlImage(reference string, width, height int) ([]byte, error) {
	if reference == "" {
		return BlankCanvas(width, height)
	}
	edges, err := referenceEdges(reference, width, height)
	if err != nil {
		blank, blankErr := BlankCanvas(width, height)
		if blankErr != nil {
			return nil, blankErr
		}
		return blank, err
	}
	return encodePNG(edges)
}

// BlankCanvas is a white image giving the backend minimal guidance.
func BlankCanvas(width, height int) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return encodePNG(img)
}

func referenceEdges(path string, width, height int) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference: %w", err)
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode reference %s: %w", path, err)
	}
	gray := image.NewGray(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(gray, gray.Bounds(), src, src.Bounds(), draw.Src, nil)
	return SobelEdges(gray), nil
}

// SobelEdges returns the gradient magnitude of img scaled to 0..255. A flat
// image yields an all-black map.
func SobelEdges(img *image.Gray) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	at := func(x, y int) float64 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
	}
	mag := make([]float64, w*h)
	lo, hi := math.Inf(1), math.Inf(-1)
	for y := range h {
		for x := range w {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			m := math.Hypot(gx, gy)
			mag[y*w+x] = m
			lo = min(lo, m)
			hi = max(hi, m)
		}
	}
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, m := range mag {
		out.Pix[(i/w)*out.Stride+i%w] = uint8(math.Round((m - lo) / span * 255))
	}
	return out
}

// ValidatePNG rejects cached bytes that are not a decodable, non-empty PNG.
func ValidatePNG(data []byte) error {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("not a png: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("png has no pixels (%dx%d)", cfg.Width, cfg.Height)
	}
	return nil
}

// normalizePNG re-encodes backend output as PNG when it arrives in another
// format.
func normalizePNG(data []byte) ([]byte, error) {
	if ValidatePNG(data) == nil {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode backend image: %w", err)
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
