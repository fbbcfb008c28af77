package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/constitute"
	"github.com/ironsheep/pixelcodec/internal/pixel"
)

// CropResult contains a cropped region encoded as PNG.
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts the region (x1,y1)-(x2,y2), optionally resizes it by scale
// with a Lanczos filter, and encodes it as PNG through d.
func Crop(ctx context.Context, d *constitute.Dispatcher, img *pixel.Image, x1, y1, x2, y2 int, scale float64) (*CropResult, error) {
	bounds := img.Bounds()
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}
	region := image.Rect(x1, y1, x2, y2)
	if !region.In(bounds) {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds %dx%d",
			x1, y1, x2, y2, img.Columns, img.Rows)
	}

	cropped := imaging.Crop(img.ToImage(), region)
	if scale != 1.0 && scale > 0 {
		newWidth := max(1, int(float64(cropped.Bounds().Dx())*scale))
		newHeight := max(1, int(float64(cropped.Bounds().Dy())*scale))
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	out, err := pixel.FromImage(cropped)
	if err != nil {
		return nil, fmt.Errorf("failed to convert cropped image: %w", err)
	}
	defer out.Destroy()

	blob, err := d.ImageToBlob(ctx, &codec.ImageInfo{Magick: "PNG", Affirm: true}, []*pixel.Image{out}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Width:       out.Columns,
		Height:      out.Rows,
		ImageBase64: base64.StdEncoding.EncodeToString(blob),
		MimeType:    "image/png",
	}, nil
}
