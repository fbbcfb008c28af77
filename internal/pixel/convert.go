package pixel

import (
	"image"
	"image/color"
)

// FromImage converts a decoded Go image into the canonical representation.
// 8-bit sources get Depth 8, 16-bit sources Depth 16. Paletted sources
// become PseudoClass images with a colormap.
func FromImage(src image.Image) (*Image, error) {
	b := src.Bounds()
	img, err := New(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	img.Depth = 8

	switch s := src.(type) {
	case *image.Gray:
		img.SetColorspace(GrayColorspace)
		for y := 0; y < img.Rows; y++ {
			for x := 0; x < img.Columns; x++ {
				img.Set(x, y, GrayChannel, scale8(s.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	case *image.Gray16:
		img.Depth = 16
		img.SetColorspace(GrayColorspace)
		for y := 0; y < img.Rows; y++ {
			for x := 0; x < img.Columns; x++ {
				img.Set(x, y, GrayChannel, Quantum(s.Gray16At(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	case *image.CMYK:
		img.SetColorspace(CMYKColorspace)
		for y := 0; y < img.Rows; y++ {
			for x := 0; x < img.Columns; x++ {
				c := s.CMYKAt(b.Min.X+x, b.Min.Y+y)
				img.Set(x, y, CyanChannel, scale8(c.C))
				img.Set(x, y, MagentaChannel, scale8(c.M))
				img.Set(x, y, YellowChannel, scale8(c.Y))
				img.Set(x, y, BlackChannel, scale8(c.K))
			}
		}
	case *image.Paletted:
		fromPaletted(img, s)
	default:
		wide := is16Bit(src)
		if wide {
			img.Depth = 16
		}
		alpha := false
		for y := b.Min.Y; y < b.Max.Y && !alpha; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				if _, _, _, a := src.At(x, y).RGBA(); a != 0xffff {
					alpha = true
					break
				}
			}
		}
		img.SetAlpha(alpha)
		for y := 0; y < img.Rows; y++ {
			for x := 0; x < img.Columns; x++ {
				c := color.NRGBA64Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
				img.Set(x, y, RedChannel, Quantum(c.R))
				img.Set(x, y, GreenChannel, Quantum(c.G))
				img.Set(x, y, BlueChannel, Quantum(c.B))
				img.Set(x, y, AlphaChannel, Quantum(c.A))
			}
		}
	}
	return img, nil
}

func fromPaletted(img *Image, s *image.Paletted) {
	b := s.Bounds()
	img.Colormap = make([]Color, len(s.Palette))
	alpha := false
	for i, c := range s.Palette {
		n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
		img.Colormap[i] = Color{Red: Quantum(n.R), Green: Quantum(n.G), Blue: Quantum(n.B), Alpha: Quantum(n.A)}
		if n.A != 0xffff {
			alpha = true
		}
	}
	img.SetAlpha(alpha)
	img.SetStorageClass(PseudoClass)
	for y := 0; y < img.Rows; y++ {
		for x := 0; x < img.Columns; x++ {
			idx := int(s.ColorIndexAt(b.Min.X+x, b.Min.Y+y))
			var c Color
			if idx < len(img.Colormap) {
				c = img.Colormap[idx]
			}
			img.Set(x, y, IndexChannel, Quantum(idx))
			img.Set(x, y, RedChannel, c.Red)
			img.Set(x, y, GreenChannel, c.Green)
			img.Set(x, y, BlueChannel, c.Blue)
			img.Set(x, y, AlphaChannel, c.Alpha)
		}
	}
}

// ToImage converts the image to a Go image suitable for the standard
// encoders. Images of depth 8 or less produce 8-bit Go images.
func (img *Image) ToImage() image.Image {
	r := img.Bounds()
	narrow := img.Depth <= 8
	switch {
	case img.class == PseudoClass && len(img.Colormap) > 0 && len(img.Colormap) <= 256:
		palette := make(color.Palette, len(img.Colormap))
		for i, c := range img.Colormap {
			palette[i] = color.NRGBA64{R: uint16(c.Red), G: uint16(c.Green), B: uint16(c.Blue), A: uint16(c.Alpha)}
		}
		dst := image.NewPaletted(r, palette)
		for y := 0; y < img.Rows; y++ {
			for x := 0; x < img.Columns; x++ {
				idx := img.Get(x, y, IndexChannel)
				if int(idx) >= len(palette) {
					idx = 0
				}
				dst.SetColorIndex(x, y, uint8(idx))
			}
		}
		return dst
	case img.colorspace.IsGray() && !img.alpha:
		if narrow {
			dst := image.NewGray(r)
			for y := 0; y < img.Rows; y++ {
				for x := 0; x < img.Columns; x++ {
					dst.SetGray(x, y, color.Gray{Y: uint8(img.Get(x, y, GrayChannel) >> 8)})
				}
			}
			return dst
		}
		dst := image.NewGray16(r)
		for y := 0; y < img.Rows; y++ {
			for x := 0; x < img.Columns; x++ {
				dst.SetGray16(x, y, color.Gray16{Y: uint16(img.Get(x, y, GrayChannel))})
			}
		}
		return dst
	case img.colorspace.IsCMYK() && !img.alpha:
		dst := image.NewCMYK(r)
		for y := 0; y < img.Rows; y++ {
			for x := 0; x < img.Columns; x++ {
				dst.SetCMYK(x, y, color.CMYK{
					C: uint8(img.Get(x, y, CyanChannel) >> 8),
					M: uint8(img.Get(x, y, MagentaChannel) >> 8),
					Y: uint8(img.Get(x, y, YellowChannel) >> 8),
					K: uint8(img.Get(x, y, BlackChannel) >> 8),
				})
			}
		}
		return dst
	}
	if narrow {
		dst := image.NewNRGBA(r)
		for y := 0; y < img.Rows; y++ {
			for x := 0; x < img.Columns; x++ {
				dst.SetNRGBA(x, y, color.NRGBA{
					R: uint8(img.Get(x, y, RedChannel) >> 8),
					G: uint8(img.Get(x, y, GreenChannel) >> 8),
					B: uint8(img.Get(x, y, BlueChannel) >> 8),
					A: uint8(img.Get(x, y, AlphaChannel) >> 8),
				})
			}
		}
		return dst
	}
	dst := image.NewNRGBA64(r)
	for y := 0; y < img.Rows; y++ {
		for x := 0; x < img.Columns; x++ {
			dst.SetNRGBA64(x, y, color.NRGBA64{
				R: uint16(img.Get(x, y, RedChannel)),
				G: uint16(img.Get(x, y, GreenChannel)),
				B: uint16(img.Get(x, y, BlueChannel)),
				A: uint16(img.Get(x, y, AlphaChannel)),
			})
		}
	}
	return dst
}

func scale8(v uint8) Quantum { return Quantum(v) * 257 }

func is16Bit(src image.Image) bool {
	switch src.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		return true
	}
	return false
}
