package pixel

import "math"

// TransformColorspace converts the pixel values of img to cs and re-lays
// out the image. sRGB, linear RGB, gray, CMYK and YCbCr are supported; a
// PseudoClass image becomes DirectClass.
func (img *Image) TransformColorspace(cs Colorspace) {
	if cs == img.colorspace || cs == UndefinedColorspace {
		return
	}
	img.SetStorageClass(DirectClass)

	n := img.Columns * img.Rows
	rgb := make([][3]float64, n)
	for y := 0; y < img.Rows; y++ {
		for x := 0; x < img.Columns; x++ {
			rgb[y*img.Columns+x] = img.toRGB(x, y)
		}
	}

	img.SetColorspace(cs)
	for y := 0; y < img.Rows; y++ {
		for x := 0; x < img.Columns; x++ {
			img.fromRGB(x, y, rgb[y*img.Columns+x])
		}
	}
}

// toRGB returns the pixel at (x, y) as RGB in [0, 1].
func (img *Image) toRGB(x, y int) [3]float64 {
	get := func(c Channel) float64 { return float64(img.Get(x, y, c)) / float64(QuantumRange) }
	switch {
	case img.colorspace.IsGray():
		g := get(GrayChannel)
		return [3]float64{g, g, g}
	case img.colorspace.IsCMYK():
		k := 1 - get(BlackChannel)
		return [3]float64{(1 - get(CyanChannel)) * k, (1 - get(MagentaChannel)) * k, (1 - get(YellowChannel)) * k}
	case img.colorspace == YCbCrColorspace:
		yy, cb, cr := get(RedChannel), get(GreenChannel)-0.5, get(BlueChannel)-0.5
		return [3]float64{
			yy + 1.402*cr,
			yy - 0.344136*cb - 0.714136*cr,
			yy + 1.772*cb,
		}
	}
	return [3]float64{get(RedChannel), get(GreenChannel), get(BlueChannel)}
}

// fromRGB stores an RGB value in the image's current colorspace.
func (img *Image) fromRGB(x, y int, rgb [3]float64) {
	put := func(c Channel, v float64) { img.Set(x, y, c, ClampToQuantum(v*float64(QuantumRange))) }
	r, g, b := rgb[0], rgb[1], rgb[2]
	switch {
	case img.colorspace.IsGray():
		put(GrayChannel, 0.212656*r+0.715158*g+0.072186*b)
	case img.colorspace.IsCMYK():
		w := math.Max(r, math.Max(g, b))
		if w == 0 {
			put(CyanChannel, 0)
			put(MagentaChannel, 0)
			put(YellowChannel, 0)
			put(BlackChannel, 1)
			return
		}
		put(CyanChannel, (w-r)/w)
		put(MagentaChannel, (w-g)/w)
		put(YellowChannel, (w-b)/w)
		put(BlackChannel, 1-w)
	case img.colorspace == YCbCrColorspace:
		put(RedChannel, 0.299*r+0.587*g+0.114*b)
		put(GreenChannel, -0.168736*r-0.331264*g+0.5*b+0.5)
		put(BlueChannel, 0.5*r-0.418688*g-0.081312*b+0.5)
	default:
		put(RedChannel, r)
		put(GreenChannel, g)
		put(BlueChannel, b)
	}
}
