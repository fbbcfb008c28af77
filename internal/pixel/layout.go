package pixel

// Layout maps channel roles to offsets within a pixel.
type Layout struct {
	channels []Channel
	offset   [MaxChannels]int
}

// NewLayout derives the channel layout for an image with the given traits.
func NewLayout(cs Colorspace, alpha bool, class StorageClass) Layout {
	var l Layout
	for i := range l.offset {
		l.offset[i] = -1
	}
	add := func(c Channel) {
		l.offset[c] = len(l.channels)
		l.channels = append(l.channels, c)
	}
	switch {
	case cs.IsGray():
		add(GrayChannel)
		l.offset[RedChannel] = l.offset[GrayChannel]
		l.offset[GreenChannel] = l.offset[GrayChannel]
		l.offset[BlueChannel] = l.offset[GrayChannel]
	case cs.IsCMYK():
		add(CyanChannel)
		add(MagentaChannel)
		add(YellowChannel)
		add(BlackChannel)
	default:
		add(RedChannel)
		add(GreenChannel)
		add(BlueChannel)
	}
	if alpha {
		add(AlphaChannel)
	}
	if class == PseudoClass {
		add(IndexChannel)
	}
	return l
}

// Channels returns the number of values per pixel.
func (l Layout) Channels() int { return len(l.channels) }

// List returns the channel roles in storage order.
func (l Layout) List() []Channel { return append([]Channel(nil), l.channels...) }

// Offset returns the position of c within a pixel, or -1 when absent.
func (l Layout) Offset(c Channel) int {
	if c < 0 || c >= MaxChannels {
		return -1
	}
	return l.offset[c]
}

// Has reports whether c is stored.
func (l Layout) Has(c Channel) bool { return l.Offset(c) >= 0 }
