// Package quantum converts between canonical pixels and external byte
// layouts.
//
// A transfer is configured by an Info (depth, numeric format, endianness,
// padding, packing, float scale) and selects its channels with a Type such as
// RGBQuantum or CMYKAQuantum. Export turns a block of pixels into bytes;
// Import is the exact inverse.
//
// # Dispatch
//
// Conversion is split in two levels. A Type resolves to a Layout, the
// ordered list of samples to produce for each pixel (a plain channel,
// opacity, luma, colormap index or a pad sample). The samples of a scanline
// are then scaled to the target depth and handed to a row packer. Depths 1,
// 4, 8, 10, 12, 16, 32 and 64 have dedicated packers; everything else goes
// through the generic packer driven by State, the bit accumulator. The
// dedicated packers produce the same bytes as the generic one.
//
// # Bit Layout
//
// Depths that are a multiple of 8 occupy depth/8 bytes per sample in the
// configured byte order. Other depths are either packed into one MSB-first
// bitstream per scanline (the default) or, with packing disabled, stored
// left-aligned in 8, 16, 32 or 64-bit units: depth 10 puts three samples in a
// 32-bit word and depth 12 one sample in a 16-bit unit. A partially filled
// byte or unit is flushed with zero bits at the end of every scanline.
//
// # Preconditions
//
// Index types need a PseudoClass image and black-bearing types need a CMYK
// image. When a precondition fails the call returns the extent the transfer
// would have needed and writes nothing.
//
// An Info carries scratch state and must not be shared between goroutines.
package quantum
