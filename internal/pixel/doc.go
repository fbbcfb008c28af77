// Package pixel defines the canonical in-memory pixel representation used by
// the codec core.
//
// An Image stores every pixel as an ordered tuple of Quantum values, one per
// channel. Which channels exist, and in which order, is a property of the
// image rather than of the pixel: it follows from the image's Colorspace,
// its alpha trait and its StorageClass, and is described by a Layout.
//
// # Channel Layout
//
// The color channels come first, then alpha, then the colormap index:
//   - Gray colorspace: gray
//   - CMYK colorspace: cyan, magenta, yellow, black
//   - everything else: red, green, blue
//
// Red, green and blue resolve to the gray slot in a gray image, so a caller
// asking a gray image for its red channel gets the gray value.
//
// # Quantum Range
//
// Channel values are 16-bit fixed point integers in [0, QuantumRange]. Every
// write path clamps to that range. Image.Depth records the precision the
// values were produced at (8 for an 8-bit PNG) and drives the default depth
// of external transfers.
//
// # Storage Sharing
//
// Clone shares pixel storage with the source image and bumps a reference
// count; Authentic detaches shared storage before handing out writable
// pixels, and Destroy drops a reference. The count is guarded by a mutex so
// clones can be released from different goroutines. An Image itself is not
// safe for concurrent mutation; callers serialize per image.
package pixel
