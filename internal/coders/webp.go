package coders

import (
	"image"
	"io"

	"golang.org/x/image/webp"

	"github.com/ironsheep/pixelcodec/internal/codec"
)

// registerWebP adds the WebP decoder. There is no pure Go WebP encoder, so
// writes go through a delegate when one is configured.
func registerWebP(r *codec.Registry) {
	r.Register(&codec.Entry{
		Tag:         "WEBP",
		Description: "WebP image format",
		Extensions:  []string{"webp"},
		Magic: func(h []byte) bool {
			return len(h) >= 12 && string(h[:4]) == "RIFF" && string(h[8:12]) == "WEBP"
		},
		Flags: codec.ThreadSafe | codec.DecoderOnly,
		Codec: &standardCodec{
			tag:    "WEBP",
			decode: func(r io.Reader) (image.Image, error) { return webp.Decode(r) },
		},
	})
}
