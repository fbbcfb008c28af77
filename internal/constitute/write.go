package constitute

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/delegate"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
	"github.com/ironsheep/pixelcodec/internal/policy"
	"github.com/ironsheep/pixelcodec/internal/stream"
)

// WriteImage encodes images to the file named by info, or to standard
// output when the name is "-". A format that stores a single image gets
// one numbered file per image.
func (d *Dispatcher) WriteImage(ctx context.Context, info *codec.ImageInfo, images []*pixel.Image, sink *exception.Sink) error {
	err := d.write(ctx, info.Clone(), images, nil, true)
	if err != nil {
		sink.Add(err)
	}
	return err
}

// ImageToBlob encodes images into memory.
func (d *Dispatcher) ImageToBlob(ctx context.Context, info *codec.ImageInfo, images []*pixel.Image, sink *exception.Sink) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.write(ctx, info.Clone(), images, &buf, true); err != nil {
		sink.Add(err)
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteStream encodes one image whose pixels are supplied row by row by
// handler. img provides the geometry and channel layout.
func (d *Dispatcher) WriteStream(ctx context.Context, info *codec.ImageInfo, img *pixel.Image, handler stream.Handler, sink *exception.Sink) error {
	if handler == nil {
		err := exception.New(exception.StreamError, exception.ErrNoStreamHandler, info.Filename)
		sink.Add(err)
		return err
	}
	c := info.Clone()
	c.Stream = handler
	return d.WriteImage(ctx, c, []*pixel.Image{img}, sink)
}

// write encodes to out, or to the file named by info when out is nil.
func (d *Dispatcher) write(ctx context.Context, info *codec.ImageInfo, images []*pixel.Image, out io.Writer, allowDelegate bool) error {
	if len(images) == 0 {
		return exception.New(exception.OptionError, exception.ErrUnableToWriteFile, "no images to write")
	}
	if tag, file := codec.SplitFilename(info.Filename); tag != "" {
		info.Filename, info.Magick, info.Affirm = file, tag, true
	}
	tag := d.registry.Resolve(info, nil)
	if tag == "" && images[0].Magick != "" {
		tag = strings.ToUpper(images[0].Magick)
	}
	if tag == "" {
		return exception.New(exception.MissingDelegateError, exception.ErrNoEncodeDelegate, info.Filename)
	}
	slog.Debug("constitute: resolved output format", "file", info.Filename, "format", tag)

	pol := d.currentPolicy()
	if out == nil && info.Filename != "-" {
		if err := pol.Authorize(policy.PathDomain, policy.WriteRights, info.Filename); err != nil {
			slog.Debug("constitute: path denied", "path", info.Filename)
			return err
		}
	}
	if err := pol.Authorize(policy.CoderDomain, policy.WriteRights, tag); err != nil {
		slog.Debug("constitute: coder denied", "format", tag)
		return err
	}

	if entry, ok := d.registry.Lookup(tag); ok && entry.CanEncode() {
		if len(images) == 1 || entry.Flags.Has(codec.Adjoin) || out != nil || info.Filename == "-" {
			return d.encode(ctx, info, entry, images, out)
		}
		for i, img := range images {
			c := info.Clone()
			c.Filename = sceneFilename(info.Filename, i)
			c.Scene = i
			if err := d.encode(ctx, c, entry, []*pixel.Image{img}, nil); err != nil {
				return err
			}
		}
		return nil
	}
	if allowDelegate {
		if dg, ok := d.delegates.Encoder(tag); ok {
			return d.writeDelegate(ctx, info, dg, images, out)
		}
	}
	return exception.Newf(exception.MissingDelegateError, exception.ErrNoEncodeDelegate, "%s (%s)", tag, info.Filename)
}

func (d *Dispatcher) encode(ctx context.Context, info *codec.ImageInfo, entry *codec.Entry, images []*pixel.Image, out io.Writer) (err error) {
	w := out
	var file *os.File
	switch {
	case out != nil:
	case info.Filename == "-":
		w = os.Stdout
	default:
		if file, err = os.Create(info.Filename); err != nil {
			return exception.Newf(exception.FileOpenError, exception.ErrUnableToOpenFile, "%s: %v", info.Filename, err)
		}
		w = file
		defer func() {
			if cerr := file.Close(); cerr != nil && err == nil {
				err = exception.Newf(exception.FileOpenError, exception.ErrUnableToWriteFile, "%s: %v", info.Filename, cerr)
			}
			if err != nil {
				os.Remove(info.Filename)
			}
		}()
	}

	if entry.Flags.Has(codec.SeekableStream) && file == nil {
		return d.encodeSeekable(ctx, info, entry, images, w)
	}
	unlock := entry.Lock()
	defer unlock()
	return entry.Codec.Encode(ctx, info, w, images)
}

// encodeSeekable gives a coder that needs to seek a temporary file, then
// copies the result to w.
func (d *Dispatcher) encodeSeekable(ctx context.Context, info *codec.ImageInfo, entry *codec.Entry, images []*pixel.Image, w io.Writer) error {
	name := delegate.TempPath(d.tempDir, entry.Tag)
	f, err := os.Create(name)
	if err != nil {
		return exception.Newf(exception.FileOpenError, exception.ErrUnableToOpenFile, "%s: %v", name, err)
	}
	defer removeTemp(name)
	defer f.Close()

	unlock := entry.Lock()
	err = entry.Codec.Encode(ctx, info, f, images)
	unlock()
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return exception.Newf(exception.FileOpenError, exception.ErrUnableToWriteFile, "%s: %v", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return exception.Newf(exception.FileOpenError, exception.ErrUnableToWriteFile, "%s: %v", info.Filename, err)
	}
	return nil
}

// writeDelegate writes the images natively to a temporary file and lets an
// external program convert it to the requested format.
func (d *Dispatcher) writeDelegate(ctx context.Context, info *codec.ImageInfo, dg delegate.Delegate, images []*pixel.Image, out io.Writer) error {
	if err := d.currentPolicy().Authorize(policy.DelegateDomain, policy.ExecuteRights, dg.Tag()); err != nil {
		slog.Debug("constitute: delegate denied", "format", dg.Tag())
		return err
	}
	intermediate := delegate.TempPath(d.tempDir, dg.Format)
	defer removeTemp(intermediate)

	inner := info.Clone()
	inner.Filename, inner.Magick, inner.Affirm = intermediate, strings.ToUpper(dg.Format), true
	if err := d.write(ctx, inner, images, nil, false); err != nil {
		return err
	}

	output := info.Filename
	toStream := out != nil || output == "-"
	if toStream {
		output = delegate.TempPath(d.tempDir, dg.Tag())
		defer removeTemp(output)
	}
	slog.Debug("constitute: encoding through delegate", "delegate", dg.String(), "output", info.Filename)
	if err := dg.Run(ctx, intermediate, output); err != nil {
		return err
	}
	if !toStream {
		return nil
	}
	if out == nil {
		out = os.Stdout
	}
	f, err := os.Open(output)
	if err != nil {
		return exception.Newf(exception.DelegateError, exception.ErrDelegateFailed, "%s: %v", dg.Tag(), err)
	}
	defer f.Close()
	if _, err := io.Copy(out, f); err != nil {
		return exception.Newf(exception.FileOpenError, exception.ErrUnableToWriteFile, "%s: %v", dg.Tag(), err)
	}
	return nil
}

// sceneFilename numbers name for scene i: "out.png" becomes "out-1.png".
func sceneFilename(name string, i int) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), i, ext)
}

// WriteImage writes with the default dispatcher.
func WriteImage(ctx context.Context, info *codec.ImageInfo, images []*pixel.Image, sink *exception.Sink) error {
	return Default().WriteImage(ctx, info, images, sink)
}

// WriteStream streams a write with the default dispatcher.
func WriteStream(ctx context.Context, info *codec.ImageInfo, img *pixel.Image, handler stream.Handler, sink *exception.Sink) error {
	return Default().WriteStream(ctx, info, img, handler, sink)
}

// ImageToBlob encodes into memory with the default dispatcher.
func ImageToBlob(ctx context.Context, info *codec.ImageInfo, images []*pixel.Image, sink *exception.Sink) ([]byte, error) {
	return Default().ImageToBlob(ctx, info, images, sink)
}
