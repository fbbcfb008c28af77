package constitute

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/delegate"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
	"github.com/ironsheep/pixelcodec/internal/policy"
	"github.com/ironsheep/pixelcodec/internal/stream"
)

// source is the opened input of one read.
type source struct {
	r      io.ReadSeeker
	file   *os.File
	header []byte
	// path is the input on disk, "" when it is held in memory.
	path    string
	modTime time.Time
}

func (s *source) close() {
	if s.file != nil {
		s.file.Close()
	}
}

// openSource opens the blob, standard input ("-") or file named by info and
// reads its magic header.
func openSource(info *codec.ImageInfo) (*source, error) {
	src := &source{modTime: time.Now()}
	switch {
	case len(info.Blob) > 0:
		src.r = bytes.NewReader(info.Blob)
	case info.Filename == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, exception.Newf(exception.FileOpenError, exception.ErrUnableToOpenFile, "stdin: %v", err)
		}
		src.r = bytes.NewReader(data)
	case info.Filename == "":
		return nil, exception.New(exception.OptionError, exception.ErrUnableToOpenFile, "no input file")
	default:
		f, err := os.Open(info.Filename)
		if err != nil {
			return nil, exception.Newf(exception.FileOpenError, exception.ErrUnableToOpenFile, "%s: %v", info.Filename, err)
		}
		if st, err := f.Stat(); err == nil {
			src.modTime = st.ModTime()
		}
		src.r, src.file, src.path = f, f, info.Filename
	}

	header := make([]byte, codec.MagicSize)
	n, err := io.ReadFull(src.r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		src.close()
		return nil, exception.Newf(exception.FileOpenError, exception.ErrUnableToOpenFile, "%s: %v", info.Filename, err)
	}
	src.header = header[:n]
	if _, err := src.r.Seek(0, io.SeekStart); err != nil {
		src.close()
		return nil, exception.Newf(exception.FileOpenError, exception.ErrUnableToOpenFile, "%s: %v", info.Filename, err)
	}
	return src, nil
}

// spill copies an in-memory source to a temporary file. The returned
// cleanup closes and removes it.
func (d *Dispatcher) spill(src *source, ext string) (*os.File, func(), error) {
	name := delegate.TempPath(d.tempDir, ext)
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, exception.Newf(exception.FileOpenError, exception.ErrUnableToOpenFile, "%s: %v", name, err)
	}
	cleanup := func() {
		f.Close()
		removeTemp(name)
	}
	_, err = src.r.Seek(0, io.SeekStart)
	if err == nil {
		_, err = io.Copy(f, src.r)
	}
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		cleanup()
		return nil, nil, exception.Newf(exception.FileOpenError, exception.ErrUnableToWriteFile, "%s: %v", name, err)
	}
	return f, cleanup, nil
}

func removeTemp(name string) {
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("constitute: failed to remove temporary file", "path", name, "error", err)
		return
	}
	slog.Debug("constitute: removed temporary file", "path", name)
}

// ReadImage decodes every image of the request. Warnings raised by the
// decoder are added to sink; on failure no image is returned.
func (d *Dispatcher) ReadImage(ctx context.Context, info *codec.ImageInfo, sink *exception.Sink) ([]*pixel.Image, error) {
	images, err := d.read(ctx, info.Clone(), sink, true)
	if err != nil {
		sink.Add(err)
		return nil, err
	}
	return images, nil
}

// PingImage reads only what the coders need to report geometry and
// format. Pixels are discarded.
func (d *Dispatcher) PingImage(ctx context.Context, info *codec.ImageInfo, sink *exception.Sink) ([]*pixel.Image, error) {
	c := info.Clone()
	c.Ping = true
	c.Stream = func(_ *pixel.Image, _ *pixel.Pixels, columns int) int { return columns }
	return d.ReadImage(ctx, c, sink)
}

// ReadStream decodes the request, handing the pixels to handler row by row
// instead of keeping them.
func (d *Dispatcher) ReadStream(ctx context.Context, info *codec.ImageInfo, handler stream.Handler, sink *exception.Sink) ([]*pixel.Image, error) {
	if handler == nil {
		err := exception.New(exception.StreamError, exception.ErrNoStreamHandler, info.Filename)
		sink.Add(err)
		return nil, err
	}
	c := info.Clone()
	c.Stream = handler
	return d.ReadImage(ctx, c, sink)
}

func (d *Dispatcher) read(ctx context.Context, info *codec.ImageInfo, sink *exception.Sink, allowDelegate bool) ([]*pixel.Image, error) {
	if tag, file := codec.SplitFilename(info.Filename); tag != "" {
		info.Filename, info.Magick, info.Affirm = file, tag, true
	}
	pol := d.currentPolicy()
	if len(info.Blob) == 0 && info.Filename != "-" && info.Filename != "" {
		if err := pol.Authorize(policy.PathDomain, policy.ReadRights, info.Filename); err != nil {
			slog.Debug("constitute: path denied", "path", info.Filename)
			return nil, err
		}
	}

	src, err := openSource(info)
	if err != nil {
		return nil, err
	}
	defer src.close()

	tag := d.registry.Resolve(info, src.header)
	if tag == "" {
		return nil, exception.New(exception.MissingDelegateError, exception.ErrNoDecodeDelegate, info.Filename)
	}
	slog.Debug("constitute: resolved input format", "file", info.Filename, "format", tag, "affirm", info.Affirm)
	if err := pol.Authorize(policy.CoderDomain, policy.ReadRights, tag); err != nil {
		slog.Debug("constitute: coder denied", "format", tag)
		return nil, err
	}

	if entry, ok := d.registry.Lookup(tag); ok && entry.CanDecode() {
		images, err := d.decode(ctx, info, entry, src, sink)
		if err != nil {
			return nil, err
		}
		finish(images, info, tag, src.modTime)
		return images, nil
	}
	if allowDelegate {
		if dg, ok := d.delegates.Decoder(tag); ok {
			return d.readDelegate(ctx, info, tag, dg, src, sink)
		}
	}
	return nil, exception.Newf(exception.MissingDelegateError, exception.ErrNoDecodeDelegate, "%s (%s)", tag, info.Filename)
}

func (d *Dispatcher) decode(ctx context.Context, info *codec.ImageInfo, entry *codec.Entry, src *source, sink *exception.Sink) ([]*pixel.Image, error) {
	var r io.Reader = src.r
	if entry.Flags.Has(codec.SeekableStream) && src.file == nil {
		f, cleanup, err := d.spill(src, entry.Tag)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		r = f
	}

	unlock := entry.Lock()
	defer unlock()
	images, err := entry.Codec.Decode(ctx, info, r)
	if err != nil {
		if !exception.IsWarning(err) || len(images) == 0 {
			for _, img := range images {
				img.Destroy()
			}
			return nil, err
		}
		sink.Add(err)
	}
	if len(images) == 0 {
		return nil, exception.Newf(exception.CorruptImageError, exception.ErrUnexpectedEndOfFile, "%s: no images", entry.Tag)
	}
	return images, nil
}

// readDelegate converts the input with an external program and reads the
// result natively.
func (d *Dispatcher) readDelegate(ctx context.Context, info *codec.ImageInfo, tag string, dg delegate.Delegate, src *source, sink *exception.Sink) ([]*pixel.Image, error) {
	if err := d.currentPolicy().Authorize(policy.DelegateDomain, policy.ExecuteRights, dg.Tag()); err != nil {
		slog.Debug("constitute: delegate denied", "format", dg.Tag())
		return nil, err
	}
	input := src.path
	if input == "" {
		f, cleanup, err := d.spill(src, tag)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		input = f.Name()
	}
	output := delegate.TempPath(d.tempDir, dg.Format)
	defer removeTemp(output)

	slog.Debug("constitute: decoding through delegate", "delegate", dg.String(), "input", input)
	if err := dg.Run(ctx, input, output); err != nil {
		return nil, err
	}
	inner := info.Clone()
	inner.Filename, inner.Magick, inner.Affirm, inner.Blob = output, "", false, nil
	images, err := d.read(ctx, inner, sink, false)
	if err != nil {
		return nil, err
	}
	finish(images, info, tag, src.modTime)
	return images, nil
}

// finish records where the images came from.
func finish(images []*pixel.Image, info *codec.ImageInfo, tag string, modTime time.Time) {
	stamp := modTime.Format(time.RFC3339)
	for i, img := range images {
		img.Filename = info.Filename
		img.Magick = tag
		if img.Scene == 0 {
			img.Scene = info.Scene + i
		}
		img.SetProperty("date:create", stamp)
		img.SetProperty("date:modify", stamp)
	}
}

// ReadImage decodes a request with the default dispatcher.
func ReadImage(ctx context.Context, info *codec.ImageInfo, sink *exception.Sink) ([]*pixel.Image, error) {
	return Default().ReadImage(ctx, info, sink)
}

// PingImage pings a request with the default dispatcher.
func PingImage(ctx context.Context, info *codec.ImageInfo, sink *exception.Sink) ([]*pixel.Image, error) {
	return Default().PingImage(ctx, info, sink)
}

// ReadStream streams a request with the default dispatcher.
func ReadStream(ctx context.Context, info *codec.ImageInfo, handler stream.Handler, sink *exception.Sink) ([]*pixel.Image, error) {
	return Default().ReadStream(ctx, info, handler, sink)
}
