package main

import (
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/quantum"
)

// addTransferFlags registers the byte layout flags shared by export and
// import.
func addTransferFlags(cmd *cobra.Command, defaultType string) {
	cmd.Flags().String("type", defaultType, "Quantum type: RGB, RGBA, BGRA, CMYK, Gray, GrayAlpha, Index, CbYCrY, ...")
	cmd.Flags().Int("depth", 8, "Bits per sample (1-64)")
	cmd.Flags().String("endian", "msb", "Byte order of multi-byte samples (msb, lsb)")
	cmd.Flags().String("format", "unsigned", "Sample format (unsigned, signed, float)")
	cmd.Flags().Bool("pack", true, "Pack sub-byte depths into one bitstream per row")
	cmd.Flags().Int("pad", 0, "Zero bytes after every pixel")
}

func transferInfo(cmd *cobra.Command) (*quantum.Info, quantum.Type, error) {
	typeName, _ := cmd.Flags().GetString("type")
	depth, _ := cmd.Flags().GetInt("depth")
	endianName, _ := cmd.Flags().GetString("endian")
	formatName, _ := cmd.Flags().GetString("format")
	pack, _ := cmd.Flags().GetBool("pack")
	pad, _ := cmd.Flags().GetInt("pad")

	qt, err := quantum.ParseType(typeName)
	if err != nil {
		return nil, 0, err
	}
	q := quantum.NewInfo(nil)
	if err := q.SetDepth(depth); err != nil {
		return nil, 0, err
	}
	format, err := quantum.ParseFormat(formatName)
	if err != nil {
		return nil, 0, err
	}
	if err := q.SetFormat(format); err != nil {
		return nil, 0, err
	}
	endian, err := quantum.ParseEndian(endianName)
	if err != nil {
		return nil, 0, err
	}
	q.SetEndian(endian)
	q.SetPack(pack)
	if err := q.SetPad(pad); err != nil {
		return nil, 0, err
	}
	return q, qt, nil
}

// readInfo builds a read request from the --size and --input-depth flags.
func readInfo(cmd *cobra.Command, filename string) (*codec.ImageInfo, error) {
	info := &codec.ImageInfo{Filename: filename}
	if size, _ := cmd.Flags().GetString("size"); size != "" {
		if err := info.SetSize(size); err != nil {
			return nil, err
		}
	}
	if depth, _ := cmd.Flags().GetInt("input-depth"); depth != 0 {
		info.Depth = depth
	}
	defines, _ := cmd.Flags().GetStringArray("define")
	for _, d := range defines {
		key, value, ok := strings.Cut(d, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid define %q, expected key=value", d)
		}
		info.SetOption(key, value)
	}
	return info, nil
}

func addReadFlags(cmd *cobra.Command) {
	cmd.Flags().String("size", "", "Geometry WIDTHxHEIGHT of raw input")
	cmd.Flags().Int("input-depth", 0, "Sample depth of raw input")
	cmd.Flags().StringArrayP("define", "d", nil, "Coder option key=value, e.g. quantum:format=floating-point")
}

// parseRegion accepts WIDTHxHEIGHT+X+Y; an empty string selects bounds.
func parseRegion(s string, bounds image.Rectangle) (image.Rectangle, error) {
	if s == "" {
		return bounds, nil
	}
	var w, h, x, y int
	if _, err := fmt.Sscanf(s, "%dx%d+%d+%d", &w, &h, &x, &y); err != nil {
		return image.Rectangle{}, fmt.Errorf("invalid region %q, expected WIDTHxHEIGHT+X+Y", s)
	}
	r := image.Rect(x, y, x+w, y+h)
	if w <= 0 || h <= 0 || !r.In(bounds) {
		return image.Rectangle{}, exception.Newf(exception.OptionError, exception.ErrGeometryOutOfBounds,
			"%s not in %dx%d", s, bounds.Dx(), bounds.Dy())
	}
	return r, nil
}

func readAll(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func writeAll(cmd *cobra.Command, name string, data []byte) error {
	if name == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", name, humanize.IBytes(uint64(len(data))))
	return nil
}

func printWarnings(cmd *cobra.Command, sink *exception.Sink) {
	for _, w := range sink.Warnings() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", w)
	}
}
