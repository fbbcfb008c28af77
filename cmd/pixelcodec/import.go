package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/constitute"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
)

var importCmd = &cobra.Command{
	Use:   "import INPUT OUTPUT",
	Short: "Build an image from raw samples and write it in any format",
	Long: `Import reads headerless samples from INPUT ("-" for stdin), builds a
WIDTHxHEIGHT image from them and writes it to OUTPUT, whose format follows
its extension or TAG: prefix.

The layout flags match export: a quantum type with --type and friends, or a
channel map with --map and --storage for native little-endian samples.`,
	Example: `  pixelcodec import --size 640x480 --type RGB frame.rgb frame.png
  pixelcodec import --size 8x8 --type Gray --depth 1 bits.bin bits.miff
  pixelcodec import --size 4x4 --map CMYK --storage double sep.f64 sep.tif`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	addTransferFlags(importCmd, "RGB")
	importCmd.Flags().String("size", "", "Geometry WIDTHxHEIGHT of the samples")
	importCmd.Flags().String("map", "", "Channel map such as RGB, BGRA, CMYK or I; selects native storage input")
	importCmd.Flags().String("storage", "char", "Sample storage for --map (char, short, long, longlong, float, double, quantum)")
	importCmd.Flags().Int("quality", 0, "Compression quality for lossy encoders (1-100)")
	importCmd.MarkFlagRequired("size")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	size, _ := cmd.Flags().GetString("size")
	var geometry codec.ImageInfo
	if err := geometry.SetSize(size); err != nil {
		return err
	}
	data, err := readAll(cmd, args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	var sink exception.Sink
	var img *pixel.Image
	if m, _ := cmd.Flags().GetString("map"); m != "" {
		img, err = importMap(cmd, geometry.Columns, geometry.Rows, m, data)
	} else {
		img, err = importQuantum(cmd, geometry.Columns, geometry.Rows, data, &sink)
	}
	if err != nil {
		return err
	}
	defer img.Destroy()

	quality, _ := cmd.Flags().GetInt("quality")
	out := &codec.ImageInfo{Filename: args[1], Quality: quality}
	if err := dispatcher.WriteImage(cmd.Context(), out, []*pixel.Image{img}, &sink); err != nil {
		return fmt.Errorf("writing %s: %w", args[1], err)
	}
	printWarnings(cmd, &sink)
	return nil
}

func importQuantum(cmd *cobra.Command, columns, rows int, data []byte, sink *exception.Sink) (*pixel.Image, error) {
	q, qt, err := transferInfo(cmd)
	if err != nil {
		return nil, err
	}
	img, err := pixel.New(columns, rows)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(qt.String(), "Gray") {
		img.SetColorspace(pixel.GrayColorspace)
	}
	img.Depth = min(int(q.Depth()), pixel.QuantumDepth)

	if _, err := q.ImportImage(img, img.Bounds(), qt, data); err != nil {
		if !exception.IsWarning(err) {
			img.Destroy()
			return nil, err
		}
		sink.Add(err)
	}
	return img, nil
}

func importMap(cmd *cobra.Command, columns, rows int, m string, data []byte) (*pixel.Image, error) {
	storageName, _ := cmd.Flags().GetString("storage")
	storage, err := constitute.ParseStorageType(storageName)
	if err != nil {
		return nil, err
	}
	pixels, err := constitute.DecodePixels(storage, data)
	if err != nil {
		return nil, err
	}
	return constitute.ConstituteImage(columns, rows, m, storage, pixels)
}
