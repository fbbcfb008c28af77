package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/quantum"
)

var convertCmd = &cobra.Command{
	Use:   "convert INPUT OUTPUT",
	Short: "Convert an image between formats",
	Example: `  pixelcodec convert photo.png photo.miff
  pixelcodec convert --size 640x480 RGB:frame.bin frame.png
  pixelcodec convert --depth 16 --endian lsb photo.png GRAY:plane.raw
  pixelcodec convert -d miff:compression=zstd photo.tif photo.miff`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	addReadFlags(convertCmd)
	convertCmd.Flags().Int("depth", 0, "Output sample depth (default: the image depth)")
	convertCmd.Flags().Int("quality", 0, "Compression quality for lossy encoders (1-100)")
	convertCmd.Flags().String("endian", "", "Output byte order for raw and MIFF formats (msb, lsb)")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	in, err := readInfo(cmd, args[0])
	if err != nil {
		return err
	}
	depth, _ := cmd.Flags().GetInt("depth")
	quality, _ := cmd.Flags().GetInt("quality")
	endianName, _ := cmd.Flags().GetString("endian")
	endian, err := quantum.ParseEndian(endianName)
	if err != nil {
		return err
	}

	var sink exception.Sink
	images, err := dispatcher.ReadImage(cmd.Context(), in, &sink)
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	defer func() {
		for _, img := range images {
			img.Destroy()
		}
	}()

	out := &codec.ImageInfo{
		Filename: args[1],
		Depth:    depth,
		Quality:  quality,
		Endian:   endian,
		Options:  in.Options,
	}
	if err := dispatcher.WriteImage(cmd.Context(), out, images, &sink); err != nil {
		return fmt.Errorf("writing %s: %w", args[1], err)
	}
	printWarnings(cmd, &sink)
	return nil
}
