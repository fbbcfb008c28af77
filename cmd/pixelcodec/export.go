package main

import (
	"fmt"
	"image"

	"github.com/spf13/cobra"

	"github.com/ironsheep/pixelcodec/internal/constitute"
	"github.com/ironsheep/pixelcodec/internal/exception"
	"github.com/ironsheep/pixelcodec/internal/pixel"
)

var exportCmd = &cobra.Command{
	Use:   "export INPUT OUTPUT",
	Short: "Write the raw samples of an image in a chosen byte layout",
	Long: `Export decodes INPUT and writes its samples to OUTPUT ("-" for stdout)
with no header.

The layout is either a quantum type with --type, --depth, --endian, --format,
--pack and --pad, or a channel map such as BGRA or IPPP with --map and
--storage, which writes native little-endian char, short, long, longlong,
float or double samples.`,
	Example: `  pixelcodec export --type RGBA --depth 8 photo.png photo.rgba
  pixelcodec export --type Gray --depth 10 --pack=false scan.tif scan.y10
  pixelcodec export --map BGR --storage float --region 16x16+8+8 photo.png tile.f32`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	addReadFlags(exportCmd)
	addTransferFlags(exportCmd, "RGB")
	exportCmd.Flags().String("region", "", "Region WIDTHxHEIGHT+X+Y (default: the whole image)")
	exportCmd.Flags().String("map", "", "Channel map such as RGB, BGRA, CMYK or I; selects native storage output")
	exportCmd.Flags().String("storage", "char", "Sample storage for --map (char, short, long, longlong, float, double, quantum)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	info, err := readInfo(cmd, args[0])
	if err != nil {
		return err
	}

	var sink exception.Sink
	images, err := dispatcher.ReadImage(cmd.Context(), info, &sink)
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	defer func() {
		for _, img := range images {
			img.Destroy()
		}
	}()
	printWarnings(cmd, &sink)
	img := images[0]

	regionSpec, _ := cmd.Flags().GetString("region")
	r, err := parseRegion(regionSpec, img.Bounds())
	if err != nil {
		return err
	}

	var data []byte
	if m, _ := cmd.Flags().GetString("map"); m != "" {
		data, err = exportMap(cmd, img, r, m)
	} else {
		q, qt, terr := transferInfo(cmd)
		if terr != nil {
			return terr
		}
		data = make([]byte, q.Extent(qt, r.Dx(), r.Dy()))
		var n int
		n, err = q.ExportImage(img, r, qt, data)
		data = data[:n]
	}
	if err != nil {
		return err
	}
	return writeAll(cmd, args[1], data)
}

func exportMap(cmd *cobra.Command, img *pixel.Image, r image.Rectangle, m string) ([]byte, error) {
	storageName, _ := cmd.Flags().GetString("storage")
	storage, err := constitute.ParseStorageType(storageName)
	if err != nil {
		return nil, err
	}
	pixels, err := constitute.NewPixels(storage, r.Dx()*r.Dy()*len(m))
	if err != nil {
		return nil, err
	}
	if err := constitute.ExportImagePixels(img, r, m, storage, pixels); err != nil {
		return nil, err
	}
	return constitute.EncodePixels(storage, pixels)
}
