package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ironsheep/pixelcodec/internal/codec"
	"github.com/ironsheep/pixelcodec/internal/exception"
)

var identifyCmd = &cobra.Command{
	Use:   "identify FILE...",
	Short: "Describe images without decoding their pixels",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIdentify,
}

func init() {
	addReadFlags(identifyCmd)
	identifyCmd.Flags().BoolP("verbose", "v", false, "Also print image properties")
	rootCmd.AddCommand(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	w := cmd.OutOrStdout()

	var failed int
	for _, name := range args {
		info, err := readInfo(cmd, name)
		if err != nil {
			return err
		}
		var sink exception.Sink
		images, err := dispatcher.PingImage(cmd.Context(), info, &sink)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
			failed++
			continue
		}

		size := ""
		if _, file := codec.SplitFilename(name); file != "-" {
			if fi, err := os.Stat(file); err == nil {
				size = humanize.IBytes(uint64(fi.Size()))
			}
		}
		for _, img := range images {
			label := name
			if len(images) > 1 {
				label = fmt.Sprintf("%s[%d]", name, img.Scene)
			}
			fmt.Fprintf(w, "%s %s %dx%d %d-bit %s %s", label, img.Magick, img.Columns, img.Rows,
				img.Depth, img.Colorspace(), img.StorageClass())
			if img.Alpha() {
				fmt.Fprint(w, " alpha")
			}
			if len(img.Colormap) > 0 {
				fmt.Fprintf(w, " %dc", len(img.Colormap))
			}
			if size != "" {
				fmt.Fprintf(w, " %s", size)
			}
			fmt.Fprintln(w)
			if verbose {
				keys := make([]string, 0, len(img.Properties))
				for key := range img.Properties {
					keys = append(keys, key)
				}
				slices.Sort(keys)
				for _, key := range keys {
					fmt.Fprintf(w, "  %s: %s\n", key, img.Properties[key])
				}
			}
			img.Destroy()
		}
		printWarnings(cmd, &sink)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be identified", failed, len(args))
	}
	return nil
}
