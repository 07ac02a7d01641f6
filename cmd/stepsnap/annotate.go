package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/keagan/stepsnap/internal/annotate"
	"github.com/keagan/stepsnap/internal/config"
	"github.com/keagan/stepsnap/internal/logging"
	"github.com/keagan/stepsnap/internal/video"
	"github.com/spf13/cobra"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [image]",
	Short: "Draw a highlight box on a step frame",
	Long:  "Draws a box given as ymin,xmin,ymax,xmax on a 0-1000 scale onto an image, with a fixed label.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		boxArg, _ := cmd.Flags().GetString("box")
		box, err := annotate.ParseBox(boxArg)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			ext := filepath.Ext(args[0])
			out = strings.TrimSuffix(args[0], ext) + "_annotated" + ext
		}

		img, err := readImage(args[0])
		if err != nil {
			return err
		}

		annotated := annotate.Annotate(img, box)
		if err := writeImage(out, annotated, cfg.Sampling.JPEGQuality); err != nil {
			return err
		}

		logger := logging.WithComponent("annotate")
		logger.Info().Str("input", args[0]).Str("output", out).Msg("annotated frame")
		return nil
	},
}

func init() {
	annotateCmd.Flags().String("box", "", "box as ymin,xmin,ymax,xmax on a 0-1000 scale")
	annotateCmd.Flags().String("out", "", "output file (default: <input>_annotated.<ext>)")
	_ = annotateCmd.MarkFlagRequired("box")
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

func writeImage(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = video.NewJPEGEncoder(quality).Encode(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
