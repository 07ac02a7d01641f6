package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/keagan/stepsnap/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stepsnap.yaml")

	_, err := run(t, "config", "init", path)
	require.NoError(t, err)

	// Existing files are kept unless forced
	_, err = run(t, "config", "init", path)
	assert.Error(t, err)

	out, err := run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "sensitivity: 0.15")
	assert.Contains(t, out, "backend: local")
}

func TestAnnotateCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "step.png")

	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	f, err := os.Create(in)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	out := filepath.Join(dir, "boxed.png")
	_, err = run(t, "--config", filepath.Join(dir, "none.yaml"), "annotate", in, "--box", "250,250,750,750", "--out", out)
	require.NoError(t, err)

	result, err := readImage(out)
	require.NoError(t, err)
	// Top edge of the box is drawn in the highlight color
	px := color.RGBAModel.Convert(result.At(100, 25)).(color.RGBA)
	assert.Greater(t, px.R, uint8(200))
	assert.Less(t, px.G, uint8(100))
}

func TestApplyExtractFlags(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, extractCmd.Flags().Set("mode", "manual"))
	require.NoError(t, extractCmd.Flags().Set("max-frames", "4"))
	require.NoError(t, extractCmd.Flags().Set("out", "/tmp/steps"))
	defer func() {
		extractCmd.Flags().Set("mode", "")
		extractCmd.Flags().Set("max-frames", "0")
		extractCmd.Flags().Set("out", "")
		for _, name := range []string{"mode", "max-frames", "out"} {
			extractCmd.Flags().Lookup(name).Changed = false
		}
	}()

	require.NoError(t, applyExtractFlags(extractCmd, cfg))
	assert.Equal(t, "manual", cfg.Sampling.Mode)
	assert.Equal(t, 4, cfg.Sampling.MaxFrames)
	assert.Equal(t, "/tmp/steps", cfg.Output.Dir)
	assert.Equal(t, config.BackendLocal, cfg.Storage.Backend)
}
