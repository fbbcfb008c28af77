package main

import (
	"bytes"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
		{"loud", slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := logLevel(tt.in); got != tt.want {
			t.Errorf("logLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRegion(t *testing.T) {
	bounds := image.Rect(0, 0, 10, 8)
	tests := []struct {
		in      string
		want    image.Rectangle
		wantErr bool
	}{
		{"", bounds, false},
		{"4x2+1+3", image.Rect(1, 3, 5, 5), false},
		{"10x8+0+0", bounds, false},
		{"4x2+8+0", image.Rectangle{}, true},
		{"0x2+0+0", image.Rectangle{}, true},
		{"4x2", image.Rectangle{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRegion(tt.in, bounds)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// run executes the root command with args and returns what it wrote to
// stdout.
func run(t *testing.T, args ...string) string {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("pixelcodec %s: %v\n%s", strings.Join(args, " "), err, errOut.String())
	}
	return out.String()
}

func TestImportConvertExport(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "in.rgb")
	if err := os.WriteFile(raw, []byte{255, 0, 0, 0, 0, 255}, 0o644); err != nil {
		t.Fatal(err)
	}
	png := filepath.Join(dir, "out.png")
	miff := filepath.Join(dir, "out.miff")

	run(t, "import", "--size", "2x1", "--type", "RGB", raw, png)
	run(t, "convert", png, miff)

	got := run(t, "identify", miff)
	if !strings.Contains(got, "MIFF 2x1") {
		t.Errorf("identify: got %q", got)
	}

	got = run(t, "export", "--type", "BGR", "--depth", "8", miff, "-")
	if want := string([]byte{0, 0, 255, 255, 0, 0}); got != want {
		t.Errorf("export: got %v, want %v", []byte(got), []byte(want))
	}
}
