package main

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/alecthomas/kong"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/vp8l"
	_ "golang.org/x/image/webp"

	"rle/internal/parallel"
	"rle/rle"
)

// EncodeCmd converts every raster image in a folder into a Utah RLE
// file of the same base name.
type EncodeCmd struct {
	Scan    string `help:"Source folder to scan" default:"."`
	Dest    string `help:"Destination folder for .rle files. Relative to scan dir if not absolute." default:"rle-out"`
	Workers int    `help:"Number of worker goroutines, 0 for GOMAXPROCS" default:"0"`
	Resize  bool   `help:"Resize before encoding" default:"false" group:"resize"`
	Width   int    `help:"Max width" group:"resize"`
	Height  int    `help:"Max height" group:"resize"`
	Bg      string `help:"Background colour as #RRGGBB; omit for NO_BACKGROUND" group:"encode"`
	Mode    string `help:"Background elision mode" enum:"saveall,overlay,clear" default:"saveall" group:"encode"`
	Endian  string `help:"Byte order to stamp into the written file" enum:"little,big" default:"little" group:"encode"`

	bg     []byte
	mode   rle.BackgroundMode
	endian rle.Endian
}

func (c *EncodeCmd) Validate(kctx *kong.Context) error {
	scanDir, err := filepath.Abs(c.Scan)
	if err == nil {
		var info os.FileInfo
		if info, err = os.Stat(scanDir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}
	c.Scan = scanDir

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(scanDir, c.Dest)
	}

	if c.Resize && c.Width == 0 && c.Height == 0 {
		return fmt.Errorf("no resize dimensions given")
	}

	if c.Bg != "" {
		bg, err := parseHexRGB(c.Bg)
		if err != nil {
			return err
		}
		c.bg = bg
	}

	switch c.Mode {
	case "overlay":
		c.mode = rle.BGOverlay
	case "clear":
		c.mode = rle.BGClear
	default:
		c.mode = rle.BGSaveAll
	}
	if c.mode != rle.BGSaveAll && c.bg == nil {
		return fmt.Errorf("--mode=%s requires --bg", c.Mode)
	}

	if c.Endian == "big" {
		c.endian = rle.BigEndian
	}

	return nil
}

func (c *EncodeCmd) Run() error {
	if err := os.MkdirAll(c.Dest, os.ModeDir); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}
	files, err := os.ReadDir(c.Scan)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", c.Scan, err)
	}

	pool := parallel.Start(c.Workers)
	var processed, errCount atomic.Uint64

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		pool.Do(func(name string) func() {
			return func() {
				logger := slog.Default().With("file", name)
				if err := c.encodeOne(filepath.Join(c.Scan, name)); err != nil {
					errCount.Add(1)
					logger.Error("could not encode image", "error", err)
					return
				}
				processed.Add(1)
			}
		}(file.Name()))
	}
	pool.Wait()

	slog.Info("encode stats", "processed", processed.Load(), "errors", errCount.Load())
	if errCount.Load() > 0 {
		return fmt.Errorf("error encoding %d files", errCount.Load())
	}
	return nil
}

func (c *EncodeCmd) encodeOne(srcPath string) error {
	srcFile, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", srcPath, err)
	}
	defer srcFile.Close()

	img, _, err := image.Decode(srcFile)
	if err != nil {
		return fmt.Errorf("could not decode %q: %w", srcPath, err)
	}

	if c.Resize {
		img = resizeToFit(img, c.Width, c.Height)
	}

	rimg, err := toRLEImage(img, c.bg, c.endian)
	if err != nil {
		return fmt.Errorf("could not convert %q: %w", srcPath, err)
	}

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	destPath := filepath.Join(c.Dest, base+".rle")
	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", destPath, err)
	}
	defer destFile.Close()

	if err := rle.Write(destFile, rimg, c.mode); err != nil {
		return fmt.Errorf("could not write %q: %w", destPath, err)
	}
	return nil
}

// DecodeCmd converts every .rle file in a folder into a chosen raster
// format.
type DecodeCmd struct {
	Scan    string `help:"Source folder to scan" default:"."`
	Dest    string `help:"Destination folder for converted images. Relative to scan dir if not absolute." default:"decoded"`
	Workers int    `help:"Number of worker goroutines, 0 for GOMAXPROCS" default:"0"`
	Format  string `help:"Output raster format" enum:"png,bmp,tiff" default:"png"`
}

func (c *DecodeCmd) Validate(kctx *kong.Context) error {
	scanDir, err := filepath.Abs(c.Scan)
	if err == nil {
		var info os.FileInfo
		if info, err = os.Stat(scanDir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}
	c.Scan = scanDir

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(scanDir, c.Dest)
	}
	return nil
}

func (c *DecodeCmd) Run() error {
	if err := os.MkdirAll(c.Dest, os.ModeDir); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}
	files, err := os.ReadDir(c.Scan)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", c.Scan, err)
	}

	pool := parallel.Start(c.Workers)
	var processed, errCount atomic.Uint64

	for _, file := range files {
		if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), ".rle") {
			continue
		}
		pool.Do(func(name string) func() {
			return func() {
				logger := slog.Default().With("file", name)
				if err := c.decodeOne(filepath.Join(c.Scan, name)); err != nil {
					errCount.Add(1)
					logger.Error("could not decode image", "error", err)
					return
				}
				processed.Add(1)
			}
		}(file.Name()))
	}
	pool.Wait()

	slog.Info("decode stats", "processed", processed.Load(), "errors", errCount.Load())
	if errCount.Load() > 0 {
		return fmt.Errorf("error decoding %d files", errCount.Load())
	}
	return nil
}

func (c *DecodeCmd) decodeOne(srcPath string) error {
	srcFile, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", srcPath, err)
	}
	defer srcFile.Close()

	img, err := rle.Read(srcFile)
	if err != nil {
		return fmt.Errorf("could not decode %q: %w", srcPath, err)
	}

	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	destPath := filepath.Join(c.Dest, base+"."+c.Format)
	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", destPath, err)
	}
	defer destFile.Close()

	switch c.Format {
	case "bmp":
		err = bmp.Encode(destFile, img)
	case "tiff":
		err = tiff.Encode(destFile, img, nil)
	default:
		err = png.Encode(destFile, img)
	}
	if err != nil {
		return fmt.Errorf("could not encode %q: %w", destPath, err)
	}
	return nil
}

// resizeToFit scales img so it fits within width x height, preserving
// aspect ratio; a zero dimension is treated as unconstrained.
func resizeToFit(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if width == 0 {
		width = sw * height / sh
	}
	if height == 0 {
		height = sh * width / sw
	}

	scale := float64(width) / float64(sw)
	if s := float64(height) / float64(sh); s < scale {
		scale = s
	}
	dw := max(1, int(float64(sw)*scale))
	dh := max(1, int(float64(sh)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// toRLEImage converts a decoded standard-format image.Image into an
// *rle.Image, applying the requested background/endianness.
func toRLEImage(img image.Image, bg []byte, endian rle.Endian) (*rle.Image, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	alpha := false
	for y := b.Min.Y; y < b.Max.Y && !alpha; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a != 0xFFFF {
				alpha = true
				break
			}
		}
	}

	hdr := &rle.Header{XLen: uint16(w), YLen: uint16(h), NColors: 3, PixelBits: 8}
	if bg == nil {
		hdr.Flags |= rle.FlagNoBackground
	} else {
		hdr.Background = bg
	}
	if alpha {
		hdr.Flags |= rle.FlagAlpha
	}

	rimg, err := rle.NewImage(hdr)
	if err != nil {
		return nil, err
	}
	rimg.Endian = endian

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			px := rimg.Pixel(x, y)
			px[0] = byte(r >> 8)
			px[1] = byte(g >> 8)
			px[2] = byte(bl >> 8)
			if alpha {
				px[3] = byte(a >> 8)
			}
		}
	}
	return rimg, nil
}

func parseHexRGB(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return nil, fmt.Errorf("invalid background colour %q, want #RRGGBB", s)
	}
	out := make([]byte, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid background colour %q: %w", s, err)
		}
		out[i] = byte(v)
	}
	return out, nil
}
