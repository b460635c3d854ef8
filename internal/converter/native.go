package converter

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	// WebP sources are decoded through x/image
	_ "golang.org/x/image/webp"

	"github.com/ah-its-andy/webpconv/internal/imagefmt"
	"github.com/ah-its-andy/webpconv/internal/worker"
)

// NativeConverter encodes in-process with imaging and libwebp.
type NativeConverter struct {
	pool *worker.Pool
}

func NewNativeConverter(workers int) *NativeConverter {
	return &NativeConverter{pool: worker.NewPool(workers)}
}

func (c *NativeConverter) Name() string {
	return "native"
}

func (c *NativeConverter) Convert(ctx context.Context, req Request) (int, error) {
	tasks, err := plan(req)
	if err != nil {
		return 0, err
	}
	log.Printf("native: converting %d files with %d workers", len(tasks), c.pool.Workers())
	return c.pool.Run(ctx, len(tasks), func(ctx context.Context, i int) error {
		t := tasks[i]
		if err := c.convertOne(t); err != nil {
			log.Printf("native: %s: %v", t.src, err)
			return err
		}
		log.Printf("native: converted %s -> %s", t.src, t.dst)
		return nil
	}), nil
}

func (c *NativeConverter) convertOne(t task) error {
	img, err := imaging.Open(t.src)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}

	out, err := createTemp(t.dst)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := encodeFile(out, img, t.format, encoderQuality(t.quality)); err != nil {
		out.Close()
		_ = os.Remove(out.Name())
		return err
	}
	return publish(out, t.dst)
}

// publish closes the written temp file and renames it onto dst. A failed
// close discards the file.
func publish(out *os.File, dst string) error {
	tmp := out.Name()
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// encodeFile writes img to out and syncs it. The caller closes out.
func encodeFile(out *os.File, img image.Image, f imagefmt.Format, quality int) error {
	var err error
	switch f {
	case imagefmt.FormatWEBP:
		opts, optErr := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if optErr != nil {
			return fmt.Errorf("webp encoder options: %w", optErr)
		}
		err = webp.Encode(out, img, opts)
	case imagefmt.FormatJPG:
		err = imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case imagefmt.FormatPNG:
		err = imaging.Encode(out, img, imaging.PNG)
	case imagefmt.FormatTIFF:
		err = imaging.Encode(out, img, imaging.TIFF)
	case imagefmt.FormatBMP:
		err = imaging.Encode(out, img, imaging.BMP)
	default:
		return fmt.Errorf("unsupported target format: %v", f)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	return out.Sync()
}
