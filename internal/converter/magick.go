package converter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/ah-its-andy/webpconv/internal/imagefmt"
	"github.com/ah-its-andy/webpconv/internal/livelog"
	"github.com/ah-its-andy/webpconv/internal/worker"
)

// MagickOptions configures the ImageMagick backend.
type MagickOptions struct {
	Tool             string // magick binary, looked up in PATH when not absolute
	Exiftool         string // exiftool binary; metadata copy is skipped when missing
	PreserveMetadata bool
	Workers          int
	Live             *livelog.Manager // receives tool output while a file converts
}

// MagickConverter shells out to ImageMagick once per file.
type MagickConverter struct {
	opts MagickOptions
	pool *worker.Pool
}

func NewMagickConverter(opts MagickOptions) *MagickConverter {
	if opts.Tool == "" {
		opts.Tool = "magick"
	}
	if opts.Exiftool == "" {
		opts.Exiftool = "exiftool"
	}
	return &MagickConverter{opts: opts, pool: worker.NewPool(opts.Workers)}
}

func (c *MagickConverter) Name() string {
	return "magick"
}

func (c *MagickConverter) Convert(ctx context.Context, req Request) (int, error) {
	if _, err := exec.LookPath(c.opts.Tool); err != nil {
		return 0, fmt.Errorf("required tool not found: %s", c.opts.Tool)
	}
	tasks, err := plan(req)
	if err != nil {
		return 0, err
	}
	log.Printf("magick: converting %d files with %d workers", len(tasks), c.pool.Workers())
	return c.pool.Run(ctx, len(tasks), func(ctx context.Context, i int) error {
		t := tasks[i]
		c.opts.Live.Start(t.src)
		defer c.opts.Live.End(t.src)
		logs, err := c.convertOne(ctx, t)
		if err != nil {
			log.Printf("magick: %s: %v\n%s", t.src, err, logs)
			return err
		}
		log.Printf("magick: converted %s -> %s", t.src, t.dst)
		return nil
	}), nil
}

func (c *MagickConverter) convertOne(ctx context.Context, t task) (string, error) {
	var logBuf bytes.Buffer
	out := io.MultiWriter(&logBuf, c.opts.Live.Writer(t.src))

	if _, err := os.Stat(t.src); err != nil {
		return logBuf.String(), fmt.Errorf("open source: %w", err)
	}

	sourceDTO, err := readDateTimeOriginal(t.src)
	if err != nil {
		io.WriteString(out, "source exif: "+err.Error()+"\n")
	}

	tmpFile, err := createTemp(t.dst)
	if err != nil {
		return logBuf.String(), fmt.Errorf("create output: %w", err)
	}
	tmp := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmp)

	// the FMT: prefix makes the encoder independent of the tmp file name
	args := []string{t.src}
	if t.format.Lossy() {
		args = append(args, "-quality", fmt.Sprintf("%d", encoderQuality(t.quality)))
	}
	args = append(args, t.format.String()+":"+tmp)

	cmd := exec.CommandContext(ctx, c.opts.Tool, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return logBuf.String(), fmt.Errorf("%s failed: %w", c.opts.Tool, err)
	}
	if fi, err := os.Stat(tmp); err != nil || fi.Size() == 0 {
		return logBuf.String(), fmt.Errorf("%s did not create output file", c.opts.Tool)
	}

	if c.opts.PreserveMetadata {
		c.copyMetadata(ctx, t.src, tmp, out)
	}

	if err := os.Rename(tmp, t.dst); err != nil {
		return logBuf.String(), fmt.Errorf("rename output: %w", err)
	}

	if sourceDTO != "" && exifReadable(t.format) {
		c.verifyDateTimeOriginal(sourceDTO, t.dst)
	}
	return logBuf.String(), nil
}

// copyMetadata copies all tags with exiftool. A missing tool or a failed copy
// never fails the file.
func (c *MagickConverter) copyMetadata(ctx context.Context, src, dst string, out io.Writer) {
	if _, err := exec.LookPath(c.opts.Exiftool); err != nil {
		io.WriteString(out, "exiftool not found, metadata copy skipped\n")
		return
	}
	cmd := exec.CommandContext(ctx, c.opts.Exiftool, "-overwrite_original", "-TagsFromFile", src, "-all:all", dst)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		io.WriteString(out, "exiftool failed: "+err.Error()+"\n")
	}
}

func (c *MagickConverter) verifyDateTimeOriginal(want, dst string) {
	got, err := readDateTimeOriginal(dst)
	switch {
	case err != nil:
		log.Printf("magick: %s: DateTimeOriginal not readable: %v", dst, err)
	case strings.TrimSpace(got) == want:
		log.Printf("magick: %s: DateTimeOriginal preserved (%s)", dst, want)
	default:
		log.Printf("magick: %s: DateTimeOriginal mismatch (src: %s, dst: %s)", dst, want, got)
	}
}

// exifReadable reports whether goexif can decode the output container.
func exifReadable(f imagefmt.Format) bool {
	return f == imagefmt.FormatJPG || f == imagefmt.FormatTIFF
}
