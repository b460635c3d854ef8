package imagefmt

import (
	"fmt"
	"strings"
)

// Format is a conversion target. The zero value means "no format" and is only
// meaningful as a batch override.
type Format int

const (
	FormatNone Format = iota
	FormatWEBP
	FormatJPG
	FormatPNG
	FormatTIFF
	FormatBMP
)

var formatNames = map[Format]string{
	FormatWEBP: "WEBP",
	FormatJPG:  "JPG",
	FormatPNG:  "PNG",
	FormatTIFF: "TIFF",
	FormatBMP:  "BMP",
}

var formatExtensions = map[Format]string{
	FormatWEBP: "webp",
	FormatJPG:  "jpg",
	FormatPNG:  "png",
	FormatTIFF: "tiff",
	FormatBMP:  "bmp",
}

// Formats returns every real format in selector order.
func Formats() []Format {
	return []Format{FormatWEBP, FormatJPG, FormatPNG, FormatTIFF, FormatBMP}
}

// String returns the canonical name used on every boundary.
func (f Format) String() string {
	return formatNames[f]
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string {
	return formatExtensions[f]
}

// Valid reports whether f names a real output format.
func (f Format) Valid() bool {
	_, ok := formatNames[f]
	return ok
}

// Lossy reports whether the encoder for f honours a quality setting.
func (f Format) Lossy() bool {
	return f == FormatWEBP || f == FormatJPG
}

// ParseFormat accepts a canonical name in any case. An empty string and
// "NONE" parse to FormatNone.
func ParseFormat(s string) (Format, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "" || name == "NONE" {
		return FormatNone, nil
	}
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return FormatNone, fmt.Errorf("unknown image format: %q", s)
}

func (f Format) MarshalText() ([]byte, error) {
	if f != FormatNone && !f.Valid() {
		return nil, fmt.Errorf("invalid image format ordinal: %d", int(f))
	}
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// FromExtension maps a file extension (with or without the dot, any case) to
// the format that carries that exact name. Only the canonical extensions are
// recognised, so "jpeg" and "tif" do not match.
func FromExtension(ext string) (Format, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for f, e := range formatExtensions {
		if e == ext {
			return f, true
		}
	}
	return FormatNone, false
}

// DefaultFor picks the initial target format for a newly queued source file:
// photographic sources (jpg, jpeg, png) go to WEBP, everything else to PNG.
func DefaultFor(ext string) Format {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg", "png":
		return FormatWEBP
	default:
		return FormatPNG
	}
}
