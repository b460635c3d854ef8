package converter

import (
	"log"
	"os/exec"
	"strings"

	"github.com/ah-its-andy/webpconv/internal/livelog"
)

// BuiltinOptions carries the settings shared by the builtin backends.
type BuiltinOptions struct {
	Workers          int
	PreserveMetadata bool
	MagickPath       string
	ExiftoolPath     string
	Live             *livelog.Manager
}

// RegisterBuiltinConverters registers the named builtin backends in the given
// order. Unknown names are logged and skipped. It returns how many were
// registered.
func RegisterBuiltinConverters(reg *Registry, names []string, opts BuiltinOptions) int {
	registeredCount := 0

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		switch strings.ToLower(name) {
		case "native":
			reg.Register(NewNativeConverter(opts.Workers))
		case "magick":
			reg.Register(NewMagickConverter(MagickOptions{
				Tool:             opts.MagickPath,
				Exiftool:         opts.ExiftoolPath,
				PreserveMetadata: opts.PreserveMetadata,
				Workers:          opts.Workers,
				Live:             opts.Live,
			}))
		default:
			log.Printf("warning: unknown builtin converter '%s'", name)
			continue
		}
		log.Printf("registered builtin converter: %s", strings.ToLower(name))
		registeredCount++
	}

	return registeredCount
}

// ListAvailableBuiltinConverters returns a list of all available builtin converter names
func ListAvailableBuiltinConverters() []string {
	return []string{"native", "magick"}
}

// CheckExternalTools logs whether the tools used by the magick backend are
// on PATH.
func CheckExternalTools(opts BuiltinOptions) {
	tools := []string{opts.MagickPath, opts.ExiftoolPath}
	if tools[0] == "" {
		tools[0] = "magick"
	}
	if tools[1] == "" {
		tools[1] = "exiftool"
	}

	log.Println("checking external tools:")
	for _, name := range tools {
		if _, err := exec.LookPath(name); err != nil {
			log.Printf("  %s: NOT FOUND (magick converter unavailable or metadata copy skipped)", name)
		} else {
			log.Printf("  %s: found", name)
		}
	}
}
