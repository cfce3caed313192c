package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
	"github.com/LazySeaHorse/Just-De-Pic/internal/services"
)

// usageError marks bad command-line input. shown is set when the flag package
// has already printed the problem and the usage text.
type usageError struct {
	msg   string
	shown bool
}

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

type commandEnv struct {
	ctx       context.Context
	container *services.Container
	stdout    io.Writer
	flags     *flag.FlagSet
}

// parse parses flags and requires at least n positional arguments
func (e *commandEnv) parse(args []string, n int) ([]string, error) {
	if err := e.flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, usageError{msg: err.Error(), shown: true}
	}
	rest := e.flags.Args()
	if len(rest) < n {
		return nil, usagef("expected at least %d argument(s), got %d", n, len(rest))
	}
	return rest, nil
}

// files parses flags and expands every directory argument into the image
// files it directly contains
func (e *commandEnv) files(args []string) ([]string, error) {
	rest, err := e.parse(args, 1)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, path := range rest {
		st, err := os.Stat(path)
		if err != nil || !st.IsDir() {
			out = append(out, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", path, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && picture.IsImageFile(entry.Name()) {
				out = append(out, filepath.Join(path, entry.Name()))
			}
		}
	}
	return out, nil
}

type command struct {
	args    string
	summary string
	run     func(env *commandEnv, args []string) error
}

var commands = map[string]command{
	"info": {
		args:    "[-o json|text] <file|dir>...",
		summary: "print format, size and every metadata field",
		run:     runInfo,
	},
	"has": {
		args:    "<file|dir>...",
		summary: "report whether files carry embedded metadata",
		run:     runHas,
	},
	"strip": {
		args:    "<file|dir>...",
		summary: "remove all embedded metadata",
		run:     runStrip,
	},
	"set": {
		args:    "<file> [group.]name=value...",
		summary: "write EXIF fields into a JPEG file",
		run:     runSet,
	},
	"resize": {
		args:    "-width W -height H [-keep-aspect=false] <file>...",
		summary: "shrink to fit W x H, or force exactly W x H",
		run:     runResize,
	},
	"crop-center": {
		args:    "-width W -height H <file>...",
		summary: "crop a centered W x H box",
		run:     runCropCenter,
	},
	"crop": {
		args:    "-box left,top,right,bottom <file>...",
		summary: "crop an explicit box, clamped to the image",
		run:     runCrop,
	},
	"thumbnail": {
		args:    "-width W -height H -out PATH <file>",
		summary: "write an aspect-fitted copy to PATH",
		run:     runThumbnail,
	},
}

type fileInfo struct {
	Path     string         `json:"path"`
	Bytes    int64          `json:"bytes"`
	Size     string         `json:"size"`
	Metadata picture.Record `json:"metadata"`
	Error    string         `json:"error,omitempty"`
}

func runInfo(env *commandEnv, args []string) error {
	output := env.flags.String("o", "json", "output format: json or text")
	files, err := env.files(args)
	if err != nil {
		return err
	}
	if *output != "json" && *output != "text" {
		return usagef("unknown output format %q", *output)
	}

	var errs []error
	infos := make([]fileInfo, 0, len(files))
	for _, path := range files {
		rec, err := env.container.Metadata().Read(env.ctx, path)
		if rec == nil {
			errs = append(errs, err)
			continue
		}
		info := fileInfo{Path: path, Metadata: rec}
		if err != nil {
			// partial record; show what was read
			info.Error = err.Error()
			errs = append(errs, err)
		}
		if st, err := env.container.Files().Stat(env.ctx, path); err == nil {
			info.Bytes = st.Size
			info.Size = humanize.IBytes(uint64(st.Size))
		}
		infos = append(infos, info)
	}

	if *output == "text" {
		printText(env.stdout, infos)
	} else {
		enc := json.NewEncoder(env.stdout)
		enc.SetIndent("", "  ")
		var v any = infos
		if len(files) == 1 && len(infos) == 1 {
			v = infos[0]
		}
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return errors.Join(errs...)
}

func printText(w io.Writer, infos []fileInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, info := range infos {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\t%s\n", info.Path, info.Size)
		for _, category := range info.Metadata.Categories() {
			fields := info.Metadata[category]
			for _, name := range fields.Names() {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", category, name, truncate(fields[name].String(), 80))
			}
		}
		if info.Error != "" {
			fmt.Fprintf(tw, "  error\t%s\n", info.Error)
		}
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func runHas(env *commandEnv, args []string) error {
	files, err := env.files(args)
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range files {
		has, err := env.container.Metadata().Has(env.ctx, path)
		if err != nil {
			errs = append(errs, err)
			if !errors.Is(err, picture.ErrMetadata) {
				continue
			}
		}
		fmt.Fprintf(env.stdout, "%s\t%t\n", path, has)
	}
	return errors.Join(errs...)
}

func runStrip(env *commandEnv, args []string) error {
	files, err := env.files(args)
	if err != nil {
		return err
	}
	var errs []error
	for _, path := range files {
		res, err := env.container.Metadata().Strip(env.ctx, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(env.stdout, "%s\tstripped (%s)\n", path, res.Strategy)
	}
	return errors.Join(errs...)
}

// parseAssignments turns [group.]name=value pairs into a record. Names without
// a known category prefix are EXIF fields.
func parseAssignments(pairs []string) (picture.Record, error) {
	changes := picture.NewRecord()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, usagef("expected name=value, got %q", pair)
		}
		category := picture.CategoryEXIF
		if prefix, name, found := strings.Cut(key, "."); found {
			for _, c := range []picture.Category{picture.CategoryBasic, picture.CategoryEXIF, picture.CategoryIPTC, picture.CategoryXMP} {
				if strings.EqualFold(prefix, string(c)) {
					category, key = c, name
					break
				}
			}
		}
		changes.Set(category, key, picture.TextValue(value))
	}
	return changes.Compact(), nil
}

func runSet(env *commandEnv, args []string) error {
	rest, err := env.parse(args, 2)
	if err != nil {
		return err
	}
	path := rest[0]
	changes, err := parseAssignments(rest[1:])
	if err != nil {
		return err
	}

	res, err := env.container.Metadata().Update(env.ctx, path, changes)
	if res != nil {
		for _, name := range res.Applied {
			fmt.Fprintf(env.stdout, "%s\tset %s\n", path, name)
		}
		for _, name := range res.Unmatched {
			fmt.Fprintf(env.stdout, "%s\tskipped %s\n", path, name)
		}
	}
	return err
}

func runResize(env *commandEnv, args []string) error {
	width := env.flags.Int("width", 0, "maximum width in pixels")
	height := env.flags.Int("height", 0, "maximum height in pixels")
	keepAspect := env.flags.Bool("keep-aspect", true, "shrink to fit instead of forcing the exact size")
	files, err := env.files(args)
	if err != nil {
		return err
	}
	spec := picture.ResizeSpec{MaxWidth: *width, MaxHeight: *height, KeepAspect: *keepAspect}
	if err := spec.Validate(); err != nil {
		return usageError{msg: err.Error()}
	}

	return eachFile(files, func(path string) error {
		res, err := env.container.Transformer().Resize(env.ctx, path, spec)
		if err != nil {
			return err
		}
		printTransform(env.stdout, path, res)
		return nil
	})
}

func runCropCenter(env *commandEnv, args []string) error {
	width := env.flags.Int("width", 0, "crop width in pixels")
	height := env.flags.Int("height", 0, "crop height in pixels")
	files, err := env.files(args)
	if err != nil {
		return err
	}
	if *width <= 0 || *height <= 0 {
		return usagef("-width and -height must be positive")
	}

	return eachFile(files, func(path string) error {
		res, err := env.container.Transformer().CropCenter(env.ctx, path, *width, *height)
		if err != nil {
			return err
		}
		printTransform(env.stdout, path, res)
		return nil
	})
}

// parseBox reads "left,top,right,bottom"
func parseBox(s string) (picture.Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return picture.Box{}, usagef("box must be left,top,right,bottom, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return picture.Box{}, usagef("invalid box coordinate %q", p)
		}
		v[i] = n
	}
	return picture.Box{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

func runCrop(env *commandEnv, args []string) error {
	boxFlag := env.flags.String("box", "", "crop box as left,top,right,bottom")
	files, err := env.files(args)
	if err != nil {
		return err
	}
	box, err := parseBox(*boxFlag)
	if err != nil {
		return err
	}

	return eachFile(files, func(path string) error {
		res, err := env.container.Transformer().CropCustom(env.ctx, path, box)
		if err != nil {
			return err
		}
		printTransform(env.stdout, path, res)
		return nil
	})
}

func runThumbnail(env *commandEnv, args []string) error {
	width := env.flags.Int("width", 256, "maximum width in pixels")
	height := env.flags.Int("height", 256, "maximum height in pixels")
	out := env.flags.String("out", "", "output file; its extension selects the format")
	files, err := env.parse(args, 1)
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return usagef("thumbnail takes exactly one file")
	}
	if *out == "" {
		return usagef("-out is required")
	}
	format, ok := picture.FormatFromPath(*out)
	if !ok || !format.Info().Encodable {
		return usagef("cannot write %s thumbnails", filepath.Ext(*out))
	}

	thumb, err := env.container.Transformer().Thumbnail(env.ctx, files[0], *width, *height)
	if err != nil {
		return err
	}
	data, err := env.container.Processor().EncodeBytes(env.ctx, thumb, format, 0)
	if err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := env.container.Files().Write(env.ctx, *out, data); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	b := thumb.Bounds()
	fmt.Fprintf(env.stdout, "%s\t%dx%d\t%s\n", *out, b.Dx(), b.Dy(), humanize.IBytes(uint64(len(data))))
	return nil
}

func eachFile(files []string, fn func(path string) error) error {
	var errs []error
	for _, path := range files {
		if err := fn(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func printTransform(w io.Writer, path string, res *picture.TransformResult) {
	if !res.Written {
		fmt.Fprintf(w, "%s\tunchanged %dx%d\n", path, res.Width, res.Height)
		return
	}
	fmt.Fprintf(w, "%s\t%dx%d %s\n", path, res.Width, res.Height, res.Format)
}
