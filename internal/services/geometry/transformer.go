// Package geometry resizes and crops image files in place, writing the result
// back in the container format the file was decoded from.
package geometry

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/LazySeaHorse/Just-De-Pic/internal/config"
	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
	"github.com/LazySeaHorse/Just-De-Pic/internal/observability"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/storage"
)

// Operation names, used for spans and errors
const (
	opResize     = "resize"
	opCropCenter = "crop_center"
	opCropCustom = "crop_custom"
	opThumbnail  = "thumbnail"
)

var errEmptyCrop = errors.New("crop box has zero area")

var filters = map[string]imaging.ResampleFilter{
	config.FilterLanczos:    imaging.Lanczos,
	config.FilterCatmullRom: imaging.CatmullRom,
	config.FilterLinear:     imaging.Linear,
	config.FilterBox:        imaging.Box,
	config.FilterNearest:    imaging.NearestNeighbor,
}

// ParseFilter resolves a configured filter name
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	f, ok := filters[name]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter %q", name)
	}
	return f, nil
}

// Options tune a Transformer
type Options struct {
	Filter     string
	CropPolicy string
}

// Transformer implements picture.Transformer on local files
type Transformer struct {
	processor *storage.Processor
	files     *storage.FileStore
	filter    imaging.ResampleFilter
	strict    bool

	logger  *observability.Logger
	tracer  trace.Tracer
	metrics *observability.OperationMetrics
}

var _ picture.Transformer = (*Transformer)(nil)

// NewTransformer creates a transformer. logger and metrics may be nil.
func NewTransformer(
	processor *storage.Processor,
	files *storage.FileStore,
	opts Options,
	logger *observability.Logger,
	metrics *observability.OperationMetrics,
) (*Transformer, error) {
	if opts.Filter == "" {
		opts.Filter = config.FilterLanczos
	}
	filter, err := ParseFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	switch opts.CropPolicy {
	case "", config.CropClamp, config.CropStrict:
	default:
		return nil, fmt.Errorf("unknown crop policy %q", opts.CropPolicy)
	}
	if logger == nil {
		logger = observability.Nop()
	}

	return &Transformer{
		processor: processor,
		files:     files,
		filter:    filter,
		strict:    opts.CropPolicy == config.CropStrict,
		logger:    logger,
		tracer:    observability.GetTracer(),
		metrics:   metrics,
	}, nil
}

// Resize scales the image at path. With KeepAspect the image is shrunk to fit
// the bounds and never enlarged; without it the image is forced to exactly
// MaxWidth x MaxHeight.
func (t *Transformer) Resize(ctx context.Context, path string, spec picture.ResizeSpec) (*picture.TransformResult, error) {
	ctx, op := observability.StartOperation(ctx, t.tracer, t.metrics, "geometry."+opResize, path)
	op.SetAttributes(
		attribute.Int("depic.resize.max_width", spec.MaxWidth),
		attribute.Int("depic.resize.max_height", spec.MaxHeight),
		attribute.Bool("depic.resize.keep_aspect", spec.KeepAspect),
	)
	res, err := t.resize(ctx, op, path, spec)
	return res, op.End(err)
}

func (t *Transformer) resize(ctx context.Context, op *observability.Operation, path string, spec picture.ResizeSpec) (*picture.TransformResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", opResize, path, err)
	}

	decoded, err := t.load(ctx, op, opResize, path)
	if err != nil {
		return nil, err
	}
	w, h := decoded.Width(), decoded.Height()

	newW, newH := spec.MaxWidth, spec.MaxHeight
	if spec.KeepAspect {
		var scaled bool
		newW, newH, scaled = ScaleToFit(w, h, spec.MaxWidth, spec.MaxHeight)
		if !scaled {
			t.logger.Debug(ctx).Str("path", path).Int("width", w).Int("height", h).Msg("image already fits, not resized")
			return &picture.TransformResult{Format: decoded.Format, Width: w, Height: h}, nil
		}
	}

	resized := imaging.Resize(decoded.Image, newW, newH, t.filter)
	if err := t.save(ctx, op, opResize, path, resized, decoded.Format); err != nil {
		return nil, err
	}

	t.logger.Debug(ctx).
		Str("path", path).
		Str("from", fmt.Sprintf("%dx%d", w, h)).
		Str("to", fmt.Sprintf("%dx%d", newW, newH)).
		Msg("resized image")
	return &picture.TransformResult{Format: decoded.Format, Written: true, Width: newW, Height: newH}, nil
}

// CropCenter crops a width x height box from the middle of the image
func (t *Transformer) CropCenter(ctx context.Context, path string, width, height int) (*picture.TransformResult, error) {
	ctx, op := observability.StartOperation(ctx, t.tracer, t.metrics, "geometry."+opCropCenter, path)
	res, err := t.cropCenter(ctx, op, path, width, height)
	return res, op.End(err)
}

func (t *Transformer) cropCenter(ctx context.Context, op *observability.Operation, path string, width, height int) (*picture.TransformResult, error) {
	if width <= 0 || height <= 0 {
		return nil, picture.NewPathError(opCropCenter, path, picture.ErrInvalidGeometry,
			fmt.Errorf("crop size must be positive, got %dx%d", width, height))
	}

	decoded, err := t.load(ctx, op, opCropCenter, path)
	if err != nil {
		return nil, err
	}
	w, h := decoded.Width(), decoded.Height()

	if t.strict && (width > w || height > h) {
		return nil, picture.NewPathError(opCropCenter, path, picture.ErrInvalidGeometry,
			fmt.Errorf("crop %dx%d exceeds image %dx%d", width, height, w, h))
	}

	return t.crop(ctx, op, opCropCenter, path, decoded, CenterBox(w, h, width, height))
}

// CropCustom crops box after clamping it to the image bounds
func (t *Transformer) CropCustom(ctx context.Context, path string, box picture.Box) (*picture.TransformResult, error) {
	ctx, op := observability.StartOperation(ctx, t.tracer, t.metrics, "geometry."+opCropCustom, path)
	res, err := t.cropCustom(ctx, op, path, box)
	return res, op.End(err)
}

func (t *Transformer) cropCustom(ctx context.Context, op *observability.Operation, path string, box picture.Box) (*picture.TransformResult, error) {
	decoded, err := t.load(ctx, op, opCropCustom, path)
	if err != nil {
		return nil, err
	}
	clamped := ClampBox(box, decoded.Width(), decoded.Height())
	if clamped != box {
		t.logger.Debug(ctx).Str("path", path).Stringer("requested", box).Stringer("clamped", clamped).Msg("crop box clamped")
	}
	return t.crop(ctx, op, opCropCustom, path, decoded, clamped)
}

func (t *Transformer) crop(ctx context.Context, op *observability.Operation, name, path string, decoded *storage.Decoded, box picture.Box) (*picture.TransformResult, error) {
	op.SetAttributes(attribute.String("depic.crop.box", box.String()))
	if box.Empty() {
		return nil, picture.NewPathError(name, path, picture.ErrEncode, fmt.Errorf("%w: %s", errEmptyCrop, box))
	}

	origin := decoded.Image.Bounds().Min
	cropped := imaging.Crop(decoded.Image, box.Rect().Add(origin))
	if err := t.save(ctx, op, name, path, cropped, decoded.Format); err != nil {
		return nil, err
	}

	t.logger.Debug(ctx).Str("path", path).Stringer("box", box).Msg("cropped image")
	return &picture.TransformResult{
		Format:  decoded.Format,
		Written: true,
		Width:   box.Width(),
		Height:  box.Height(),
		Box:     box,
	}, nil
}

// Thumbnail returns an aspect-fitted copy of the image no larger than the bounds
func (t *Transformer) Thumbnail(ctx context.Context, path string, maxWidth, maxHeight int) (image.Image, error) {
	ctx, op := observability.StartOperation(ctx, t.tracer, t.metrics, "geometry."+opThumbnail, path)
	img, err := t.thumbnail(ctx, op, path, maxWidth, maxHeight)
	return img, op.End(err)
}

func (t *Transformer) thumbnail(ctx context.Context, op *observability.Operation, path string, maxWidth, maxHeight int) (image.Image, error) {
	spec := picture.ResizeSpec{MaxWidth: maxWidth, MaxHeight: maxHeight, KeepAspect: true}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", opThumbnail, path, err)
	}
	decoded, err := t.load(ctx, op, opThumbnail, path)
	if err != nil {
		return nil, err
	}
	return imaging.Fit(decoded.Image, maxWidth, maxHeight, t.filter), nil
}

// load reads and decodes path. Any failure here leaves the file untouched.
func (t *Transformer) load(ctx context.Context, op *observability.Operation, name, path string) (*storage.Decoded, error) {
	data, err := t.files.Read(ctx, path)
	if err != nil {
		return nil, picture.NewPathError(name, path, picture.ErrDecode, err)
	}
	decoded, err := t.processor.Decode(ctx, data)
	if err != nil {
		t.logger.Warn(ctx).Err(err).Str("path", path).Msg("failed to decode image")
		return nil, picture.NewPathError(name, path, picture.ErrDecode, err)
	}
	op.SetFormat(decoded.Format.String())
	return decoded, nil
}

// save encodes img in format and replaces the file
func (t *Transformer) save(ctx context.Context, op *observability.Operation, name, path string, img image.Image, format picture.Format) error {
	data, err := t.processor.EncodeBytes(ctx, img, format, 0)
	if err != nil {
		t.logger.Error(ctx).Err(err).Str("path", path).Str("format", format.String()).Msg("failed to encode image")
		return picture.NewPathError(name, path, picture.ErrEncode, err)
	}
	if err := t.files.Write(ctx, path, data); err != nil {
		t.logger.Error(ctx).Err(err).Str("path", path).Msg("failed to write image")
		return picture.NewPathError(name, path, picture.ErrEncode, err)
	}
	op.Written(len(data))
	return nil
}
