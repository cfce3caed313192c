// Package metadata reads, reports, strips and edits the metadata embedded in
// image files.
//
// Every read builds a fresh picture.Record: Basic is synthesized from the
// decoded image, EXIF comes from the tag directory (JPEG APP1 or the TIFF file
// itself), IPTC from the JPEG Photoshop resource block, and anything else the
// container carries (XMP packets, comments, ICC profiles, text chunks) lands in
// the XMP catch-all category.
package metadata

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
	"github.com/LazySeaHorse/Just-De-Pic/internal/observability"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/container"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/exifdir"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/storage"
)

const (
	opRead   = "read"
	opHas    = "has"
	opStrip  = "strip"
	opUpdate = "update"

	defaultStripQuality = 95
)

// Options tune a Store
type Options struct {
	// StripQuality is the JPEG quality used when Strip re-encodes
	StripQuality int
}

// Store implements picture.MetadataStore on local files
type Store struct {
	processor    *storage.Processor
	files        *storage.FileStore
	stripQuality int

	logger  *observability.Logger
	tracer  trace.Tracer
	metrics *observability.OperationMetrics
}

var _ picture.MetadataStore = (*Store)(nil)

// NewStore creates a metadata store. logger and metrics may be nil.
func NewStore(
	processor *storage.Processor,
	files *storage.FileStore,
	opts Options,
	logger *observability.Logger,
	metrics *observability.OperationMetrics,
) *Store {
	if opts.StripQuality <= 0 || opts.StripQuality > 100 {
		opts.StripQuality = defaultStripQuality
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Store{
		processor:    processor,
		files:        files,
		stripQuality: opts.StripQuality,
		logger:       logger,
		tracer:       observability.GetTracer(),
		metrics:      metrics,
	}
}

// Read returns every metadata category found in the file. When an embedded
// block cannot be parsed the categories that could be read are still returned,
// together with an error matching picture.ErrMetadata. A file that does not
// decode as an image yields a nil record and an error matching picture.ErrDecode.
func (s *Store) Read(ctx context.Context, path string) (picture.Record, error) {
	ctx, op := observability.StartOperation(ctx, s.tracer, s.metrics, "metadata."+opRead, path)
	rec, err := s.read(ctx, op, opRead, path)
	return rec, op.End(err)
}

// Has reports whether the file carries anything beyond the Basic category.
// The error is that of Read; a partial read can still report true.
func (s *Store) Has(ctx context.Context, path string) (bool, error) {
	ctx, op := observability.StartOperation(ctx, s.tracer, s.metrics, "metadata."+opHas, path)
	rec, err := s.read(ctx, op, opHas, path)
	return rec != nil && rec.HasEmbedded(), op.End(err)
}

func (s *Store) read(ctx context.Context, op *observability.Operation, name, path string) (picture.Record, error) {
	data, err := s.files.Read(ctx, path)
	if err != nil {
		return nil, picture.NewPathError(name, path, picture.ErrDecode, err)
	}

	decoded, err := s.processor.Decode(ctx, data)
	if err != nil {
		s.logger.Warn(ctx).Err(err).Str("path", path).Msg("failed to decode image")
		return nil, picture.NewPathError(name, path, picture.ErrDecode, err)
	}
	op.SetFormat(decoded.Format.String())

	rec := picture.NewRecord()
	rec.Set(picture.CategoryBasic, picture.FieldFormat, picture.TextValue(decoded.Format.String()))
	rec.Set(picture.CategoryBasic, picture.FieldMode, picture.TextValue(decoded.Mode))
	rec.Set(picture.CategoryBasic, picture.FieldSize, picture.TextValue(fmt.Sprintf("%dx%d", decoded.Width(), decoded.Height())))

	errs := embedded(decoded.Format, data, rec)
	rec.Compact()

	if len(errs) > 0 {
		err := picture.NewPathError(name, path, picture.ErrMetadata, errors.Join(errs...))
		s.logger.Warn(ctx).Err(err).Str("path", path).Msg("metadata partially read")
		return rec, err
	}

	s.logger.Debug(ctx).Str("path", path).Strs("categories", categoryNames(rec)).Msg("read metadata")
	return rec, nil
}

// embedded fills rec from the blocks the container carries and returns the
// parse failures it ran into
func embedded(format picture.Format, data []byte, rec picture.Record) []error {
	var errs []error
	add := func(category picture.Category, fields picture.Fields, err error, what string) {
		for k, v := range fields {
			rec.Set(category, k, v)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", what, err))
		}
	}

	switch format {
	case picture.FormatJPEG:
		j, err := container.ParseJPEG(data)
		if err != nil {
			return append(errs, fmt.Errorf("jpeg segments: %w", err))
		}
		if block, ok := j.Exif(); ok {
			dir, err := exifdir.Parse(block)
			if err != nil {
				add(picture.CategoryEXIF, nil, err, "exif")
			} else {
				add(picture.CategoryEXIF, dir.Fields(), nil, "exif")
			}
		}
		if block, ok := j.IPTC(); ok {
			fields, err := container.IPTCFields(block)
			add(picture.CategoryIPTC, fields, err, "iptc")
		}
		add(picture.CategoryXMP, j.Ancillary(), nil, "jpeg")

	case picture.FormatTIFF:
		dir, err := exifdir.Parse(data)
		if err != nil {
			add(picture.CategoryEXIF, nil, err, "tiff directory")
		} else {
			add(picture.CategoryEXIF, dir.DescriptiveFields(), nil, "tiff directory")
		}

	case picture.FormatPNG:
		fields, err := container.PNGAncillary(data)
		add(picture.CategoryXMP, fields, err, "png chunks")

	case picture.FormatGIF:
		fields, err := container.GIFAncillary(data)
		add(picture.CategoryXMP, fields, err, "gif extensions")

	case picture.FormatWEBP:
		w, err := container.ParseWebP(data)
		if err != nil {
			add(picture.CategoryXMP, nil, err, "webp chunks")
		} else {
			add(picture.CategoryXMP, w.Ancillary(), nil, "webp chunks")
		}
	}
	return errs
}

func categoryNames(rec picture.Record) []string {
	cats := rec.Categories()
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}
