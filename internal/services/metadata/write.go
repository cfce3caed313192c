package metadata

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
	"github.com/LazySeaHorse/Just-De-Pic/internal/observability"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/container"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/exifdir"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/storage"
)

// Strip rewrites the file without embedded metadata.
//
// The pixels are decoded, copied into a fresh image of the same model and
// re-encoded in the original format. If that fails, JPEG-family files fall
// back to dropping their metadata segments and WEBP files to dropping their
// metadata chunks, both leaving the compressed image data as it was. Any other
// failure leaves the file unchanged.
func (s *Store) Strip(ctx context.Context, path string) (*picture.StripResult, error) {
	ctx, op := observability.StartOperation(ctx, s.tracer, s.metrics, "metadata."+opStrip, path)
	res, err := s.strip(ctx, op, path)
	if res != nil {
		op.SetAttributes(observability.AttrStrategy.String(string(res.Strategy)))
	}
	return res, op.End(err)
}

func (s *Store) strip(ctx context.Context, op *observability.Operation, path string) (*picture.StripResult, error) {
	data, err := s.files.Read(ctx, path)
	if err != nil {
		return nil, picture.NewPathError(opStrip, path, picture.ErrDecode, err)
	}

	format, primaryErr := s.reencode(ctx, op, path, data)
	if primaryErr == nil {
		s.logger.Debug(ctx).Str("path", path).Str("format", format.String()).Msg("stripped metadata by re-encoding")
		return &picture.StripResult{Format: format, Strategy: picture.StripReencode}, nil
	}

	detected, _ := storage.DetectFormat(data)
	switch {
	case picture.IsJPEGFamily(path):
		format = picture.FormatJPEG
	case detected == picture.FormatWEBP:
		format = picture.FormatWEBP
	default:
		s.logger.Error(ctx).Err(primaryErr).Str("path", path).Msg("failed to strip metadata")
		return nil, primaryErr
	}

	s.logger.Warn(ctx).Err(primaryErr).Str("path", path).Str("format", format.String()).Msg("re-encode failed, removing metadata blocks instead")
	out, removed, err := stripBlocks(format, data)
	if err != nil {
		return nil, errors.Join(primaryErr, picture.NewPathError(opStrip, path, picture.ErrEncode, err))
	}
	if err := s.files.Write(ctx, path, out); err != nil {
		return nil, errors.Join(primaryErr, picture.NewPathError(opStrip, path, picture.ErrEncode, err))
	}
	op.Written(len(out))

	s.logger.Debug(ctx).Str("path", path).Int("removed", removed).Msg("stripped metadata blocks")
	return &picture.StripResult{Format: format, Strategy: picture.StripSegments, Cause: primaryErr}, nil
}

// reencode writes a pixel-only copy of the image and returns its format
func (s *Store) reencode(ctx context.Context, op *observability.Operation, path string, data []byte) (picture.Format, error) {
	decoded, err := s.processor.Decode(ctx, data)
	if err != nil {
		return "", picture.NewPathError(opStrip, path, picture.ErrDecode, err)
	}
	op.SetFormat(decoded.Format.String())

	clean := storage.ClonePixels(decoded.Image)
	out, err := s.processor.EncodeBytes(ctx, clean, decoded.Format, s.stripQuality)
	if err != nil {
		return decoded.Format, picture.NewPathError(opStrip, path, picture.ErrEncode, err)
	}
	if err := s.files.Write(ctx, path, out); err != nil {
		return decoded.Format, picture.NewPathError(opStrip, path, picture.ErrEncode, err)
	}
	op.Written(len(out))
	return decoded.Format, nil
}

// stripBlocks removes metadata blocks from the container without re-encoding
func stripBlocks(format picture.Format, data []byte) ([]byte, int, error) {
	switch format {
	case picture.FormatJPEG:
		j, err := container.ParseJPEG(data)
		if err != nil {
			return nil, 0, err
		}
		n := j.StripMetadata()
		return j.Bytes(), n, nil
	case picture.FormatWEBP:
		w, err := container.ParseWebP(data)
		if err != nil {
			return nil, 0, err
		}
		n := w.StripMetadata()
		return w.Bytes(), n, nil
	}
	return nil, 0, fmt.Errorf("%w: no block-level strip for %s", picture.ErrUnsupportedFormat, format)
}

// Update writes the EXIF fields of changes into the file's tag directory.
//
// Only formats with a writable tag directory (JPEG) are accepted; anything else
// fails with picture.ErrUnsupportedFormat and is left byte-identical. Each
// field name is resolved against the 0th, Exif, GPS and 1st groups in that
// order and encoded by the tag's declared type. Names that match no writable
// tag, fail to encode, or sit outside the EXIF category are listed in the
// result and reported as a *picture.FieldNotFoundError; the rest are written.
func (s *Store) Update(ctx context.Context, path string, changes picture.Record) (*picture.UpdateResult, error) {
	ctx, op := observability.StartOperation(ctx, s.tracer, s.metrics, "metadata."+opUpdate, path)
	res, err := s.update(ctx, op, path, changes)
	if res != nil {
		op.SetAttributes(
			attribute.Int("depic.update.applied", len(res.Applied)),
			attribute.Int("depic.update.unmatched", len(res.Unmatched)),
		)
	}
	return res, op.End(err)
}

func (s *Store) update(ctx context.Context, op *observability.Operation, path string, changes picture.Record) (*picture.UpdateResult, error) {
	data, err := s.files.Read(ctx, path)
	if err != nil {
		return nil, picture.NewPathError(opUpdate, path, picture.ErrDecode, err)
	}
	_, format, err := s.processor.DecodeConfig(data)
	if err != nil {
		return nil, picture.NewPathError(opUpdate, path, picture.ErrDecode, err)
	}
	op.SetFormat(format.String())

	if !format.Info().TagWrite {
		s.logger.Warn(ctx).Str("path", path).Str("format", format.String()).Msg("format has no writable tag directory")
		return nil, picture.NewPathError(opUpdate, path, picture.ErrUnsupportedFormat,
			fmt.Errorf("%s files have no writable tag directory", format))
	}

	j, err := container.ParseJPEG(data)
	if err != nil {
		return nil, picture.NewPathError(opUpdate, path, picture.ErrDecode, err)
	}
	dir := exifdir.New()
	if block, ok := j.Exif(); ok {
		if dir, err = exifdir.Parse(block); err != nil {
			return nil, picture.NewPathError(opUpdate, path, picture.ErrMetadata, err)
		}
	}

	res := &picture.UpdateResult{}
	for _, category := range changes.Categories() {
		fields := changes[category]
		for _, name := range fields.Names() {
			if category != picture.CategoryEXIF {
				res.Unmatched = append(res.Unmatched, string(category)+"."+name)
				continue
			}
			group, err := dir.SetByName(name, fields[name])
			if err != nil {
				s.logger.Debug(ctx).Err(err).Str("field", name).Msg("field not written")
				res.Unmatched = append(res.Unmatched, name)
				continue
			}
			s.logger.Debug(ctx).Str("field", name).Str("group", string(group)).Msg("field updated")
			res.Applied = append(res.Applied, name)
		}
	}

	if len(res.Applied) > 0 {
		segment, err := dir.Segment()
		if err != nil {
			return res, picture.NewPathError(opUpdate, path, picture.ErrEncode, err)
		}
		if err := j.SetExif(segment); err != nil {
			return res, picture.NewPathError(opUpdate, path, picture.ErrEncode, err)
		}
		out := j.Bytes()
		if err := s.files.Write(ctx, path, out); err != nil {
			return res, picture.NewPathError(opUpdate, path, picture.ErrEncode, err)
		}
		res.Written = true
		op.Written(len(out))
	}

	if len(res.Unmatched) > 0 {
		return res, fmt.Errorf("%s %s: %w", opUpdate, path, &picture.FieldNotFoundError{Fields: res.Unmatched})
	}
	s.logger.Debug(ctx).Str("path", path).Strs("fields", res.Applied).Msg("updated metadata")
	return res, nil
}
