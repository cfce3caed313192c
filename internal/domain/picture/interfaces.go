package picture

import (
	"context"
	"image"
)

// Transformer defines the geometry operations on an image file
type Transformer interface {
	// Resize scales the image to fit within the bounds, or forces exact bounds
	Resize(ctx context.Context, path string, spec ResizeSpec) (*TransformResult, error)

	// CropCenter crops a centered box of the requested size
	CropCenter(ctx context.Context, path string, width, height int) (*TransformResult, error)

	// CropCustom crops an explicit box after clamping it to the image
	CropCustom(ctx context.Context, path string, box Box) (*TransformResult, error)

	// Thumbnail returns an aspect-fitted copy without touching the file
	Thumbnail(ctx context.Context, path string, maxWidth, maxHeight int) (image.Image, error)
}

// MetadataStore defines the metadata operations on an image file
type MetadataStore interface {
	// Read returns every metadata category found in the file
	Read(ctx context.Context, path string) (Record, error)

	// Has reports whether the file carries anything beyond Basic
	Has(ctx context.Context, path string) (bool, error)

	// Strip rewrites the file without embedded metadata
	Strip(ctx context.Context, path string) (*StripResult, error)

	// Update writes EXIF field edits back into the file
	Update(ctx context.Context, path string, changes Record) (*UpdateResult, error)
}
