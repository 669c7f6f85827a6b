package receipt

import "context"

// TextExtractor is the port to the external OCR service. Implementations
// return the raw recognized text; turning it into items is ParseText's job.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}
