// Package ocr wraps the optical character recognition services and the PDF
// page rasteriser used when a document has no text layer.
package ocr

import "context"

// Response is what a recognition service reports for one image. Error is
// set when the service itself flagged a failure for the request.
type Response struct {
	FullText string
	Blocks   []string
	Error    string
}

// Recognizer turns image bytes into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (Response, error)
}

// Unavailable is a Recognizer for when no OCR backend could be configured.
// Every call fails with Err.
type Unavailable struct {
	Err error
}

func (u Unavailable) Recognize(context.Context, []byte) (Response, error) {
	return Response{}, u.Err
}
