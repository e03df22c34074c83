package ocr

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// VisionClient calls Google Cloud Vision TEXT_DETECTION.
type VisionClient struct {
	svc *vision.Service
}

// NewVisionClient builds a Vision client. An empty apiKey falls back to
// Application Default Credentials.
func NewVisionClient(ctx context.Context, apiKey string) (*VisionClient, error) {
	var opts []option.ClientOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionClient{svc: svc}, nil
}

func (c *VisionClient) Recognize(ctx context.Context, image []byte) (Response, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}
	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return Response{}, fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return Response{}, nil
	}
	return fromAnnotateResponse(resp.Responses[0]), nil
}

func fromAnnotateResponse(r *vision.AnnotateImageResponse) Response {
	var out Response
	if r == nil {
		return out
	}
	if r.Error != nil && r.Error.Message != "" {
		out.Error = r.Error.Message
	}
	if r.FullTextAnnotation != nil {
		out.FullText = r.FullTextAnnotation.Text
	}
	for _, a := range r.TextAnnotations {
		if a != nil {
			out.Blocks = append(out.Blocks, a.Description)
		}
	}
	return out
}
