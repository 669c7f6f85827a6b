// Package google provides the Cloud Vision implementation of the OCR port.
package google

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gvision "google.golang.org/api/vision/v1"

	"quicksplit/internal/receipt"
)

type Client struct {
	svc *gvision.Service
}

// Ensure interface conformance
var _ receipt.TextExtractor = (*Client)(nil)

// NewFromEnv creates a Vision client using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	svc, err := newVisionService(ctx)
	if err != nil {
		return nil, fmt.Errorf("vision service: %w", err)
	}
	return &Client{svc: svc}, nil
}

func newVisionService(ctx context.Context) (*gvision.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gvision.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gvision.CloudVisionScope))
	if err != nil {
		return nil, fmt.Errorf("create vision service: %w", err)
	}
	return service, nil
}

// ExtractText runs TEXT_DETECTION over the image and returns the raw
// recognized text. An image with no recognizable text yields "".
func (c *Client) ExtractText(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("empty image")
	}

	req := &gvision.BatchAnnotateImagesRequest{
		Requests: []*gvision.AnnotateImageRequest{{
			Image:    &gvision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*gvision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("annotate image: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", errors.New("empty annotate response")
	}

	r := resp.Responses[0]
	if r.Error != nil {
		return "", fmt.Errorf("vision API error: %s", r.Error.Message)
	}
	if r.FullTextAnnotation == nil {
		slog.InfoContext(ctx, "No text detected on receipt image", "image_bytes", len(image))
		return "", nil
	}
	return r.FullTextAnnotation.Text, nil
}
