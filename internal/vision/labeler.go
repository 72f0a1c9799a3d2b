// Package vision extracts descriptive labels from images with Google Cloud
// Vision label detection.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"captioner/internal/captions"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"
)

const (
	labelDetection = "LABEL_DETECTION"

	// grpc code carried in per-image statuses
	codePermissionDenied  = 7
	codeResourceExhausted = 8
)

type Config struct {
	APIKey     string `yaml:"api_key" env:"GOOGLE_VISION_API_KEY"`
	Endpoint   string `yaml:"endpoint" env:"GOOGLE_VISION_ENDPOINT"`
	MaxResults int64  `yaml:"max_results" env-default:"10"`
}

type Labeler struct {
	images     *visionapi.ImagesService
	maxResults int64
}

// NewLabeler builds a client from cfg. Without an API key the client falls
// back to application default credentials.
func NewLabeler(ctx context.Context, cfg Config, extra ...option.ClientOption) (*Labeler, error) {
	var opts []option.ClientOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	svc, err := visionapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision service: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	return &Labeler{images: svc.Images, maxResults: maxResults}, nil
}

func (l *Labeler) Labels(ctx context.Context, image []byte) ([]string, error) {
	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{
			{
				Image: &visionapi.Image{
					Content: base64.StdEncoding.EncodeToString(image),
				},
				Features: []*visionapi.Feature{
					{Type: labelDetection, MaxResults: l.maxResults},
				},
			},
		},
	}

	resp, err := l.images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Responses) == 0 {
		return nil, nil
	}

	res := resp.Responses[0]
	if res.Error != nil {
		if res.Error.Code == codePermissionDenied || res.Error.Code == codeResourceExhausted || quotaMessage(res.Error.Message) {
			return nil, fmt.Errorf("%w: %s", captions.ErrQuotaExhausted, res.Error.Message)
		}
		return nil, fmt.Errorf("vision API error: %s", res.Error.Message)
	}

	labels := make([]string, 0, len(res.LabelAnnotations))
	for _, label := range res.LabelAnnotations {
		labels = append(labels, label.Description)
	}

	return labels, nil
}

func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusForbidden ||
			apiErr.Code == http.StatusTooManyRequests ||
			quotaMessage(apiErr.Message) ||
			quotaMessage(apiErr.Body) {
			return fmt.Errorf("%w: %s", captions.ErrQuotaExhausted, apiErr.Message)
		}
		return fmt.Errorf("vision API returned status %d: %s", apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("calling vision API: %w", err)
}

func quotaMessage(msg string) bool {
	return captions.IsPermissionDenied(msg) || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
