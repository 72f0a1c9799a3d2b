package form

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"captioner/internal/captions"

	"github.com/go-resty/resty/v2"
)

// ResponseError is a non-2xx answer from the upload endpoint.
type ResponseError struct {
	Status  int
	Code    captions.Kind
	Message string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upload failed with status %d", e.Status)
	}
	return fmt.Sprintf("upload failed with status %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Error string        `json:"error"`
	Code  captions.Kind `json:"code"`
}

// HTTPSubmitter posts the form as multipart/form-data to POST /upload. Its
// cookie jar carries the session cookie between calls.
type HTTPSubmitter struct {
	http *resty.Client
}

func NewHTTPSubmitter(baseURL string, timeout time.Duration) (*HTTPSubmitter, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &HTTPSubmitter{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetCookieJar(jar),
	}, nil
}

// SetSessionCookie attaches an existing session cookie, for example one copied
// from a browser after logging in.
func (s *HTTPSubmitter) SetSessionCookie(name, value string) {
	s.http.SetCookie(&http.Cookie{Name: name, Value: value})
}

func (s *HTTPSubmitter) Submit(ctx context.Context, in Input) (*captions.Result, error) {
	var result captions.Result
	var body errorBody

	resp, err := s.http.R().
		SetContext(ctx).
		SetFileReader("image", in.ImageName, bytes.NewReader(in.Image)).
		SetFormData(map[string]string{
			"platform":    string(in.Platform),
			"length":      string(in.Length),
			"tone":        string(in.Tone),
			"description": in.Description,
		}).
		SetResult(&result).
		SetError(&body).
		Post("/upload")
	if err != nil {
		return nil, fmt.Errorf("posting upload: %w", err)
	}

	if resp.IsError() {
		return nil, &ResponseError{Status: resp.StatusCode(), Code: body.Code, Message: body.Error}
	}
	if !resp.IsSuccess() || result.Caption == "" {
		return nil, &ResponseError{Status: resp.StatusCode()}
	}

	return &result, nil
}
