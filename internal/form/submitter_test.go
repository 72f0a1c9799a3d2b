package form

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"captioner/internal/captions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSubmitter_Submit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "sample.jpg", header.Filename)
		assert.Equal(t, []byte{0xff, 0xd8}, data)
		assert.Equal(t, "twitter", r.FormValue("platform"))
		assert.Equal(t, "medium", r.FormValue("length"))
		assert.Equal(t, "humorous", r.FormValue("tone"))
		assert.Equal(t, "my cat", r.FormValue("description"))

		cookie, err := r.Cookie("caption_session")
		require.NoError(t, err)
		assert.Equal(t, "signed", cookie.Value)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"caption":"Cat","hashtags":["#cat"],"tips":["Smile"]}`))
	}))
	defer server.Close()

	sub, err := NewHTTPSubmitter(server.URL, time.Second)
	require.NoError(t, err)
	sub.SetSessionCookie("caption_session", "signed")

	result, err := sub.Submit(context.Background(), Input{
		ImageName:   "sample.jpg",
		Image:       []byte{0xff, 0xd8},
		Platform:    captions.Twitter,
		Length:      captions.Medium,
		Tone:        captions.Humorous,
		Description: "my cat",
	})
	require.NoError(t, err)
	assert.Equal(t, &captions.Result{Caption: "Cat", Hashtags: []string{"#cat"}, Tips: []string{"Smile"}}, result)
}

func TestHTTPSubmitter_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"API credits are exhausted. Please check back later.","code":"API_CREDITS_EXHAUSTED"}`))
	}))
	defer server.Close()

	sub, err := NewHTTPSubmitter(server.URL, time.Second)
	require.NoError(t, err)

	_, err = sub.Submit(context.Background(), Input{ImageName: "a.png", Image: []byte{1}, Platform: captions.Instagram, Length: captions.Short, Tone: captions.Casual})

	var respErr *ResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Equal(t, http.StatusServiceUnavailable, respErr.Status)
	assert.Equal(t, captions.KindQuotaExhausted, respErr.Code)
	assert.Equal(t, "API credits are exhausted. Please check back later.", respErr.Message)
}

func TestHTTPSubmitter_SuccessStatuses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		expectErr bool
	}{
		{"ok", http.StatusOK, `{"caption":"Cat","hashtags":[],"tips":[]}`, false},
		{"created", http.StatusCreated, `{"caption":"Cat","hashtags":[],"tips":[]}`, false},
		{"ok without caption", http.StatusOK, `{"hashtags":[]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			sub, err := NewHTTPSubmitter(server.URL, time.Second)
			require.NoError(t, err)

			result, err := sub.Submit(context.Background(), Input{ImageName: "a.png", Image: []byte{1}, Platform: captions.Instagram, Length: captions.Short, Tone: captions.Casual})
			if tt.expectErr {
				var respErr *ResponseError
				require.True(t, errors.As(err, &respErr))
				assert.Equal(t, tt.status, respErr.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Cat", result.Caption)
		})
	}
}
