package internal

import (
	"time"

	"captioner/internal/captions"
)

type (
	User struct {
		ID       int64  `json:"-"`
		GoogleID string `json:"-"`
		Email    string `json:"email"`
		Name     string `json:"name"`
	}

	ErrorResponse struct {
		Error string        `json:"error"`
		Code  captions.Kind `json:"code,omitempty"`
	}

	UserResponse struct {
		User *User `json:"user"`
	}

	HealthResponse struct {
		Status        string `json:"status"`
		Auth          bool   `json:"auth"`
		Postgres      bool   `json:"postgres"`
		Elasticsearch bool   `json:"elasticsearch"`
		Kafka         bool   `json:"kafka"`
	}

	// CaptionRecord is one stored generation. Content is written once; only
	// IndexedAt changes afterwards.
	CaptionRecord struct {
		ID        int64      `json:"id"`
		UserID    *int64     `json:"-"`
		Platform  string     `json:"platform"`
		Caption   string     `json:"caption"`
		Hashtags  []string   `json:"hashtags"`
		Tips      []string   `json:"tips"`
		CreatedAt time.Time  `json:"created_at"`
		IndexedAt *time.Time `json:"indexed_at,omitempty"`
	}

	HistoryResponse struct {
		Items []CaptionRecord `json:"items"`
	}

	// CaptionEvent is published to Kafka after a caption is stored and is
	// also the Elasticsearch document body.
	CaptionEvent struct {
		ID        int64     `json:"id"`
		User      string    `json:"user"`
		Platform  string    `json:"platform"`
		Caption   string    `json:"caption"`
		Hashtags  []string  `json:"hashtags"`
		CreatedAt time.Time `json:"created_at"`
	}
)
