package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"captioner/internal/captions"
	"captioner/internal/gemini"
	"captioner/internal/vision"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

const historyLimit = 20

type (
	HistoryStore interface {
		ListCaptions(ctx context.Context, who captions.Identity, limit int) ([]CaptionRecord, error)
		Watch(ctx context.Context, who captions.Identity, fn func() error) error
	}

	CaptionSearcher interface {
		Search(ctx context.Context, who captions.Identity, query string) (*SearchResponse, error)
	}
)

type App struct {
	Config        *AppConfig
	Captions      *captions.Service
	Identity      IdentityResolver
	Google        *GoogleAuth
	History       HistoryStore
	Search        CaptionSearcher
	Upgrader      *websocket.Upgrader
	Postgres      *pgxpool.Pool
	KafkaProducer *Producer
}

// NewApp wires every configured component. Postgres, Elasticsearch and Kafka
// are optional; their routes answer 503 when missing.
func NewApp(ctx context.Context, c *AppConfig) (*App, error) {
	app := &App{
		Config:   c,
		Identity: Anonymous{},
		Upgrader: NewUpgrader(c.ClientOrigin),
	}

	var recorder captions.Recorder

	if c.Postgres.ConnectionUrl != "" {
		dbpool, err := pgxpool.New(ctx, c.Postgres.ConnectionUrl)
		if err != nil {
			return nil, err
		}
		app.Postgres = dbpool
		store := NewStore(dbpool)
		app.History = store

		if c.KafkaEnabled() {
			producer, err := NewProducer(c.Kafka)
			if err != nil {
				app.Close()
				return nil, err
			}
			app.KafkaProducer = producer
			recorder = NewCaptionRecorder(store, producer)
		} else {
			recorder = NewCaptionRecorder(store, nil)
		}

		if c.Auth.Enabled {
			app.Google = NewGoogleAuth(c.Auth, c.ClientOrigin, store)
			app.Identity = app.Google
		}
	}

	if c.ElasticsearchEnabled() {
		client, err := elasticsearch.NewTypedClient(c.Elasticsearch)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Search = NewCaptionSearch(client, c.ElasticsearchIndex)
	}

	opts := []captions.Option{
		captions.WithSource(captions.Source(c.Pipeline.Source)),
		captions.WithCallTimeout(c.Pipeline.CallTimeout),
		captions.RequireIdentity(c.Auth.Enabled),
		captions.WithLogger(slog.Default()),
	}
	if recorder != nil {
		opts = append(opts, captions.WithRecorder(recorder))
	}
	if captions.Source(c.Pipeline.Source) == captions.SourceLabels {
		labeler, err := vision.NewLabeler(ctx, c.Vision)
		if err != nil {
			app.Close()
			return nil, err
		}
		opts = append(opts, captions.WithLabeler(labeler))
	}

	service, err := captions.New(gemini.NewClient(c.Gemini), opts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Captions = service

	return app, nil
}

// NewUpgrader accepts websocket handshakes from the same host and from the
// configured client origin.
func NewUpgrader(clientOrigin string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == clientOrigin || strings.HasSuffix(origin, "://"+r.Host)
		},
	}
}

func (a *App) Close() {
	if a.KafkaProducer != nil {
		if err := a.KafkaProducer.Close(); err != nil {
			slog.Error("Failed to close producer", slog.String("error", err.Error()))
		}
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
}

func (a *App) Home(c *gin.Context) {
	who, signedIn := a.Identity.Identity(c)
	c.HTML(http.StatusOK, "index.html", gin.H{
		"AuthEnabled": a.Google != nil,
		"SignedIn":    signedIn,
		"Identity":    who,
		"Platforms":   captions.Platforms,
		"Lengths":     captions.Lengths,
		"Tones":       captions.Tones,
	})
}

func (a *App) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "available",
		Auth:          a.Google != nil,
		Postgres:      a.History != nil,
		Elasticsearch: a.Search != nil,
		Kafka:         a.KafkaProducer != nil,
	})
}

func (a *App) Upload(c *gin.Context) {
	if a.Config.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.Config.MaxUploadSize)
	}

	who, _ := a.Identity.Identity(c)

	req, err := readUpload(c)
	if err != nil {
		AbortWithCaptionError(c, &captions.Error{Kind: captions.KindInvalidInput, Stage: "upload", Err: err})
		return
	}

	result, err := a.Captions.Generate(c, req, who)
	if err != nil {
		AbortWithCaptionError(c, err)
		return
	}

	slog.Info("Caption generated", slog.String("file", req.Filename), slog.String("platform", string(req.Platform)))
	c.JSON(http.StatusOK, result)
}

// readUpload reads the multipart body. A request without the image part is
// not an error here: the orchestrator reports it as a missing file.
func readUpload(c *gin.Context) (captions.Request, error) {
	req := captions.Request{}

	header, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit)
		}
		return req, fmt.Errorf("reading upload: %w", err)
	default:
		file, err := header.Open()
		if err != nil {
			return req, fmt.Errorf("opening upload: %w", err)
		}
		defer file.Close()

		req.Image, err = io.ReadAll(file)
		if err != nil {
			return req, fmt.Errorf("reading upload: %w", err)
		}
		req.Filename = header.Filename
	}

	req.Platform = captions.Platform(c.PostForm("platform"))
	req.Length = captions.Length(c.PostForm("length"))
	req.Tone = captions.Tone(c.PostForm("tone"))
	req.Description = c.PostForm("description")
	return req, nil
}
