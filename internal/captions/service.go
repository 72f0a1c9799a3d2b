package captions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

type (
	Labeler interface {
		Labels(ctx context.Context, image []byte) ([]string, error)
	}

	// Generator answers the last user turn of conv.
	Generator interface {
		Generate(ctx context.Context, conv Conversation) (string, error)
	}

	Recorder interface {
		RecordCaption(ctx context.Context, who Identity, platform Platform, result *Result) error
	}
)

// Source selects where the caption prompt gets its description of the image.
type Source string

const (
	SourceLabels    Source = "labels"
	SourceDescribed Source = "described"
	SourceUser      Source = "user"
)

func (s Source) Valid() bool {
	return s == SourceLabels || s == SourceDescribed || s == SourceUser
}

const DefaultCallTimeout = 30 * time.Second

type Service struct {
	labeler         Labeler
	generator       Generator
	recorder        Recorder
	source          Source
	requireIdentity bool
	callTimeout     time.Duration
	log             *slog.Logger
}

type Option func(*Service)

func WithLabeler(l Labeler) Option {
	return func(s *Service) { s.labeler = l }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithSource(src Source) Option {
	return func(s *Service) { s.source = src }
}

func RequireIdentity(required bool) Option {
	return func(s *Service) { s.requireIdentity = required }
}

func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) { s.callTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func New(generator Generator, opts ...Option) (*Service, error) {
	if generator == nil {
		return nil, errors.New("captions: generator is required")
	}

	s := &Service{
		generator:   generator,
		source:      SourceLabels,
		callTimeout: DefaultCallTimeout,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if !s.source.Valid() {
		return nil, fmt.Errorf("captions: unknown source %q", s.source)
	}
	if s.source == SourceLabels && s.labeler == nil {
		return nil, errors.New("captions: labels source needs a labeler")
	}
	return s, nil
}

// Generate runs labels -> caption -> hashtags -> tips -> record, in that
// order, and stops at the first failure.
func (s *Service) Generate(ctx context.Context, req Request, who Identity) (*Result, error) {
	if s.requireIdentity && who.Anonymous() {
		return nil, s.fail(newError(KindUnauthenticated, "identity", nil))
	}
	if len(req.Image) == 0 {
		return nil, s.fail(newError(KindMissingFile, "validate", nil))
	}
	if err := validate(req); err != nil {
		return nil, s.fail(err)
	}

	subject, err := s.subject(ctx, req)
	if err != nil {
		return nil, s.fail(err)
	}

	conv := Conversation{}.Append(RoleUser, CaptionPrompt(req.Tone, subject, req.Platform, req.Length))
	caption, conv, err := s.ask(ctx, "caption", conv)
	if err != nil {
		return nil, s.fail(err)
	}
	if strings.TrimSpace(caption) == "" {
		return nil, s.fail(newError(KindGenerationEmpty, "caption", nil))
	}

	hashtags, conv, err := s.ask(ctx, "hashtags", conv.Append(RoleUser, HashtagPrompt(caption)))
	if err != nil {
		return nil, s.fail(err)
	}

	tips, _, err := s.ask(ctx, "tips", conv.Append(RoleUser, TipsPrompt(req.Platform, caption)))
	if err != nil {
		return nil, s.fail(err)
	}

	result := &Result{
		Caption:  caption,
		Hashtags: ParseHashtags(hashtags),
		Tips:     ParseTips(tips),
	}

	if s.recorder != nil {
		if err := s.recorder.RecordCaption(ctx, who, req.Platform, result); err != nil {
			return nil, s.fail(newError(KindPersistenceFailure, "record", err))
		}
	}

	return result, nil
}

func (s *Service) subject(ctx context.Context, req Request) (string, error) {
	switch s.source {
	case SourceDescribed:
		if strings.TrimSpace(req.Description) == "" {
			return "", newError(KindAnalysisEmpty, "describe", errors.New("no description supplied"))
		}
		desc, _, err := s.ask(ctx, "describe", Conversation{}.Append(RoleUser, DescribePrompt(req.Description)))
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(desc) == "" {
			return "", newError(KindAnalysisEmpty, "describe", nil)
		}
		return desc, nil

	case SourceUser:
		if strings.TrimSpace(req.Description) == "" {
			return "", newError(KindAnalysisEmpty, "describe", errors.New("no description supplied"))
		}
		return req.Description, nil

	default:
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()

		labels, err := s.labeler.Labels(callCtx, req.Image)
		if err != nil {
			return "", providerError("labels", err)
		}
		if len(labels) == 0 {
			return "", newError(KindAnalysisEmpty, "labels", nil)
		}
		return JoinLabels(labels), nil
	}
}

// ask sends conv to the generator and returns the reply together with the
// conversation extended by the model turn.
func (s *Service) ask(ctx context.Context, stage string, conv Conversation) (string, Conversation, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	reply, err := s.generator.Generate(callCtx, conv)
	if err != nil {
		return "", conv, providerError(stage, err)
	}
	return reply, conv.Append(RoleModel, reply), nil
}

func (s *Service) fail(err error) error {
	var e *Error
	if !errors.As(err, &e) {
		e = newError(KindUpstreamFailure, "unknown", err)
	}
	attrs := []any{slog.String("stage", e.Stage), slog.String("kind", string(e.Kind))}
	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}
	s.log.Error("Caption generation failed", attrs...)
	return e
}

func validate(req Request) *Error {
	switch {
	case !req.Platform.Valid():
		return newError(KindInvalidInput, "validate", fmt.Errorf("invalid platform %q", req.Platform))
	case !req.Length.Valid():
		return newError(KindInvalidInput, "validate", fmt.Errorf("invalid length %q", req.Length))
	case !req.Tone.Valid():
		return newError(KindInvalidInput, "validate", fmt.Errorf("invalid tone %q", req.Tone))
	}
	return nil
}
