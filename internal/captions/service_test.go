package captions

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLabeler struct {
	labels []string
	err    error
	calls  int
}

func (f *fakeLabeler) Labels(ctx context.Context, image []byte) ([]string, error) {
	f.calls++
	return f.labels, f.err
}

// scriptedGenerator answers each call with the next reply and remembers the
// conversation it was given.
type scriptedGenerator struct {
	replies []string
	errAt   int
	err     error
	seen    []Conversation
}

func (g *scriptedGenerator) Generate(ctx context.Context, conv Conversation) (string, error) {
	g.seen = append(g.seen, conv)
	n := len(g.seen)
	if g.err != nil && n == g.errAt {
		return "", g.err
	}
	if n > len(g.replies) {
		return "", fmt.Errorf("unexpected call %d", n)
	}
	return g.replies[n-1], nil
}

type fakeRecorder struct {
	who      Identity
	platform Platform
	result   *Result
	err      error
	calls    int
}

func (r *fakeRecorder) RecordCaption(ctx context.Context, who Identity, platform Platform, result *Result) error {
	r.calls++
	r.who, r.platform, r.result = who, platform, result
	return r.err
}

func validRequest() Request {
	return Request{
		Image:    []byte("jpeg bytes"),
		Filename: "sample.jpg",
		Platform: Instagram,
		Length:   Short,
		Tone:     Casual,
	}
}

func TestServiceGenerate_HappyPath(t *testing.T) {
	labeler := &fakeLabeler{labels: []string{"dog", "park"}}
	gen := &scriptedGenerator{replies: []string{
		"Sunny days with my best friend",
		"#fun #sunny #dog",
		"Use emojis. Keep it short. Add a question.",
	}}
	rec := &fakeRecorder{}

	svc, err := New(gen, WithLabeler(labeler), WithRecorder(rec))
	require.NoError(t, err)

	res, err := svc.Generate(context.Background(), validRequest(), "google-123")
	require.NoError(t, err)

	assert.Equal(t, "Sunny days with my best friend", res.Caption)
	assert.Equal(t, []string{"#fun", "#sunny", "#dog"}, res.Hashtags)
	assert.Equal(t, []string{"Use emojis", "Keep it short", "Add a question."}, res.Tips)

	assert.Equal(t, 1, labeler.calls)
	require.Len(t, gen.seen, 3)

	captionPrompt := gen.seen[0].Last().Text
	for _, want := range []string{"casual", "dog, park", "instagram", "short"} {
		assert.Contains(t, captionPrompt, want)
	}

	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, Identity("google-123"), rec.who)
	assert.Equal(t, Instagram, rec.platform)
	assert.Same(t, res, rec.result)
}

func TestServiceGenerate_SharesConversation(t *testing.T) {
	gen := &scriptedGenerator{replies: []string{"caption", "#a", "tip"}}
	svc, err := New(gen, WithLabeler(&fakeLabeler{labels: []string{"cat"}}))
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), validRequest(), "")
	require.NoError(t, err)

	require.Len(t, gen.seen, 3)
	assert.Equal(t, 1, gen.seen[0].Len())
	assert.Equal(t, 3, gen.seen[1].Len())
	assert.Equal(t, 5, gen.seen[2].Len())

	hashtagTurns := gen.seen[1].Turns()
	assert.Equal(t, RoleModel, hashtagTurns[1].Role)
	assert.Equal(t, "caption", hashtagTurns[1].Text)
	assert.Equal(t, HashtagPrompt("caption"), hashtagTurns[2].Text)

	tipTurns := gen.seen[2].Turns()
	assert.Equal(t, "#a", tipTurns[3].Text)
	assert.Equal(t, TipsPrompt(Instagram, "caption"), tipTurns[4].Text)
}

func TestServiceGenerate_Failures(t *testing.T) {
	quota := fmt.Errorf("%w: 403 PERMISSION_DENIED", ErrQuotaExhausted)

	tests := []struct {
		name         string
		req          func() Request
		who          Identity
		opts         []Option
		labeler      *fakeLabeler
		gen          *scriptedGenerator
		recorder     *fakeRecorder
		expectedKind Kind
		expectedGen  int
	}{
		{
			name:         "missing identity when gated",
			req:          validRequest,
			opts:         []Option{RequireIdentity(true)},
			labeler:      &fakeLabeler{labels: []string{"cat"}},
			gen:          &scriptedGenerator{},
			expectedKind: KindUnauthenticated,
		},
		{
			name: "missing image",
			req: func() Request {
				r := validRequest()
				r.Image = nil
				return r
			},
			labeler:      &fakeLabeler{labels: []string{"cat"}},
			gen:          &scriptedGenerator{},
			expectedKind: KindMissingFile,
		},
		{
			name: "invalid tone",
			req: func() Request {
				r := validRequest()
				r.Tone = "sarcastic"
				return r
			},
			labeler:      &fakeLabeler{labels: []string{"cat"}},
			gen:          &scriptedGenerator{},
			expectedKind: KindInvalidInput,
		},
		{
			name:         "no labels",
			req:          validRequest,
			labeler:      &fakeLabeler{labels: []string{}},
			gen:          &scriptedGenerator{},
			expectedKind: KindAnalysisEmpty,
		},
		{
			name:         "labeler permission denied",
			req:          validRequest,
			labeler:      &fakeLabeler{err: quota},
			gen:          &scriptedGenerator{},
			expectedKind: KindQuotaExhausted,
		},
		{
			name:         "labeler network failure",
			req:          validRequest,
			labeler:      &fakeLabeler{err: errors.New("connection reset")},
			gen:          &scriptedGenerator{},
			expectedKind: KindUpstreamFailure,
		},
		{
			name:         "empty caption",
			req:          validRequest,
			labeler:      &fakeLabeler{labels: []string{"cat"}},
			gen:          &scriptedGenerator{replies: []string{"  \n"}},
			expectedKind: KindGenerationEmpty,
			expectedGen:  1,
		},
		{
			name:         "quota on caption",
			req:          validRequest,
			labeler:      &fakeLabeler{labels: []string{"cat"}},
			gen:          &scriptedGenerator{errAt: 1, err: quota},
			expectedKind: KindQuotaExhausted,
			expectedGen:  1,
		},
		{
			name:         "quota on hashtags",
			req:          validRequest,
			labeler:      &fakeLabeler{labels: []string{"cat"}},
			gen:          &scriptedGenerator{replies: []string{"caption"}, errAt: 2, err: quota},
			expectedKind: KindQuotaExhausted,
			expectedGen:  2,
		},
		{
			name:         "quota on tips",
			req:          validRequest,
			labeler:      &fakeLabeler{labels: []string{"cat"}},
			gen:          &scriptedGenerator{replies: []string{"caption", "#a"}, errAt: 3, err: quota},
			expectedKind: KindQuotaExhausted,
			expectedGen:  3,
		},
		{
			name:         "generator failure",
			req:          validRequest,
			labeler:      &fakeLabeler{labels: []string{"cat"}},
			gen:          &scriptedGenerator{replies: []string{"caption"}, errAt: 2, err: errors.New("500")},
			expectedKind: KindUpstreamFailure,
			expectedGen:  2,
		},
		{
			name:         "recorder failure",
			req:          validRequest,
			labeler:      &fakeLabeler{labels: []string{"cat"}},
			gen:          &scriptedGenerator{replies: []string{"caption", "#a", "tip"}},
			recorder:     &fakeRecorder{err: errors.New("insert failed")},
			expectedKind: KindPersistenceFailure,
			expectedGen:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithLabeler(tt.labeler)}, tt.opts...)
			if tt.recorder != nil {
				opts = append(opts, WithRecorder(tt.recorder))
			}
			svc, err := New(tt.gen, opts...)
			require.NoError(t, err)

			res, err := svc.Generate(context.Background(), tt.req(), tt.who)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.expectedKind, KindOf(err))
			assert.Len(t, tt.gen.seen, tt.expectedGen)
		})
	}
}

func TestServiceGenerate_Sources(t *testing.T) {
	t.Run("described asks for a description first", func(t *testing.T) {
		gen := &scriptedGenerator{replies: []string{"A cat on a sofa", "caption", "#cat", "tip"}}
		svc, err := New(gen, WithSource(SourceDescribed))
		require.NoError(t, err)

		req := validRequest()
		req.Description = "my cat being lazy"
		res, err := svc.Generate(context.Background(), req, "")
		require.NoError(t, err)
		assert.Equal(t, "caption", res.Caption)

		require.Len(t, gen.seen, 4)
		assert.Contains(t, gen.seen[0].Last().Text, "my cat being lazy")
		assert.Equal(t, 1, gen.seen[1].Len(), "caption starts a fresh conversation")
		assert.Contains(t, gen.seen[1].Last().Text, "A cat on a sofa")
	})

	t.Run("user uses the raw description", func(t *testing.T) {
		gen := &scriptedGenerator{replies: []string{"caption", "#cat", "tip"}}
		svc, err := New(gen, WithSource(SourceUser))
		require.NoError(t, err)

		req := validRequest()
		req.Description = "beach at dusk"
		_, err = svc.Generate(context.Background(), req, "")
		require.NoError(t, err)
		assert.Contains(t, gen.seen[0].Last().Text, "'beach at dusk'")
	})

	t.Run("user without description", func(t *testing.T) {
		gen := &scriptedGenerator{}
		svc, err := New(gen, WithSource(SourceUser))
		require.NoError(t, err)

		_, err = svc.Generate(context.Background(), validRequest(), "")
		assert.Equal(t, KindAnalysisEmpty, KindOf(err))
		assert.Empty(t, gen.seen)
	})
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&scriptedGenerator{})
	assert.Error(t, err, "labels source without a labeler")

	_, err = New(&scriptedGenerator{}, WithSource("vibes"))
	assert.Error(t, err)
}
