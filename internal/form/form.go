// Package form holds the client side of caption generation: the inputs the
// user picked, the readiness guard and the Idle/Submitting/Success/Failed
// lifecycle of one form.
package form

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"captioner/internal/captions"
)

type State int

const (
	Idle State = iota
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	}
	return "unknown"
}

const GenericNotice = "Something went wrong while generating your caption. Please try again."

var (
	ErrNotReady = errors.New("form: image, platform, length and tone are required")
	ErrBusy     = errors.New("form: a generation is already in progress")
)

type (
	Input struct {
		ImageName   string
		Image       []byte
		Platform    captions.Platform
		Length      captions.Length
		Tone        captions.Tone
		Description string
	}

	Submitter interface {
		Submit(ctx context.Context, in Input) (*captions.Result, error)
	}

	// View is a snapshot of everything a renderer needs.
	View struct {
		State         State
		Result        *captions.Result
		Notice        string
		LoginRequired bool
		CanSubmit     bool
	}
)

type Form struct {
	mu            sync.Mutex
	submitter     Submitter
	input         Input
	state         State
	result        *captions.Result
	notice        string
	loginRequired bool
}

func New(submitter Submitter) *Form {
	return &Form{submitter: submitter}
}

func (f *Form) SetImage(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.ImageName = name
	f.input.Image = data
}

func (f *Form) SetPlatform(p captions.Platform) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.Platform = p
}

func (f *Form) SetLength(l captions.Length) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.Length = l
}

func (f *Form) SetTone(t captions.Tone) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.Tone = t
}

func (f *Form) SetDescription(d string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input.Description = d
}

// Ready reports whether every required input is present. The description is
// optional.
func (f *Form) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready()
}

// CanSubmit is the enabled state of the generate button.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready() && f.state != Submitting
}

// Submit sends the current inputs. It returns ErrNotReady or ErrBusy without
// touching the state when the form cannot be submitted. Any other error is the
// failure that moved the form to Failed.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if !f.ready() {
		f.mu.Unlock()
		return ErrNotReady
	}
	if f.state == Submitting {
		f.mu.Unlock()
		return ErrBusy
	}
	f.state = Submitting
	in := f.input
	f.mu.Unlock()

	result, err := f.submitter.Submit(ctx, in)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.state = Failed
		f.notice, f.loginRequired = noticeFor(err)
		return err
	}

	f.state = Success
	f.result = result
	f.notice = ""
	f.loginRequired = false
	return nil
}

// Regenerate reruns the whole pipeline with the inputs currently held.
func (f *Form) Regenerate(ctx context.Context) error {
	return f.Submit(ctx)
}

// Reset clears inputs and output and returns the form to Idle. It does nothing
// while a request is in flight.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return
	}
	f.input = Input{}
	f.state = Idle
	f.result = nil
	f.notice = ""
	f.loginRequired = false
}

func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := View{
		State:         f.state,
		Notice:        f.notice,
		LoginRequired: f.loginRequired,
		CanSubmit:     f.ready() && f.state != Submitting,
	}
	if f.result != nil {
		r := *f.result
		v.Result = &r
	}
	return v
}

func (f *Form) ready() bool {
	return len(f.input.Image) > 0 &&
		f.input.Platform != "" &&
		f.input.Length != "" &&
		f.input.Tone != ""
}

// noticeFor picks the message shown for a failed submission. Only quota
// exhaustion and missing login surface the server text.
func noticeFor(err error) (string, bool) {
	var respErr *ResponseError
	if !errors.As(err, &respErr) || respErr.Message == "" {
		return GenericNotice, false
	}

	switch {
	case respErr.Status == http.StatusServiceUnavailable,
		respErr.Code == captions.KindQuotaExhausted:
		return respErr.Message, false
	case respErr.Status == http.StatusUnauthorized,
		respErr.Code == captions.KindUnauthenticated:
		return respErr.Message, true
	}
	return GenericNotice, false
}
