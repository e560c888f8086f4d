// Package wizard drives the two-step avatar creation form and the
// create-then-finalize protocol behind it.
package wizard

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/apperr"
	"github.com/memoria-app/memoria/internal/model/avatar"
	"github.com/memoria-app/memoria/internal/service/gate"
)

const (
	// MsgCreateFailed is shown when create fails without a server message.
	MsgCreateFailed = "Failed to create avatar"
	// MsgCreated is the success banner.
	MsgCreated = "Avatar created!"

	defaultNavigateDelay = 1500 * time.Millisecond
)

var (
	ErrWrongStep      = errors.New("operation not allowed on the current step")
	ErrSubmitInFlight = errors.New("avatar submission already in progress")
	ErrNoDraft        = errors.New("no draft avatar awaiting finalize")
)

// Step is the wizard's position.
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepPhoto
	StepSubmitted
)

func (s Step) String() string {
	switch s {
	case StepBasicInfo:
		return "basic-info"
	case StepPhoto:
		return "photo"
	case StepSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// API is the subset of the backend the wizard needs.
type API interface {
	CreateAvatar(ctx context.Context, fields avatar.Fields, image *avatar.Image) (avatar.Avatar, error)
	FinalizeAvatar(ctx context.Context, id int64) (avatar.Avatar, error)
}

// Scheduler runs fn after d. It must not block.
type Scheduler func(d time.Duration, fn func())

// Preview describes the attached image without exposing its bytes.
type Preview struct {
	Filename    string
	ContentType string
	Size        int
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithNavigateDelay sets how long the success banner stays before navigation.
func WithNavigateDelay(d time.Duration) Option {
	return func(w *Wizard) {
		if d >= 0 {
			w.delay = d
		}
	}
}

// WithScheduler replaces time.AfterFunc.
func WithScheduler(s Scheduler) Option {
	return func(w *Wizard) {
		if s != nil {
			w.schedule = s
		}
	}
}

// WithNavigator receives the route to open after a successful submit.
func WithNavigator(fn func(path string)) Option {
	return func(w *Wizard) {
		w.navigate = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Wizard) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Wizard is safe for concurrent use. The lock is never held across a
// network call.
type Wizard struct {
	api      API
	delay    time.Duration
	schedule Scheduler
	navigate func(path string)
	logger   *zap.Logger

	mu         sync.Mutex
	step       Step
	fields     avatar.Fields
	image      *avatar.Image
	preview    Preview
	errMsg     string
	success    string
	submitting bool
	draftID    int64
}

// New returns a wizard on step 1 with gender defaulted to other.
func New(api API, opts ...Option) *Wizard {
	w := &Wizard{
		api:   api,
		delay: defaultNavigateDelay,
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
		logger: zap.NewNop(),
		step:   StepBasicInfo,
		fields: avatar.Fields{Gender: avatar.GenderOther},
	}

	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Fields returns the current form values.
func (w *Wizard) Fields() avatar.Fields {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fields
}

// SetFields replaces the form values. An empty gender becomes other.
func (w *Wizard) SetFields(f avatar.Fields) {
	if f.Gender == "" {
		f.Gender = avatar.GenderOther
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepSubmitted {
		return
	}
	w.fields = f
}

// Image returns the preview of the attached image, if any.
func (w *Wizard) Image() (Preview, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.preview, w.image != nil
}

// Error returns the message to show on the form, or "".
func (w *Wizard) Error() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errMsg
}

// Success returns the success banner, or "".
func (w *Wizard) Success() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.success
}

// Submitting reports whether a create/finalize round is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// DraftID returns the id of an avatar that was created but not finalized.
func (w *Wizard) DraftID() (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draftID, w.draftID != 0
}

// Advance moves from step 1 to step 2 once a name is present.
func (w *Wizard) Advance() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepBasicInfo {
		return ErrWrongStep
	}
	if strings.TrimSpace(w.fields.Name) == "" {
		err := apperr.Validation("name", "Name is required")
		w.errMsg = apperr.UserMessage(err, "")
		return err
	}

	w.errMsg = ""
	w.step = StepPhoto
	return nil
}

// Retreat returns to step 1 keeping every field and the image.
func (w *Wizard) Retreat() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step != StepPhoto {
		return ErrWrongStep
	}
	if w.submitting {
		return ErrSubmitInFlight
	}

	w.errMsg = ""
	w.step = StepBasicInfo
	return nil
}

// AttachImage replaces any previous image. Only image content is accepted.
func (w *Wizard) AttachImage(filename string, data []byte) error {
	if len(data) == 0 {
		return apperr.Validation("profile_image", "Image file is empty")
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return apperr.Validation("profile_image", "Please choose an image file")
	}

	img := &avatar.Image{Filename: filepath.Base(filename), Data: append([]byte(nil), data...)}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step == StepSubmitted {
		return ErrWrongStep
	}
	w.image = img
	w.preview = Preview{Filename: img.Filename, ContentType: contentType, Size: len(data)}
	return nil
}

// RemoveImage drops the image and its preview.
func (w *Wizard) RemoveImage() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.image = nil
	w.preview = Preview{}
}

// Submit creates the avatar and finalizes it. It is only valid on step 2 and
// rejects a second call while one is running. When finalize fails the error
// is an *apperr.PartialSuccessError and the draft id is kept for
// RetryFinalize.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.step != StepPhoto {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}
	if strings.TrimSpace(w.fields.Name) == "" {
		err := apperr.Validation("name", "Name is required")
		w.errMsg = apperr.UserMessage(err, "")
		w.mu.Unlock()
		return err
	}

	fields := w.fields
	fields.Name = strings.TrimSpace(fields.Name)
	var image *avatar.Image
	if w.image != nil {
		copied := *w.image
		image = &copied
	}
	w.submitting = true
	w.errMsg = ""
	w.draftID = 0
	w.mu.Unlock()

	created, err := w.api.CreateAvatar(ctx, fields, image)
	if err != nil {
		w.logger.Warn("avatar create failed", zap.String("name", fields.Name), zap.Error(err))
		w.fail(formMessage(err, err), 0)
		return err
	}

	w.logger.Info("avatar draft created", zap.Int64("avatar_id", created.ID))
	return w.finalize(ctx, created.ID)
}

// RetryFinalize finalizes the draft left behind by a partial success.
func (w *Wizard) RetryFinalize(ctx context.Context) error {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}
	if w.step != StepPhoto || w.draftID == 0 {
		w.mu.Unlock()
		return ErrNoDraft
	}
	id := w.draftID
	w.submitting = true
	w.errMsg = ""
	w.mu.Unlock()

	return w.finalize(ctx, id)
}

// Reset starts a fresh form.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		return
	}
	w.step = StepBasicInfo
	w.fields = avatar.Fields{Gender: avatar.GenderOther}
	w.image = nil
	w.preview = Preview{}
	w.errMsg = ""
	w.success = ""
	w.draftID = 0
}

// finalize must be called with submitting set.
func (w *Wizard) finalize(ctx context.Context, id int64) error {
	if _, err := w.api.FinalizeAvatar(ctx, id); err != nil {
		partial := &apperr.PartialSuccessError{AvatarID: id, Err: err}
		w.logger.Warn("avatar finalize failed, draft kept", zap.Int64("avatar_id", id), zap.Error(err))
		w.fail(formMessage(err, partial), id)
		return partial
	}

	w.mu.Lock()
	w.step = StepSubmitted
	w.success = MsgCreated
	w.submitting = false
	w.draftID = 0
	w.fields = avatar.Fields{Gender: avatar.GenderOther}
	w.image = nil
	w.preview = Preview{}
	w.mu.Unlock()

	w.logger.Info("avatar ready", zap.Int64("avatar_id", id), zap.Duration("navigate_in", w.delay))
	w.schedule(w.delay, func() {
		if w.navigate != nil {
			w.navigate(gate.PathDashboard)
		}
	})
	return nil
}

// formMessage is empty for auth failures: those end in a sign-out redirect.
func formMessage(cause, shown error) string {
	if apperr.IsAuth(cause) {
		return ""
	}
	return apperr.UserMessage(shown, MsgCreateFailed)
}

func (w *Wizard) fail(msg string, draftID int64) {
	w.mu.Lock()
	w.submitting = false
	w.errMsg = msg
	w.draftID = draftID
	w.mu.Unlock()
}
