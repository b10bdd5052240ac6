package submitapplication

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"collision-site/internal/common/config"
	"collision-site/internal/common/errors"
	"collision-site/internal/common/logger"
	"collision-site/internal/common/metrics"
	"collision-site/internal/common/validation"
	"collision-site/internal/models"
)

const (
	DefaultMaxResumeBytes int64 = 10 << 20
	DefaultSuccessPath          = "/careers/success"
)

// ObjectStore holds uploaded resumes.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	LinkFor(ctx context.Context, key string) (string, error)
}

// ApplicationStore persists application records.
type ApplicationStore interface {
	Insert(ctx context.Context, app *models.JobApplication) (string, error)
}

// Notifier sends the operator email.
type Notifier interface {
	Dispatch(ctx context.Context, req models.NotificationRequest) error
}

// Attachment is an uploaded resume.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Config struct {
	MaxResumeBytes int64
	SuccessPath    string
	LockTTL        time.Duration
}

func ConfigFromApp(cfg *config.Config) *Config {
	c := &Config{
		MaxResumeBytes: cfg.Careers.MaxResumeBytes,
		SuccessPath:    cfg.Careers.SuccessPath,
		LockTTL:        config.GetSeconds(cfg.Careers.LockTTL),
	}
	if c.MaxResumeBytes <= 0 {
		c.MaxResumeBytes = DefaultMaxResumeBytes
	}
	if c.SuccessPath == "" {
		c.SuccessPath = DefaultSuccessPath
	}
	return c
}

// Result describes a stored application.
type Result struct {
	ApplicationID string `json:"applicationId"`
	ResumeKey     string `json:"-"`
	Redirect      string `json:"redirect"`
}

// Service runs the careers submission: validate, upload, insert, notify.
type Service struct {
	config   *Config
	objects  ObjectStore
	store    ApplicationStore
	notifier Notifier
	lock     *FormLock
	logger   logger.Logger
	now      func() time.Time
}

type ServiceOption func(*Service)

// WithFormLock rejects a second submit of a form that is still in flight.
func WithFormLock(l *FormLock) ServiceOption {
	return func(s *Service) { s.lock = l }
}

func NewService(cfg *Config, objects ObjectStore, store ApplicationStore, notifier Notifier, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		config:   cfg,
		objects:  objects,
		store:    store,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit stores one application. Failures are *errors.StandardError with
// code VALIDATION_FAILED, ATTACHMENT_TOO_LARGE, UPLOAD_FAILED, INSERT_FAILED
// or DUPLICATE_SUBMISSION. The operator notification runs detached and its
// outcome never reaches the caller.
func (s *Service) Submit(ctx context.Context, form models.ApplicationForm, resume *Attachment) (*Result, error) {
	if s.lock != nil && form.FormToken != "" {
		held, err := s.lock.Acquire(ctx, form.FormToken)
		switch {
		case err != nil:
			s.logger.Warn("Form lock unavailable", map[string]interface{}{"error": err.Error()})
		case !held:
			metrics.SubmissionsTotal.WithLabelValues("duplicate").Inc()
			return nil, errors.NewDuplicateSubmissionError(form.FormToken)
		default:
			// Released on failure so the applicant can retry. A successful
			// submit keeps the token until it expires.
			ok := false
			defer func() {
				if !ok {
					_ = s.lock.Release(context.WithoutCancel(ctx), form.FormToken)
				}
			}()
			res, err := s.submit(ctx, form, resume)
			ok = err == nil
			return res, err
		}
	}
	return s.submit(ctx, form, resume)
}

func (s *Service) submit(ctx context.Context, form models.ApplicationForm, resume *Attachment) (*Result, error) {
	fieldErrs, err := validation.ValidateApplication(form.Document())
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	if len(fieldErrs) > 0 {
		metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, errors.NewValidationFailedError(fieldErrs)
	}

	if resume != nil && resume.Size > s.config.MaxResumeBytes {
		metrics.SubmissionsTotal.WithLabelValues("too_large").Inc()
		return nil, errors.NewAttachmentTooLargeError(resume.Size, s.config.MaxResumeBytes)
	}

	now := s.now()
	var resumeKey string
	if resume != nil {
		key := ResumeKey(now, form.FirstName, form.LastName, resume.Filename)
		stored, err := s.objects.Put(ctx, key, resume.ContentType, resume.Body)
		if err != nil {
			metrics.SubmissionsTotal.WithLabelValues("upload_failed").Inc()
			s.logger.Error("Resume upload error", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
			return nil, errors.NewUploadFailedError(err)
		}
		resumeKey = stored
	}

	app := &models.JobApplication{
		FirstName:  strings.TrimSpace(form.FirstName),
		LastName:   strings.TrimSpace(form.LastName),
		Email:      strings.TrimSpace(form.Email),
		Phone:      validation.FormatPhoneNumber(form.Phone),
		Address:    form.Address,
		City:       form.City,
		State:      form.State,
		Zip:        form.Zip,
		Position:   form.Position,
		Experience: strings.TrimSpace(form.Experience),
		StartDate:  now.UTC(),
		References: form.References,
		CreatedAt:  now.UTC(),
	}
	if resumeKey != "" {
		app.ResumeURL = &resumeKey
	}

	id, err := s.store.Insert(ctx, app)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("insert_failed").Inc()
		s.logger.Error("Application insert error", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, errors.NewInsertFailedError(err)
	}

	metrics.SubmissionsTotal.WithLabelValues(metrics.StatusAccepted).Inc()
	s.logger.Info("Application stored", map[string]interface{}{
		"applicationId": id,
		"position":      app.Position,
		"hasResume":     resumeKey != "",
	})

	go s.notify(context.WithoutCancel(ctx), app, resumeKey)

	return &Result{ApplicationID: id, ResumeKey: resumeKey, Redirect: s.config.SuccessPath}, nil
}

// notify is fire-and-forget: its result is discarded.
func (s *Service) notify(ctx context.Context, app *models.JobApplication, resumeKey string) {
	link := resumeKey
	if resumeKey != "" {
		if url, err := s.objects.LinkFor(ctx, resumeKey); err == nil {
			link = url
		}
	}
	_ = s.notifier.Dispatch(ctx, ApplicationNotification(app, link))
}

// ApplicationNotification copies the stored application into an
// "application" notification.
func ApplicationNotification(app *models.JobApplication, resumeLink string) models.NotificationRequest {
	refs := make([]interface{}, 0, len(app.References))
	for _, r := range app.References {
		refs = append(refs, map[string]interface{}{
			"name":         r.Name,
			"relationship": r.Relationship,
			"phone":        r.Phone,
			"email":        r.Email,
		})
	}
	return models.NotificationRequest{
		Kind: models.KindApplication,
		Payload: map[string]interface{}{
			"firstName":  app.FirstName,
			"lastName":   app.LastName,
			"email":      app.Email,
			"phone":      app.Phone,
			"address":    app.Address,
			"city":       app.City,
			"state":      app.State,
			"zip":        app.Zip,
			"position":   app.Position,
			"experience": app.Experience,
			"references": refs,
			"resumeUrl":  resumeLink,
		},
	}
}

// ResumeKey names an upload "<unixMillis>-<first>-<last>.<ext>". The
// extension is whatever follows the last dot of the original file name, or
// the whole name when it has none.
func ResumeKey(at time.Time, firstName, lastName, filename string) string {
	ext := filename
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = filename[i+1:]
	}
	return fmt.Sprintf("%d-%s-%s.%s", at.UnixMilli(),
		keySafe(firstName), keySafe(lastName), keySafe(ext))
}

func keySafe(s string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(strings.TrimSpace(s))
}
