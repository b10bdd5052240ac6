package submitapplication

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"collision-site/internal/common/errors"
	"collision-site/internal/common/logger"
	"collision-site/internal/common/metrics"
	"collision-site/internal/common/validation"
	"collision-site/internal/models"
)

const (
	// formOverheadBytes is the allowance for non-file fields on top of the
	// resume limit.
	formOverheadBytes = 1 << 20
	maxMemoryBytes    = 8 << 20
	resumeField       = "resume"
)

// Handler serves POST /api/careers/applications.
type Handler struct {
	service *Service
	logger  logger.Logger
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := h.service.config.MaxResumeBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverheadBytes)

	form, resume, cleanup, err := parseForm(r)
	defer cleanup()
	if err != nil {
		if isTooLarge(err) {
			metrics.SubmissionsTotal.WithLabelValues("too_large").Inc()
			errors.WriteError(w, errors.NewAttachmentTooLargeError(r.ContentLength, limit))
			return
		}
		h.logger.Debug("Rejected application form", map[string]interface{}{"error": err.Error()})
		errors.WriteError(w, errors.NewValidationFailedError(map[string]string{"form": err.Error()}))
		return
	}

	res, err := h.service.Submit(r.Context(), form, resume)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	if wantsJSON(r) {
		errors.WriteJSON(w, http.StatusCreated, res)
		return
	}
	http.Redirect(w, r, res.Redirect, http.StatusSeeOther)
}

// parseForm reads the form fields and the optional resume. cleanup is always
// safe to call.
func parseForm(r *http.Request) (models.ApplicationForm, *Attachment, func(), error) {
	var form models.ApplicationForm
	cleanup := func() {}

	err := r.ParseMultipartForm(maxMemoryBytes)
	switch {
	case stderrors.Is(err, http.ErrNotMultipart):
		if err := r.ParseForm(); err != nil {
			return form, nil, cleanup, err
		}
	case err != nil:
		return form, nil, cleanup, err
	default:
		cleanup = func() { _ = r.MultipartForm.RemoveAll() }
	}

	form = models.ApplicationForm{
		FirstName:  r.FormValue("firstName"),
		LastName:   r.FormValue("lastName"),
		Email:      r.FormValue("email"),
		Phone:      r.FormValue("phone"),
		Address:    r.FormValue("address"),
		City:       r.FormValue("city"),
		State:      r.FormValue("state"),
		Zip:        r.FormValue("zip"),
		Position:   r.FormValue("position"),
		Experience: r.FormValue("experience"),
		FormToken:  r.FormValue("formToken"),
	}
	if raw := strings.TrimSpace(r.FormValue("references")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &form.References); err != nil {
			return form, nil, cleanup, fmt.Errorf("references must be a JSON array: %w", err)
		}
	}

	if r.MultipartForm == nil {
		return form, nil, cleanup, nil
	}
	files := r.MultipartForm.File[resumeField]
	if len(files) == 0 || files[0].Size == 0 {
		return form, nil, cleanup, nil
	}

	f, err := files[0].Open()
	if err != nil {
		return form, nil, cleanup, fmt.Errorf("open resume: %w", err)
	}
	removeAll := cleanup
	cleanup = func() {
		_ = f.Close()
		removeAll()
	}
	return form, attachment(files[0], f), cleanup, nil
}

func attachment(fh *multipart.FileHeader, body multipart.File) *Attachment {
	return &Attachment{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        body,
	}
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return stderrors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// ValidateResponse carries inline field messages for a partly filled form.
type ValidateResponse struct {
	Valid  bool                   `json:"valid"`
	Fields validation.FieldErrors `json:"fields"`
	Phone  string                 `json:"phone,omitempty"`
}

// ValidateHandler serves POST /api/careers/validate. Only the email and
// phone fields that are filled in are checked, as the form does while the
// applicant types.
type ValidateHandler struct{}

func NewValidateHandler() *ValidateHandler {
	return &ValidateHandler{}
}

func (ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var form models.ApplicationForm
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, formOverheadBytes)).Decode(&form); err != nil {
		errors.WriteError(w, errors.NewValidationFailedError(map[string]string{"form": "body must be a JSON object"}))
		return
	}
	errors.WriteJSON(w, http.StatusOK, CheckPartial(form))
}

// CheckPartial returns the inline messages for form without requiring any
// field.
func CheckPartial(form models.ApplicationForm) ValidateResponse {
	fields := validation.ContactFields(form.Email, form.Phone)
	for i, ref := range form.References {
		for field, msg := range validation.ContactFields(ref.Email, ref.Phone) {
			fields[fmt.Sprintf("references.%d.%s", i, field)] = msg
		}
	}
	return ValidateResponse{
		Valid:  len(fields) == 0,
		Fields: fields,
		Phone:  validation.FormatPhoneNumber(form.Phone),
	}
}
