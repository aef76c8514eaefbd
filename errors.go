package pdfservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alnah/go-pdfservice/internal/fetch"
	"github.com/alnah/go-pdfservice/internal/pdfops"
)

// Sentinel errors for library operations.
var (
	ErrMissingMarkup      = errors.New("no index.html or index.md part present")
	ErrEmptyDocument      = errors.New("document body cannot be empty")
	ErrInvalidRotation    = pdfops.ErrInvalidRotation
	ErrInvalidFlag        = errors.New("invalid boolean parameter")
	ErrEncryptionDisabled = errors.New("encryption is disabled on this server")
	ErrEmptyPassword      = pdfops.ErrEmptyPassword
	ErrEnginePanic        = errors.New("rendering engine panicked")
	ErrBrowserConnect     = errors.New("failed to connect to browser")
	ErrPageCreate         = errors.New("failed to create browser page")
	ErrPageLoad           = errors.New("failed to load page")
	ErrPDFGeneration      = errors.New("PDF generation failed")
	ErrPoolClosed         = errors.New("engine pool is closed")
)

// Stage names one step of the document pipeline.
type Stage string

const (
	StageDecode    Stage = "decode"
	StageRender    Stage = "render"
	StageSerialize Stage = "serialize"
	StageRotate    Stage = "rotate"
	StageEncrypt   Stage = "encrypt"
)

// Class is the user-facing category of a stage failure.
type Class string

const (
	ClassDecode           Class = "DecodeError"
	ClassRender           Class = "RenderError"
	ClassSerialize        Class = "SerializeError"
	ClassRotate           Class = "RotateError"
	ClassEncrypt          Class = "EncryptError"
	ClassInvalidParameter Class = "InvalidParameter"
)

// StageError is the single classified error the pipeline returns.
// Status is the HTTP status recommended for reporting it.
type StageError struct {
	Stage  Stage
	Class  Class
	Detail string
	Status int
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s (%s stage): %s", e.Class, e.Stage, e.Detail)
}

func (e *StageError) Unwrap() error { return e.Err }

// ClientError reports whether the failure was caused by the request rather than the server.
func (e *StageError) ClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

func newStageError(stage Stage, class Class, status int, err error) *StageError {
	return &StageError{
		Stage:  stage,
		Class:  class,
		Detail: err.Error(),
		Status: status,
		Err:    err,
	}
}

// statusForRefusals maps the refusals carried by err to a status.
// ok is false when err carries no refusal.
func statusForRefusals(err error) (status int, ok bool) {
	refusals := fetch.RefusalsOf(err)
	if len(refusals) == 0 {
		return 0, false
	}
	allNetwork := true
	for _, r := range refusals {
		if r.Reason.IsLifecycleViolation() {
			return http.StatusInternalServerError, true
		}
		if r.Reason != fetch.ReasonNetworkDisallowed {
			allNetwork = false
		}
	}
	if allNetwork {
		return http.StatusForbidden, true
	}
	return http.StatusBadRequest, true
}

// statusFor picks the status for a non-refusal failure.
func statusFor(err error, fallback int) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pdfops.ErrAlreadyEncrypted):
		return http.StatusConflict
	case errors.Is(err, pdfops.ErrNotPDF),
		errors.Is(err, ErrInvalidRotation),
		errors.Is(err, ErrEmptyPassword):
		return http.StatusBadRequest
	}
	return fallback
}

// renderFailure classifies a failed render stage. A guard close error carries
// the aggregated refusal detail, so it is preferred over the engine's own error.
func renderFailure(engineErr, closeErr error) *StageError {
	primary := closeErr
	if primary == nil {
		primary = engineErr
	}

	status, ok := statusForRefusals(primary)
	if !ok {
		status = statusFor(primary, http.StatusInternalServerError)
	}

	se := newStageError(StageRender, ClassRender, status, primary)
	if closeErr != nil && engineErr != nil {
		se.Err = errors.Join(closeErr, engineErr)
	}
	return se
}

// serializeFailure classifies a failed serialize stage. A fetch refused because
// the guard was already closed surfaces here as a lifecycle violation.
func serializeFailure(err error) *StageError {
	status, ok := statusForRefusals(err)
	if !ok {
		status = statusFor(err, http.StatusInternalServerError)
	}
	return newStageError(StageSerialize, ClassSerialize, status, err)
}
