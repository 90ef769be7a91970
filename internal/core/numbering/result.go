package numbering

import (
	"net/http"
	"time"

	"docnum/internal/core/apperror"
)

// FailureKind names an expected way generation can fail.
type FailureKind string

const (
	FailureNotFound           FailureKind = "NotFound"
	FailureInactive           FailureKind = "Inactive"
	FailureInvalidTemplate    FailureKind = "InvalidTemplate"
	FailureInvalidResetPolicy FailureKind = "InvalidResetPolicy"
	FailureInvalidTrigger     FailureKind = "InvalidTrigger"
	FailureNumberTooLong      FailureKind = "NumberTooLong"
	FailureLockTimeout        FailureKind = "LockTimeout"
	FailureCanceled           FailureKind = "Canceled"
	FailureUnexpected         FailureKind = "Unexpected"
)

// Category groups failure kinds the way callers act on them.
type Category string

const (
	CategoryNotFound             Category = "NotFound"
	CategoryInvalidConfiguration Category = "InvalidConfiguration"
	CategoryNumberTooLong        Category = "NumberTooLong"
	CategoryTransientLockTimeout Category = "TransientLockTimeout"
	CategoryUnexpected           Category = "Unexpected"
)

// Category returns the caller-facing group of k.
func (k FailureKind) Category() Category {
	switch k {
	case FailureNotFound:
		return CategoryNotFound
	case FailureInactive, FailureInvalidTemplate, FailureInvalidResetPolicy, FailureInvalidTrigger:
		return CategoryInvalidConfiguration
	case FailureNumberTooLong:
		return CategoryNumberTooLong
	case FailureLockTimeout, FailureCanceled:
		return CategoryTransientLockTimeout
	default:
		return CategoryUnexpected
	}
}

// Retryable reports whether repeating the whole call may succeed.
func (k FailureKind) Retryable() bool {
	return k.Category() == CategoryTransientLockTimeout
}

// Failure describes why no number was assigned. It is also an error so it can
// abort a transaction callback.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AppError converts f into the platform error used by the HTTP layer.
func (f *Failure) AppError() *apperror.AppError {
	if appErr, ok := apperror.AsAppError(f.Err); ok {
		return appErr
	}
	switch f.Kind {
	case FailureNotFound:
		// The failing lookup is unknown here; keep the failure's own message.
		return &apperror.AppError{
			Code:       apperror.CodeNotFound,
			Message:    f.Message,
			HTTPStatus: http.StatusNotFound,
			Err:        f.Err,
		}
	case FailureLockTimeout:
		return apperror.NewLockTimeout(f.Err)
	case FailureCanceled:
		return apperror.NewCanceled(f.Err)
	case FailureNumberTooLong:
		return apperror.NewConfiguration(apperror.CodeNumberTooLong, f.Message)
	default:
		return apperror.NewInternal(f.Err)
	}
}

// NewFailure builds a Failure whose message comes from err.
func NewFailure(kind FailureKind, err error) *Failure {
	msg := string(kind)
	if appErr, ok := apperror.AsAppError(err); ok {
		msg = appErr.Message
	} else if err != nil {
		msg = err.Error()
	}
	return &Failure{Kind: kind, Message: msg, Err: err}
}

// Result is the outcome of one generation request.
type Result struct {
	Success        bool      `json:"success"`
	DocumentNumber string    `json:"documentNumber,omitempty"`
	SequenceNumber int64     `json:"sequenceNumber,omitempty"`
	PeriodKey      string    `json:"periodKey,omitempty"`
	IsNewBucket    bool      `json:"isNewBucket,omitempty"`
	Trigger        Trigger   `json:"trigger,omitempty"`
	GeneratedBy    string    `json:"generatedBy,omitempty"`
	GeneratedAt    time.Time `json:"generatedAt,omitzero"`

	// Skipped is set by lifecycle hooks that decided no number was needed.
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skipReason,omitempty"`

	Failure *Failure `json:"failure,omitempty"`
}

// Failed wraps f in an unsuccessful Result.
func Failed(f *Failure) *Result {
	return &Result{Failure: f}
}
