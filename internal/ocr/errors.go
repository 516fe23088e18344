package ocr

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures of the OCR pipeline.
type ErrorCode string

const (
	// CodeInput marks an unreadable or empty input image. Fatal to the call.
	CodeInput ErrorCode = "INPUT_INVALID"

	// CodeEngine marks a failed recognition call. Recorded as empty text.
	CodeEngine ErrorCode = "ENGINE_FAILED"

	// CodeDetection marks a failed region detection. Recorded as no regions.
	CodeDetection ErrorCode = "DETECTION_FAILED"
)

// Error is a structured pipeline error.
type Error struct {
	Code    ErrorCode
	Message string

	// Stage names the pipeline step that failed, e.g. "quick" or "region".
	Stage string

	Cause error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s [%s]", e.Code, e.Message, e.Stage)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewInputError reports an image that cannot be processed at all.
func NewInputError(cause error) *Error {
	return &Error{
		Code:    CodeInput,
		Message: "could not process input image",
		Stage:   "input",
		Cause:   cause,
	}
}

// NewEngineError reports a failed recognition attempt.
func NewEngineError(stage, label string, cause error) *Error {
	return &Error{
		Code:    CodeEngine,
		Message: fmt.Sprintf("recognition failed for candidate %s", label),
		Stage:   stage,
		Cause:   cause,
	}
}

// NewDetectionError reports a failed text-region detection.
func NewDetectionError(cause error) *Error {
	return &Error{
		Code:    CodeDetection,
		Message: "text region detection failed",
		Stage:   "detect",
		Cause:   cause,
	}
}

// IsInputError reports whether err is an input error.
func IsInputError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeInput
}
