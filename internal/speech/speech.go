// Package speech defines the tagged results shared by the synthesis and
// recognition backends.
//
// Every call to a speech service ends in exactly one Reason. Canceled results
// carry CancellationDetails explaining why the service stopped: the audio ran
// out, the operator interrupted the run, or the service reported an error.
package speech

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Reason is the outcome of a single synthesis or recognition call.
type Reason int

const (
	// ReasonNoMatch means the audio held no recognizable speech.
	ReasonNoMatch Reason = iota
	// ReasonCanceled means the call stopped early; see CancellationDetails.
	ReasonCanceled
	// ReasonRecognizedSpeech means a segment was recognized (its text may be blank).
	ReasonRecognizedSpeech
	// ReasonSynthesizingAudioCompleted means the synthesized audio is complete.
	ReasonSynthesizingAudioCompleted
)

func (r Reason) String() string {
	switch r {
	case ReasonNoMatch:
		return "NoMatch"
	case ReasonCanceled:
		return "Canceled"
	case ReasonRecognizedSpeech:
		return "RecognizedSpeech"
	case ReasonSynthesizingAudioCompleted:
		return "SynthesizingAudioCompleted"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// CancellationReason explains a ReasonCanceled result.
type CancellationReason int

const (
	CancellationError CancellationReason = iota + 1
	CancellationEndOfStream
	CancellationCancelledByUser
)

func (r CancellationReason) String() string {
	switch r {
	case CancellationError:
		return "Error"
	case CancellationEndOfStream:
		return "EndOfStream"
	case CancellationCancelledByUser:
		return "CancelledByUser"
	default:
		return fmt.Sprintf("CancellationReason(%d)", int(r))
	}
}

// CancellationErrorCode classifies a CancellationError.
type CancellationErrorCode string

const (
	NoError               CancellationErrorCode = "NoError"
	AuthenticationFailure CancellationErrorCode = "AuthenticationFailure"
	BadRequest            CancellationErrorCode = "BadRequest"
	TooManyRequests       CancellationErrorCode = "TooManyRequests"
	Forbidden             CancellationErrorCode = "Forbidden"
	ConnectionFailure     CancellationErrorCode = "ConnectionFailure"
	ServiceTimeout        CancellationErrorCode = "ServiceTimeout"
	ServiceErrorCode      CancellationErrorCode = "ServiceError"
	ServiceUnavailable    CancellationErrorCode = "ServiceUnavailable"
	RuntimeError          CancellationErrorCode = "RuntimeError"
)

// CancellationDetails describes why a call was canceled.
type CancellationDetails struct {
	Reason       CancellationReason
	ErrorCode    CancellationErrorCode
	ErrorDetails string
}

// EndOfStream returns the details reported once the input audio is exhausted.
func EndOfStream() *CancellationDetails {
	return &CancellationDetails{Reason: CancellationEndOfStream, ErrorCode: NoError}
}

// ServiceError is returned by backends when the speech service rejects a call.
type ServiceError struct {
	Code    CancellationErrorCode
	Details string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("speech service: %s: %s", e.Code, e.Details)
}

// ErrorCodeFromHTTPStatus maps an HTTP status from a speech REST endpoint to a
// cancellation error code.
func ErrorCodeFromHTTPStatus(status int) CancellationErrorCode {
	switch {
	case status < 400:
		return NoError
	case status == http.StatusBadRequest:
		return BadRequest
	case status == http.StatusUnauthorized:
		return AuthenticationFailure
	case status == http.StatusForbidden:
		return Forbidden
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return ServiceTimeout
	case status == http.StatusTooManyRequests:
		return TooManyRequests
	case status == http.StatusServiceUnavailable:
		return ServiceUnavailable
	case status >= 500:
		return ServiceErrorCode
	default:
		return BadRequest
	}
}

// CancellationFromError converts an error from a backend call into the
// details of a Canceled result.
func CancellationFromError(err error) *CancellationDetails {
	if errors.Is(err, context.Canceled) {
		return &CancellationDetails{
			Reason:       CancellationCancelledByUser,
			ErrorCode:    NoError,
			ErrorDetails: err.Error(),
		}
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return &CancellationDetails{
			Reason:       CancellationError,
			ErrorCode:    svcErr.Code,
			ErrorDetails: svcErr.Details,
		}
	}

	code := ConnectionFailure
	if errors.Is(err, context.DeadlineExceeded) {
		code = ServiceTimeout
	}
	return &CancellationDetails{
		Reason:       CancellationError,
		ErrorCode:    code,
		ErrorDetails: err.Error(),
	}
}
