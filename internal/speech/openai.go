package speech

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorFromOpenAI converts an error returned by the OpenAI client into a
// *ServiceError when the API answered with an error status. Other errors are
// returned unchanged.
func ErrorFromOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{
			Code:    ErrorCodeFromHTTPStatus(apiErr.HTTPStatusCode),
			Details: apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode >= 400 {
		return &ServiceError{
			Code:    ErrorCodeFromHTTPStatus(reqErr.HTTPStatusCode),
			Details: reqErr.Error(),
		}
	}
	return err
}
