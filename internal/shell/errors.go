package shell

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"pdf-extractor/internal/llmservice"
)

// APIError is the body of every failed action.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Raw     string `json:"raw,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

func NewNotFoundError(message string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: message,
	}
}

func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// extractAPIError maps a failed extract action to a response.
func extractAPIError(err error) *APIError {
	if errors.Is(err, ErrNoDocument) {
		return NewBadRequestError("upload a PDF first", err)
	}

	var ee *ExtractError
	if !errors.As(err, &ee) {
		return NewInternalError("extraction failed", err)
	}

	switch ee.Stage {
	case StageExtract:
		status := http.StatusBadGateway
		if llmservice.KindOf(ee.Err) == llmservice.KindTimeout {
			status = http.StatusGatewayTimeout
		}
		return &APIError{
			Status:  status,
			Code:    "AI_ERROR",
			Message: "the model request failed",
			Details: ee.Err.Error(),
		}
	case StageParse:
		return &APIError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "PARSE_ERROR",
			Message: "the model response is not a Markdown table",
			Details: ee.Err.Error(),
			Raw:     ee.Raw,
		}
	default:
		return NewInternalError("could not build the spreadsheet", ee.Err)
	}
}

// ErrorHandler writes APIError as JSON, or as an HTML page for browsers.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = NewInternalError("an unexpected error occurred", err)
	}

	if apiErr.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Request failed")
	}

	if wantsHTML(c) {
		if rerr := c.Render(apiErr.Status, "error", apiErr); rerr == nil {
			return
		}
	}
	if err := c.JSON(apiErr.Status, apiErr); err != nil {
		log.Error().Err(err).Msg("Error writing error response")
	}
}

func wantsHTML(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
