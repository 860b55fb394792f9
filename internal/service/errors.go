package service

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	ErrDataSource     = errors.New("data source unavailable")
	ErrClassification = errors.New("query classification failed")
	ErrGeneration     = errors.New("no usable SQL in model output")
	ErrExecution      = errors.New("SQL execution failed")
	ErrEmptyQuery     = errors.New("query must not be empty")

	ErrServiceUnavailable = errors.New("LLM service unavailable")
	ErrPayloadTooLarge    = errors.New("LLM request too large")
)

// StatusError carries the HTTP status a provider answered with.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("status code: %d", e.Code)
	}
	return fmt.Sprintf("status code: %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// go-openai, ark and gigago format HTTP failures differently but all mention the code
var statusCodePattern = regexp.MustCompile(`(?i)status[ _]?code[:=]?\s*(\d{3})`)

// statusCode extracts the provider's HTTP status from err, or 0 when there is none.
func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	m := statusCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}
