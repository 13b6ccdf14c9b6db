package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/sociusfit/internal/common"
)

// StatusError is a non-2xx answer. Kind is the taxonomy error it unwraps to;
// callers that know the endpoint may replace it.
type StatusError struct {
	Status  int
	Message string
	Kind    error
}

func (e *StatusError) Error() string {
	text := http.StatusText(e.Status)
	if e.Message != "" {
		return fmt.Sprintf("%s (%d %s): %s", e.Kind, e.Status, text, e.Message)
	}
	return fmt.Sprintf("%s (%d %s)", e.Kind, e.Status, text)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// WithKind returns a copy classified as kind.
func (e *StatusError) WithKind(kind error) *StatusError {
	c := *e
	c.Kind = kind
	return &c
}

// KindForStatus is the default classification of an HTTP status.
func KindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return common.ErrUnauthorized
	case status == http.StatusConflict:
		return common.ErrAlreadyExists
	case status >= 500:
		return common.ErrServer
	default:
		return common.ErrRequestRejected
	}
}

type errorBody struct {
	Message string `json:"message"`
}

func readStatusError(resp *http.Response) *StatusError {
	e := &StatusError{Status: resp.StatusCode, Kind: KindForStatus(resp.StatusCode)}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return e
	}
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		e.Message = strings.TrimSpace(body.Message)
	}
	return e
}
