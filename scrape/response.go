package scrape

import (
	"net/http"

	"github.com/fwojciec/pagetext"
)

// Response is the single HTTP response produced for one scrape request.
type Response struct {
	Status int
	Body   any
}

// SuccessBody is the body of a successful scrape.
type SuccessBody struct {
	Success bool                       `json:"success"`
	Data    *pagetext.ExtractionResult `json:"data"`
}

// Error messages shared with clients.
const (
	MsgURLRequired = "URL is required"
	MsgTimeout     = "Scraping timeout"
	MsgCancelled   = "request cancelled"
)

// ErrorResponse returns a response whose body is {"error": msg} plus any
// diagnostic fields.
func ErrorResponse(status int, msg string, diagnostics map[string]any) *Response {
	body := make(map[string]any, len(diagnostics)+1)
	for k, v := range diagnostics {
		body[k] = v
	}
	body["error"] = msg
	return &Response{Status: status, Body: body}
}

// NewResponse maps a worker outcome to a response: 200 with the result on
// success, 500 with the failure message and its diagnostics otherwise.
func NewResponse(out *pagetext.Outcome) *Response {
	if out.Success() {
		return &Response{
			Status: http.StatusOK,
			Body:   SuccessBody{Success: true, Data: out.Result},
		}
	}

	var err error = pagetext.Errorf(pagetext.EINTERNAL, "worker returned no outcome")
	if out != nil && out.Err != nil {
		err = out.Err
	}
	return ErrorResponse(http.StatusInternalServerError, pagetext.ErrorMessage(err), pagetext.ErrorDiagnostics(err))
}
