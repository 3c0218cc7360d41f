package transport

import (
	"encoding/json"
	"strings"

	"github.com/churchmedia/pewsync/pkg/errors"
)

const maxErrorBody = 512

// DecodeResponse decodes a JSON response into the target structure.
// Non-2xx statuses become *errors.APIError.
func (c *Client) DecodeResponse(resp *Response, target any) error {
	if !resp.OK() {
		return c.apiError(resp)
	}
	if target == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, target); err != nil {
		return errors.NewParseError("json", c.name+" "+resp.Endpoint, err.Error(), err)
	}
	return nil
}

// snippet shortens a response body for error messages.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	if s == "" {
		return "empty response"
	}
	return s
}
