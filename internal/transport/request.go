package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/logging"
)

// maxErrorBody bounds how much of an error response ends up in an APIError.
const maxErrorBody = 512

// DecodeResponse decodes a JSON response into the target structure and
// closes the body. Non-200 responses become *errors.APIError.
func DecodeResponse(resp *http.Response, provider string, target any) error {
	body, err := ReadBody(resp, provider)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", provider, err)
	}
	return nil
}

// ReadBody reads and closes the body of a successful response.
func ReadBody(resp *http.Response, provider string) ([]byte, error) {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger := logging.Default()
			if resp.Request != nil {
				logger = logging.FromContext(resp.Request.Context())
			}
			logger.Warn().Err(err).Str("provider", provider).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response body: %w", provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		endpoint := ""
		if resp.Request != nil && resp.Request.URL != nil {
			endpoint = resp.Request.URL.Path
		}
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "..."
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &errors.APIError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    msg,
			Endpoint:   endpoint,
		}
	}
	return body, nil
}

// NextLink returns the rel="next" target of an RFC 8288 Link header, or "".
func NextLink(h http.Header) string {
	for _, link := range h.Values("Link") {
		for _, part := range strings.Split(link, ",") {
			segments := strings.Split(part, ";")
			if len(segments) < 2 {
				continue
			}
			target := strings.TrimSpace(segments[0])
			if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
				continue
			}
			for _, param := range segments[1:] {
				param = strings.ReplaceAll(strings.TrimSpace(param), " ", "")
				if param == `rel="next"` || param == "rel=next" {
					return target[1 : len(target)-1]
				}
			}
		}
	}
	return ""
}
