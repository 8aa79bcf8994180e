package prismic

import (
	"net/http"
	"net/url"
	"time"

	"github.com/eringen/spacetraveling/logger"
)

// loggingTransport logs every outbound API call with its status and latency.
// The access token is redacted from the logged URL.
type loggingTransport struct {
	inner http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.inner.RoundTrip(req)
	fields := logger.Fields{
		"method":   req.Method,
		"url":      redactURL(req.URL),
		"duration": time.Since(start).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.Error("prismic request failed", fields)
		return nil, err
	}
	fields["status"] = resp.StatusCode
	logger.Debug("prismic request", fields)
	return resp, nil
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		c := *u
		c.RawQuery = q.Encode()
		return c.String()
	}
	return u.String()
}
