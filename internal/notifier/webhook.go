package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const userAgent = "cdd-notifier/1"

// ErrNoURL is returned when a webhook notifier has no url configured.
var ErrNoURL = errors.New("notifier: webhook url not configured")

// Webhook POSTs the payload, or an expanded body_template, to a URL.
type Webhook struct {
	Client *http.Client
}

// Body builds the request body for p. With a body_template the expansion is
// sent as-is when it is valid JSON; otherwise values are re-expanded with
// JSON escaping, and if that still is not valid JSON the plain expansion is
// sent raw. Without a template the payload minus notifier_config is sent.
func (w *Webhook) Body(p Payload) ([]byte, error) {
	tpl := p.ConfigString("body_template")
	if tpl == "" {
		data, err := json.Marshal(p.Without("notifier_config"))
		if err != nil {
			return nil, fmt.Errorf("encoding webhook payload: %w", err)
		}
		return data, nil
	}

	expanded := ExpandTemplate(tpl, p)
	if json.Valid([]byte(expanded)) {
		return []byte(expanded), nil
	}
	if escaped := ExpandJSONTemplate(tpl, p); json.Valid([]byte(escaped)) {
		return []byte(escaped), nil
	}
	return []byte(expanded), nil
}

// Deliver makes one POST attempt. The response body is drained and
// discarded; non-2xx statuses are reported as errors.
func (w *Webhook) Deliver(ctx context.Context, p Payload) error {
	endpoint := p.ConfigString("url")
	if endpoint == "" {
		return ErrNoURL
	}
	body, err := w.Body(p)
	if err != nil {
		return err
	}
	return postJSON(ctx, w.Client, endpoint, body)
}

func postJSON(ctx context.Context, client *http.Client, endpoint string, body []byte) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		// url.Error repeats the full URL, which may embed a bot token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("post to %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// StatusError reports a non-2xx delivery response.
type StatusError struct {
	Code int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("notifier: endpoint returned %d", e.Code)
}
