package badger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const validateTimeout = 5 * time.Second

// Validator authorizes badge IDs against an HTTP endpoint. The ID is sent as
// the key_param query parameter; any 2xx answer authorizes the badge.
type Validator struct {
	url      string
	keyParam string
	client   *http.Client
}

func NewValidator(rawURL, keyParam string) *Validator {
	return &Validator{
		url:      rawURL,
		keyParam: keyParam,
		client:   &http.Client{Timeout: validateTimeout},
	}
}

// Validate reports whether id is authorized. Transport failures count as
// not authorized and are returned for logging.
func (v *Validator) Validate(ctx context.Context, id string) (bool, error) {
	u, err := url.Parse(v.url)
	if err != nil {
		return false, fmt.Errorf("invalid validation url: %w", err)
	}
	q := u.Query()
	q.Set(v.keyParam, id)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
