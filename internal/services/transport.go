package services

import (
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimitedTransport waits on a shared limiter before every request.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// NewRateLimitedClient returns a copy of client whose requests are limited to perSecond.
//
// A non-positive perSecond returns client unchanged.
func NewRateLimitedClient(client *http.Client, perSecond float64) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}
	if perSecond <= 0 {
		return client
	}

	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	limited := *client
	limited.Transport = &rateLimitedTransport{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
	return &limited
}
