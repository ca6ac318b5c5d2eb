package internal

import (
	"net/http"

	"github.com/txsvc/apikit/settings"
)

type ClientOption interface {
	Apply(rc *RestClient)
}

// WithEndpoint returns a ClientOption that overrides the default endpoint to be used for a service.
func WithEndpoint(url string) ClientOption {
	return withEndpoint(url)
}

type withEndpoint string

func (w withEndpoint) Apply(rc *RestClient) {
	rc.Settings.Endpoint = string(w)
}

// WithAccessToken returns a ClientOption that sets the bearer token sent with every request.
func WithAccessToken(token string) ClientOption {
	return withAccessToken(token)
}

type withAccessToken string

func (w withAccessToken) Apply(rc *RestClient) {
	if rc.Settings.Credentials == nil {
		rc.Settings.Credentials = &settings.Credentials{}
	}
	rc.Settings.Credentials.Token = string(w)
}

// WithUserAgent returns a ClientOption that overrides the User-Agent header.
func WithUserAgent(agent string) ClientOption {
	return withUserAgent(agent)
}

type withUserAgent string

func (w withUserAgent) Apply(rc *RestClient) {
	rc.Settings.UserAgent = string(w)
}

// WithHttpClient replaces the http client, e.g. to bypass the retry transport in tests.
func WithHttpClient(client *http.Client) ClientOption {
	return withHttpClient{client}
}

type withHttpClient struct {
	client *http.Client
}

func (w withHttpClient) Apply(rc *RestClient) {
	rc.HttpClient = w.client
}
