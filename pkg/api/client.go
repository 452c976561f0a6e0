// Package api is the REST client for the SocialFlow server
package api

import (
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sadwiik06/SocialFlow/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const userAgent = "SocialFlow-CLI/0.1.0"

// Client wraps a resty client bound to one server
type Client struct {
	http *resty.Client
}

// New creates a client for baseURL, e.g. http://localhost:5000/api
func New(baseURL string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	rc.OnBeforeRequest(func(c *resty.Client, req *resty.Request) error {
		logger.Debug("HTTP Request", "method", req.Method, "url", req.URL)
		return nil
	})
	rc.OnAfterResponse(func(c *resty.Client, resp *resty.Response) error {
		logger.Debug("HTTP Response", "status", resp.StatusCode(), "elapsed", resp.Time())
		return nil
	})
	return &Client{http: rc}
}

// SetToken authenticates every following request; empty clears it
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// HasToken reports whether a bearer token is set
func (c *Client) HasToken() bool {
	return c.http.Token != ""
}

func (c *Client) R() *resty.Request {
	return c.http.R()
}
