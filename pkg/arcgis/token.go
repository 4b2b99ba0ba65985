package arcgis

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/matzehuels/infographics/pkg/errors"
)

// Token is a short-lived access token issued by generateToken.
type Token struct {
	Value   string
	Expires time.Time
	SSL     bool
}

type tokenResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"` // milliseconds since epoch
	SSL     bool   `json:"ssl"`
}

// GenerateToken signs in with a built-in portal account. The expiration is
// a request; the portal may cap it.
func (c *Client) GenerateToken(ctx context.Context, username, password string, expiration time.Duration) (*Token, error) {
	if username == "" || password == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "username and password are required")
	}

	referer := c.referer
	if referer == "" {
		referer = c.portalURL
	}
	form := url.Values{
		"username":   {username},
		"password":   {password},
		"client":     {"referer"},
		"referer":    {referer},
		"expiration": {strconv.Itoa(int(expiration / time.Minute))},
		// generateToken must never see an existing token.
		"token": {""},
	}

	var resp tokenResponse
	if err := c.PostForm(ctx, c.RestURL()+"/generateToken", form, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "portal did not return a token")
	}
	return &Token{
		Value:   resp.Token,
		Expires: time.UnixMilli(resp.Expires),
		SSL:     resp.SSL,
	}, nil
}
