package arcgis

import (
	"context"
	"strings"

	"github.com/matzehuels/infographics/pkg/errors"
)

// PortalProperties is the subset of the portal self description this
// module uses.
type PortalProperties struct {
	ID             string         `json:"id"`       // Organization id; empty for anonymous access to some portals
	Name           string         `json:"name"`     // Organization name
	URLKey         string         `json:"urlKey"`   // Short org key (ArcGIS Online)
	IsPortal       bool           `json:"isPortal"` // True for ArcGIS Enterprise
	HelperServices HelperServices `json:"helperServices"`
	User           *User          `json:"user,omitempty"` // Signed-in user, nil for anonymous access
}

// HelperServices lists the utility services a portal advertises.
type HelperServices struct {
	Geoenrichment *HelperService  `json:"geoenrichment,omitempty"`
	Geocode       []HelperService `json:"geocode,omitempty"`
}

// HelperService is a single advertised service endpoint.
type HelperService struct {
	URL string `json:"url"`
}

// User describes a portal member.
type User struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	OrgID    string `json:"orgId"`
}

// Properties returns the portal self description. The first successful
// response is memoized on the client; failures are not.
func (c *Client) Properties(ctx context.Context) (*PortalProperties, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.props != nil {
		return c.props, nil
	}

	var props PortalProperties
	if err := c.Get(ctx, c.RestURL()+"/portals/self", nil, &props); err != nil {
		return nil, err
	}
	c.props = &props
	return c.props, nil
}

// GeoenrichmentURL returns the geoenrichment helper service URL without a
// trailing slash. A portal that does not advertise one yields a
// CONFIGURATION error.
func (c *Client) GeoenrichmentURL(ctx context.Context) (string, error) {
	props, err := c.Properties(ctx)
	if err != nil {
		return "", err
	}
	ge := props.HelperServices.Geoenrichment
	if ge == nil || strings.TrimSpace(ge.URL) == "" {
		return "", errors.New(errors.ErrCodeConfiguration,
			"the portal at %s does not appear to have a geoenrichment server configured", c.portalURL)
	}
	return strings.TrimRight(ge.URL, "/"), nil
}

// OrgID returns the organization id of the portal, or "" if unknown.
func (c *Client) OrgID(ctx context.Context) (string, error) {
	props, err := c.Properties(ctx)
	if err != nil {
		return "", err
	}
	return props.ID, nil
}

// Self returns the signed-in user. Anonymous clients get UNAUTHORIZED.
func (c *Client) Self(ctx context.Context) (*User, error) {
	if !c.Authenticated() {
		return nil, errors.New(errors.ErrCodeUnauthorized, "not signed in")
	}
	var user User
	if err := c.Get(ctx, c.RestURL()+"/community/self", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
