// Package sites models tenants and their per-site configuration.
package sites

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrConfigurationNotFound is matched by ConfigurationNotFoundError.
var ErrConfigurationNotFound = errors.New("site configuration not found")

// ErrSiteNotFound is matched by SiteNotFoundError.
var ErrSiteNotFound = errors.New("site not found")

// ErrSiteExists is returned when creating a site whose domain is taken.
var ErrSiteExists = errors.New("site already exists")

// Site is one tenant, identified by the domain requests arrive on.
type Site struct {
	ID     int64
	Domain string
	Name   string
}

func (s *Site) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Domain
}

// Configuration is the key/value settings record of a site.
// Values are only visible through GetValue while Enabled is true.
type Configuration struct {
	ID        int64
	SiteID    int64
	Enabled   bool
	Values    map[string]any
	UpdatedAt time.Time
}

// NewConfiguration returns an enabled, empty configuration for site.
func NewConfiguration(siteID int64) *Configuration {
	return &Configuration{SiteID: siteID, Enabled: true, Values: make(map[string]any)}
}

// GetValue returns the value stored under name, or def when the
// configuration is nil, disabled, or lacks the key.
func (c *Configuration) GetValue(name string, def any) any {
	if c == nil || !c.Enabled {
		return def
	}
	value, ok := c.Values[name]
	if !ok {
		return def
	}
	return value
}

// BoolValue reads name as a boolean. Strings are parsed with
// strconv.ParseBool; anything else that is not a bool yields def.
func (c *Configuration) BoolValue(name string, def bool) bool {
	switch v := c.GetValue(name, def).(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// Set stores value under name.
func (c *Configuration) Set(name string, value any) {
	if c.Values == nil {
		c.Values = make(map[string]any)
	}
	c.Values[name] = value
}

// SiteNotFoundError indicates no site matches the lookup.
type SiteNotFoundError struct {
	Domain string
	ID     int64
}

func (e *SiteNotFoundError) Error() string {
	if e.Domain != "" {
		return fmt.Sprintf("site not found: %s", e.Domain)
	}
	return fmt.Sprintf("site not found: id %d", e.ID)
}

func (e *SiteNotFoundError) Is(target error) bool {
	return target == ErrSiteNotFound
}

// ConfigurationNotFoundError indicates the site has no configuration record.
type ConfigurationNotFoundError struct {
	SiteID int64
}

func (e *ConfigurationNotFoundError) Error() string {
	return fmt.Sprintf("site configuration not found for site %d", e.SiteID)
}

func (e *ConfigurationNotFoundError) Is(target error) bool {
	return target == ErrConfigurationNotFound
}

// Repository persists sites and their configurations.
type Repository interface {
	// CreateSite inserts a site and sets its ID. Returns ErrSiteExists on a taken domain.
	CreateSite(ctx context.Context, site *Site) error
	FindSiteByDomain(ctx context.Context, domain string) (*Site, error)
	FindSiteByID(ctx context.Context, id int64) (*Site, error)
	ListSites(ctx context.Context) ([]*Site, error)

	// SaveConfiguration inserts or replaces the configuration of its site.
	SaveConfiguration(ctx context.Context, cfg *Configuration) error
	FindConfiguration(ctx context.Context, siteID int64) (*Configuration, error)
}
