package sites

import (
	"context"
	"errors"
	"strings"

	"github.com/zjrosen/discussions/internal/log"
	"github.com/zjrosen/discussions/internal/requestcache"
	"github.com/zjrosen/discussions/internal/requestctx"
)

const siteByDomainNamespace = "sites.by_domain"

// Service resolves the current site and its configuration.
type Service struct {
	repo Repository
}

// NewService creates a Service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CurrentSite resolves the site for the request domain in ctx.
// Returns nil, nil when ctx carries no domain or the domain is unknown.
func (s *Service) CurrentSite(ctx context.Context) (*Site, error) {
	domain := normalizeDomain(requestctx.SiteDomainFromContext(ctx))
	if domain == "" {
		return nil, nil
	}

	site, err := requestcache.Memoize(ctx, siteByDomainNamespace, domain, func(ctx context.Context) (*Site, error) {
		return s.repo.FindSiteByDomain(ctx, domain)
	})
	if errors.Is(err, ErrSiteNotFound) {
		log.Info(log.CatSite, "No site for request domain", "domain", domain)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return site, nil
}

// Configuration returns the configuration record of site.
// Returns a ConfigurationNotFoundError when none exists.
func (s *Service) Configuration(ctx context.Context, site *Site) (*Configuration, error) {
	return s.repo.FindConfiguration(ctx, site.ID)
}

// Sites lists every registered site.
func (s *Service) Sites(ctx context.Context) ([]*Site, error) {
	return s.repo.ListSites(ctx)
}

// CreateSite registers a new site.
func (s *Service) CreateSite(ctx context.Context, domain, name string) (*Site, error) {
	site := &Site{Domain: normalizeDomain(domain), Name: strings.TrimSpace(name)}
	if site.Name == "" {
		site.Name = site.Domain
	}
	if err := s.repo.CreateSite(ctx, site); err != nil {
		return nil, err
	}
	log.Info(log.CatSite, "Site created", "domain", site.Domain, "id", site.ID)
	return site, nil
}

// SetValue stores one configuration value for the site at domain,
// creating an enabled configuration on first write.
func (s *Service) SetValue(ctx context.Context, domain, key string, value any) (*Configuration, error) {
	site, err := s.repo.FindSiteByDomain(ctx, normalizeDomain(domain))
	if err != nil {
		return nil, err
	}
	cfg, err := s.repo.FindConfiguration(ctx, site.ID)
	if errors.Is(err, ErrConfigurationNotFound) {
		cfg = NewConfiguration(site.ID)
	} else if err != nil {
		return nil, err
	}
	cfg.Set(key, value)
	if err := s.repo.SaveConfiguration(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetEnabled toggles the configuration of the site at domain.
func (s *Service) SetEnabled(ctx context.Context, domain string, enabled bool) (*Configuration, error) {
	site, err := s.repo.FindSiteByDomain(ctx, normalizeDomain(domain))
	if err != nil {
		return nil, err
	}
	cfg, err := s.repo.FindConfiguration(ctx, site.ID)
	if errors.Is(err, ErrConfigurationNotFound) {
		cfg = NewConfiguration(site.ID)
	} else if err != nil {
		return nil, err
	}
	cfg.Enabled = enabled
	if err := s.repo.SaveConfiguration(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if host, _, ok := strings.Cut(domain, ":"); ok {
		return host
	}
	return domain
}
