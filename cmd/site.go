package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/discussions/internal/app"
	"github.com/zjrosen/discussions/internal/presentation"
	"github.com/zjrosen/discussions/internal/sites"
)

var siteName string

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage sites and their configuration",
}

var siteAddCmd = &cobra.Command{
	Use:   "add DOMAIN",
	Short: "Register a site for a request domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		site, err := a.Sites.CreateSite(cmd.Context(), args[0], siteName)
		if err != nil {
			return err
		}
		return formatter(cmd).Format(presentation.FromDomainSite(site, nil))
	},
}

var siteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sites with their configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		all, err := a.Sites.Sites(cmd.Context())
		if err != nil {
			return err
		}
		dtos := make([]presentation.SiteDTO, 0, len(all))
		for _, site := range all {
			dto, err := siteDTO(cmd.Context(), a, site)
			if err != nil {
				return err
			}
			dtos = append(dtos, dto)
		}
		return formatter(cmd).Format(dtos)
	},
}

var siteConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write site configuration values",
}

var siteConfigSetCmd = &cobra.Command{
	Use:   "set DOMAIN KEY VALUE",
	Short: "Set one configuration value",
	Long: `Set one configuration value of a site. VALUE is parsed as YAML, so
"true" is a boolean and "3" a number; quote it to keep a string.

Example:
  discussions site config set example.com enable_forum_notifications true`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parseValue(args[2])
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if _, err := a.Sites.SetValue(cmd.Context(), args[0], args[1], value); err != nil {
			return err
		}
		return showSite(cmd, a, args[0])
	},
}

var siteConfigShowCmd = &cobra.Command{
	Use:   "show DOMAIN",
	Short: "Show a site and its configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		return showSite(cmd, a, args[0])
	},
}

func siteEnableCmd(use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " DOMAIN",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if _, err := a.Sites.SetEnabled(cmd.Context(), args[0], enabled); err != nil {
				return err
			}
			return showSite(cmd, a, args[0])
		},
	}
}

func init() {
	siteAddCmd.Flags().StringVar(&siteName, "name", "", "Display name (default: the domain)")

	siteConfigCmd.AddCommand(siteConfigSetCmd, siteConfigShowCmd,
		siteEnableCmd("enable", "Turn the site configuration on", true),
		siteEnableCmd("disable", "Turn the site configuration off; its values read as defaults", false))
	siteCmd.AddCommand(siteAddCmd, siteListCmd, siteConfigCmd)
	rootCmd.AddCommand(siteCmd)
}

func showSite(cmd *cobra.Command, a *app.App, domain string) error {
	site, err := a.Sites.CurrentSite(a.RequestContext(cmd.Context(), domain))
	if err != nil {
		return err
	}
	if site == nil {
		return &sites.SiteNotFoundError{Domain: domain}
	}
	dto, err := siteDTO(cmd.Context(), a, site)
	if err != nil {
		return err
	}
	return formatter(cmd).Format(dto)
}

func siteDTO(ctx context.Context, a *app.App, site *sites.Site) (presentation.SiteDTO, error) {
	cfg, err := a.Sites.Configuration(ctx, site)
	if errors.Is(err, sites.ErrConfigurationNotFound) {
		return presentation.FromDomainSite(site, nil), nil
	}
	if err != nil {
		return presentation.SiteDTO{}, err
	}
	return presentation.FromDomainSite(site, cfg), nil
}

func parseValue(raw string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("parsing value %q: %w", raw, err)
	}
	if v == nil {
		return raw, nil
	}
	return v, nil
}
