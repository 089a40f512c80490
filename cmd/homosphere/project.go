package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	homosphere "github.com/allyunion/homosphere"
	"github.com/allyunion/homosphere/internal/config"
	"github.com/allyunion/homosphere/internal/stack"
	"github.com/allyunion/homosphere/internal/zones"
	"github.com/allyunion/homosphere/subnet"
)

// loadConfig reads the project file and applies the command-line overrides.
// The file may be missing unless --config was given explicitly.
func loadConfig(cmd *cobra.Command, flags *globalFlags, extra config.Overrides) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cmd.Flags().Changed("config") {
		cfg, err = config.Read(flags.configFile)
	} else {
		cfg, err = config.Load(flags.configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	o := extra
	o.Name = flags.name
	o.CIDR = flags.cidr
	o.Region = flags.region
	o.Profile = flags.profile
	o.Zones = flags.zones
	o.ExportPrefix = flags.exportPrefix
	o.Tags = flags.tags
	if cmd.Flags().Changed("single-nat") {
		singleNat := flags.singleNat
		o.SingleNatGateway = &singleNat
	}
	cfg.Apply(o)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSession returns a planning session for cfg. Configured zones are used
// as-is; otherwise they are listed from EC2 in cfg.Region.
func newSession(ctx context.Context, cfg *config.Config) (*subnet.Session, error) {
	network, err := cfg.Network()
	if err != nil {
		return nil, err
	}

	var lister subnet.ZoneLister
	if len(cfg.Zones) > 0 {
		lister = subnet.StaticZones(cfg.Zones)
	} else {
		lister, err = zones.New(ctx, zoneOptions(cfg))
		if err != nil {
			return nil, err
		}
	}
	return subnet.NewSession(network, lister), nil
}

// zoneOptions maps the AWS settings of cfg onto the EC2 zone lister.
func zoneOptions(cfg *config.Config) zones.Options {
	return zones.Options{
		Region:          cfg.Region,
		Profile:         cfg.Profile,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	}
}

// buildProject plans the subnets for cfg and assembles the template.
func buildProject(ctx context.Context, cfg *config.Config) (*homosphere.Template, *subnet.Plan, error) {
	session, err := newSession(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	plan, err := session.Allocate(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("planning subnets: %w", err)
	}

	tmpl, err := stack.Build(plan, stack.Options{
		Name:             cfg.Name,
		Description:      cfg.Description,
		ExportPrefix:     cfg.ExportPrefix,
		Tags:             cfg.Tags,
		SingleNatGateway: cfg.SingleNatGateway,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building template: %w", err)
	}
	return tmpl, plan, nil
}
