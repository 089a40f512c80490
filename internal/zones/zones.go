// Package zones lists the availability zones of an AWS region through EC2.
package zones

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	log "github.com/cantara/bragi/sbragi"

	"github.com/allyunion/homosphere/subnet"
)

// ErrNoZones is returned when the region reports no usable availability zone.
var ErrNoZones = errors.New("no availability zones found")

// DescribeAvailabilityZonesAPI is the part of *ec2.Client the lister needs.
type DescribeAvailabilityZonesAPI interface {
	DescribeAvailabilityZones(ctx context.Context, params *ec2.DescribeAvailabilityZonesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAvailabilityZonesOutput, error)
}

// Options selects the region and credentials used to reach EC2.
// Profile wins over a static key pair; with neither set the SDK's default
// credential chain is used.
type Options struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
}

// EC2Lister lists availability zones with DescribeAvailabilityZones.
type EC2Lister struct {
	client DescribeAvailabilityZonesAPI
}

var _ subnet.ZoneLister = (*EC2Lister)(nil)

// NewLister wraps an EC2 client.
func NewLister(client DescribeAvailabilityZonesAPI) *EC2Lister {
	return &EC2Lister{client: client}
}

// New loads the AWS configuration for opts and returns a lister backed by a
// new EC2 client.
func New(ctx context.Context, opts Options) (*EC2Lister, error) {
	cfg, err := config.LoadDefaultConfig(ctx, loadOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	log.Trace("loaded aws config", "region", cfg.Region, "profile", opts.Profile)
	return NewLister(ec2.NewFromConfig(cfg)), nil
}

func loadOptions(opts Options) []func(*config.LoadOptions) error {
	var out []func(*config.LoadOptions) error
	if opts.Region != "" {
		out = append(out, config.WithRegion(opts.Region))
	}
	switch {
	case opts.Profile != "":
		out = append(out, config.WithSharedConfigProfile(opts.Profile))
	case opts.AccessKeyID != "" && opts.SecretAccessKey != "":
		out = append(out, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	return out
}

// ListZones returns the names of the region's available zones, sorted.
// Local Zones and Wavelength Zones are skipped.
func (l *EC2Lister) ListZones(ctx context.Context) ([]string, error) {
	log.Trace("getting availability zones")
	result, err := l.client.DescribeAvailabilityZones(ctx, &ec2.DescribeAvailabilityZonesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("state"),
				Values: []string{string(ec2types.AvailabilityZoneStateAvailable)},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("describing availability zones: %w", err)
	}

	var names []string
	for _, az := range result.AvailabilityZones {
		if az.ZoneType != nil && *az.ZoneType != "availability-zone" {
			continue
		}
		if az.State != ec2types.AvailabilityZoneStateAvailable {
			continue
		}
		name := aws.ToString(az.ZoneName)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		log.Trace("no availability zones found")
		return nil, ErrNoZones
	}

	sort.Strings(names)
	return names, nil
}
