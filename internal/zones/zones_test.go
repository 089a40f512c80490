package zones

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEC2 struct {
	output *ec2.DescribeAvailabilityZonesOutput
	err    error
	input  *ec2.DescribeAvailabilityZonesInput
}

func (f *fakeEC2) DescribeAvailabilityZones(_ context.Context, params *ec2.DescribeAvailabilityZonesInput, _ ...func(*ec2.Options)) (*ec2.DescribeAvailabilityZonesOutput, error) {
	f.input = params
	return f.output, f.err
}

func zone(name, zoneType string, state ec2types.AvailabilityZoneState) ec2types.AvailabilityZone {
	return ec2types.AvailabilityZone{
		ZoneName: aws.String(name),
		ZoneType: aws.String(zoneType),
		State:    state,
	}
}

func TestEC2Lister_ListZones(t *testing.T) {
	client := &fakeEC2{
		output: &ec2.DescribeAvailabilityZonesOutput{
			AvailabilityZones: []ec2types.AvailabilityZone{
				zone("us-east-1c", "availability-zone", ec2types.AvailabilityZoneStateAvailable),
				zone("us-east-1a", "availability-zone", ec2types.AvailabilityZoneStateAvailable),
				zone("us-east-1-bos-1a", "local-zone", ec2types.AvailabilityZoneStateAvailable),
				zone("us-east-1b", "availability-zone", ec2types.AvailabilityZoneStateAvailable),
				zone("us-east-1d", "availability-zone", ec2types.AvailabilityZoneStateImpaired),
			},
		},
	}

	got, err := NewLister(client).ListZones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"us-east-1a", "us-east-1b", "us-east-1c"}, got)

	require.NotNil(t, client.input)
	require.Len(t, client.input.Filters, 1)
	assert.Equal(t, "state", aws.ToString(client.input.Filters[0].Name))
	assert.Equal(t, []string{"available"}, client.input.Filters[0].Values)
}

func TestEC2Lister_MissingZoneType(t *testing.T) {
	client := &fakeEC2{
		output: &ec2.DescribeAvailabilityZonesOutput{
			AvailabilityZones: []ec2types.AvailabilityZone{
				{ZoneName: aws.String("eu-west-1b"), State: ec2types.AvailabilityZoneStateAvailable},
				{ZoneName: aws.String("eu-west-1a"), State: ec2types.AvailabilityZoneStateAvailable},
			},
		},
	}

	got, err := NewLister(client).ListZones(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"eu-west-1a", "eu-west-1b"}, got)
}

func TestEC2Lister_NoZones(t *testing.T) {
	client := &fakeEC2{
		output: &ec2.DescribeAvailabilityZonesOutput{
			AvailabilityZones: []ec2types.AvailabilityZone{
				zone("us-west-2-lax-1a", "local-zone", ec2types.AvailabilityZoneStateAvailable),
			},
		},
	}

	_, err := NewLister(client).ListZones(context.Background())
	assert.ErrorIs(t, err, ErrNoZones)
}

func TestEC2Lister_APIError(t *testing.T) {
	apiErr := errors.New("UnauthorizedOperation")
	client := &fakeEC2{err: apiErr}

	_, err := NewLister(client).ListZones(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apiErr)
	assert.Contains(t, err.Error(), "describing availability zones")
}

func TestLoadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want int
	}{
		{name: "defaults", opts: Options{}, want: 0},
		{name: "region only", opts: Options{Region: "us-east-1"}, want: 1},
		{name: "profile", opts: Options{Region: "us-east-1", Profile: "prod"}, want: 2},
		{name: "static keys", opts: Options{Region: "us-east-1", AccessKeyID: "AKID", SecretAccessKey: "secret"}, want: 2},
		{name: "key without secret", opts: Options{AccessKeyID: "AKID"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, loadOptions(tt.opts), tt.want)
		})
	}
}

func TestLoadOptions_Applied(t *testing.T) {
	var lo config.LoadOptions
	for _, fn := range loadOptions(Options{Region: "eu-north-1", Profile: "staging"}) {
		require.NoError(t, fn(&lo))
	}
	assert.Equal(t, "eu-north-1", lo.Region)
	assert.Equal(t, "staging", lo.SharedConfigProfile)
}
