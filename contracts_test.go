package homosphere

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrRef_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		ref      AttrRef
		expected string
	}{
		{
			name:     "eip allocation id",
			ref:      AttrRef{Resource: "NatEipUsEast1a", Attribute: "AllocationId"},
			expected: `{"Fn::GetAtt":["NatEipUsEast1a","AllocationId"]}`,
		},
		{
			name:     "vpc cidr",
			ref:      AttrRef{Resource: "VPC", Attribute: "CidrBlock"},
			expected: `{"Fn::GetAtt":["VPC","CidrBlock"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ref)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestAttrRef_IsZero(t *testing.T) {
	tests := []struct {
		name     string
		ref      AttrRef
		expected bool
	}{
		{name: "empty", ref: AttrRef{}, expected: true},
		{name: "with resource", ref: AttrRef{Resource: "VPC"}, expected: false},
		{name: "with attribute", ref: AttrRef{Attribute: "CidrBlock"}, expected: false},
		{name: "fully populated", ref: AttrRef{Resource: "VPC", Attribute: "CidrBlock"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ref.IsZero())
		})
	}
}

func TestTemplate_JSON(t *testing.T) {
	tmpl := Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Resources: map[string]ResourceDef{
			"VPC": {
				Type:       "AWS::EC2::VPC",
				Properties: map[string]any{"CidrBlock": "10.0.0.0/16"},
			},
		},
		Outputs: map[string]Output{
			"VpcId": {
				Value:  map[string]any{"Ref": "VPC"},
				Export: &Export{Name: "prod-VpcId"},
			},
		},
	}

	data, err := json.Marshal(tmpl)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.NotContains(t, parsed, "Description")
	outputs := parsed["Outputs"].(map[string]any)
	vpcID := outputs["VpcId"].(map[string]any)
	assert.Equal(t, map[string]any{"Name": "prod-VpcId"}, vpcID["Export"])
}

func TestPlanResult_JSON(t *testing.T) {
	result := PlanResult{
		Network:   "10.0.0.0/16",
		PrefixLen: 19,
		Subnets: []PlanAssignment{
			{Zone: "us-east-1a", Public: "10.0.0.0/19", Private: "10.0.32.0/19"},
		},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"network": "10.0.0.0/16",
		"prefix_len": 19,
		"subnets": [{"zone": "us-east-1a", "public": "10.0.0.0/19", "private": "10.0.32.0/19"}]
	}`, string(data))
}
