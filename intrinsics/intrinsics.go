// Package intrinsics provides the CloudFormation intrinsic functions used by
// the VPC stack.
//
// The types are re-exported from cloudformation-schema-go:
//
//	Ref{"VPC"} → {"Ref": "VPC"}
//	Join{"-", []any{AWS_STACK_NAME, "VpcId"}} → {"Fn::Join": ["-", [{"Ref": "AWS::StackName"}, "VpcId"]]}
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Tag represents a CloudFormation resource tag.
	Tag = intrinsics.Tag
)

// ExportName returns the export name "<StackName>-<name>", resolved by
// CloudFormation at deploy time.
func ExportName(name string) Join {
	return Join{Delimiter: "-", Values: []any{AWS_STACK_NAME, name}}
}
