package template

import (
	"fmt"
	"testing"

	"github.com/allyunion/homosphere/intrinsics"
	"github.com/allyunion/homosphere/resources/ec2"
)

// BenchmarkBuild benchmarks building templates with varying subnet counts.
func BenchmarkBuild(b *testing.B) {
	sizes := []int{10, 50, 100, 200}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("resources_%d", size), func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				builder := mockBuilder(b, size)
				if _, err := builder.Build(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkToJSON benchmarks JSON serialization with varying subnet counts.
func BenchmarkToJSON(b *testing.B) {
	sizes := []int{10, 50, 100}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("resources_%d", size), func(b *testing.B) {
			tmpl, err := mockBuilder(b, size).Build()
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ToJSON(tmpl); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkToYAML benchmarks YAML serialization with varying subnet counts.
func BenchmarkToYAML(b *testing.B) {
	sizes := []int{10, 50, 100}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("resources_%d", size), func(b *testing.B) {
			tmpl, err := mockBuilder(b, size).Build()
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ToYAML(tmpl); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkTopologicalSort benchmarks dependency ordering over a route table chain.
func BenchmarkTopologicalSort(b *testing.B) {
	sizes := []int{20, 50, 100}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("resources_%d", size), func(b *testing.B) {
			builder := NewBuilder("")
			if err := builder.Add("Table0", ec2.RouteTable{}); err != nil {
				b.Fatal(err)
			}
			for i := 1; i < size; i++ {
				name := fmt.Sprintf("Table%d", i)
				prev := intrinsics.Ref{LogicalName: fmt.Sprintf("Table%d", i-1)}
				if err := builder.Add(name, ec2.RouteTable{VpcId: prev}); err != nil {
					b.Fatal(err)
				}
			}
			if _, err := builder.Build(); err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := builder.topologicalSort(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// mockBuilder creates a VPC with count tagged subnets.
func mockBuilder(b *testing.B, count int) *Builder {
	b.Helper()
	builder := NewBuilder("benchmark")
	if err := builder.Add("VPC", ec2.VPC{CidrBlock: "10.0.0.0/8"}); err != nil {
		b.Fatal(err)
	}
	for i := 0; i < count; i++ {
		err := builder.Add(fmt.Sprintf("Subnet%d", i), ec2.Subnet{
			VpcId:     intrinsics.Ref{LogicalName: "VPC"},
			CidrBlock: fmt.Sprintf("10.%d.%d.0/24", i/256, i%256),
			Tags: []intrinsics.Tag{
				{Key: "Environment", Value: "Test"},
				{Key: "Project", Value: "Benchmark"},
			},
		})
		if err != nil {
			b.Fatal(err)
		}
	}
	return builder
}
