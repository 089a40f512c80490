package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

// AWS_STACK_NAME is the pseudo-parameter holding the name of the stack.
var AWS_STACK_NAME = intrinsics.AWS_STACK_NAME
