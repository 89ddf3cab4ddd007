// internal/common/utils/validator.go
// Shared request validation

package utils

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct validates a struct using its validate tags
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
