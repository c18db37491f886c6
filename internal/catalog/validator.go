package catalog

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tosit-io/tdp/internal/depmodel"
	tdperrors "github.com/tosit-io/tdp/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

// validatorInstance returns the package-wide validator, registering the
// operation_name tag exactly once.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("operation_name", func(fl validator.FieldLevel) bool {
			_, _, _, err := depmodel.ParseOperationName(fl.Field().String())
			return err == nil
		})
		validateInst = v
	})
	return validateInst
}

func convertValidationError(path string, err error) error {
	if err == nil {
		return nil
	}
	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := fieldName(ve)
		msg := fmt.Sprintf("%s: %s failed validation for tag %q", path, field, ve.Tag())
		return tdperrors.NewValidationError(field, msg, err)
	}
	return tdperrors.NewValidationError(path, err.Error(), err)
}

func fieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}
