package service

import (
	"errors"
	"fmt"

	"budget-integrity-ledger/internal/core/domain"
	"budget-integrity-ledger/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest checks the struct tags of a service request and reports
// the first failing field as a validation error.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		msg := fmt.Sprintf("failed %q check", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %q check (%s)", fe.Tag(), fe.Param())
		}
		return domain.NewValidationError(fe.Namespace(), msg)
	}
	return apperror.Validation(err.Error())
}

// requirePositive rejects zero and negative amounts.
func requirePositive(field string, amount domain.Money) error {
	if !amount.IsPositive() {
		return domain.NewValidationError(field, fmt.Sprintf("must be positive, got %s", amount))
	}
	return nil
}
