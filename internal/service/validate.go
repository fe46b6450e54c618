package service

import (
	"errors"
	"fmt"

	"walletdash/pkg/apperror"

	"github.com/go-playground/validator/v10"
)

var fieldMessages = map[string]string{
	"ReceiverEmail.required":         "Receiver email is required",
	"ReceiverEmail.email":            "Receiver email is not a valid address",
	"ReceiverPaymentMethod.required": "Choose a destination wallet",
	"Amount.gt":                      "Amount must be a positive number",
	"ProductID.required":             "Product is required",
	"Quantity.gte":                   "Quantity must be at least 1",
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validateInput runs struct tags and returns the first failure as a
// validation error with a user-facing message.
func validateInput(v *validator.Validate, in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Validation(err.Error())
	}
	fe := verrs[0]
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return apperror.Validation(msg)
	}
	return apperror.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
}
