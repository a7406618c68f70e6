package solana

import "github.com/go-playground/validator/v10"

// AddressTag is the struct validation tag for base58 public keys.
const AddressTag = "base58addr"

// ValidateAddressField is a validator.Func accepting base58 32-byte keys.
// Empty strings pass so the tag composes with omitempty and required.
func ValidateAddressField(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return v == "" || ValidateAddress(v) == nil
}

// RegisterValidators installs the address tag on v.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation(AddressTag, ValidateAddressField)
}
