package services

import "errors"

// Sentinel errors returned by the service layer. Controllers map these onto
// response codes with errors.Is; anything else is treated as an internal error.
var (
	ErrValidationFailed    = errors.New("validation failed")
	ErrNotEligible         = errors.New("not eligible to participate")
	ErrAlreadyAudited      = errors.New("submission already audited")
	ErrInsufficientBalance = errors.New("insufficient points balance")
	ErrOutOfStock          = errors.New("product out of stock")
	ErrConflict            = errors.New("concurrent update conflict")
	ErrAllocationExhausted = errors.New("invite code allocation exhausted")
	ErrNotFound            = errors.New("record not found")
)
