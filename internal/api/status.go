package api

import (
	"errors"
	"net/http"

	"StudentIntro/internal/ledger"
	"StudentIntro/internal/program"
	"StudentIntro/internal/tx"
)

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tx.ErrMalformed),
		errors.Is(err, tx.ErrBadHash),
		errors.Is(err, tx.ErrBadSignature),
		errors.Is(err, program.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, program.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, program.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, program.ErrAlreadyExists),
		errors.Is(err, program.ErrAlreadyInitialized),
		errors.Is(err, ledger.ErrAlreadyProcessed):
		return http.StatusConflict
	case errors.Is(err, program.ErrMintNotInitialized):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
