package api

import (
	"errors"

	"github.com/samcharles93/tunesmith/internal/composer"
	"github.com/samcharles93/tunesmith/internal/generate"
	"github.com/samcharles93/tunesmith/internal/logits"
	"github.com/samcharles93/tunesmith/internal/vocab"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// clientErrors are caused by request parameters rather than the server.
// Degenerate scores and undecodable indices come from the model and stay 500.
var clientErrors = []error{
	ErrInvalidRequest,
	vocab.ErrUnknownSymbol,
	logits.ErrInvalidTemperature,
	generate.ErrInvalidLength,
	generate.ErrEmptySeed,
	composer.ErrLengthLimit,
	composer.ErrTemperatureLimit,
}

func isClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
