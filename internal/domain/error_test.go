package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, EINVALID, ErrorCode(Invalid("pricing.quote", "bad width")))
	assert.Equal(t, EINTERNAL, ErrorCode(errors.New("plain error")))

	wrapped := WrapError(errors.New("dial tcp: timeout"), EUNAVAILABLE, "courier.create", "courier unreachable")
	assert.Equal(t, EUNAVAILABLE, ErrorCode(wrapped))
	assert.True(t, Retryable(wrapped))
	assert.False(t, Retryable(Invalid("courier.create", "bad county")))
}

func TestErrorMessageHidesInternal(t *testing.T) {
	err := Internal(errors.New("pq: connection refused"), "order.create", "failed to save order")
	assert.NotContains(t, ErrorMessage(err), "pq:")

	assert.Equal(t, "bad width", ErrorMessage(Invalid("", "bad width")))
}

func TestValidationErrorFields(t *testing.T) {
	err := NewValidationError("pricing.quote", "widthCm", "must be positive")
	err = AddFieldError(err, "heightCm", "must be positive")

	assert.True(t, IsValidationError(err))
	fields := GetValidationFields(err)
	assert.Len(t, fields, 2)
	assert.Equal(t, "must be positive", fields["widthCm"])

	assert.Nil(t, GetValidationFields(errors.New("nope")))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, WrapError(nil, EINTERNAL, "op", "msg"))
}
