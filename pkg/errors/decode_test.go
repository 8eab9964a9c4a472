package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("reading frame: %w", NewDecodeError(Truncated, "BinaryCodec", "payload", "need 4 bytes"))

	assert.True(t, stderrors.Is(err, &DecodeError{Kind: Truncated}))
	assert.False(t, stderrors.Is(err, &DecodeError{Kind: UnknownTag}))

	var decodeErr *DecodeError
	if assert.True(t, stderrors.As(err, &decodeErr)) {
		assert.Equal(t, "payload", decodeErr.Field)
		assert.Equal(t, TruncatedErrCode, decodeErr.Code())
		assert.Equal(t, "BinaryCodec", decodeErr.Caller())
		assert.False(t, decodeErr.Fatal())
	}
}

func TestDecodeErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *DecodeError
		want string
	}{
		{"with field", NewDecodeError(InvalidField, "c", "nanos", "out of range"), "invalid_field: nanos: out of range"},
		{"without field", NewDecodeError(UnknownTag, "c", "", "tag 9"), "unknown_tag: tag 9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestGenericErrorConstructors(t *testing.T) {
	assert.True(t, FatalError(409, "dup", "x").Fatal())
	assert.False(t, NonFatalError(500, "dial", "x").Fatal())
	assert.True(t, TemporaryError(503, "busy", "x").Temporary())
	assert.Equal(t, "[x] 500: dial", NonFatalError(500, "dial", "x").Error())
}
