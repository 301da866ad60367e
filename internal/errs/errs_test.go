package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain error is internal", base, KindInternal},
		{"validation", New(KindValidation, "quantity must be positive"), KindValidation},
		{"wrapped by fmt", fmt.Errorf("commit: %w", New(KindNotFound, "stock missing")), KindNotFound},
		{"transient helper", Transient(base, "list sets"), KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestTransientKeepsExistingKind(t *testing.T) {
	nf := New(KindNotFound, "card not found")
	assert.Same(t, nf, Transient(nf, "ignored"))
	assert.Nil(t, Transient(nil, "nothing"))
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	base := errors.New("timeout")
	err := Wrap(KindTransient, base, "list libraries")

	assert.Equal(t, "list libraries: timeout", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "timeout", Wrap(KindTransient, base, "").Error())
}

func TestMetadataFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, MetadataFor(KindValidation).HTTPStatus)
	assert.Equal(t, http.StatusMultiStatus, MetadataFor(KindPartial).HTTPStatus)
	assert.True(t, MetadataFor(KindTransient).Retryable)
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Kind("bogus")).HTTPStatus)
}
