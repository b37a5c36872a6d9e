package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"not found", NotFoundf("system %s", "Alpha"), ErrorTypeNotFound},
		{"resolution", Resolutionf("no celestials in %s", "Alpha"), ErrorTypeResolution},
		{"malformed", MalformedTemplatef("bad range %q", "5>1"), ErrorTypeMalformedTemplate},
		{"wrapped by fmt", fmt.Errorf("failed to build: %w", Forbidden("nope")), ErrorTypeForbidden},
		{"plain", stderrors.New("boom"), ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetType(tt.err))
		})
	}
}

func TestIsWalksNestedAppErrors(t *testing.T) {
	inner := MalformedTemplatef("missing field name")
	outer := WrapInternal("failed to load world", inner)

	assert.Equal(t, ErrorTypeInternal, GetType(outer))
	assert.True(t, Is(outer, ErrorTypeMalformedTemplate))
	assert.False(t, Is(outer, ErrorTypeResolution))
	assert.False(t, Is(nil, ErrorTypeInternal))
}

func TestJoinedContentErrors(t *testing.T) {
	err := stderrors.Join(
		MalformedTemplatef("anchor %q not found", "Nowhere"),
		MalformedTemplatef("anchor %q not found", "Elsewhere"),
	)
	assert.True(t, Is(err, ErrorTypeMalformedTemplate))
	assert.Contains(t, err.Error(), "Elsewhere")
}
