package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without detail",
			err:  &AppError{Code: CodeRuleInvalidPattern, Message: "unparseable SMIRKS"},
			want: "[RUL_001] unparseable SMIRKS",
		},
		{
			name: "with detail",
			err:  &AppError{Code: CodeModelMissing, Message: "no model", Detail: "subset=hydroxylation"},
			want: "[SCR_001] no model: subset=hydroxylation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := Wrap(cause, CodeRuleTableRead, "failed to read rule table")

	require.NotNil(t, err)
	assert.Equal(t, CodeRuleTableRead, err.Code)
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "should vanish"))
}

func TestWrap_PreservesCodeOnUnknown(t *testing.T) {
	inner := New(CodeMoleculeParseFailed, "bad SMILES")
	outer := Wrap(inner, CodeUnknown, "while loading input")

	assert.Equal(t, CodeMoleculeParseFailed, outer.Code)
}

func TestIsCode(t *testing.T) {
	inner := New(CodeModelMissing, "no model for subset")
	wrapped := fmt.Errorf("scoring: %w", inner)

	assert.True(t, IsCode(wrapped, CodeModelMissing))
	assert.False(t, IsCode(wrapped, CodeModelLoadFailed))
	assert.False(t, IsCode(nil, CodeModelMissing))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(fmt.Errorf("plain")))
	assert.Equal(t, CodeConfiguration, GetCode(Configuration("bad config")))
}

func TestWithDetail(t *testing.T) {
	base := New(CodeRuleInvalidPriority, "unknown priority")
	detailed := base.WithDetail("priority=sometimes")

	assert.Empty(t, base.Detail, "receiver must not be mutated")
	assert.Equal(t, "priority=sometimes", detailed.Detail)

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("x"))
}

func TestIsConfiguration(t *testing.T) {
	assert.True(t, IsConfiguration(CodeRuleInvalidPattern))
	assert.True(t, IsConfiguration(CodeModelLoadFailed))
	assert.False(t, IsConfiguration(CodeMoleculeParseFailed))
}

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, 400, HTTPStatusForCode(CodeMoleculeParseFailed))
	assert.Equal(t, 500, HTTPStatusForCode(ErrorCode("NOPE_999")))
}
