package sequence

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError_Error(t *testing.T) {
	err := NewMethodError("shuffled")
	assert.Equal(t, `INVALID_METHOD: unsupported ordering method "shuffled"`, err.Error())
}

func TestIsConfigError_Wrapped(t *testing.T) {
	err := fmt.Errorf("build ordering: %w", NewCountError("repeats", -2))
	assert.True(t, IsConfigError(err))
	assert.False(t, IsConfigError(fmt.Errorf("plain")))
}

func TestNewCountError_Details(t *testing.T) {
	err := NewCountError("stimCount", -1)
	assert.Equal(t, ErrCodeInvalidCount, err.Code)
	assert.Equal(t, "-1", err.Details["stimCount"])
}
