package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeNotFound, "worksheet Tags").WithCode(404)
	assert.Equal(t, "not_found error (code 404): worksheet Tags", err.Error())

	wrapped := Wrap(ErrorTypeScrape, errors.New("timeout"), "profile alice")
	assert.Equal(t, "scrape error: profile alice: timeout", wrapped.Error())
}

func TestTypeChecksThroughWrapping(t *testing.T) {
	base := New(ErrorTypeRateLimit, "RATE_LIMIT_EXCEEDED")
	err := fmt.Errorf("update range: %w", base)

	assert.True(t, IsThrottle(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, ErrorTypeRateLimit, TypeOf(err))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(errors.New("plain")))

	quota := Wrap(ErrorTypeQuotaExhausted, err, "3 retries")
	assert.True(t, IsQuotaExhausted(quota))
	assert.True(t, errors.Is(quota, base))
}

func TestFromStatusCode(t *testing.T) {
	tests := map[int]ErrorType{
		0:   ErrorTypeNetwork,
		429: ErrorTypeRateLimit,
		403: ErrorTypeAuth,
		404: ErrorTypeNotFound,
		503: ErrorTypeServerError,
		400: ErrorTypeUnknown,
	}
	for code, want := range tests {
		assert.Equal(t, want, FromStatusCode(code), "status %d", code)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeRateLimit))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeQuotaExhausted))
	assert.False(t, IsRetryable(ErrorTypeScrape))
}
