package resilience

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient_Nil(t *testing.T) {
	assert.False(t, IsTransient(nil))
}

func TestIsTransient_TransientErrorInChain(t *testing.T) {
	base := NewTransientError(eris.New("rate limited"), 429)
	wrapped := eris.Wrap(base, "fetch daily history")
	assert.True(t, IsTransient(wrapped))
}

func TestIsTransient_PlainError(t *testing.T) {
	assert.False(t, IsTransient(eris.New("table not found")))
}

func TestIsTransient_NetworkPattern(t *testing.T) {
	assert.True(t, IsTransient(eris.New("read tcp: connection reset by peer")))
	assert.True(t, IsTransient(eris.New("dial tcp: i/o timeout")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 201, 301, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
