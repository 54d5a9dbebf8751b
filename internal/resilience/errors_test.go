package resilience

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(eris.New("http 404 from somewhere")))
	assert.True(t, IsTransient(NewTransientError(eris.New("http 429"), 429)))
	assert.True(t, IsTransient(eris.Wrap(NewTransientError(eris.New("http 503"), 503), "outer")))
	assert.True(t, IsTransient(eris.New("read tcp: i/o timeout")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{403, 408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 404, 410} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}
