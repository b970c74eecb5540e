package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestErrorMatchesSentinelByCode(t *testing.T) {
	err := New(CacheInvalid, "last sync 2020-01-01")
	assert.True(t, errors.Is(err, ErrCacheInvalid))
	assert.False(t, errors.Is(err, ErrHeadersInvalid))
}

func TestErrorMessageIncludesDetail(t *testing.T) {
	err := New(WorksheetNotFound, `worksheet "Ledger" not found`)
	assert.Contains(t, err.Error(), Message(WorksheetNotFound))
	assert.Contains(t, err.Error(), `worksheet "Ledger" not found`)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ServiceUnavailable, cause, "fetching grid size")

	assert.True(t, errors.Is(err, ErrServiceUnavailable))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestMatchesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("fetch: %w", Err(NotAuthenticated))
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestUnknownCodeMessage(t *testing.T) {
	assert.Equal(t, Message(Unknown), Message(Code(9999)))
}
