package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByKind(t *testing.T) {
	errProtocolNotFound := NotFound("Protokoll nicht gefunden")
	wrapped := fmt.Errorf("load protocol 7: %w", errProtocolNotFound)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.True(t, errors.Is(wrapped, errProtocolNotFound))
	assert.False(t, errors.Is(wrapped, ErrForbidden))
	assert.False(t, errors.Is(errors.New("plain"), ErrNotFound))
}

func TestKindOfAndMessage(t *testing.T) {
	err := fmt.Errorf("outer: %w", Locked("gesperrt"))

	assert.Equal(t, KindLocked, KindOf(err))
	assert.Equal(t, "gesperrt", Message(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("x")))
	assert.Equal(t, "", Message(errors.New("x")))
}
