package deposit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_MatchesSentinelByKind(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", newError(KindStore, "open wallet store", cause))

	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConnection)
	assert.Equal(t, KindStore, KindOf(err))

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "open wallet store", de.Op)
	assert.Equal(t, "open wallet store: boom", de.Error())
}

func TestError_Messages(t *testing.T) {
	assert.Equal(t, "EmptyWalletError", ErrEmptyWallet.Error())
	assert.Equal(t, "op", (&Error{Kind: KindInput, Op: "op"}).Error())
	assert.Equal(t, "boom", (&Error{Kind: KindInput, Err: errors.New("boom")}).Error())
	assert.Equal(t, "Kind(99)", Kind(99).String())
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestKind_AllNamed(t *testing.T) {
	for k := KindInput; k <= KindMissingIdentifier; k++ {
		assert.NotContains(t, k.String(), "Kind(")
	}
}
