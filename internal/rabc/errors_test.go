package rabc

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesSentinelByKind(t *testing.T) {
	err := newError(KindExceededIpcMaxSize, nil, "too big")
	require.ErrorIs(t, err, ErrExceededIpcMaxSize)
	require.NotErrorIs(t, err, ErrBug)

	wrapped := fmt.Errorf("send: %w", err)
	require.ErrorIs(t, wrapped, ErrExceededIpcMaxSize)
	require.Equal(t, KindExceededIpcMaxSize, KindOf(wrapped))
}

func TestErrorUnwrapsCause(t *testing.T) {
	err := newError(KindIpcConnectionError, io.EOF, "failed to receive data size")
	require.ErrorIs(t, err, io.EOF)
	require.ErrorIs(t, err, ErrIpcConnection)
	require.Equal(t, "IpcConnectionError: failed to receive data size: EOF", err.Error())
}

func TestErrorPair(t *testing.T) {
	kind, msg := newError(KindInvalidArgument, errors.New("no such file"), "failed to connect socket %s", "/x").Pair()
	require.Equal(t, "InvalidArgument", kind)
	require.Equal(t, "failed to connect socket /x: no such file", msg)

	kind, msg = ErrorPair(nil)
	require.Empty(t, kind)
	require.Empty(t, msg)

	kind, msg = ErrorPair(errors.New("plain"))
	require.Equal(t, "Bug", kind)
	require.Equal(t, "plain", msg)
}

func TestKindOfForeignErrorIsBug(t *testing.T) {
	require.Equal(t, KindBug, KindOf(errors.New("x")))
	require.Equal(t, "Kind(42)", Kind(42).String())
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "error: %v", err)
}
