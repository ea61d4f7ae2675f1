package memory_test

import (
	"testing"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) database.Storage {
		s, err := memory.New()
		require.NoError(t, err)
		return s
	})
}

func TestClosed(t *testing.T) {
	s, err := memory.New()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get([]byte("k"))
	require.ErrorIs(t, err, memory.ErrClosed)
	require.ErrorIs(t, s.Insert([]byte("k"), []byte("v")), memory.ErrClosed)
	require.ErrorIs(t, s.Write(&database.Batch{}), memory.ErrClosed)
}
