// Package storagetest provides a conformance suite that every implementation
// of the database storage interface must pass.
package storagetest

import (
	"testing"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/stretchr/testify/require"
)

// Run exercises the storage returned by newStorage. The function is called
// once per sub test and the storage is closed by the suite.
func Run(t *testing.T, newStorage func(t *testing.T) database.Storage) {
	t.Run("get missing key", func(t *testing.T) {
		s := newStorage(t)
		defer s.Close()

		_, err := s.Get([]byte("missing"))
		require.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("insert get remove", func(t *testing.T) {
		s := newStorage(t)
		defer s.Close()

		require.NoError(t, s.Insert([]byte("k1"), []byte("v1")))

		value, err := s.Get([]byte("k1"))
		require.NoError(t, err)
		require.Equal(t, []byte("v1"), value)

		require.NoError(t, s.Remove([]byte("k1")))

		_, err = s.Get([]byte("k1"))
		require.ErrorIs(t, err, database.ErrNotFound)

		require.NoError(t, s.Remove([]byte("k1")), "removing a missing key is not an error")
	})

	t.Run("returned values are copies", func(t *testing.T) {
		s := newStorage(t)
		defer s.Close()

		in := []byte("value")
		require.NoError(t, s.Insert([]byte("k"), in))
		in[0] = 'X'

		value, err := s.Get([]byte("k"))
		require.NoError(t, err)
		require.Equal(t, []byte("value"), value)

		value[0] = 'Y'
		again, err := s.Get([]byte("k"))
		require.NoError(t, err)
		require.Equal(t, []byte("value"), again)
	})

	t.Run("batch write", func(t *testing.T) {
		s := newStorage(t)
		defer s.Close()

		require.NoError(t, s.Insert([]byte("old"), []byte("1")))

		var batch database.Batch
		batch.Put([]byte("a"), []byte("1"))
		batch.Put([]byte("b"), []byte("2"))
		batch.Delete([]byte("old"))
		batch.Put([]byte("c"), []byte("3"))
		batch.Delete([]byte("c"))
		require.Equal(t, 5, batch.Len())

		require.NoError(t, s.Write(&batch))

		for key, exp := range map[string]string{"a": "1", "b": "2"} {
			value, err := s.Get([]byte(key))
			require.NoError(t, err)
			require.Equal(t, exp, string(value))
		}

		for _, key := range []string{"old", "c"} {
			_, err := s.Get([]byte(key))
			require.ErrorIs(t, err, database.ErrNotFound, key)
		}
	})

	t.Run("prefix iteration in key order", func(t *testing.T) {
		s := newStorage(t)
		defer s.Close()

		require.NoError(t, s.Insert([]byte("p/3"), []byte("three")))
		require.NoError(t, s.Insert([]byte("p/1"), []byte("one")))
		require.NoError(t, s.Insert([]byte("q/1"), []byte("other")))
		require.NoError(t, s.Insert([]byte("p/2"), []byte("two")))

		iter := s.ForEach([]byte("p/"))

		var keys, values []string
		for key, value, err := iter.Next(); !iter.Done(); key, value, err = iter.Next() {
			require.NoError(t, err)
			keys = append(keys, string(key))
			values = append(values, string(value))
		}
		require.NoError(t, iter.Release())

		require.Equal(t, []string{"p/1", "p/2", "p/3"}, keys)
		require.Equal(t, []string{"one", "two", "three"}, values)
	})

	t.Run("empty prefix iteration", func(t *testing.T) {
		s := newStorage(t)
		defer s.Close()

		iter := s.ForEach([]byte("none/"))
		_, _, err := iter.Next()
		require.NoError(t, err)
		require.True(t, iter.Done())
		require.NoError(t, iter.Release())
	})

	t.Run("flush", func(t *testing.T) {
		s := newStorage(t)
		defer s.Close()

		require.NoError(t, s.Insert([]byte("k"), []byte("v")))
		require.NoError(t, s.Flush())
	})
}
