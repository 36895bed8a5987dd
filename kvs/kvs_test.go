package kvs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relio-db/graphkv/kvs"
)

func openTestConn(t *testing.T) *kvs.Connection {
	t.Helper()
	conn, err := kvs.Open(kvs.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestCursorSeekLandsOnMatch(t *testing.T) {
	conn := openTestConn(t)
	tbl, err := conn.CreateTable("t")
	require.NoError(t, err)

	require.NoError(t, conn.Mutate(func(tx *kvs.WriteTxn) error {
		for _, id := range []uint32{1, 3, 5, 7} {
			if err := tx.Set(kvs.WithPrefix(tbl.KeyPrefix(), kvs.EncodeID(id)), []byte("v")); err != nil {
				return err
			}
		}
		return nil
	}))

	s := conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(tbl.KeyPrefix())
	defer cur.Close()

	cur.Seek(kvs.EncodeID(3))
	require.True(t, cur.Next())
	assert.Equal(t, uint32(3), kvs.DecodeID(cur.Key()))

	require.True(t, cur.Next())
	assert.Equal(t, uint32(5), kvs.DecodeID(cur.Key()))
}

func TestCursorSeekToAbsentKeyLandsOnNext(t *testing.T) {
	conn := openTestConn(t)
	tbl, err := conn.CreateTable("t")
	require.NoError(t, err)

	require.NoError(t, conn.Mutate(func(tx *kvs.WriteTxn) error {
		return tx.Set(kvs.WithPrefix(tbl.KeyPrefix(), kvs.EncodeID(5)), []byte("v"))
	}))

	s := conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(tbl.KeyPrefix())
	defer cur.Close()

	cur.Seek(kvs.EncodeID(3))
	require.True(t, cur.Next())
	assert.Equal(t, uint32(5), kvs.DecodeID(cur.Key()))
}

func TestCursorResetRewindsToStart(t *testing.T) {
	conn := openTestConn(t)
	tbl, err := conn.CreateTable("t")
	require.NoError(t, err)

	require.NoError(t, conn.Mutate(func(tx *kvs.WriteTxn) error {
		for _, id := range []uint32{1, 2, 3} {
			if err := tx.Set(kvs.WithPrefix(tbl.KeyPrefix(), kvs.EncodeID(id)), []byte("v")); err != nil {
				return err
			}
		}
		return nil
	}))

	s := conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(tbl.KeyPrefix())
	defer cur.Close()

	var first []uint32
	for cur.Next() {
		first = append(first, kvs.DecodeID(cur.Key()))
	}
	assert.Equal(t, []uint32{1, 2, 3}, first)

	cur.Reset()
	var second []uint32
	for cur.Next() {
		second = append(second, kvs.DecodeID(cur.Key()))
	}
	assert.Equal(t, first, second)
}

func TestCreateIndexAndDropIndexBusyWhileCursorOpen(t *testing.T) {
	conn := openTestConn(t)
	ix, err := conn.CreateIndex("ix")
	require.NoError(t, err)

	s := conn.NewSession()
	defer s.Close()
	cur := s.OpenCursor(ix.KeyPrefix())

	err = conn.DropIndex(ix)
	assert.ErrorIs(t, err, kvs.ErrBusy)

	cur.Close()
	assert.NoError(t, conn.DropIndex(ix))
}

func TestScanPrefixStripsNamespacePrefix(t *testing.T) {
	conn := openTestConn(t)
	tbl, err := conn.CreateTable("t")
	require.NoError(t, err)

	require.NoError(t, conn.Mutate(func(tx *kvs.WriteTxn) error {
		return tx.Set(kvs.WithPrefix(tbl.KeyPrefix(), kvs.EncodeID(42)), []byte("v"))
	}))

	var gotID uint32
	err = conn.Mutate(func(tx *kvs.WriteTxn) error {
		return tx.ScanPrefix(tbl.KeyPrefix(), func(key, _ []byte) error {
			gotID = kvs.DecodeID(key)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(42), gotID)
}

func TestSessionGetAndHas(t *testing.T) {
	conn := openTestConn(t)
	tbl, err := conn.CreateTable("t")
	require.NoError(t, err)
	key := kvs.WithPrefix(tbl.KeyPrefix(), kvs.EncodeID(1))

	require.NoError(t, conn.Mutate(func(tx *kvs.WriteTxn) error {
		return tx.Set(key, []byte("hello"))
	}))

	s := conn.NewSession()
	defer s.Close()

	has, err := s.Has(key)
	require.NoError(t, err)
	assert.True(t, has)

	val, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(val))

	missing := kvs.WithPrefix(tbl.KeyPrefix(), kvs.EncodeID(2))
	has, err = s.Has(missing)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = s.Get(missing)
	assert.ErrorIs(t, err, kvs.ErrKeyNotFound)
}
