package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corestore/reldb/internal/rowcodec"
)

func TestInsertFindDelete(t *testing.T) {
	ix := New("idx_t_id", "t", "id", false)
	k1 := NewKey(rowcodec.Int32(1))

	require.NoError(t, ix.Insert(k1, 100))
	require.NoError(t, ix.Insert(k1, 101))

	set := ix.Find(k1)
	assert.Len(t, set, 2)
	assert.Contains(t, set, uint64(100))
	assert.Contains(t, set, uint64(101))
	assert.True(t, ix.ContainsKey(k1))

	ix.Delete(k1, 100)
	set = ix.Find(k1)
	assert.Len(t, set, 1)
	assert.Contains(t, set, uint64(101))

	ix.Delete(k1, 101)
	assert.False(t, ix.ContainsKey(k1), "bucket should be purged once empty")
}

func TestUniqueIndexRejectsDuplicateKey(t *testing.T) {
	ix := New("pk_t_id", "t", "id", true)
	k := NewKey(rowcodec.Int32(1))

	require.NoError(t, ix.Insert(k, 1))
	err := ix.Insert(k, 2)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestUpdateMovesRowID(t *testing.T) {
	ix := New("idx_t_id", "t", "id", false)
	oldKey := NewKey(rowcodec.Int32(1))
	newKey := NewKey(rowcodec.Int32(2))

	require.NoError(t, ix.Insert(oldKey, 1))
	require.NoError(t, ix.Update(oldKey, newKey, 1))

	assert.False(t, ix.ContainsKey(oldKey))
	assert.Contains(t, ix.Find(newKey), uint64(1))
}

func TestFindRangeInclusiveBothEnds(t *testing.T) {
	ix := New("idx_t_id", "t", "id", false)
	for i := int32(1); i <= 5; i++ {
		require.NoError(t, ix.Insert(NewKey(rowcodec.Int32(i)), uint64(i)))
	}

	set := ix.FindRange(NewKey(rowcodec.Int32(2)), NewKey(rowcodec.Int32(4)))
	assert.Len(t, set, 3)
	assert.Contains(t, set, uint64(2))
	assert.Contains(t, set, uint64(3))
	assert.Contains(t, set, uint64(4))
}

func TestFindGreaterAndLessThan(t *testing.T) {
	ix := New("idx_t_id", "t", "id", false)
	for i := int32(1); i <= 5; i++ {
		require.NoError(t, ix.Insert(NewKey(rowcodec.Int32(i)), uint64(i)))
	}

	gt := ix.FindGreaterThan(NewKey(rowcodec.Int32(3)), false)
	assert.Len(t, gt, 2)

	gte := ix.FindGreaterThan(NewKey(rowcodec.Int32(3)), true)
	assert.Len(t, gte, 3)

	lt := ix.FindLessThan(NewKey(rowcodec.Int32(3)), false)
	assert.Len(t, lt, 2)

	lte := ix.FindLessThan(NewKey(rowcodec.Int32(3)), true)
	assert.Len(t, lte, 3)
}

func TestClearAndCounts(t *testing.T) {
	ix := New("idx_t_id", "t", "id", false)
	require.NoError(t, ix.Insert(NewKey(rowcodec.Int32(1)), 1))
	require.NoError(t, ix.Insert(NewKey(rowcodec.Int32(1)), 2))
	require.NoError(t, ix.Insert(NewKey(rowcodec.Int32(2)), 3))

	assert.Equal(t, 2, ix.KeyCount())
	assert.Equal(t, 3, ix.EntryCount())

	ix.Clear()
	assert.Equal(t, 0, ix.KeyCount())
	assert.Equal(t, 0, ix.EntryCount())
}

func TestStatsCounters(t *testing.T) {
	ix := New("idx_t_id", "t", "id", false)
	k := NewKey(rowcodec.Int32(1))
	require.NoError(t, ix.Insert(k, 1))
	ix.Find(k)
	ix.FindRange(k, k)

	st := ix.Stats()
	assert.Equal(t, uint64(1), st.InsertCount)
	assert.Equal(t, uint64(1), st.LookupCount)
	assert.Equal(t, uint64(1), st.RangeCount)
	assert.Equal(t, 1, st.KeyCount)
	assert.Equal(t, 1, st.EntryCount)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ix := New("idx_t_name", "t", "name", true)
	require.NoError(t, ix.Insert(NewKey(rowcodec.String("alice")), 1))
	require.NoError(t, ix.Insert(NewKey(rowcodec.String("bob")), 2))
	require.NoError(t, ix.Insert(NewKey(rowcodec.Null), 3))
	ix.Find(NewKey(rowcodec.String("alice")))

	path := filepath.Join(t.TempDir(), "idx_t_name.idx")
	require.NoError(t, ix.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ix.IndexName, loaded.IndexName)
	assert.Equal(t, ix.TableName, loaded.TableName)
	assert.Equal(t, ix.ColumnName, loaded.ColumnName)
	assert.Equal(t, ix.Unique, loaded.Unique)
	assert.Equal(t, ix.Stats(), loaded.Stats())

	assert.Equal(t, ix.Find(NewKey(rowcodec.String("alice"))), loaded.Find(NewKey(rowcodec.String("alice"))))
	assert.Equal(t, ix.Find(NewKey(rowcodec.String("bob"))), loaded.Find(NewKey(rowcodec.String("bob"))))
	assert.Equal(t, ix.Find(NewKey(rowcodec.Null)), loaded.Find(NewKey(rowcodec.Null)))
}
