package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caio-sobreiro/dicomcore/dicom"
	dcmerr "github.com/caio-sobreiro/dicomcore/errors"
	"github.com/caio-sobreiro/dicomcore/types"
)

func instance(uid string) *dicom.ParsedInstance {
	ds := dicom.NewDataset()
	ds.SetString(dicom.TagSOPClassUID, types.CTImageStorage)
	ds.SetString(dicom.TagSOPInstanceUID, uid)
	return dicom.NewInstance(ds, types.ExplicitVRLittleEndian)
}

func TestNewRejectsEmptyBudget(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, dcmerr.KindParameterOutOfRange)
}

func TestByteBudget(t *testing.T) {
	c, err := New(100)
	require.NoError(t, err)

	c.Put("a", instance("1"), 40)
	c.Put("b", instance("2"), 40)
	assert.EqualValues(t, 80, c.Size())

	// Touch "a" so that "b" is the oldest
	require.NoError(t, c.Access(t.Context(), "a", nil, func(*dicom.ParsedInstance) error { return nil }))

	c.Put("c", instance("3"), 40)
	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"), "the least recently used entry is evicted")
	assert.True(t, c.Contains("c"))
	assert.EqualValues(t, 80, c.Size())

	c.Put("a", instance("other"), 10)
	err = c.Access(t.Context(), "a", nil, func(inst *dicom.ParsedInstance) error {
		assert.Equal(t, "1", inst.SOPInstanceUID(), "an id keeps its first value")
		return nil
	})
	require.NoError(t, err)
}

func TestLargeSlot(t *testing.T) {
	c, err := New(100)
	require.NoError(t, err)

	c.Put("small", instance("1"), 50)
	c.Put("huge", instance("2"), 500)
	assert.True(t, c.Contains("small"), "a large instance does not flush the LRU")
	assert.True(t, c.Contains("huge"))
	assert.EqualValues(t, 50, c.Size())
	assert.Equal(t, 2, c.Len())

	c.Put("huger", instance("3"), 600)
	assert.False(t, c.Contains("huge"), "the large slot holds one instance")
	assert.True(t, c.Contains("huger"))

	c.Invalidate("huger")
	assert.False(t, c.Contains("huger"))
	assert.Equal(t, 1, c.Len())
}

func TestAccessLoadsOnce(t *testing.T) {
	c, err := New(1000)
	require.NoError(t, err)

	loads := 0
	load := func(ctx context.Context, id string) (*dicom.ParsedInstance, int64, error) {
		loads++
		return instance(id), 10, nil
	}
	for i := 0; i < 3; i++ {
		err := c.Access(t.Context(), "1.2.3", load, func(inst *dicom.ParsedInstance) error {
			assert.Equal(t, "1.2.3", inst.SOPInstanceUID())
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, loads)

	failure := errors.New("storage offline")
	err = c.Access(t.Context(), "4.5.6", func(context.Context, string) (*dicom.ParsedInstance, int64, error) {
		return nil, 0, failure
	}, func(*dicom.ParsedInstance) error { return nil })
	assert.ErrorIs(t, err, failure)
	assert.False(t, c.Contains("4.5.6"))
}

func TestSetMaxBytes(t *testing.T) {
	c, err := New(100)
	require.NoError(t, err)
	c.Put("a", instance("1"), 30)
	c.Put("b", instance("2"), 30)
	c.Put("c", instance("3"), 30)

	require.NoError(t, c.SetMaxBytes(50))
	assert.EqualValues(t, 30, c.Size())
	assert.True(t, c.Contains("c"))
	assert.ErrorIs(t, c.SetMaxBytes(-1), dcmerr.KindParameterOutOfRange)
}
