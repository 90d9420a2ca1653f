package directory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	dir := Directory{"12345": "John Doe", "67890": "Jane Smith", "00042": "Pat Lee"}

	assert.Equal(t, "John Doe", dir.Name("12345"))
	assert.Equal(t, "Unknown (ID: 99999)", dir.Name("99999"))
	assert.Equal(t, "Unknown (ID: )", dir.Name(""))
	assert.Equal(t, "Unknown (ID: 12345)", Directory{}.Name("12345"))
	assert.Equal(t, "Pat Lee", dir.Name("00042"))
}

func TestIsUnknown(t *testing.T) {
	assert.True(t, IsUnknown(""))
	assert.True(t, IsUnknown("  "))
	assert.True(t, IsUnknown("Unknown (ID: 5)"))
	assert.True(t, IsUnknown("Unknown"))
	assert.False(t, IsUnknown("Jane Smith"))
}

func TestLoad(t *testing.T) {
	input := "loyalty_id,first,last\n00042,Pat,Lee\n12345,John,Doe\n,No,Id\n555,,\n"
	dir, err := Load(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, dir, 2)
	assert.Equal(t, "Pat Lee", dir["00042"], "ids stay strings")
	name, ok := dir.Lookup("12345")
	assert.True(t, ok)
	assert.Equal(t, "John Doe", name)
}

func TestLoad_AlternateHeaders(t *testing.T) {
	input := "Employee ID,First Name,Last Name\n7,Ana,Ruiz\n"
	dir, err := Load(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", dir["7"])
}

func TestLoad_Unreadable(t *testing.T) {
	_, err := Load(context.Background(), strings.NewReader("loyalty_id,first\n\"a\"b,c\n"))
	assert.Error(t, err)
}

func TestCache_PopulatesOnce(t *testing.T) {
	var loads atomic.Int32
	c := NewCache()
	load := func(context.Context) (Directory, error) {
		loads.Add(1)
		return Directory{"1": "A"}, nil
	}

	for range 3 {
		dir, err := c.GetOrPopulate(context.Background(), load)
		require.NoError(t, err)
		assert.Equal(t, "A", dir["1"])
	}
	assert.Equal(t, int32(1), loads.Load())
}

func TestCache_ConcurrentCallersShareLoad(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	c := NewCache()
	load := func(context.Context) (Directory, error) {
		loads.Add(1)
		<-release
		return Directory{"1": "A"}, nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrPopulate(context.Background(), load)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), loads.Load())
}

func TestCache_TTLAndClock(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	c := NewCache(WithTTL(time.Hour), WithClock(func() time.Time { return now }))

	var loads int
	load := func(context.Context) (Directory, error) {
		loads++
		return Directory{"1": "A"}, nil
	}

	_, err := c.GetOrPopulate(context.Background(), load)
	require.NoError(t, err)
	now = now.Add(30 * time.Minute)
	_, _ = c.GetOrPopulate(context.Background(), load)
	assert.Equal(t, 1, loads)

	now = now.Add(31 * time.Minute)
	_, _ = c.GetOrPopulate(context.Background(), load)
	assert.Equal(t, 2, loads)
}

func TestCache_InvalidateAndErrors(t *testing.T) {
	c := NewCache()
	_, err := c.GetOrPopulate(context.Background(), func(context.Context) (Directory, error) {
		return nil, errors.New("bucket down")
	})
	require.Error(t, err)

	dir, err := c.GetOrPopulate(context.Background(), func(context.Context) (Directory, error) {
		return Directory{"1": "A"}, nil
	})
	require.NoError(t, err)
	assert.Len(t, dir, 1)

	c.Invalidate()
	dir, err = c.GetOrPopulate(context.Background(), func(context.Context) (Directory, error) {
		return Directory{"2": "B"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "B", dir["2"])
}
