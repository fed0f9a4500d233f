package platform

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewName_PrefixAndLength(t *testing.T) {
	name := NewName("bk-")
	assert.Len(t, name, len("bk-")+shortIDLength)
	assert.Equal(t, "bk-", name[:3])
}

func TestNewTimeOrderedID_SortsByTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ids := []string{
		NewTimeOrderedID("bk", base.Add(2*time.Hour)),
		NewTimeOrderedID("bk", base),
		NewTimeOrderedID("bk", base.Add(time.Hour)),
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	assert.Equal(t, []string{ids[1], ids[2], ids[0]}, sorted)
}
