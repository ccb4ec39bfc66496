package tags

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"profilesync/pkg/logger"
	"profilesync/pkg/table/memtable"
)

var labels = Labels{
	DisplayNames:  map[string]string{"Followers": "⭐ Followers", "Bookmark": "📖 Bookmark"},
	DefaultPrefix: "🔌 ",
}

func TestBuildIndex(t *testing.T) {
	mem := memtable.New()
	mem.AddWorksheet("Tags",
		[]string{"Followers", "", "Bookmark", "VIP"},
		[]string{"alice", "ignored", "bob", "alice"},
		[]string{" bob ", "", "alice"},
		[]string{"", "", "", "alice"},
	)

	idx := Build(context.Background(), mem, "Tags", labels, logger.NewNopLogger())

	assert.Equal(t, []string{"⭐ Followers", "📖 Bookmark", "🔌 VIP"}, idx.Lookup("alice"))
	assert.Equal(t, "⭐ Followers, 📖 Bookmark", idx.Tags("bob"))
	assert.Empty(t, idx.Tags("ignored"))
	assert.Empty(t, idx.Tags("nobody"))
	assert.Equal(t, 2, idx.Len())
}

func TestBuildDegradesToEmpty(t *testing.T) {
	tl := logger.NewTestLogger()

	idx := Build(context.Background(), memtable.New(), "Tags", labels, tl)
	assert.Equal(t, 0, idx.Len())
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)

	mem := memtable.New()
	mem.AddWorksheet("Tags", []string{"Followers"}, []string{"alice"})
	mem.FailNext("ReadAllRows", errors.New("quota"))
	idx = Build(context.Background(), mem, "Tags", labels, tl)
	assert.Equal(t, 0, idx.Len())
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 2)

	assert.Equal(t, 0, Build(context.Background(), mem, "", labels, tl).Len())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "⭐ Followers", labels.Label("Followers"))
	assert.Equal(t, "🔌 Friends", labels.Label("Friends"))
	assert.Equal(t, "Friends", Labels{}.Label("Friends"))
}
