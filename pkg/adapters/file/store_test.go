package file_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/weft/pkg/adapters/file"
	"github.com/aretw0/weft/pkg/domain"
	"github.com/aretw0/weft/pkg/ports"
	contract "github.com/aretw0/weft/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.DefinitionStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	contract.RunDefinitionStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "not-yet"))
	keys, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileStore_AtomicSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Save(ctx, "counter", contract.Definition(t, "counter", i)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "counter.json", entries[0].Name())
}

func TestFileStore_DetectsCorruption(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()
	def := contract.Definition(t, "counter", 1)
	require.NoError(t, store.Save(ctx, "counter", def))

	raw, err := os.ReadFile(store.Path("counter"))
	require.NoError(t, err)
	tampered := strings.Replace(string(raw), `"Variable":"count"`, `"Variable":"other"`, 1)
	require.NotEqual(t, string(raw), tampered, "fixture must contain the variable option")
	require.NoError(t, os.WriteFile(store.Path("counter"), []byte(tampered), 0o644))

	_, err = store.Load(ctx, "counter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
	assert.NotErrorIs(t, err, domain.ErrDefinitionNotFound)
}

func TestFileStore_RejectsBadKeys(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()
	def := contract.Definition(t, "counter", 1)

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, store.Save(ctx, key, def), "key %q", key)
		_, err := store.Load(ctx, key)
		assert.Error(t, err, "key %q", key)
	}
}
