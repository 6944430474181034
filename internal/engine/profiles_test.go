package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyLevel(t *testing.T) {
	var o Options
	o.Level = 1
	ApplyLevel(&o)
	assert.True(t, o.ObfuscateNames)
	assert.False(t, o.ObfuscateStrings)

	o = Options{Level: 2}
	ApplyLevel(&o)
	assert.True(t, o.ObfuscateNames)
	assert.True(t, o.ObfuscateStrings)
	assert.True(t, o.ObfuscateNumbers)
	assert.False(t, o.FlattenControlFlow)

	o = Options{Level: 3}
	ApplyLevel(&o)
	assert.True(t, o.FlattenControlFlow)
	assert.True(t, o.InsertDeadCode)
	assert.True(t, o.RewriteImports)
}

func TestResolvePresetProfile(t *testing.T) {
	o := Options{Profile: "stealth", InputFile: "in.py", OutputFile: "out.py"}
	require.NoError(t, ResolveProfile(&o))
	assert.True(t, o.StringEncryption)
	assert.True(t, o.FlattenControlFlow)
	assert.False(t, o.InsertDeadCode)
	// Paths survive the merge.
	assert.Equal(t, "in.py", o.InputFile)
	assert.Equal(t, "out.py", o.OutputFile)
}

func TestResolveUnknownProfile(t *testing.T) {
	o := Options{Profile: "no-such-profile"}
	err := ResolveProfile(&o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-profile")
}

func TestResolveProfileFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	data := "level: 2\nobfuscate_names: true\nstring_encryption: true\nseed: 1234\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	o := Options{Profile: path}
	require.NoError(t, ResolveProfile(&o))
	assert.True(t, o.ObfuscateNames)
	assert.True(t, o.StringEncryption)
	assert.Equal(t, int64(1234), o.Seed)
	assert.True(t, o.Seeded)
}

func TestLoadProfileFileRejectsBadLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("level: 9\n"), 0o644))
	_, err := LoadProfileFile(path)
	require.Error(t, err)
}

func TestProfileNamesSorted(t *testing.T) {
	assert.Equal(t, []string{"aggressive", "light", "standard", "stealth"}, ProfileNames())
}
