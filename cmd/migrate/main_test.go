package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadRoster(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	writeFile(t, path, `
students:
  - id: " S001 "
    name: Alice Smith
    department: CS
    batch: "2025"
  - id: S002
    name: Bob Jones
    email: bob@example.com
`)

	entries, err := loadRoster(path)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "S001", entries[0].ID)
	assert.Equal(t, "2025", entries[0].Batch)
	assert.Equal(t, "bob@example.com", entries[1].Email)
}

func TestLoadRoster_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"duplicate":  "students:\n  - {id: S1, name: A}\n  - {id: S1, name: B}\n",
		"missing id": "students:\n  - {name: A}\n",
		"bad yaml":   "students: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			writeFile(t, path, content)
			_, err := loadRoster(path)
			assert.Error(t, err)
		})
	}

	_, err := loadRoster(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestFindPhoto(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "S1.png"), "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "S2.jpg"), 0755))

	p, err := findPhoto(dir, "S1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "S1.png"), p)

	_, err = findPhoto(dir, "S2")
	assert.Error(t, err, "directories are not photos")

	_, err = findPhoto(dir, "S3")
	assert.Error(t, err)
}
