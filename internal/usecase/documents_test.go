package usecase_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solislegal/leadbot/internal/domain"
	"github.com/solislegal/leadbot/internal/usecase"
)

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestDocuments_List(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "power-of-attorney.txt", "POWER OF ATTORNEY\n...")
	writeDoc(t, dir, "claim.html", "<html><body>claim form</body></html>")
	writeDoc(t, dir, ".hidden", "skip me")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	docs, err := usecase.DocumentsService{Dir: dir}.List()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "claim.html", docs[0].Name)
	assert.Contains(t, docs[0].MIME, "text/html")
	assert.Equal(t, "power-of-attorney.txt", docs[1].Name)
	assert.Positive(t, docs[1].Size)
}

func TestDocuments_ListMissingDir(t *testing.T) {
	docs, err := usecase.DocumentsService{Dir: filepath.Join(t.TempDir(), "absent")}.List()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocuments_Resolve(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "claim.txt", "claim form body")

	path, mime, err := usecase.DocumentsService{Dir: dir}.Resolve("claim.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "claim.txt"), path)
	assert.Contains(t, mime, "text/plain")
}

func TestDocuments_ResolveRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "claim.txt", "body")

	for _, name := range []string{"../claim.txt", "sub/claim.txt", "..", ".env", ""} {
		_, _, err := usecase.DocumentsService{Dir: dir}.Resolve(name)
		assert.ErrorIs(t, err, domain.ErrNotFound, name)
	}
}

func TestDocuments_ResolveUnknownName(t *testing.T) {
	_, _, err := usecase.DocumentsService{Dir: t.TempDir()}.Resolve("nope.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
