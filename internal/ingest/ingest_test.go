package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
)

var (
	pdfBytes = []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n%%EOF\n")
	pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func write(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestFromUpload(t *testing.T) {
	doc, err := FromUpload("scan.PDF", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, "scan.PDF", doc.Name)
	assert.Equal(t, "application/pdf", doc.MIMEType)
	assert.Len(t, doc.HashHex, 64)

	doc, err = FromUpload("no-extension", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", doc.MIMEType)

	_, err = FromUpload("notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, common.ErrUnsupportedMedia)

	_, err = FromUpload("empty.pdf", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = FromUpload("huge.pdf", make([]byte, MaxDocumentBytes+1))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestFromUpload_StripsDirectories(t *testing.T) {
	doc, err := FromUpload("../../etc/scan.pdf", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, "scan.pdf", doc.Name)
}

func TestCollectPaths(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "b.pdf"), pdfBytes)
	write(t, filepath.Join(root, "a.png"), pngBytes)
	write(t, filepath.Join(root, "sub", "c.pdf"), append(append([]byte{}, pdfBytes...), 'x'))
	write(t, filepath.Join(root, "sub", "copy-of-b.pdf"), pdfBytes)
	write(t, filepath.Join(root, "readme.txt"), []byte("skip"))
	write(t, filepath.Join(root, ".hidden", "d.pdf"), []byte("%PDF-hidden"))

	ing := NewFSIngestor(quiet())
	docs, results, stats, err := ing.CollectPaths(context.Background(), []string{root}, true)
	require.NoError(t, err)

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"a.png", "b.pdf", "c.pdf"}, names)
	assert.EqualValues(t, 4, stats.Matched)
	assert.EqualValues(t, 3, stats.Loaded)
	assert.EqualValues(t, 1, stats.Deduplicated)
	assert.Len(t, results, 4)
}

func TestCollectPaths_IncludesHiddenWhenAsked(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, ".hidden", "d.pdf"), pdfBytes)

	docs, _, _, err := NewFSIngestor(quiet()).CollectPaths(context.Background(), []string{root}, false)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCollectPaths_SingleFileAndMissing(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "one.pdf")
	write(t, file, pdfBytes)

	docs, results, stats, err := NewFSIngestor(quiet()).CollectPaths(context.Background(),
		[]string{file, filepath.Join(root, "missing.pdf")}, true)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.EqualValues(t, 1, stats.Failed)
	assert.NotEmpty(t, results[0].Err)
}

func TestCollectPaths_NoPaths(t *testing.T) {
	_, _, _, err := NewFSIngestor(quiet()).CollectPaths(context.Background(), nil, true)
	assert.Error(t, err)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/a/.git"))
	assert.False(t, IsHidden("/a/b.pdf"))
	assert.False(t, IsHidden("."))
}

func TestStartWatcher_InitialScan(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "b.pdf"), pdfBytes)
	write(t, filepath.Join(root, "a.jpg"), []byte{0xff, 0xd8, 0xff})
	write(t, filepath.Join(root, "skip.txt"), []byte("x"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots: []string{root}, InitialScan: true, Debounce: 10 * time.Millisecond,
	}, quiet())
	require.NoError(t, err)

	select {
	case batch := <-events:
		assert.Equal(t, []string{filepath.Join(root, "a.jpg"), filepath.Join(root, "b.pdf")}, batch)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial batch")
	}
}

func TestStartWatcher_NewFilesAndSubdirectories(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, Debounce: 50 * time.Millisecond}, quiet())
	require.NoError(t, err)

	waitFor := func(want string) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		for {
			select {
			case batch, ok := <-events:
				require.True(t, ok, "watcher stopped")
				for _, p := range batch {
					if p == want {
						return
					}
				}
			case <-deadline:
				t.Fatalf("no batch containing %s", want)
			}
		}
	}

	write(t, filepath.Join(root, "a.pdf"), pdfBytes)
	write(t, filepath.Join(root, "ignored.txt"), []byte("x"))
	waitFor(filepath.Join(root, "a.pdf"))

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	write(t, filepath.Join(sub, "b.pdf"), pdfBytes)
	waitFor(filepath.Join(sub, "b.pdf"))
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, quiet())
	assert.Error(t, err)
}
