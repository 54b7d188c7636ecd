package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fincalc/internal/database"
	testutil "github.com/aristath/fincalc/internal/testing"
)

type fakeStore struct {
	uploads map[string][]byte
	objects []types.Object
	deleted []string
	listErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploads: map[string][]byte{}}
}

func (f *fakeStore) Upload(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.uploads[key] = data
	return nil
}

func (f *fakeStore) List(_ context.Context, _ string) ([]types.Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.objects, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func backupObject(t *testing.T, age time.Duration) types.Object {
	t.Helper()
	name := archivePrefix + time.Now().Add(-age).Format("2006-01-02-150405") + ".tar.gz"
	return types.Object{Key: aws.String(name), Size: aws.Int64(1024)}
}

func TestBackupUploadsArchive(t *testing.T) {
	historyDB, cleanupHistory := testutil.NewTestDB(t, "history")
	t.Cleanup(cleanupHistory)
	cacheDB, cleanupCache := testutil.NewTestDB(t, "cache")
	t.Cleanup(cleanupCache)

	store := newFakeStore()
	svc := NewBackupService(store, map[string]*database.DB{
		"history": historyDB,
		"cache":   cacheDB,
	}, t.TempDir(), 0, zerolog.Nop())

	require.NoError(t, svc.Backup(context.Background()))
	require.Len(t, store.uploads, 1)

	var archiveName string
	var archive []byte
	for name, data := range store.uploads {
		archiveName, archive = name, data
	}
	assert.Contains(t, archiveName, archivePrefix)
	assert.Contains(t, archiveName, ".tar.gz")

	// The archive must hold both snapshots plus the manifest.
	entries := readArchive(t, archive)
	assert.Contains(t, entries, "history.db")
	assert.Contains(t, entries, "cache.db")
	require.Contains(t, entries, "backup-metadata.json")

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(entries["backup-metadata.json"], &metadata))
	assert.Len(t, metadata.Databases, 2)
	for _, db := range metadata.Databases {
		assert.Contains(t, db.Checksum, "sha256:")
		assert.Positive(t, db.SizeBytes)
	}
}

func TestListBackupsSortsNewestFirst(t *testing.T) {
	store := newFakeStore()
	store.objects = []types.Object{
		backupObject(t, 72*time.Hour),
		backupObject(t, time.Hour),
		backupObject(t, 24*time.Hour),
		{Key: aws.String("unrelated-file.txt")},
	}

	svc := NewBackupService(store, nil, t.TempDir(), 7, zerolog.Nop())

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.True(t, backups[0].Timestamp.After(backups[1].Timestamp))
	assert.True(t, backups[1].Timestamp.After(backups[2].Timestamp))
}

func TestRotateKeepsMinimumBackups(t *testing.T) {
	store := newFakeStore()
	// All ancient, but only three exist.
	store.objects = []types.Object{
		backupObject(t, 100*24*time.Hour),
		backupObject(t, 101*24*time.Hour),
		backupObject(t, 102*24*time.Hour),
	}

	svc := NewBackupService(store, nil, t.TempDir(), 7, zerolog.Nop())

	require.NoError(t, svc.RotateOldBackups(context.Background()))
	assert.Empty(t, store.deleted)
}

func TestRotateDeletesExpiredBeyondMinimum(t *testing.T) {
	store := newFakeStore()
	store.objects = []types.Object{
		backupObject(t, time.Hour),
		backupObject(t, 24*time.Hour),
		backupObject(t, 48*time.Hour),
		backupObject(t, 10*24*time.Hour),
		backupObject(t, 20*24*time.Hour),
	}

	svc := NewBackupService(store, nil, t.TempDir(), 7, zerolog.Nop())

	require.NoError(t, svc.RotateOldBackups(context.Background()))
	assert.Len(t, store.deleted, 2)
}

func TestRotateDisabledWithZeroRetention(t *testing.T) {
	store := newFakeStore()
	store.listErr = fmt.Errorf("must not be called")

	svc := NewBackupService(store, nil, t.TempDir(), 0, zerolog.Nop())
	require.NoError(t, svc.RotateOldBackups(context.Background()))
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()

	entries := map[string][]byte{}
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[header.Name] = content
	}
	return entries
}
