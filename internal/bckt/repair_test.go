package bckt_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bckt-go/internal/bckt"
	"bckt-go/internal/database/sqlc"
)

type repairFixture struct {
	h             *harness
	target        *sqlc.Target
	missedPush    *sqlc.Archive
	phantomRemote *sqlc.Archive
	fullPath      *sqlc.Archive
	noPreMarker   *sqlc.Archive
	pushedAt      time.Time
	preMarker     time.Time
}

func day(n int) time.Time {
	return time.Date(2026, 1, n, 3, 0, 0, 0, time.UTC)
}

func newRepairFixture(t *testing.T) *repairFixture {
	t.Helper()
	h := newHarness(t)
	target := h.addTarget(t, "docs", bckt.TargetPolicy{})
	f := &repairFixture{h: h, target: target, pushedAt: day(1).Add(time.Hour), preMarker: day(4)}

	create := func(a *sqlc.Archive) *sqlc.Archive {
		a.TargetID = target.ID
		if err := h.db.CreateArchive(a); err != nil {
			t.Fatalf("CreateArchive() error = %v", err)
		}
		return a
	}
	at := func(ts time.Time) sql.NullTime { return sql.NullTime{Time: ts, Valid: true} }

	// uploaded but never marked
	f.missedPush = create(&sqlc.Archive{Filename: bckt.ArchiveFilename("docs", day(1)), SizeKb: 10, PreMarkerTimestamp: at(day(1))})
	h.vault.Seed(bckt.RemoteKey("docs", f.missedPush.Filename), []byte("a"), f.pushedAt)

	// marked remote, gone from the vault
	f.phantomRemote = create(&sqlc.Archive{Filename: bckt.ArchiveFilename("docs", day(2)), SizeKb: 10,
		PreMarkerTimestamp: at(day(2)), IsRemote: true, RemotePushAt: at(day(2))})

	f.fullPath = create(&sqlc.Archive{Filename: "/old/work/" + bckt.ArchiveFilename("docs", day(3)), SizeKb: 10, PreMarkerTimestamp: at(day(3))})
	f.noPreMarker = create(&sqlc.Archive{Filename: bckt.ArchiveFilename("docs", day(4)), SizeKb: 10})

	// a manual record already holds the pre-marker of the day 9 file
	create(&sqlc.Archive{Filename: "docs-manual.tar.gz", SizeKb: 10, PreMarkerTimestamp: at(day(9))})
	h.fsmgr.AddSizedFile(workDir+"/"+bckt.ArchiveFilename("docs", day(9)), 1024, day(9))

	// orphans
	h.fsmgr.AddSizedFile(workDir+"/"+bckt.ArchiveFilename("docs", day(5)), 3000*1024, day(5))
	h.vault.Seed("docs/"+bckt.ArchiveFilename("docs", day(6)), make([]byte, 4096), day(6))
	h.fsmgr.AddSizedFile(workDir+"/"+bckt.ArchiveFilename("docs", day(7)), 2048, day(7))
	h.vault.Seed(bckt.ArchiveFilename("docs", day(7)), make([]byte, 2048), day(7))
	h.fsmgr.AddSizedFile(workDir+"/"+bckt.ArchiveFilename("music", day(8)), 1024, day(8))
	h.fsmgr.AddFile(workDir+"/notes.txt", []byte("not an archive"))

	return f
}

func TestService_Repair(t *testing.T) {
	ctx := context.Background()

	t.Run("corrects records and adopts orphans", func(t *testing.T) {
		f := newRepairFixture(t)
		h := f.h

		report, err := h.svc.Repair(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 5, report.Checked)
		assert.Equal(t, 2, report.RemoteFixed)
		assert.Equal(t, 1, report.FilenameFixed)
		assert.Equal(t, 1, report.PreMarkerFixed)
		assert.Equal(t, 3, report.Created)
		require.Len(t, report.Gaps, 2)
		assert.Equal(t, bckt.ArchiveFilename("docs", day(9)), report.Gaps[0].Filename)
		assert.Equal(t, bckt.ArchiveFilename("music", day(8)), report.Gaps[1].Filename)

		got, err := h.db.FindArchiveByID(f.missedPush.ID)
		require.NoError(t, err)
		assert.True(t, got.IsRemote)
		assert.True(t, got.RemotePushAt.Time.Equal(f.pushedAt))

		got, err = h.db.FindArchiveByID(f.phantomRemote.ID)
		require.NoError(t, err)
		assert.False(t, got.IsRemote)
		assert.False(t, got.RemotePushAt.Valid)

		got, err = h.db.FindArchiveByID(f.fullPath.ID)
		require.NoError(t, err)
		assert.Equal(t, bckt.ArchiveFilename("docs", day(3)), got.Filename)

		got, err = h.db.FindArchiveByID(f.noPreMarker.ID)
		require.NoError(t, err)
		require.True(t, got.PreMarkerTimestamp.Valid)
		assert.True(t, got.PreMarkerTimestamp.Time.Equal(f.preMarker))

		created := map[string]*sqlc.Archive{}
		for _, a := range report.CreatedArchives {
			created[a.Filename] = a
		}
		localOnly := created[bckt.ArchiveFilename("docs", day(5))]
		require.NotNil(t, localOnly)
		assert.False(t, localOnly.IsRemote)
		assert.Equal(t, int64(3000), localOnly.SizeKb)
		assert.NotEmpty(t, localOnly.Digest)

		remoteOnly := created[bckt.ArchiveFilename("docs", day(6))]
		require.NotNil(t, remoteOnly)
		assert.True(t, remoteOnly.IsRemote)
		assert.Equal(t, int64(4), remoteOnly.SizeKb)
		assert.True(t, remoteOnly.RemotePushAt.Time.Equal(day(6)))

		both := created[bckt.ArchiveFilename("docs", day(7))]
		require.NotNil(t, both)
		assert.True(t, both.IsRemote)
		assert.True(t, both.PreMarkerTimestamp.Time.Equal(day(7)))

		assert.Len(t, h.archives(t, f.target), 8)
	})

	t.Run("second pass has nothing to fix", func(t *testing.T) {
		f := newRepairFixture(t)

		_, err := f.h.svc.Repair(ctx, false)
		require.NoError(t, err)

		report, err := f.h.svc.Repair(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 8, report.Checked)
		assert.Zero(t, report.RemoteFixed)
		assert.Zero(t, report.FilenameFixed)
		assert.Zero(t, report.PreMarkerFixed)
		assert.Zero(t, report.Created)
		assert.Len(t, report.Gaps, 2)
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		f := newRepairFixture(t)
		h := f.h

		report, err := h.svc.Repair(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 2, report.RemoteFixed)
		assert.Equal(t, 3, report.Created)
		assert.Empty(t, report.CreatedArchives)

		assert.Len(t, h.archives(t, f.target), 5)
		got, err := h.db.FindArchiveByID(f.missedPush.ID)
		require.NoError(t, err)
		assert.False(t, got.IsRemote)
		got, err = h.db.FindArchiveByID(f.fullPath.ID)
		require.NoError(t, err)
		assert.Equal(t, "/old/work/"+bckt.ArchiveFilename("docs", day(3)), got.Filename)
	})
}

func TestService_BackupDatabase(t *testing.T) {
	h := newHarness(t)
	h.addTarget(t, "docs", bckt.TargetPolicy{})
	dest := filepath.Join(t.TempDir(), "bckt-copy.db")

	if err := h.svc.BackupDatabase(dest); err != nil {
		t.Fatalf("BackupDatabase() error = %v", err)
	}
	if info, err := os.Stat(dest); err != nil || info.Size() == 0 {
		t.Errorf("backup file = %v, %v", info, err)
	}

	t.Run("refuses to overwrite", func(t *testing.T) {
		taken := "/backups/bckt.db"
		h.fsmgr.AddFile(taken, []byte("older copy"))

		if err := h.svc.BackupDatabase(taken); err == nil {
			t.Fatal("BackupDatabase() overwrote an existing file")
		}
		f, _ := h.fsmgr.File(taken)
		if string(f.Content) != "older copy" {
			t.Errorf("existing file changed to %q", f.Content)
		}
	})
}
