package bckt_test

import (
	"database/sql"
	"testing"
	"time"

	"bckt-go/internal/bckt"
	"bckt-go/internal/database/sqlc"
	"bckt-go/internal/model"
	"bckt-go/internal/testutil"
	"bckt-go/internal/vault"
)

const workDir = "/work"

// harness wires a Service to in-memory collaborators.
type harness struct {
	svc      *bckt.Service
	db       bckt.Database
	fsmgr    *testutil.MockFilesystemManager
	archiver *testutil.FakeArchiver
	vault    *vault.MemoryVault
	clock    *testutil.StubClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:    testutil.NewTestDatabase(t),
		fsmgr: testutil.NewMockFilesystemManager(),
		clock: testutil.FixedClock(),
	}
	h.archiver = testutil.NewFakeArchiver(h.fsmgr)
	h.vault = testutil.NewTestVault(h.clock)
	h.fsmgr.AddDirectory(workDir)
	h.svc = h.service(h.vault, nil)
	return h
}

// service builds a Service over the harness state with another vault or cache.
func (h *harness) service(v bckt.Vault, c bckt.StatsCache) *bckt.Service {
	deps := bckt.Deps{
		Database:  h.db,
		Vault:     v,
		Fsmgr:     h.fsmgr,
		Archiver:  h.archiver,
		Encryptor: testutil.NewNoneEncryptor(),
		Cache:     c,
		Clock:     h.clock,
	}
	return bckt.NewService(deps, bckt.Options{WorkingFolder: workDir})
}

// addTarget registers a target rooted at /src/{name} holding one file.
func (h *harness) addTarget(t *testing.T, name string, policy bckt.TargetPolicy) *sqlc.Target {
	t.Helper()
	path := "/src/" + name
	h.fsmgr.AddFileAt(path+"/readme.txt", []byte("hello"), h.clock.Now().Add(-time.Hour))

	if policy.Frequency == "" {
		policy.Frequency = model.FrequencyDaily
	}
	if policy.PushStrategy == "" {
		policy.PushStrategy = model.PushContentPriority
	}
	if policy.BudgetMax == 0 {
		policy.BudgetMax = bckt.DefaultBudgetMax
	}
	target, err := h.db.CreateTarget(name, path, policy)
	if err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}
	return target
}

// addArchive records an archive of target captured at ts and, when local is
// set, places a file of sizeKB in the working folder.
func (h *harness) addArchive(t *testing.T, target *sqlc.Target, ts time.Time, sizeKB int64, local, remote bool) *sqlc.Archive {
	t.Helper()
	filename := bckt.ArchiveFilename(target.Name, ts)
	a := &sqlc.Archive{
		TargetID:           target.ID,
		Filename:           filename,
		SizeKb:             sizeKB,
		PreMarkerTimestamp: sql.NullTime{Time: ts.UTC(), Valid: true},
		IsRemote:           remote,
	}
	if remote {
		a.RemotePushAt = sql.NullTime{Time: ts.UTC(), Valid: true}
	}
	if err := h.db.CreateArchive(a); err != nil {
		t.Fatalf("CreateArchive() error = %v", err)
	}
	if local {
		h.fsmgr.AddSizedFile(workDir+"/"+filename, sizeKB*1024, ts)
	}
	if remote {
		h.vault.Seed(bckt.RemoteKey(target.Name, filename), []byte("remote"), ts)
	}
	return a
}

// reload returns the current database row of target.
func (h *harness) reload(t *testing.T, target *sqlc.Target) *sqlc.Target {
	t.Helper()
	got, err := h.db.FindTargetByID(target.ID)
	if err != nil {
		t.Fatalf("FindTargetByID() error = %v", err)
	}
	return got
}

func (h *harness) archives(t *testing.T, target *sqlc.Target) []*sqlc.Archive {
	t.Helper()
	archives, err := h.db.ListArchives(target)
	if err != nil {
		t.Fatalf("ListArchives() error = %v", err)
	}
	return archives
}
