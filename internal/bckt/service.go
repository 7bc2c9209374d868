package bckt

import (
	"context"
	"fmt"
	"path"
	"path/filepath"

	"bckt-go/internal/database/sqlc"
	"bckt-go/internal/model"
)

// DefaultStorageCostPerGBMonth is the remote storage price used when none is configured.
const DefaultStorageCostPerGBMonth = 0.00099

// Deps are the collaborators a Service coordinates.
type Deps struct {
	Database  Database
	Vault     Vault
	Fsmgr     FilesystemManager
	Archiver  Archiver
	Encryptor Encryptor
	Cache     StatsCache
	Logger    Logger
	Clock     Clock
}

// Options are the scalar settings of a Service.
type Options struct {
	// WorkingFolder holds every local archive.
	WorkingFolder string
	// StorageCostPerGBMonth is the remote price used for push budgets and cost display.
	StorageCostPerGBMonth float64
}

// Service is the policy and lifecycle engine. It coordinates the record
// store, the working folder, the archiver and the remote store.
// Targets are processed strictly one at a time.
type Service struct {
	database  Database
	vault     Vault
	fsmgr     FilesystemManager
	archiver  Archiver
	encryptor Encryptor
	cache     StatsCache
	logger    Logger
	clock     Clock
	opts      Options
}

// NewService creates a Service. Nil Logger, Clock and Cache fall back to
// NopLogger, RealClock and no caching.
func NewService(deps Deps, opts Options) *Service {
	if deps.Logger == nil {
		deps.Logger = NewNopLogger()
	}
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if opts.StorageCostPerGBMonth <= 0 {
		opts.StorageCostPerGBMonth = DefaultStorageCostPerGBMonth
	}
	return &Service{
		database:  deps.Database,
		vault:     deps.Vault,
		fsmgr:     deps.Fsmgr,
		archiver:  deps.Archiver,
		encryptor: deps.Encryptor,
		cache:     deps.Cache,
		logger:    deps.Logger,
		clock:     deps.Clock,
		opts:      opts,
	}
}

// WorkingFolder returns the directory holding local archives.
func (s *Service) WorkingFolder() string {
	return s.opts.WorkingFolder
}

// localPath returns the working-folder path of an archive file.
func (s *Service) localPath(filename string) string {
	return filepath.Join(s.opts.WorkingFolder, path.Base(filename))
}

// hasLocal reports whether the archive file is present in the working folder.
func (s *Service) hasLocal(filename string) bool {
	return s.fsmgr.Exists(s.localPath(filename))
}

// target looks a target up by name and maps a missing row to ErrTargetNotFound.
func (s *Service) target(name string) (*sqlc.Target, error) {
	t, err := s.database.FindTargetByName(name)
	if err != nil {
		return nil, fmt.Errorf("finding target %s: %w", name, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, name)
	}
	return t, nil
}

// targets returns the named target, or every target when name is empty.
func (s *Service) targets(name string) ([]*sqlc.Target, error) {
	if name != "" {
		t, err := s.target(name)
		if err != nil {
			return nil, err
		}
		return []*sqlc.Target{t}, nil
	}

	all, err := s.database.ListTargets()
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}
	return all, nil
}

// remoteObjects lists every object in the vault, through the stats cache.
func (s *Service) remoteObjects(ctx context.Context) ([]RemoteObject, error) {
	key := CacheKey{Context: s.vault.Name(), Kind: StatRemoteObjects}
	return cached(s.cache, s.logger, key, func() ([]RemoteObject, error) {
		s.logger.Debug("listing remote objects", "vault", s.vault.Name())
		objs, err := s.vault.List(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("listing vault %s: %w", s.vault.Name(), err)
		}
		return objs, nil
	})
}

// remoteIndex returns the remote listing indexed by basename. A listing
// failure is logged and yields a nil index so locations degrade to
// "remote unknown" instead of failing the caller.
func (s *Service) remoteIndex(ctx context.Context) (RemoteIndex, []RemoteObject) {
	objs, err := s.remoteObjects(ctx)
	if err != nil {
		s.logger.Warn("remote listing unavailable", "error", err)
		return nil, nil
	}
	return NewRemoteIndex(objs), objs
}

// invalidateRemote drops the cached remote listing after the vault changed.
func (s *Service) invalidateRemote() {
	if s.cache == nil {
		return
	}
	key := CacheKey{Context: s.vault.Name(), Kind: StatRemoteObjects}
	if err := s.cache.Invalidate(key); err != nil {
		s.logger.Warn("stats cache invalidate failed", "key", key.String(), "error", err)
	}
}

// invalidateLocal drops cached filesystem scans of a target.
func (s *Service) invalidateLocal(targetName string) {
	if s.cache == nil {
		return
	}
	for _, kind := range []StatKind{StatModifiedFiles, StatExcludedFiles, StatTreeSize} {
		key := CacheKey{Context: LocalContext, Kind: kind, Target: targetName}
		if err := s.cache.Invalidate(key); err != nil {
			s.logger.Warn("stats cache invalidate failed", "key", key.String(), "error", err)
		}
	}
}

// locate classifies a record's archive against local disk and the remote index.
func (s *Service) locate(a *sqlc.Archive, idx RemoteIndex) Locatable {
	local := s.hasLocal(a.Filename)
	return Locatable{
		Local:    local,
		Remote:   idx.State(a.Filename),
		Location: ResolveLocation(true, local, idx.State(a.Filename)),
	}
}

// Locatable is the presence of one archive across local disk and the remote store.
type Locatable struct {
	Local    bool
	Remote   RemoteState
	Location model.Location
}
