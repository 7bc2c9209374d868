package bckt

import (
	"path"

	"bckt-go/internal/model"
)

// RemoteState is what is known about an archive's remote copy.
type RemoteState int

const (
	// RemoteUnknown means the remote store was not queried.
	RemoteUnknown RemoteState = iota
	RemoteAbsent
	RemotePresent
)

// ResolveLocation classifies an archive from its record, local and remote presence.
func ResolveLocation(hasRecord, local bool, remote RemoteState) model.Location {
	if hasRecord {
		switch {
		case local && remote == RemotePresent:
			return model.LocationLocalAndRemote
		case local && remote == RemoteAbsent:
			return model.LocationLocalOnly
		case local:
			return model.LocationLocalRemoteUnknown
		case remote == RemotePresent:
			return model.LocationRemoteOnly
		default:
			return model.LocationDoesNotExist
		}
	}

	switch {
	case local && remote == RemotePresent:
		return model.LocationLocalAndRemoteOrphan
	case local:
		return model.LocationLocalOnlyOrphan
	case remote == RemotePresent:
		return model.LocationRemoteOnlyOrphan
	default:
		// nothing to classify: no record and no copy anywhere
		return model.LocationUnknown
	}
}

// RemoteIndex maps archive basenames to remote objects. A nil index means
// the remote store was not queried.
type RemoteIndex map[string]RemoteObject

// NewRemoteIndex indexes objects by the basename of their key.
// Keys that are not archive filenames are skipped.
func NewRemoteIndex(objects []RemoteObject) RemoteIndex {
	idx := make(RemoteIndex, len(objects))
	for _, obj := range objects {
		base := path.Base(obj.Key)
		if !IsArchiveFilename(base) {
			continue
		}
		if _, dup := idx[base]; dup {
			continue
		}
		idx[base] = obj
	}
	return idx
}

// State reports the remote state of filename.
func (idx RemoteIndex) State(filename string) RemoteState {
	if idx == nil {
		return RemoteUnknown
	}
	if _, ok := idx[path.Base(filename)]; ok {
		return RemotePresent
	}
	return RemoteAbsent
}

// Lookup returns the remote object for filename, if any.
func (idx RemoteIndex) Lookup(filename string) (RemoteObject, bool) {
	obj, ok := idx[path.Base(filename)]
	return obj, ok
}
