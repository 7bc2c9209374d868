package bckt

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// archiveTimeLayout is the timestamp embedded in archive filenames.
const archiveTimeLayout = "20060102_150405"

const archiveExt = ".tar.gz"

var archiveNamePattern = regexp.MustCompile(`^(.+)_([0-9]{8}_[0-9]{6})\.tar\.gz$`)

// Slug is the filename-safe form of a target name.
func Slug(targetName string) string {
	return strings.ReplaceAll(targetName, "/", "_")
}

// ArchiveFilename returns "{slug}_{YYYYMMDD}_{HHMMSS}.tar.gz" for ts in UTC.
func ArchiveFilename(targetName string, ts time.Time) string {
	return Slug(targetName) + "_" + ts.UTC().Format(archiveTimeLayout) + archiveExt
}

// ParseArchiveFilename splits an archive basename into the target slug and
// its capture time. ok is false when name does not follow the pattern.
func ParseArchiveFilename(name string) (slug string, ts time.Time, ok bool) {
	m := archiveNamePattern.FindStringSubmatch(path.Base(name))
	if m == nil {
		return "", time.Time{}, false
	}
	ts, err := time.ParseInLocation(archiveTimeLayout, m[2], time.UTC)
	if err != nil {
		return "", time.Time{}, false
	}
	return m[1], ts, true
}

// IsArchiveFilename reports whether name looks like an archive produced by bckt.
func IsArchiveFilename(name string) bool {
	_, _, ok := ParseArchiveFilename(name)
	return ok
}

// RemoteKey returns the object key for an archive: "{target}/{basename}".
func RemoteKey(targetName, filename string) string {
	return targetName + "/" + path.Base(filename)
}

// ObjectBelongsToTarget reports whether an object key holds an archive of
// the named target. Two layouts are accepted:
//
//	{target}/{slug}_{YYYYMMDD}_{HHMMSS}.tar.gz   current layout
//	{slug}_{YYYYMMDD}_{HHMMSS}.tar.gz            objects pushed before per-target folders
func ObjectBelongsToTarget(key, targetName string) bool {
	slug := Slug(targetName)

	if rest, found := strings.CutPrefix(key, targetName+"/"); found {
		if s, _, ok := ParseArchiveFilename(rest); ok && s == slug && !strings.Contains(rest, "/") {
			return true
		}
	}

	if !strings.Contains(key, "/") {
		if s, _, ok := ParseArchiveFilename(key); ok && s == slug {
			return true
		}
	}
	return false
}

// DefaultTargetName derives a target name from its path: "/home/me/docs" -> "home-me-docs".
func DefaultTargetName(targetPath string) string {
	return strings.Trim(strings.ReplaceAll(targetPath, "/", "-"), "-")
}

// MarkerPath returns the legacy marker file for a target, placed next to the target path.
// place is "pre" or "post".
func MarkerPath(targetPath, targetName, place string) string {
	parent := filepath.Dir(filepath.Clean(targetPath))
	return filepath.Join(parent, Slug(targetName)+"_"+place+"_backup_marker")
}

// RestoreDir returns where an archive is unpacked: {working}/restore/{slug}/{filename base}.
func RestoreDir(workingFolder, targetName, filename string) string {
	base := strings.TrimSuffix(path.Base(filename), archiveExt)
	return filepath.Join(workingFolder, "restore", Slug(targetName), base)
}
