package scurry

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	scriptExt       = ".sql"
	versionSplitter = "__"
)

// ListAvailableVersions returns the migration scripts found directly inside dir on the OS
// filesystem, sorted ascending by version. Subdirectories are not scanned and files without a
// .sql extension are ignored.
func ListAvailableVersions(dir string) ([]*Version, error) {
	return collectVersions(osFS{}, dir)
}

// collectVersions scans dir (non-recursively) for files named <version>__<name>.sql, hashes each
// file and returns them sorted by version. Entries that are not regular .sql files are skipped.
func collectVersions(fsys fs.FS, dir string) ([]*Version, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, ioError("read migration directory "+dir, err)
	}
	versions := make([]*Version, 0, len(entries))
	seen := make(map[string]string) // map[version]filename
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != scriptExt {
			continue
		}
		filename := entry.Name()
		version, name, err := parseFilename(filename)
		if err != nil {
			return nil, parseError("parse "+filename, err)
		}
		if existing, ok := seen[version]; ok {
			return nil, parseError("parse "+filename, fmt.Errorf("%w %q: also used by %s",
				ErrDuplicateVersion, version, existing))
		}
		seen[version] = filename

		fullpath := path.Join(dir, filename)
		hash, err := hashFile(fsys, fullpath)
		if err != nil {
			return nil, ioError("read "+fullpath, err)
		}
		versions = append(versions, &Version{
			Path:    fullpath,
			Name:    name,
			Version: version,
			Hash:    hash,
		})
	}
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].Version < versions[j].Version
	})
	return versions, nil
}

// parseFilename splits a script filename into its version and name. Only the first "__" is
// significant, so "001__a__b.sql" has version "001" and name "a__b". Either half may be empty.
func parseFilename(filename string) (version, name string, err error) {
	if !utf8.ValidString(filename) {
		return "", "", fmt.Errorf("%w: name is not valid UTF-8", ErrInvalidFilename)
	}
	stem := strings.TrimSuffix(filename, scriptExt)
	version, name, found := strings.Cut(stem, versionSplitter)
	if !found {
		return "", "", fmt.Errorf("%w: missing %q separator", ErrInvalidFilename, versionSplitter)
	}
	return version, name, nil
}

func hashFile(fsys fs.FS, fullpath string) (string, error) {
	data, err := fs.ReadFile(fsys, fullpath)
	if err != nil {
		return "", err
	}
	return hashBytes(data), nil
}

func hashBytes(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
