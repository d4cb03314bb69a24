package scurry

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCollectVersions(t *testing.T) {
	t.Parallel()

	t.Run("sorted_and_hashed", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/003__comments.sql": sqlFile("CREATE TABLE comments (id int);"),
			"migrations/001__users.sql":    sqlFile("CREATE TABLE users (id int);"),
			"migrations/002__posts.sql":    sqlFile("CREATE TABLE posts (id int);"),
		}
		got, err := collectVersions(fsys, "migrations")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assertVersion(t, got[0], "migrations/001__users.sql", "001", "users", "CREATE TABLE users (id int);")
		assertVersion(t, got[1], "migrations/002__posts.sql", "002", "posts", "CREATE TABLE posts (id int);")
		assertVersion(t, got[2], "migrations/003__comments.sql", "003", "comments", "CREATE TABLE comments (id int);")
	})
	t.Run("first_separator_splits", func(t *testing.T) {
		fsys := fstest.MapFS{
			"001__a__b.sql": sqlFile("SELECT 1;"),
		}
		got, err := collectVersions(fsys, ".")
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "001", got[0].Version)
		require.Equal(t, "a__b", got[0].Name)
		require.Equal(t, "001__a__b.sql", got[0].Path)
	})
	t.Run("lexicographic_order", func(t *testing.T) {
		fsys := fstest.MapFS{
			"9__nine.sql": sqlFile(""),
			"10__ten.sql": sqlFile(""),
			"1__one.sql":  sqlFile(""),
		}
		got, err := collectVersions(fsys, ".")
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, "1", got[0].Version)
		require.Equal(t, "10", got[1].Version)
		require.Equal(t, "9", got[2].Version)
	})
	t.Run("skips_non_sql_and_subdirectories", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/001__users.sql":         sqlFile("SELECT 1;"),
			"migrations/README.md":              sqlFile("docs"),
			"migrations/002__notes.sql.bak":     sqlFile("SELECT 2;"),
			"migrations/nested/003__deep.sql":   sqlFile("SELECT 3;"),
			"migrations/004__dir.sql/inner.sql": sqlFile("SELECT 4;"),
		}
		got, err := collectVersions(fsys, "migrations")
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "001", got[0].Version)
	})
	t.Run("empty_dir", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations": &fstest.MapFile{Mode: os.ModeDir},
		}
		got, err := collectVersions(fsys, "migrations")
		require.NoError(t, err)
		require.Empty(t, got)
	})
	t.Run("missing_dir", func(t *testing.T) {
		_, err := collectVersions(fstest.MapFS{}, "migrations")
		require.Error(t, err)
		require.Equal(t, KindIO, KindOf(err))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("invalid_filenames", func(t *testing.T) {
		for _, name := range []string{
			"noseparator.sql",
			"001_single_underscore.sql",
			"001__bad\xff.sql",
		} {
			fsys := fstest.MapFS{name: sqlFile("SELECT 1;")}
			_, err := collectVersions(fsys, ".")
			require.Error(t, err, name)
			require.ErrorIs(t, err, ErrInvalidFilename, name)
			require.Equal(t, KindParse, KindOf(err), name)
		}
	})
	t.Run("duplicate_version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"001__users.sql":  sqlFile("SELECT 1;"),
			"001__people.sql": sqlFile("SELECT 2;"),
		}
		_, err := collectVersions(fsys, ".")
		require.Error(t, err)
		require.ErrorIs(t, err, ErrDuplicateVersion)
		require.Equal(t, KindParse, KindOf(err))
	})
}

func TestListAvailableVersions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "002__posts.sql", "CREATE TABLE posts (id int);")
	writeFile(t, dir, "001__users.sql", "CREATE TABLE users (id int);")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003__folder.sql"), 0o755))

	got, err := ListAvailableVersions(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assertVersion(t, got[0], filepath.ToSlash(filepath.Join(dir, "001__users.sql")), "001", "users", "CREATE TABLE users (id int);")
	assertVersion(t, got[1], filepath.ToSlash(filepath.Join(dir, "002__posts.sql")), "002", "posts", "CREATE TABLE posts (id int);")

	_, err = ListAvailableVersions(filepath.Join(dir, "does-not-exist"))
	require.Error(t, err)
	require.Equal(t, KindIO, KindOf(err))
}

func TestCollectVersionsDeterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"005__e", "003__c", "001__a", "004__d", "002__b"} {
		writeFile(t, dir, name+".sql", "-- "+name)
	}
	want, err := ListAvailableVersions(dir)
	require.NoError(t, err)
	require.Len(t, want, 5)

	const workers = 8
	results := make([][]*Version, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			got, err := ListAvailableVersions(dir)
			if err != nil {
				return err
			}
			results[i] = got
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for _, got := range results {
		require.Equal(t, want, got)
	}
}

func TestParseFilename(t *testing.T) {
	t.Parallel()

	version, name, err := parseFilename("20240101120000__init.sql")
	require.NoError(t, err)
	require.Equal(t, "20240101120000", version)
	require.Equal(t, "init", name)

	version, name, err = parseFilename("001__.sql")
	require.NoError(t, err)
	require.Equal(t, "001", version)
	require.Equal(t, "", name)

	version, name, err = parseFilename("__init.sql")
	require.NoError(t, err)
	require.Equal(t, "", version)
	require.Equal(t, "init", name)

	_, _, err = parseFilename("noseparator.sql")
	require.True(t, errors.Is(err, ErrInvalidFilename))
}

func TestCollectEmptyNameAndVersion(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"m/001__.sql":   sqlFile("SELECT 1;"),
		"m/__first.sql": sqlFile("SELECT 2;"),
	}
	got, err := collectVersions(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assertVersion(t, got[0], "m/__first.sql", "", "first", "SELECT 2;")
	assertVersion(t, got[1], "m/001__.sql", "001", "", "SELECT 1;")
}

func sqlFile(content string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(content)}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func assertVersion(t *testing.T, got *Version, path, version, name, content string) {
	t.Helper()
	sum := sha1.Sum([]byte(content))
	require.Equal(t, path, got.Path)
	require.Equal(t, version, got.Version)
	require.Equal(t, name, got.Name)
	require.Equal(t, hex.EncodeToString(sum[:]), got.Hash)
}
