package desktop

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"killfocus/internal/killer"
)

// Catalog resolves display names from installed .desktop files.
// Directories are scanned on every lookup, so newly installed or removed
// apps are seen without a restart.
type Catalog struct {
	fs     afero.Fs
	dirs   []string
	locale string
}

// NewCatalog reads the given application directories in priority order
func NewCatalog(fs afero.Fs, dirs []string, locale string) *Catalog {
	return &Catalog{fs: fs, dirs: dirs, locale: locale}
}

// NewSystemCatalog uses the XDG data directories on the real filesystem
func NewSystemCatalog(locale string) *Catalog {
	return NewCatalog(afero.NewReadOnlyFs(afero.NewOsFs()), ApplicationDirs(), locale)
}

// ApplicationDirs lists $XDG_DATA_HOME and $XDG_DATA_DIRS application dirs
func ApplicationDirs() []string {
	var dirs []string

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "applications"))
		dirs = append(dirs, filepath.Join(dataHome, "flatpak", "exports", "share", "applications"))
	}

	dataDirs := os.Getenv("XDG_DATA_DIRS")
	if dataDirs == "" {
		dataDirs = "/usr/local/share:/usr/share"
	}
	for _, d := range strings.Split(dataDirs, ":") {
		if d != "" {
			dirs = append(dirs, filepath.Join(d, "applications"))
		}
	}
	dirs = append(dirs, "/var/lib/flatpak/exports/share/applications")

	return dirs
}

// DisplayName implements killer.MetadataProvider
func (c *Catalog) DisplayName(packageID string) (string, error) {
	entry, err := c.Lookup(packageID)
	if err != nil {
		return "", err
	}
	if name := entry.LocalizedName(c.locale); name != "" {
		return name, nil
	}
	return "", errors.Wrapf(killer.ErrNotFound, "desktop entry %s has no name", entry.ID)
}

// Lookup finds the first entry matching packageID
func (c *Catalog) Lookup(packageID string) (*Entry, error) {
	pkg := strings.ToLower(packageID)

	for _, dir := range c.dirs {
		names, err := afero.Glob(c.fs, filepath.Join(dir, "*.desktop"))
		if err != nil {
			continue
		}
		sort.Strings(names)

		for _, name := range names {
			entry, err := c.read(name)
			if err != nil {
				continue
			}
			if entry.Matches(pkg) {
				return entry, nil
			}
		}
	}

	return nil, errors.Wrapf(killer.ErrNotFound, "no desktop entry for %s", packageID)
}

func (c *Catalog) read(name string) (*Entry, error) {
	f, err := c.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	id := strings.TrimSuffix(filepath.Base(name), ".desktop")
	return ParseEntry(id, f)
}
