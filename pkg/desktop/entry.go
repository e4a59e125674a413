package desktop

import (
	"bufio"
	"io"
	"path"
	"strings"
)

// Entry is the subset of a freedesktop .desktop file used to label apps
type Entry struct {
	ID             string // file name without .desktop
	Name           string
	LocalizedNames map[string]string // keyed by locale, e.g. "de" or "pt_BR"
	StartupWMClass string
	Exec           string
	Hidden         bool
}

// ParseEntry reads the [Desktop Entry] group of a .desktop file
func ParseEntry(id string, r io.Reader) (*Entry, error) {
	e := &Entry{ID: id, LocalizedNames: map[string]string{}}

	inGroup := false
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inGroup = line == "[Desktop Entry]"
			continue
		}
		if !inGroup {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case key == "Name":
			e.Name = value
		case strings.HasPrefix(key, "Name[") && strings.HasSuffix(key, "]"):
			e.LocalizedNames[key[len("Name["):len(key)-1]] = value
		case key == "StartupWMClass":
			e.StartupWMClass = value
		case key == "Exec":
			e.Exec = value
		case key == "Hidden":
			e.Hidden = value == "true"
		}
	}

	return e, scanner.Err()
}

// LocalizedName picks Name[lang_COUNTRY], then Name[lang], then Name
func (e *Entry) LocalizedName(locale string) string {
	locale, _, _ = strings.Cut(locale, ".")
	locale, _, _ = strings.Cut(locale, "@")
	if locale != "" {
		if n := e.LocalizedNames[locale]; n != "" {
			return n
		}
		lang, _, _ := strings.Cut(locale, "_")
		if n := e.LocalizedNames[lang]; n != "" {
			return n
		}
	}
	return e.Name
}

// Matches reports whether the entry describes the app with this
// lower-cased WM_CLASS.
func (e *Entry) Matches(pkg string) bool {
	if e.Hidden || pkg == "" {
		return false
	}

	id := strings.ToLower(e.ID)
	if id == pkg || strings.EqualFold(e.StartupWMClass, pkg) {
		return true
	}

	// reverse-DNS ids: org.gnome.Nautilus -> nautilus
	if i := strings.LastIndex(id, "."); i >= 0 && id[i+1:] == pkg {
		return true
	}

	if fields := strings.Fields(e.Exec); len(fields) > 0 {
		return strings.ToLower(path.Base(fields[0])) == pkg
	}
	return false
}
