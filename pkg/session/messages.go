package session

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const appKilledKey = "app_killed_message"

var appKilledTemplates = []struct {
	tag language.Tag
	msg string
}{
	{language.English, "%s killed"},
	{language.German, "%s beendet"},
	{language.French, "%s arrêtée"},
	{language.Spanish, "%s cerrada"},
	{language.Italian, "%s terminata"},
	{language.BrazilianPortuguese, "%s encerrado"},
	{language.Russian, "%s закрыто"},
}

var (
	supported []language.Tag
	matcher   language.Matcher
)

func init() {
	for _, t := range appKilledTemplates {
		if err := message.SetString(t.tag, appKilledKey, t.msg); err != nil {
			panic(err)
		}
		supported = append(supported, t.tag)
	}
	matcher = language.NewMatcher(supported)
}

// Messages renders user-facing text in the session language
type Messages struct {
	printer *message.Printer
	tag     language.Tag
}

// NewMessages picks the closest supported language for locale, which may
// be a POSIX locale such as "de_DE.UTF-8". Unknown locales get English.
func NewMessages(locale string) *Messages {
	tag := supported[0]
	if t, err := parseLocale(locale); err == nil {
		_, idx, conf := matcher.Match(t)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return &Messages{printer: message.NewPrinter(tag), tag: tag}
}

// Tag is the language messages are rendered in
func (m *Messages) Tag() language.Tag {
	return m.tag
}

// AppKilled implements killer.MessageFormatter
func (m *Messages) AppKilled(displayName string) string {
	return m.printer.Sprintf(appKilledKey, displayName)
}

// SessionLocale returns the first of LC_ALL, LC_MESSAGES and LANG that is set
func SessionLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func parseLocale(locale string) (language.Tag, error) {
	locale, _, _ = strings.Cut(locale, ".")
	locale, _, _ = strings.Cut(locale, "@")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return language.English, nil
	}
	return language.Parse(strings.ReplaceAll(locale, "_", "-"))
}
