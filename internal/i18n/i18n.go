// Package i18n translates user-facing messages. English and German are
// supported; the choice is persisted under the "language" key.
package i18n

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/daikw/voicealchemy/internal/storage"
)

// StorageKey holds the saved language
const StorageKey = "language"

// Language is a supported UI language
type Language string

const (
	English Language = "en"
	German  Language = "de"
)

// Supported lists the languages in matcher order; the first is the default
var Supported = []Language{English, German}

var matcher = language.NewMatcher([]language.Tag{language.English, language.German})

// Parse accepts "en" or "de"
func Parse(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case English:
		return English, nil
	case German:
		return German, nil
	}
	return "", fmt.Errorf("unsupported language %q (want en or de)", s)
}

// Match picks the closest supported language for a BCP 47 tag or an
// Accept-Language style list such as "de-CH,fr;q=0.8"
func Match(pref string) Language {
	tags, _, err := language.ParseAcceptLanguage(pref)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, index, conf := matcher.Match(tags...)
	if conf == language.No {
		return English
	}
	return Supported[index]
}

// FromEnvironment matches the POSIX locale variables
func FromEnvironment() Language {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(name)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		// de_DE.UTF-8@euro -> de-DE
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		return Match(strings.ReplaceAll(v, "_", "-"))
	}
	return English
}

// Load returns the saved language, or fallback when none is saved
func Load(s *storage.Store, fallback Language) Language {
	lang, err := Parse(s.Load(StorageKey, string(fallback)))
	if err != nil {
		return fallback
	}
	return lang
}

// Save stores the language preference
func Save(s *storage.Store, lang Language) {
	s.Save(StorageKey, string(lang))
}

// Translator looks up messages for one language
type Translator struct {
	lang Language
}

// New creates a translator; unknown languages fall back to English
func New(lang Language) *Translator {
	if _, ok := catalog[lang]; !ok {
		lang = English
	}
	return &Translator{lang: lang}
}

// Language returns the translator's language
func (t *Translator) Language() Language {
	return t.lang
}

// T returns the message for key with {0}, {1}, ... replaced by args.
// Missing German messages fall back to English, missing keys to the key.
func (t *Translator) T(key string, args ...any) string {
	msg, ok := catalog[t.lang][key]
	if !ok {
		msg, ok = catalog[English][key]
	}
	if !ok {
		msg = key
	}
	for i, arg := range args {
		msg = strings.ReplaceAll(msg, "{"+strconv.Itoa(i)+"}", fmt.Sprint(arg))
	}
	return msg
}
