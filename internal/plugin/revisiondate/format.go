package revisiondate

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Format names accepted by the `type` option.
const (
	TypeDate        = "date"
	TypeDateTime    = "datetime"
	TypeISODate     = "iso_date"
	TypeISODateTime = "iso_datetime"
	TypeTimeAgo     = "timeago"
)

func validType(t string) bool {
	switch t {
	case TypeDate, TypeDateTime, TypeISODate, TypeISODateTime, TypeTimeAgo:
		return true
	}
	return false
}

type localeFormat struct {
	months [12]string
	// date renders day, month name and year.
	date func(day int, month string, year int) string
}

var locales = map[language.Tag]localeFormat{
	language.English: {
		months: [12]string{"January", "February", "March", "April", "May", "June", "July",
			"August", "September", "October", "November", "December"},
		date: func(d int, m string, y int) string { return fmt.Sprintf("%s %d, %d", m, d, y) },
	},
	language.German: {
		months: [12]string{"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli",
			"August", "September", "Oktober", "November", "Dezember"},
		date: func(d int, m string, y int) string { return fmt.Sprintf("%d. %s %d", d, m, y) },
	},
	language.French: {
		months: [12]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet",
			"août", "septembre", "octobre", "novembre", "décembre"},
		date: func(d int, m string, y int) string { return fmt.Sprintf("%d %s %d", d, m, y) },
	},
	language.Spanish: {
		months: [12]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
			"agosto", "septiembre", "octubre", "noviembre", "diciembre"},
		date: func(d int, m string, y int) string { return fmt.Sprintf("%d de %s de %d", d, m, y) },
	},
}

// supported lists the tags in matcher preference order; English is the fallback.
var supported = []language.Tag{language.English, language.German, language.French, language.Spanish}

var matcher = language.NewMatcher(supported)

// matchLocale maps a locale such as "de_CH" or "pt-BR" onto a supported one.
func matchLocale(locale string) language.Tag {
	if locale == "" {
		return language.English
	}
	tag, err := language.Parse(normalizeLocale(locale))
	if err != nil {
		return language.English
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return supported[idx]
}

func normalizeLocale(locale string) string {
	out := []byte(locale)
	for i, c := range out {
		if c == '_' {
			out[i] = '-'
		}
	}
	return string(out)
}

// format renders t in UTC so output does not depend on the build machine.
func format(t time.Time, kind string, tag language.Tag) string {
	t = t.UTC()
	switch kind {
	case TypeISODate:
		return t.Format("2006-01-02")
	case TypeISODateTime:
		return t.Format("2006-01-02 15:04:05")
	case TypeTimeAgo:
		return t.Format(time.RFC3339)
	}
	lf, ok := locales[tag]
	if !ok {
		lf = locales[language.English]
	}
	date := lf.date(t.Day(), lf.months[t.Month()-1], t.Year())
	if kind == TypeDateTime {
		return date + " " + t.Format("15:04:05")
	}
	return date
}
