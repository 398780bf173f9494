package locale

import (
	"net/http"
	"strings"
)

const (
	English = "en"
	Myanmar = "my"
)

// Names holds every name field an entity may carry.
type Names struct {
	EN   string
	MY   string
	Name string
}

// Normalize maps any locale other than Myanmar to English.
func Normalize(locale string) string {
	if strings.EqualFold(strings.TrimSpace(locale), Myanmar) {
		return Myanmar
	}
	return English
}

// PickName resolves the display name for locale. The result is empty only
// when every field of n is blank.
func PickName(locale string, n Names) string {
	primary, secondary := n.EN, n.MY
	if Normalize(locale) == Myanmar {
		primary, secondary = n.MY, n.EN
	}

	for _, candidate := range []string{primary, secondary, n.Name} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

// FromRequest reads the locale from the "locale" query parameter, then the
// first Accept-Language tag, and falls back to def.
func FromRequest(r *http.Request, def string) string {
	if q := r.URL.Query().Get("locale"); q != "" {
		return Normalize(q)
	}

	if header := r.Header.Get("Accept-Language"); header != "" {
		tag := strings.Split(header, ",")[0]
		tag = strings.Split(tag, ";")[0]
		tag = strings.Split(strings.TrimSpace(tag), "-")[0]
		if tag != "" {
			return Normalize(tag)
		}
	}

	return Normalize(def)
}
