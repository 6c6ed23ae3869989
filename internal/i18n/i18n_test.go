package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestLocaleFromEnv(t *testing.T) {
	tests := []struct {
		lang string
		base string
	}{
		{"", "en"},
		{"C", "en"},
		{"de_DE.UTF-8", "de"},
		{"en_US.UTF-8", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			t.Setenv("LC_ALL", "")
			t.Setenv("LANG", tt.lang)
			base, _ := localeFromEnv().Base()
			if base.String() != tt.base {
				t.Errorf("localeFromEnv(%q) base = %s, want %s", tt.lang, base, tt.base)
			}
		})
	}
}

func TestMatchLanguage(t *testing.T) {
	tag := MatchLanguage("de-CH,de;q=0.9")
	base, _ := tag.Base()
	want, _ := language.German.Base()
	if base != want {
		t.Errorf("MatchLanguage = %v", tag)
	}
}
