package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		want  string
		ok    bool
	}{
		{"en", "en", true},
		{"EN", "en", true},
		{"de", "de", true},
		{"pt-BR", "pt-BR", true},
		{"pt_BR", "pt-BR", true},
		{"zz", "", false},
		{"not a tag", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		tag, ok := Parse(tt.value)
		if ok != tt.ok {
			t.Errorf("Parse(%q) ok = %v, want %v", tt.value, ok, tt.ok)
			continue
		}
		if ok && tag.String() != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.value, tag, tt.want)
		}
	}
}

func TestNormalizeFallsBack(t *testing.T) {
	t.Parallel()

	if got := Normalize("fr"); got != language.French {
		t.Errorf("Normalize(fr) = %v", got)
	}
	if got := Normalize("klingon"); got != Default() {
		t.Errorf("Normalize(klingon) = %v, want default", got)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := Validate("de"); err != nil {
		t.Errorf("Validate(de): %v", err)
	}
	if err := Validate("xx-YY"); err == nil {
		t.Errorf("Validate(xx-YY) accepted")
	}
}

func TestMatchAccept(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
	}{
		{"pt;q=0.9, en;q=0.5", "pt-BR"},
		{"de-AT, de;q=0.8", "de"},
		{"da, nb", "en"},
		{"", "en"},
		{"garbage;;;", "en"},
	}
	for _, tt := range tests {
		if got := MatchAccept(tt.header); got.String() != tt.want {
			t.Errorf("MatchAccept(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestLocaleKey(t *testing.T) {
	t.Parallel()

	if got := LocaleKey(language.MustParse("pt-BR")); got != "pt_BR" {
		t.Errorf("LocaleKey(pt-BR) = %q", got)
	}
	if got := LocaleKey(language.English); got != "en" {
		t.Errorf("LocaleKey(en) = %q", got)
	}
}

func TestNativeName(t *testing.T) {
	t.Parallel()

	if got := NativeName(language.German); got != "Deutsch" {
		t.Errorf("NativeName(de) = %q, want %q", got, "Deutsch")
	}
	if got := NativeName(language.English); got != "English" {
		t.Errorf("NativeName(en) = %q, want %q", got, "English")
	}
}
