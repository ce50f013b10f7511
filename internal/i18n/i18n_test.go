package i18n

import "testing"

func loadBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := Load("../../locales", "en", []string{"en", "ja", "ar"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return b
}

func TestResolveHonorsQValues(t *testing.T) {
	b := loadBundle(t)
	got := b.Resolve("en;q=0.8, ja;q=0.9")
	if got != "ja" {
		t.Fatalf("expected ja, got %s", got)
	}
}

func TestResolveRegionsAndFallback(t *testing.T) {
	b := loadBundle(t)
	cases := map[string]string{
		"ar-EG,ar;q=0.9": "ar",
		"ja-JP":          "ja",
		"de-DE":          "en",
		"":               "en",
		"not a header;;": "en",
	}
	for header, want := range cases {
		if got := b.Resolve(header); got != want {
			t.Errorf("Resolve(%q) = %s, want %s", header, got, want)
		}
	}
}

func TestTranslateFallsBack(t *testing.T) {
	b := loadBundle(t)
	if got := b.T("ja", "catalog.title"); got == "catalog.title" || got == b.T("en", "catalog.title") {
		t.Errorf("expected a Japanese title, got %q", got)
	}
	if got := b.T("xx", "catalog.title"); got != b.T("en", "catalog.title") {
		t.Errorf("expected fallback for unknown language, got %q", got)
	}
	if got := b.T("en", "missing.key"); got != "missing.key" {
		t.Errorf("expected key echo, got %q", got)
	}
}

func TestDirection(t *testing.T) {
	for lang, want := range map[string]string{"ar": "rtl", "ar-EG": "rtl", "he": "rtl", "en": "ltr", "ja": "ltr", "": "ltr"} {
		if got := Direction(lang); got != want {
			t.Errorf("Direction(%q) = %s, want %s", lang, got, want)
		}
	}
}
