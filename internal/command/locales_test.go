package command

import (
	"sort"
	"strings"
	"testing"
)

func TestLocalesListed(t *testing.T) {
	locales := Locales()
	if len(locales) != len(localeTables) {
		t.Fatalf("Locales() has %d entries, tables have %d", len(locales), len(localeTables))
	}
	for _, l := range locales {
		if _, ok := localeTables[l]; !ok {
			t.Errorf("locale %q listed but has no table", l)
		}
	}
}

func TestEveryLocaleCoversSameActions(t *testing.T) {
	actionSet := func(locale string) []string {
		seen := map[string]bool{}
		for _, p := range localeTables[locale] {
			key := string(p.Action)
			if p.Arg != "" {
				key += ":" + p.Arg
			}
			seen[key] = true
		}
		keys := make([]string, 0, len(seen))
		for k := range seen {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}

	reference := actionSet("en-US")
	if len(reference) == 0 {
		t.Fatal("en-US table is empty")
	}
	for _, locale := range Locales() {
		got := actionSet(locale)
		if len(got) != len(reference) {
			t.Errorf("%s covers %d actions, en-US covers %d", locale, len(got), len(reference))
			continue
		}
		for i := range reference {
			if got[i] != reference[i] {
				t.Errorf("%s action set differs at %q vs %q", locale, got[i], reference[i])
			}
		}
	}
}

func TestPhrasesAreNormalized(t *testing.T) {
	for locale, phrases := range localeTables {
		seen := map[string]bool{}
		for _, p := range phrases {
			if p.Text != strings.ToLower(p.Text) {
				t.Errorf("%s phrase %q is not lowercase", locale, p.Text)
			}
			if p.Text != strings.TrimSpace(p.Text) {
				t.Errorf("%s phrase %q has surrounding whitespace", locale, p.Text)
			}
			if seen[p.Text] {
				t.Errorf("%s phrase %q is duplicated", locale, p.Text)
			}
			seen[p.Text] = true
		}
	}
}

func TestLocaleChangeArgsAreValid(t *testing.T) {
	for locale, phrases := range localeTables {
		for _, p := range phrases {
			if p.Action != ActionLocaleChange {
				if p.Arg != "" {
					t.Errorf("%s phrase %q has arg %q for non-locale action", locale, p.Text, p.Arg)
				}
				continue
			}
			if _, ok := localeTables[p.Arg]; !ok {
				t.Errorf("%s phrase %q switches to unknown locale %q", locale, p.Text, p.Arg)
			}
		}
	}
}
