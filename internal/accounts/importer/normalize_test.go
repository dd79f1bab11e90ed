package importer

import (
	"os"
	"testing"

	"leadbridge/internal/accounts/domain"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Manažer":        "manazer",
		"  KANCELÁŘ ":    "kancelar",
		"Jiří  Čermák":   "jiri cermak",
		"Nováková-Dvořá": "novakova-dvora",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want domain.Role
		ok   bool
	}{
		{"Makléř", domain.RoleReferrer, true},
		{"maklér", domain.RoleReferrer, true},
		{"makler", domain.RoleReferrer, true},
		{"Manažer", domain.RoleReferrerManager, true},
		{"manager", domain.RoleReferrerManager, true},
		{"Kancelář", domain.RoleOffice, true},
		{"office", domain.RoleOffice, true},
		{"ředitel", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseRole(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseRole(%q) = %q, %v", tc.in, got, ok)
		}
	}
}

func TestParsePct(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "0", false},
		{"12,5", "12.5", false},
		{"12.5 %", "12.5", false},
		{"40", "40", false},
		{"abc", "", true},
	}
	for _, tc := range cases {
		got, err := ParsePct(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParsePct(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got.String() != tc.want {
			t.Fatalf("ParsePct(%q) = %s, %v", tc.in, got, err)
		}
	}
}

func TestSplitNameAndUsername(t *testing.T) {
	first, last, ok := SplitName("Jana  Nová Svobodová")
	if !ok || first != "Jana" || last != "Nová Svobodová" {
		t.Fatalf("unexpected split %q %q %v", first, last, ok)
	}
	if _, _, ok := SplitName("Jana"); ok {
		t.Fatalf("a single token is not a full name")
	}
	if got := Username("Jiří", "Nová Svobodová", "example.cz"); got != "jirinovasvobodova@example.cz" {
		t.Fatalf("unexpected username %q", got)
	}
}
