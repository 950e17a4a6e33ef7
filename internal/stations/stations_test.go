package stations

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stations.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeRegistry(t, `
stations:
  - code: franceculture
    name: France Culture
    aliases: ["culture"]
  - code: fip
    name: FIP
`)
	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := len(reg.All()); got != 2 {
		t.Fatalf("expected 2 stations, got %d", got)
	}
	if s, ok := reg.ByCode("franceculture"); !ok || s.Name != "France Culture" {
		t.Errorf("ByCode lookup failed: %+v ok=%v", s, ok)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	reg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if _, ok := reg.ByCode("franceinter"); !ok {
		t.Error("expected built-in stations when no file is configured")
	}
}

func TestLoadRejectsDuplicateCodes(t *testing.T) {
	path := writeRegistry(t, `
stations:
  - code: fip
    name: FIP
  - code: fip
    name: FIP bis
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected duplicate code to be rejected")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing registry file")
	}
}

func TestResolveName(t *testing.T) {
	reg := Default()

	tests := []struct {
		in       string
		wantCode string
		wantOK   bool
	}{
		{"France Culture", "franceculture", true},
		{"  france   culture  ", "franceculture", true},
		{"FRANCECULTURE", "franceculture", true},
		{"culture", "franceculture", true},
		{"france info", "franceinfo", true},
		{"fip", "fip", true},
		{"Radio Nowhere", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		s, ok := reg.ResolveName(tt.in)
		if ok != tt.wantOK {
			t.Errorf("ResolveName(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && s.Code != tt.wantCode {
			t.Errorf("ResolveName(%q) = %q, want %q", tt.in, s.Code, tt.wantCode)
		}
	}
}
