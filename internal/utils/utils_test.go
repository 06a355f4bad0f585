package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatWithCommas(t *testing.T) {
	testCases := []struct {
		input    int
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{123456, "123,456"},
		{1234567, "1,234,567"},
		{-98765, "-98,765"},
	}
	for _, tc := range testCases {
		if got := FormatWithCommas(tc.input); got != tc.expected {
			t.Errorf("FormatWithCommas(%d) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestCreateRankList(t *testing.T) {
	ranks := CreateRankList(3)
	if len(ranks) != 3 || ranks[0] != 1 || ranks[2] != 3 {
		t.Errorf("CreateRankList(3) = %v", ranks)
	}
	if len(CreateRankList(-1)) != 0 {
		t.Errorf("negative count must yield no ranks")
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	type section struct {
		Name  string `toml:"name"`
		Count int    `toml:"count"`
	}
	type doc struct {
		Main section `toml:"main"`
	}

	path := filepath.Join(t.TempDir(), "out.toml")
	if err := SaveTOMLFile(doc{Main: section{Name: "x", Count: 3}}, path); err != nil {
		t.Fatal(err)
	}

	var got doc
	if err := LoadTOMLFile(path, &got); err != nil {
		t.Fatal(err)
	}
	if got.Main.Name != "x" || got.Main.Count != 3 {
		t.Errorf("decoded %+v", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestPartialRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	content := "[main]\nname = 1\ncount = 4\nflag = true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := ParseTOMLWithRecovery(path)
	if err != nil {
		t.Fatal(err)
	}
	section, ok := ExtractSection(data, "main")
	if !ok {
		t.Fatal("section main missing")
	}
	if _, ok := ExtractString(section, "name"); ok {
		t.Errorf("integer extracted as string")
	}
	if n, ok := ExtractInt64(section, "count"); !ok || n != 4 {
		t.Errorf("ExtractInt64(count) = %d, %v", n, ok)
	}
	if b, ok := ExtractBool(section, "flag"); !ok || !b {
		t.Errorf("ExtractBool(flag) = %v, %v", b, ok)
	}
	if _, ok := ExtractBool(section, "missing"); ok {
		t.Errorf("missing key extracted")
	}
}

func TestCheckDirStatus(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	result := CheckDirStatus(dir)
	if !result.Exists || !result.Writable || result.Error != nil {
		t.Errorf("CheckDirStatus(%s) = %+v", dir, result)
	}
	if !FileExists(dir) {
		t.Errorf("directory not created")
	}
}
