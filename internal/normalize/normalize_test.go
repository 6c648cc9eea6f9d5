package normalize

import (
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "COOL Scene", "cool scene"},
		{"strips punctuation", "Foo, Bar!!", "foo bar"},
		{"collapses whitespace", "a   b\t c", "a b c"},
		{"trims ends", "  hello  ", "hello"},
		{"keeps digits", "Scene 42", "scene 42"},
		{"empty input", "", ""},
		{"whitespace only", "   \t ", ""},
		{"punctuation only", "!!??..", ""},
		{"unicode letters survive", "Héllo Wörld", "héllo wörld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.input); got != tt.expected {
				t.Errorf("Key(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestKeyStability(t *testing.T) {
	inputs := []string{"Foo, Bar!!", "foo bar", "Scene #12 (remastered)"}
	for _, in := range inputs {
		if Key(in) != Key(in) {
			t.Errorf("Key(%q) is not stable", in)
		}
	}

	if Key("Foo, Bar!!") != Key("foo bar") {
		t.Error("punctuation variants should normalize to the same key")
	}
}

func TestTokens(t *testing.T) {
	if got := Tokens(""); got != nil {
		t.Errorf("Tokens(\"\") = %v, want nil", got)
	}

	got := Tokens("cool scene two")
	if len(got) != 3 || got[0] != "cool" || got[2] != "two" {
		t.Errorf("unexpected tokens: %v", got)
	}
}

func TestFolderName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Rope Play", "Rope Play"},
		{"a/b\\c", "a_b_c"},
		{"what?*", "what"},
		{"__already__", "already"},
		{"a::b", "a_b"},
	}

	for _, tt := range tests {
		if got := FolderName(tt.input); got != tt.expected {
			t.Errorf("FolderName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(`A "Risky" Title: Part 2?`); got != "A Risky Title Part 2" {
		t.Errorf("unexpected FileName result: %q", got)
	}
}

func TestTitleFromURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"updates path", "https://example.com/updates/cool-scene-two", "COOL SCENE TWO"},
		{"trailing slash", "https://example.com/updates/cool-scene/", "COOL SCENE"},
		{"query stripped", "https://example.com/updates/cool-scene?page=2", "COOL SCENE"},
		{"underscores", "https://example.com/updates/cool_scene", "COOL SCENE"},
		{"bare domain", "https://example.com/", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TitleFromURL(tt.input); got != tt.expected {
				t.Errorf("TitleFromURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
