package validate

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	namePattern := regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

	tests := []struct {
		name        string
		input       string
		constraints StringConstraints
		wantErr     error
		wantOutput  string
	}{
		{
			name:        "within length bounds",
			input:       "Hello World",
			constraints: StringConstraints{MinLength: 5, MaxLength: 20, TrimSpace: true},
			wantOutput:  "Hello World",
		},
		{
			name:        "too short",
			input:       "Hi",
			constraints: StringConstraints{MinLength: 5, MaxLength: 20},
			wantErr:     ErrStringTooShort,
		},
		{
			name:        "too long",
			input:       strings.Repeat("a", 101),
			constraints: StringConstraints{MinLength: 1, MaxLength: 100},
			wantErr:     ErrStringTooLong,
		},
		{
			name:        "length counts runes not bytes",
			input:       strings.Repeat("ü", 10),
			constraints: StringConstraints{MinLength: 1, MaxLength: 10},
			wantOutput:  strings.Repeat("ü", 10),
		},
		{
			name:        "empty rejected",
			input:       "",
			constraints: StringConstraints{},
			wantErr:     ErrEmpty,
		},
		{
			name:        "empty allowed when opted in",
			input:       "",
			constraints: StringConstraints{AllowEmpty: true},
			wantOutput:  "",
		},
		{
			name:        "whitespace trimmed",
			input:       "  Hello  ",
			constraints: StringConstraints{TrimSpace: true},
			wantOutput:  "Hello",
		},
		{
			name:        "SQL keyword detected",
			input:       "Hello SELECT World",
			constraints: StringConstraints{CheckSQLKeywords: true},
			wantErr:     ErrSQLKeyword,
		},
		{
			name:        "SQL keyword detected in lowercase",
			input:       "select * from users",
			constraints: StringConstraints{CheckSQLKeywords: true},
			wantErr:     ErrSQLKeyword,
		},
		{
			name:        "no SQL keyword",
			input:       "This is a normal sentence",
			constraints: StringConstraints{CheckSQLKeywords: true},
			wantOutput:  "This is a normal sentence",
		},
		{
			name:        "disallowed word",
			input:       "Hello spam world",
			constraints: StringConstraints{DisallowedWords: []string{"spam", "scam"}},
			wantErr:     ErrDisallowedWord,
		},
		{
			name:        "pattern match",
			input:       "valid-name_123",
			constraints: StringConstraints{AllowedPattern: namePattern},
			wantOutput:  "valid-name_123",
		},
		{
			name:        "pattern mismatch",
			input:       "invalid name!",
			constraints: StringConstraints{AllowedPattern: namePattern},
			wantErr:     ErrInvalidCharacters,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := String(tt.input, tt.constraints)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("String() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("String() unexpected error = %v", err)
			}
			if got != tt.wantOutput {
				t.Errorf("String() = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}

func TestSanitizeHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text unchanged",
			input: "Hello World",
			want:  "Hello World",
		},
		{
			name:  "script tag escaped",
			input: "<script>alert('xss')</script>",
			want:  "&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;",
		},
		{
			name:  "attribute injection escaped",
			input: `<div onclick="evil()">Click me</div>`,
			want:  "&lt;div onclick=&#34;evil()&#34;&gt;Click me&lt;/div&gt;",
		},
		{
			name:  "ampersand escaped",
			input: "Tom & Jerry",
			want:  "Tom &amp; Jerry",
		},
		{
			name:  "quotes escaped",
			input: `He said "hello"`,
			want:  "He said &#34;hello&#34;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeHTML(tt.input); got != tt.want {
				t.Errorf("SanitizeHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestZoneName(t *testing.T) {
	valid := []string{
		"Home Perimeter",
		"School-Zone_v2.0",
		"X",
		// SQL keyword checking is off for names.
		"Drop-in Center",
		"Drop Tower Playground",
		"Executive Airport Pickup",
		"From Street Entrance",
		"Join Point North",
		"Select Bus Stop",
		"DELETE ward crossing",
		"DROP off lane",
	}
	for _, name := range valid {
		t.Run(name, func(t *testing.T) {
			got, err := ZoneName(name)
			if err != nil {
				t.Fatalf("ZoneName(%q) unexpected error = %v", name, err)
			}
			if got == "" {
				t.Errorf("ZoneName(%q) returned empty string", name)
			}
		})
	}

	invalid := []string{
		"",
		strings.Repeat("a", 101),
		"Zone@Name#123",
	}
	for _, name := range invalid {
		if _, err := ZoneName(name); err == nil {
			t.Errorf("ZoneName(%q) expected error", name)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain name", input: "Jordan Mireles"},
		{name: "at max length", input: strings.Repeat("a", 100)},
		{name: "too long", input: strings.Repeat("a", 101), wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "HTML gets escaped not rejected", input: "Jordan <b>M</b>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DisplayName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DisplayName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got == "" {
				t.Errorf("DisplayName(%q) returned empty string", tt.input)
			}
			if strings.Contains(tt.input, "<") && !strings.Contains(got, "&lt;") {
				t.Errorf("DisplayName(%q) did not escape HTML: got %q", tt.input, got)
			}
		})
	}
}

// TestSQLKeywordDetection exercises the word-boundary logic directly
// through the CheckSQLKeywords constraint.
func TestSQLKeywordDetection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Substrings of keywords are not keywords.
		{name: "Executive contains EXEC", input: "The Executive"},
		{name: "Confrom contains FROM", input: "Confrom Hall"},
		{name: "Updated contains UPDATE", input: "Updated Route"},

		// Standalone keywords and symbol sequences are.
		{name: "standalone SELECT", input: "SELECT something", wantErr: true},
		{name: "standalone DELETE", input: "DELETE this", wantErr: true},
		{name: "standalone DROP", input: "DROP it", wantErr: true},
		{name: "comment marker", input: "test -- comment", wantErr: true},
		{name: "stored procedure prefix", input: "xp_cmdshell test", wantErr: true},
	}

	constraints := StringConstraints{
		MinLength:        1,
		MaxLength:        100,
		CheckSQLKeywords: true,
		TrimSpace:        true,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := String(tt.input, constraints)
			if (err != nil) != tt.wantErr {
				t.Errorf("String(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
