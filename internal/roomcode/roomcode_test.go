package roomcode

import (
	"strings"
	"testing"
)

// seqSource returns 0, 1, 2, ... modulo n for deterministic codes.
type seqSource struct{ next int }

func (s *seqSource) Intn(n int) int {
	v := s.next % n
	s.next++
	return v
}

func TestGenerate_Deterministic(t *testing.T) {
	g := NewGenerator(&seqSource{})

	code := g.Generate()
	if code != "234567" {
		t.Errorf("Expected 234567 from sequential source, got %q", code)
	}
	if err := Validate(code); err != nil {
		t.Errorf("Generated code failed validation: %v", err)
	}
}

func TestGenerate_CryptoSource(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := Generate()
		if err := Validate(code); err != nil {
			t.Fatalf("Generated code %q failed validation: %v", code, err)
		}
		seen[code] = true
	}
	// 100 draws from a 31^6 space colliding down to a handful would mean
	// the source is broken.
	if len(seen) < 90 {
		t.Errorf("Expected ~100 distinct codes, got %d", len(seen))
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		code string
		ok   bool
	}{
		{"ABCDEF", true},
		{"234567", true},
		{"ABCDE", false},   // too short
		{"ABCDEFG", false}, // too long
		{"ABCDE0", false},  // 0 not in alphabet
		{"ABCDE1", false},  // 1 not in alphabet
		{"ABCDEO", false},  // O not in alphabet
		{"abcdef", false},  // lowercase not in alphabet
	}
	for _, tc := range cases {
		err := Validate(tc.code)
		if tc.ok && err != nil {
			t.Errorf("Validate(%q): unexpected error %v", tc.code, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("Validate(%q): expected error", tc.code)
		}
	}
}

func TestAlphabet_OmitsAmbiguousCharacters(t *testing.T) {
	for _, c := range "01IOL" {
		if strings.ContainsRune(alphabet, c) {
			t.Errorf("Alphabet must not contain ambiguous character %c", c)
		}
	}
}
