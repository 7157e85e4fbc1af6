package utils

import (
	"math"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "Hello World", []string{"hello", "world"}},
		{"punctuation stripped", "database-indexing, query/planning!", []string{"database", "indexing", "query", "planning"}},
		{"short tokens dropped", "a to the go", []string{"to", "the", "go"}},
		{"digits kept", "k8s v2 rollout", []string{"k8s", "v2", "rollout"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenSet(t *testing.T) {
	set := TokenSet("the quick the slow the quick")
	if len(set) != 3 {
		t.Fatalf("expected 3 unique tokens, got %d", len(set))
	}
	for _, tok := range []string{"the", "quick", "slow"} {
		if _, ok := set[tok]; !ok {
			t.Errorf("missing token %q", tok)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("got %q, want unchanged", got)
	}
	if got := Truncate("a longer string", 8); got != "a longer..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Errorf("maxLen 0 should be a no-op, got %q", got)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Errorf("norm^2 = %f, want 1.0", sum)
	}

	zero := []float32{0, 0, 0}
	NormalizeL2(zero)
	for _, x := range zero {
		if x != 0 {
			t.Error("zero vector should stay zero")
		}
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
