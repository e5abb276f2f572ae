package webhook

import "testing"

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name    string
		claimed string
		stored  string
		want    bool
	}{
		{"exact match", "a1b2c3", "a1b2c3", true},
		{"mismatch", "a1b2c3", "a1b2c4", false},
		{"mismatch in first char", "x1b2c3", "a1b2c3", false},
		{"claimed empty", "", "a1b2c3", false},
		{"stored empty rejects any claim", "a1b2c3", "", false},
		{"both empty still rejects", "", "", false},
		{"claimed is prefix of stored", "a1b2", "a1b2c3", false},
		{"stored is prefix of claimed", "a1b2c3", "a1b2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Authenticate(tt.claimed, tt.stored); got != tt.want {
				t.Fatalf("Authenticate(%q, %q) = %v, want %v", tt.claimed, tt.stored, got, tt.want)
			}
		})
	}
}
