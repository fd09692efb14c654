package classify

import "testing"

func TestIsTargetDocument(t *testing.T) {
	tests := []struct {
		verdict string
		want    bool
	}{
		{verdict: "The document IS a TRUE positive case.", want: true},
		{verdict: "True", want: true},
		{verdict: "true.", want: true},
		{verdict: "False, this is not a match", want: false},
		{verdict: "", want: false},
		{verdict: "I cannot tell.", want: false},
		{verdict: "untrue", want: true},
	}

	for _, tt := range tests {
		if got := IsTargetDocument(tt.verdict); got != tt.want {
			t.Errorf("IsTargetDocument(%q) = %v, want %v", tt.verdict, got, tt.want)
		}
	}
}
