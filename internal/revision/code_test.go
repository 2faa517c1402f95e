package revision

import "testing"

func TestNextApproved(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"A", "1"},
		{"B", "1"},
		{"AZ", "1"},
		{"", "1"},
		{"1", "2"},
		{"2", "3"},
		{"9", "10"},
	}
	for _, tc := range tests {
		if got := NextApproved(tc.code); got != tc.want {
			t.Fatalf("NextApproved(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestNextDraft(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"", "A"},
		{"A", "B"},
		{"B", "C"},
		{"Z", "AA"},
		{"AZ", "BA"},
		{"ZZ", "AAA"},
		{"1", "1"},
		{"12", "12"},
	}
	for _, tc := range tests {
		if got := NextDraft(tc.code); got != tc.want {
			t.Fatalf("NextDraft(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestIsNumericIsLetter(t *testing.T) {
	if !IsNumeric("12") || IsNumeric("A") || IsNumeric("") || IsNumeric("1A") {
		t.Fatal("IsNumeric misclassified")
	}
	if !IsLetter("AZ") || IsLetter("2") || IsLetter("") || IsLetter("A2") {
		t.Fatal("IsLetter misclassified")
	}
}
