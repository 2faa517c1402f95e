// Package revision implements revision-code arithmetic for versioned assets.
// Codes are letters (A, B, ... Z, AA, ...) while a document has never been
// approved, and plain integers (1, 2, ...) once it has.
package revision

import "strconv"

// IsNumeric reports whether the code belongs to the post-approval numeric
// sequence.
func IsNumeric(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsLetter reports whether the code belongs to the pre-approval letter
// sequence.
func IsLetter(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// NextApproved returns the code an asset carries after an approval decision.
// The first approval moves a letter code onto the numeric baseline ("1");
// subsequent approvals increment the number.
func NextApproved(code string) string {
	if IsNumeric(code) {
		n, err := strconv.Atoi(code)
		if err != nil {
			return "1"
		}
		return strconv.Itoa(n + 1)
	}
	return "1"
}

// NextDraft returns the code for a new draft checkpoint. Letter codes advance
// (B follows A, AA follows Z); numeric codes are carried unchanged because
// numeric advancement only happens on approval. An empty code starts at "A".
func NextDraft(code string) string {
	if code == "" {
		return "A"
	}
	if !IsLetter(code) {
		return code
	}
	letters := []byte(code)
	for i := len(letters) - 1; i >= 0; i-- {
		if letters[i] < 'Z' {
			letters[i]++
			return string(letters)
		}
		letters[i] = 'A'
	}
	return "A" + string(letters)
}
