package sheets

import "golang.org/x/exp/slices"

// ColumnLetter converts a zero-based column index to its A1 letter form:
// 0 -> A, 25 -> Z, 26 -> AA.
func ColumnLetter(index int) string {
	letters := ""
	for index >= 0 {
		letters = string(rune('A'+index%26)) + letters
		index = index/26 - 1
	}
	return letters
}

func sortStrings(s []string) {
	slices.Sort(s)
}
