package cmd

import "strings"

// levenshtein computes the Levenshtein edit distance between two strings.
func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// Use a single row plus a prev value to reduce allocation.
	row := make([]int, lb+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= la; i++ {
		prev := i - 1
		row[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			val := min3(row[j]+1, row[j-1]+1, prev+cost)
			prev = row[j]
			row[j] = val
		}
	}
	return row[lb]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

// suggestValue finds the allowed value closest to an invalid one. Returns
// empty string if nothing is within an edit distance of 3.
func suggestValue(invalid string, allowed []string) string {
	invalid = strings.ToLower(strings.TrimSpace(invalid))
	if invalid == "" {
		return ""
	}
	bestDist := 4
	bestMatch := ""
	for _, v := range allowed {
		if d := levenshtein(invalid, strings.ToLower(v)); d < bestDist {
			bestDist = d
			bestMatch = v
		}
	}
	return bestMatch
}
