package search

// skipNames are entry names never descended into or scanned.
var skipNames = map[string]struct{}{
	".":            {},
	"..":           {},
	"node_modules": {},
	"target":       {},
	".git":         {},
}

// ShouldSkip reports whether a directory entry with the given base name is
// excluded from workspace scans. The rule applies at any depth.
func ShouldSkip(name string) bool {
	_, ok := skipNames[name]
	return ok
}
