package classify

import "strings"

// Role mirrors node.Role's string values, kept decoupled from package node
// so classify has no import of the routing core (it is a pure text-to-tag
// function usable standalone, e.g. from a future gateway).
type Role string

// roleKeywords is the keyword table for each service section, carried
// over from the original implementation's keyword-based request
// classifier.
var roleKeywords = map[Role][]string{
	"auth":     {"auth", "login", "authenticate", "token", "credential", "password"},
	"database": {"database", "db", "query", "sql", "data", "store", "persist"},
	"compute":  {"compute", "calculate", "process", "execute", "run", "task"},
	"vision":   {"vision", "image", "visual", "detect", "recognize", "camera"},
	"storage":  {"storage", "file", "upload", "download", "blob", "object"},
	"proxy":    {"proxy", "forward", "route", "gateway", "redirect"},
}

// Classify scores requestText against each role's keyword list and
// returns the highest-scoring role, or ("", false) if no keyword matched.
// Ties are broken by iterating roles in a fixed order so Classify is
// deterministic.
func Classify(requestText string) (Role, bool) {
	lower := strings.ToLower(requestText)

	order := []Role{"auth", "database", "compute", "vision", "storage", "proxy"}
	bestRole := Role("")
	bestScore := 0
	for _, role := range order {
		score := 0
		for _, kw := range roleKeywords[role] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestRole = role
		}
	}
	if bestScore == 0 {
		return "", false
	}
	return bestRole, true
}
