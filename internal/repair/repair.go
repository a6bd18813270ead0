// Package repair fixes a known structural defect of preventive-plan
// exports: the employee code and employee name columns sometimes arrive
// shifted one or two positions to the right. The repair is a best-effort
// heuristic over a single row, not schema inference.
package repair

import (
	"fmt"
	"regexp"
	"strings"

	"maintsync/internal/logging"
)

var digitsOnly = regexp.MustCompile(`^\s*\d+\s*$`)

// synthesizedNameKey is used when a row has an employee code column but no
// employee name column to receive the recovered name.
const synthesizedNameKey = "nome_funcionario"

// FixEmployeeColumns repairs the employee code/name columns of a plan row
// in place. Two rules run in order:
//
//  1. Code recovery: when the code column is empty, the first digits-only
//     value in a later column becomes the code and the next non-numeric
//     value after it becomes the name; donor columns are blanked.
//  2. Name repair: when the name column holds a purely numeric value, that
//     value moves into the code column (if it is empty) and the next
//     non-empty non-numeric column forward supplies the real name; the
//     donor column is blanked.
//
// Donor columns are never blanked when they are the code or name targets
// themselves. Duplicate detection downstream depends on the blanking, so
// donors must be cleared rather than left with echoed values.
//
// Returns the header slice, extended with a synthesized name column when
// the row had none.
func FixEmployeeColumns(headers []string, row map[string]interface{}) []string {
	codeKey, nameKey := "", ""
	for _, h := range headers {
		lower := strings.ToLower(strings.TrimSpace(h))
		if strings.Contains(lower, "funcionário") || strings.Contains(lower, "funcionario") {
			if strings.Contains(lower, "nome") {
				nameKey = h
			} else {
				codeKey = h
			}
		}
	}
	if codeKey == "" {
		return headers
	}
	if nameKey == "" {
		nameKey = synthesizedNameKey
		headers = append(headers, nameKey)
	}

	idxOf := func(key string) int {
		for i, h := range headers {
			if h == key {
				return i
			}
		}
		return -1
	}
	blank := func(key string) {
		if key != codeKey && key != nameKey {
			row[key] = ""
		}
	}

	// Rule 1: recover an empty code from later columns.
	if cellText(row[codeKey]) == "" {
		codeIdx := idxOf(codeKey)
		for i := codeIdx + 1; i < len(headers); i++ {
			donor := headers[i]
			value := cellText(row[donor])
			if value == "" || !digitsOnly.MatchString(value) {
				continue
			}
			row[codeKey] = value
			for j := i + 1; j < len(headers); j++ {
				nameDonor := headers[j]
				nameValue := cellText(row[nameDonor])
				if nameValue == "" || digitsOnly.MatchString(nameValue) {
					continue
				}
				row[nameKey] = nameValue
				blank(donor)
				blank(nameDonor)
				logging.Logf(logging.Debug, "employee columns shifted: code from '%s', name from '%s'", donor, nameDonor)
				break
			}
			break
		}
	}

	// Rule 2: a numeric name is a misplaced code.
	nameValue := cellText(row[nameKey])
	if nameValue != "" && digitsOnly.MatchString(nameValue) {
		if cellText(row[codeKey]) == "" {
			row[codeKey] = nameValue
		}
		nameIdx := idxOf(nameKey)
		for i := nameIdx + 1; i < len(headers); i++ {
			donor := headers[i]
			value := cellText(row[donor])
			if value == "" || digitsOnly.MatchString(value) {
				continue
			}
			row[nameKey] = value
			blank(donor)
			logging.Logf(logging.Debug, "numeric employee name replaced from column '%s'", donor)
			break
		}
	}

	return headers
}

func cellText(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}
