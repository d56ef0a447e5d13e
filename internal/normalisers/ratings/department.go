package ratings

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

// broadDepartments are reclassified by the courses an instructor teaches.
var broadDepartments = map[string]bool{
	"Engineering":      true,
	"Computer Science": true,
	"Science":          true,
}

// subDepartments maps a course prefix to a specific department.
var subDepartments = map[string]string{
	"COMPE": "Computer Engineering",
	"COMP":  "Computer Engineering",
	"EE":    "Electrical Engineering",
	"ECE":   "Electrical & Computer Engineering",
	"ME":    "Mechanical Engineering",
	"AE":    "Aerospace Engineering",
	"AERO":  "Aerospace Engineering",
	"CE":    "Civil Engineering",
	"CIVIL": "Civil Engineering",
	"SE":    "Software Engineering",
	"ENVE":  "Environmental Engineering",
	"ENV":   "Environmental Engineering",
	"CHE":   "Chemical Engineering",
	"BENG":  "Bioengineering",
	"BIO_E": "Bioengineering",
	"ENGR":  "Engineering",
	"ENGIN": "Engineering",
	"CS":    "Computer Science",
	"CSC":   "Computer Science",
	"PHYS":  "Physics",
	"MATH":  "Mathematics",
	"STAT":  "Statistics",
}

var (
	prefixPattern      = regexp.MustCompile(`^[A-Za-z_]+`)
	conjunctionPattern = regexp.MustCompile(`(?i)\s+(and|amp)\s+`)
)

// CanonicalDepartment normalises a department name: whitespace collapsed,
// "and"/"amp" conjunctions written as "&", single-case names other than acronyms title-cased.
// An empty name becomes domain.UnknownDepartment.
func CanonicalDepartment(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return domain.UnknownDepartment
	}

	name = conjunctionPattern.ReplaceAllString(name, " & ")
	// Short all-caps names are acronyms
	if name == strings.ToLower(name) || (name == strings.ToUpper(name) && len(name) > 4) {
		name = cases.Title(language.English).String(name)
	}
	return name
}

// CanonicalCourse removes whitespace and upper-cases a course code.
func CanonicalCourse(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

// resolveSubDepartment picks a specific department for instructors filed
// under a broad one, using the course prefix with the highest summed count.
// Ties go to the lexically smaller department.
func resolveSubDepartment(department string, courses []domain.Count) string {
	if !broadDepartments[department] {
		return department
	}

	weights := make(map[string]int)
	for _, c := range courses {
		prefix := strings.ToUpper(prefixPattern.FindString(c.Name))
		if len(prefix) < 2 {
			continue
		}
		if sub, ok := subDepartments[prefix]; ok {
			weights[sub] += c.Count
		}
	}

	best, bestWeight := "", 0
	for sub, w := range weights {
		if w > bestWeight || (w == bestWeight && sub < best) {
			best, bestWeight = sub, w
		}
	}
	if best == "" {
		return department
	}
	return best
}
