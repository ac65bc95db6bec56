package academics

// Grade boundaries, inclusive lower bounds.
const (
	GradeA = 85
	GradeB = 70
	GradeC = 55
	GradeD = 40
)

// DeriveGrade maps marks to a letter grade. Grades supplied by clients are
// ignored; this is the only source of the stored grade.
func DeriveGrade(marks int) string {
	switch {
	case marks >= GradeA:
		return "A"
	case marks >= GradeB:
		return "B"
	case marks >= GradeC:
		return "C"
	case marks >= GradeD:
		return "D"
	default:
		return "F"
	}
}
