package entity

// Course is an offering a lead can register for.
type Course struct {
	Code string
	Name string
}

var courses = map[string]Course{
	"online-only":     {Code: "online-only", Name: "30-Day Online Course Only"},
	"online-bootcamp": {Code: "online-bootcamp", Name: "30-Day Online + 3-Day Bootcamp at IIT Kanpur"},
	"bootcamp-only":   {Code: "bootcamp-only", Name: "3-Day Bootcamp Only (at IIT Kanpur)"},
}

func FindCourse(code string) (Course, bool) {
	c, ok := courses[code]
	return c, ok
}

// CourseDisplayName never fails: unknown codes are echoed back as-is.
func CourseDisplayName(code string) string {
	if code == "" {
		return "Selected Course"
	}
	if c, ok := FindCourse(code); ok {
		return c.Name
	}
	return code
}
