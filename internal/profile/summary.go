package profile

import (
	"fmt"
	"strings"
)

// Summarize flattens the candidate into one retrieval document. Sections
// appear in a fixed order and empty sections are omitted.
func Summarize(c *Candidate) string {
	if c == nil {
		return ""
	}

	p := c.Profile
	var sections []string

	if len(p.Education) > 0 {
		sections = append(sections, "EDUCATION:\n"+strings.Join(p.Education, "\n"))
	}

	if len(p.Skills) > 0 {
		sections = append(sections, "SKILLS:\n"+strings.Join(p.Skills, ", "))
	}

	if len(p.Projects) > 0 {
		lines := make([]string, 0, len(p.Projects))
		for _, project := range p.Projects {
			lines = append(lines, fmt.Sprintf("%s: %s (%s)", project.Name, project.Description, strings.Join(project.Tech, ", ")))
		}
		sections = append(sections, "PROJECTS:\n"+strings.Join(lines, "\n"))
	}

	if len(p.Internships) > 0 {
		lines := make([]string, 0, len(p.Internships))
		for _, in := range p.Internships {
			lines = append(lines, fmt.Sprintf("%s at %s: %s", in.Role, in.Company, in.Description))
		}
		sections = append(sections, "EXPERIENCE:\n"+strings.Join(lines, "\n"))
	}

	if len(c.BulletBank) > 0 {
		sections = append(sections, "ACHIEVEMENTS:\n"+strings.Join(c.Bullets(), "\n"))
	}

	return strings.Join(sections, "\n\n")
}
