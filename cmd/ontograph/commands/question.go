package commands

import (
	"regexp"
	"strings"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/ontology"
)

// Freeform question patterns, tried in order. The first match wins, so the
// more specific "a type of" form precedes the bare "a/an" form.
var questionPatterns = []struct {
	re   *regexp.Regexp
	kind ontology.QuestionType
}{
	{regexp.MustCompile(`(?i)^is\s+(?:a\s+|an\s+)?(.+?)\s+a\s+type\s+of\s+(?:a\s+|an\s+)?(.+?)\s*\??$`), ontology.SubclassOf},
	{regexp.MustCompile(`(?i)^is\s+(?:a\s+|an\s+)?(.+?)\s+a\s+subclass\s+of\s+(?:a\s+|an\s+)?(.+?)\s*\??$`), ontology.SubclassOf},
	{regexp.MustCompile(`(?i)^is\s+(?:a\s+|an\s+)?(.+?)\s+considered\s+to\s+be\s+(?:a\s+|an\s+)?(.+?)\s*\??$`), ontology.HasAttribute},
	{regexp.MustCompile(`(?i)^does\s+(?:a\s+|an\s+)?(.+?)\s+have\s+(?:the\s+attribute\s+)?(.+?)\s*\??$`), ontology.HasAttribute},
	{regexp.MustCompile(`(?i)^is\s+(?:a\s+|an\s+)?(.+?)\s+(?:a|an)\s+(.+?)\s*\??$`), ontology.InstanceOf},
}

// parseQuestion resolves a freeform question to a typed triple.
//
//	is a dog a type of animal?      -> SubclassOf(dog, animal)
//	is Fido a dog?                  -> InstanceOf(Fido, dog)
//	is a college considered to be educational? -> HasAttribute(college, educational)
//	does a university have accreditation?      -> HasAttribute(university, accreditation)
func parseQuestion(text string) (ontology.Question, error) {
	text = strings.TrimSpace(text)
	for _, p := range questionPatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return ontology.Question{
				Type:    p.kind,
				Subject: strings.TrimSpace(m[1]),
				Object:  strings.TrimSpace(m[2]),
			}, nil
		}
	}
	return ontology.Question{}, errors.NewValidationError("could not parse question %q", text)
}
