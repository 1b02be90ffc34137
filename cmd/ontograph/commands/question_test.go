package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairnstack/ontograph/ontology"
)

func TestParseQuestion(t *testing.T) {
	tests := []struct {
		input   string
		kind    ontology.QuestionType
		subject string
		object  string
	}{
		{"is a dog a type of animal?", ontology.SubclassOf, "dog", "animal"},
		{"is dog a type of an animal", ontology.SubclassOf, "dog", "animal"},
		{"Is a retriever a subclass of dog?", ontology.SubclassOf, "retriever", "dog"},
		{"is Fido a dog?", ontology.InstanceOf, "Fido", "dog"},
		{"is Rex an animal?", ontology.InstanceOf, "Rex", "animal"},
		{"is a college considered to be educational?", ontology.HasAttribute, "college", "educational"},
		{"does a university have accreditation?", ontology.HasAttribute, "university", "accreditation"},
		{"does water have the attribute wetness?", ontology.HasAttribute, "water", "wetness"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q, err := parseQuestion(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, q.Type)
			assert.Equal(t, tt.subject, q.Subject)
			assert.Equal(t, tt.object, q.Object)
		})
	}
}

func TestParseQuestionRejectsUnparsable(t *testing.T) {
	for _, input := range []string{
		"",
		"what is a dog?",
		"tell me about animals",
	} {
		_, err := parseQuestion(input)
		assert.Error(t, err, input)
	}
}
