package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cairnstack/ontograph/errors"
	"github.com/cairnstack/ontograph/ontology"
)

var (
	askType    string
	askSubject string
	askObject  string
	askJSON    bool
	askTimeout time.Duration
)

// AskCmd answers one question against the graph.
var AskCmd = &cobra.Command{
	Use:   "ask [QUESTION]",
	Short: "Answer a question against the graph",
	Long: `Answer a typed question against the knowledge graph.

Questions can be freeform text or an explicit triple:

  ontograph ask "is a dog a type of animal?"
  ontograph ask "is Fido a dog?"
  ontograph ask "is a college considered to be educational?"
  ontograph ask --type SubclassOf --subject dog --object animal`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAskCommand,
}

func init() {
	AskCmd.Flags().StringVar(&askType, "type", "", "Question type: SubclassOf, InstanceOf, or HasAttribute")
	AskCmd.Flags().StringVar(&askSubject, "subject", "", "Subject entity id")
	AskCmd.Flags().StringVar(&askObject, "object", "", "Object entity or attribute id")
	AskCmd.Flags().BoolVar(&askJSON, "json", false, "Emit the result as JSON")
	AskCmd.Flags().DurationVar(&askTimeout, "timeout", 30*time.Second, "Query timeout")
}

func runAskCommand(cmd *cobra.Command, args []string) error {
	question, err := resolveQuestion(args)
	if err != nil {
		return err
	}

	rt, err := buildRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
	defer cancel()

	result := rt.orchestrator.Answer(ctx, question)
	if askJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encoding result")
		}
		fmt.Println(string(encoded))
		return nil
	}
	printResult(question, result)
	return nil
}

func resolveQuestion(args []string) (ontology.Question, error) {
	if len(args) == 1 {
		if askType != "" || askSubject != "" || askObject != "" {
			return ontology.Question{}, errors.NewValidationError("pass either a freeform question or --type/--subject/--object, not both")
		}
		return parseQuestion(args[0])
	}
	if askType == "" || askSubject == "" || askObject == "" {
		return ontology.Question{}, errors.NewValidationError("--type, --subject, and --object are all required without a freeform question")
	}
	qt, err := ontology.ParseEdgeType(askType)
	if err != nil {
		return ontology.Question{}, err
	}
	return ontology.Question{Type: qt, Subject: askSubject, Object: askObject}, nil
}

func printResult(q ontology.Question, result ontology.QueryResult) {
	fmt.Printf("%s(%s, %s): %s\n", q.Type, q.Subject, q.Object, result.Outcome)
	if result.Outcome == ontology.Yes {
		fmt.Printf("  confidence: %.4f\n", result.Confidence)
		steps := make([]string, 0, len(result.Path)+1)
		if len(result.Path) > 0 {
			steps = append(steps, result.Path[0].HeadEntity)
			for _, edge := range result.Path {
				steps = append(steps, edge.TailEntity)
			}
			fmt.Printf("  path: %s\n", strings.Join(steps, " -> "))
		}
	}
	if result.Reason != "" {
		fmt.Printf("  reason: %s\n", result.Reason)
	}
	fmt.Printf("  visited %d entities in %s", result.EntitiesVisited, result.Elapsed.Round(time.Microsecond))
	if result.CacheHit {
		fmt.Print(" (cached)")
	}
	fmt.Println()
}
