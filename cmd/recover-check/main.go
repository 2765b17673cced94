// Test program that runs typical agent replies through the recovery parser
// and shows which strategy picks each one up.
package main

import (
	"fmt"
	"strings"

	"github.com/ppiankov/icfextract/internal/extract"
)

var samples = []struct {
	name string
	text string
}{
	{"plain JSON", `{"status": "FOUND", "answer": "Six visits.", "confidence": "HIGH", "evidence": []}`},
	{"literal mapping", `{'status': 'PARTIAL', 'answer': 'Costs covered', 'confidence': None, 'evidence': []}`},
	{"fenced block", "Here is the answer:\n```json\n{\"status\": \"NOT_FOUND\", \"answer\": \"\"}\n```\nLet me know."},
	{"prose around object", `I searched pages 3-7. {"status": "FOUND", "answer": "Twelve months"} That is all.`},
	{"free text", "The study lasts twelve months and includes six clinic visits."},
	{"too short", "No idea."},
}

func main() {
	fmt.Println("=== Response Recovery Check ===")
	fmt.Println()

	for _, s := range samples {
		fmt.Printf("%s\n", s.name)
		fmt.Println(strings.Repeat("-", 60))

		rec, ok := extract.RecoverWithMethod(s.text)
		if !ok {
			fmt.Println("  ✗ nothing recovered")
			fmt.Println()
			continue
		}

		fmt.Printf("  ✓ method: %s\n", rec.Method)
		fmt.Printf("    status: %q\n", rec.Record.String("status"))
		fmt.Printf("    answer: %q\n", rec.Record.String("answer"))
		if notes := rec.Record.String("notes"); notes != "" {
			fmt.Printf("    notes:  %s\n", notes)
		}
		fmt.Println()
	}
}
