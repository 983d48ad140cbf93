package toolcall

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rhuss/dialekt/pkg/api"
)

const preambleHeader = `# Tools

You may call one or more functions to assist with the user query.

You are provided with function signatures within <tools></tools> XML tags:
<tools>
`

const toolOutputInstructions = `Results of your function calls are returned in <tool_output></tool_output> tags as a JSON object with the "tool_call_id" of the call they answer and the "content" it produced.`

// buildPreamble renders the tool list, the dialect's calling instructions and
// the tool_choice constraint. tool_choice "none" and an empty tool list
// produce no preamble.
func buildPreamble(defs []api.FunctionDefinition, choice *api.ToolChoice, instructions string) string {
	if len(defs) == 0 || choice.IsNone() {
		return ""
	}

	var b strings.Builder
	b.WriteString(preambleHeader)
	for _, def := range defs {
		b.WriteString(marshalText(toolSignature(def)))
		b.WriteByte('\n')
	}
	b.WriteString("</tools>\n\n")
	b.WriteString(instructions)
	b.WriteString("\n\n")
	b.WriteString(toolOutputInstructions)

	switch {
	case choice.FunctionName() != "":
		fmt.Fprintf(&b, "\n\nYou must call the function %q in your response.", choice.FunctionName())
	case choice.IsRequired():
		b.WriteString("\n\nYou must call at least one function in your response.")
	}
	return b.String()
}

type signature struct {
	Type     string        `json:"type"`
	Function signatureBody `json:"function"`
}

type signatureBody struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

func toolSignature(def api.FunctionDefinition) signature {
	params := def.Parameters
	if len(params) > 0 && !json.Valid(params) {
		params = nil
	}
	return signature{
		Type: api.ToolTypeFunction,
		Function: signatureBody{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  params,
		},
	}
}
