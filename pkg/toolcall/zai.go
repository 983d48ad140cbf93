package toolcall

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"github.com/rhuss/dialekt/pkg/api"
)

const zaiInstructions = `For each function call, output the function name and arguments within the following XML format:
<tool_call>{function-name}
<arg_key>{arg-key-1}</arg_key>
<arg_value>{arg-value-1}</arg_value>
<arg_key>{arg-key-2}</arg_key>
<arg_value>{arg-value-2}</arg_value>
...
</tool_call>`

// Zai writes the function name followed by <arg_key>/<arg_value> pairs.
// Values appear in natural string form: strings unquoted, everything else as
// compact JSON. Bind declared functions with WithFunctions so that values
// are read back with their declared types.
type Zai struct {
	base
}

// NewZai returns the zai dialect.
func NewZai() *Zai {
	return &Zai{base: base{
		name:         "zai",
		scanners:     []scanner{taggedScanner, jsonScanner, moonshotScanner},
		instructions: zaiInstructions,
	}}
}

// FormatToolCalls renders one <tool_call> block per call with keys sorted.
// Arguments that are not a JSON object cannot be expressed as pairs and are
// written as a {name, arguments} object instead.
func (d *Zai) FormatToolCalls(calls []api.ToolCall) string {
	blocks := make([]string, 0, len(calls))
	for _, tc := range calls {
		blocks = append(blocks, formatZaiCall(tc))
	}
	return strings.Join(blocks, "\n")
}

func formatZaiCall(tc api.ToolCall) string {
	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(tc.Function.Arguments.String()), &args); err != nil || args == nil {
		return "<tool_call>\n" + marshalText(toWireCall(tc)) + "\n</tool_call>"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<tool_call>")
	b.WriteString(displayName(tc))
	b.WriteByte('\n')
	for _, k := range keys {
		b.WriteString("<arg_key>")
		b.WriteString(k)
		b.WriteString("</arg_key>\n<arg_value>")
		b.WriteString(naturalString(args[k]))
		b.WriteString("</arg_value>\n")
	}
	b.WriteString("</tool_call>")
	return b.String()
}

// naturalString renders a JSON value the way it is written inside
// <arg_value>: a string without quotes, anything else as compact JSON.
// A string that would read back as another value, or that holds markup,
// keeps its JSON quotes with markup characters escaped.
func naturalString(raw json.RawMessage) string {
	if strings.TrimSpace(string(raw)) == "null" {
		return "null"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if !strings.Contains(s, "<") && readsBackAs(s) {
			return s
		}
		return string(stringValue(s))
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	if !bytes.Contains(buf.Bytes(), []byte("<")) {
		return buf.String()
	}
	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, buf.Bytes())
	return escaped.String()
}

// readsBackAs reports whether s written unquoted parses back to the string s.
func readsBackAs(s string) bool {
	var back string
	return json.Unmarshal(naturalValue(s), &back) == nil && back == s
}
