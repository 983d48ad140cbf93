package toolcall

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rhuss/dialekt/pkg/api"
)

const (
	envelopeOpen  = "<tool_calls>"
	envelopeClose = "</tool_calls>"
	taggedOpen    = "<tool_call>"
	taggedClose   = "</tool_call>"
)

var (
	moonshotHeadRx = regexp.MustCompile(`(?:<\|tool_call_begin\|>)?\s*([^\s<|>]+)\s*<\|tool_call_argument_begin\|>`)

	argKeyRx   = regexp.MustCompile(`(?s)<arg_key>(.*?)</arg_key>`)
	argValueRx = regexp.MustCompile(`(?s)<arg_value>(.*?)</arg_value>`)

	emptyEnvelopeRx  = regexp.MustCompile(`(?s)<tool_calls>\s*</tool_calls>`)
	moonshotMarkerRx = regexp.MustCompile(`<\|tool_calls_section_(?:begin|end)\|>`)
	fenceLangRx      = regexp.MustCompile(`^[A-Za-z0-9_+.\-]*$`)
	callNameRx       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.:\-]*$`)
	callIndexRx      = regexp.MustCompile(`:\d+$`)
	numberRx         = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?(?:[eE][+-]?\d+)?$`)
)

// paramTypes maps function name to parameter name to JSON-Schema type.
type paramTypes map[string]map[string]string

// paramTypesOf collects the declared parameter types of defs.
func paramTypesOf(defs []api.FunctionDefinition) paramTypes {
	out := make(paramTypes)
	for _, def := range defs {
		props := gjson.GetBytes(def.Parameters, "properties")
		if !props.IsObject() {
			continue
		}
		types := make(map[string]string)
		props.ForEach(func(key, value gjson.Result) bool {
			if t := schemaType(value.Get("type")); t != "" {
				types[key.String()] = t
			}
			return true
		})
		if len(types) > 0 {
			out[def.Name] = types
		}
	}
	return out
}

// schemaType reads a "type" keyword. For a type list the first non-null
// entry wins.
func schemaType(r gjson.Result) string {
	if !r.IsArray() {
		return r.String()
	}
	for _, el := range r.Array() {
		if t := el.String(); t != "" && t != "null" {
			return t
		}
	}
	return ""
}

// span is a region of text that held markup, with the calls parsed from it.
type span struct {
	start, end int
	calls      []api.ToolCall
}

// scanner locates one markup convention in text.
type scanner struct {
	name string
	scan func(text string, params paramTypes) []span
}

var (
	jsonScanner     = scanner{name: "json", scan: scanJSONEnvelopes}
	taggedScanner   = scanner{name: "tagged", scan: scanTaggedCalls}
	moonshotScanner = scanner{name: "moonshot", scan: scanMoonshotCalls}
)

func scanJSONEnvelopes(text string, params paramTypes) []span {
	return scanDelimited(text, envelopeOpen, envelopeClose, false, func(body string) []api.ToolCall {
		return parseCallList(body, params)
	})
}

func scanTaggedCalls(text string, params paramTypes) []span {
	return scanDelimited(text, taggedOpen, taggedClose, true, func(body string) []api.ToolCall {
		if call, ok := parseCallBody(body, params); ok {
			return []api.ToolCall{call}
		}
		return nil
	})
}

func scanMoonshotCalls(text string, _ paramTypes) []span {
	var spans []span
	pos := 0
	for _, m := range moonshotHeadRx.FindAllStringSubmatchIndex(text, -1) {
		if m[0] < pos {
			continue
		}
		name := cleanName(text[m[2]:m[3]])
		if name == "" {
			continue
		}
		sp, ok := closeRegion(text, m[0], m[1], moonshotCallEnd, false, func(body string) []api.ToolCall {
			args := stripFences(body)
			if !gjson.Valid(args) {
				return nil
			}
			return []api.ToolCall{{
				Type:     api.ToolTypeFunction,
				Function: api.FunctionCall{Name: name, Arguments: api.RawArguments(args)},
			}}
		})
		if !ok {
			continue
		}
		spans = append(spans, sp)
		pos = sp.end
	}
	return spans
}

// scanDelimited finds regions between opener and closer. When unterminated is
// set a region may also run to the end of text.
func scanDelimited(text, opener, closer string, unterminated bool, parse func(body string) []api.ToolCall) []span {
	var spans []span
	pos := 0
	for {
		i := strings.Index(text[pos:], opener)
		if i < 0 {
			return spans
		}
		start := pos + i
		sp, ok := closeRegion(text, start, start+len(opener), closer, unterminated, parse)
		if !ok {
			pos = start + len(opener)
			continue
		}
		spans = append(spans, sp)
		pos = sp.end
	}
}

// closeRegion ends the region whose body starts at bodyStart. The closing
// delimiter can also appear inside a JSON string of the body, so each
// occurrence is tried in turn until parse accepts the body.
func closeRegion(text string, start, bodyStart int, closer string, unterminated bool, parse func(body string) []api.ToolCall) (span, bool) {
	from := bodyStart
	for {
		j := strings.Index(text[from:], closer)
		if j < 0 {
			break
		}
		end := from + j
		if calls := parse(text[bodyStart:end]); len(calls) > 0 {
			return span{start: start, end: end + len(closer), calls: calls}, true
		}
		from = end + len(closer)
	}
	if unterminated {
		if calls := parse(text[bodyStart:]); len(calls) > 0 {
			return span{start: start, end: len(text), calls: calls}, true
		}
	}
	return span{}, false
}

// parseCallList parses the body of a <tool_calls> envelope: a JSON array of
// calls, a single JSON call object, <tool_call> blocks, or one key/value call.
func parseCallList(body string, params paramTypes) []api.ToolCall {
	body = stripFences(body)
	if !gjson.Valid(body) {
		var calls []api.ToolCall
		for _, sp := range scanTaggedCalls(body, params) {
			calls = append(calls, sp.calls...)
		}
		if len(calls) > 0 {
			return calls
		}
		if call, ok := parseKeyValueCall(body, params); ok {
			return []api.ToolCall{call}
		}
		return nil
	}

	result := gjson.Parse(body)
	switch {
	case result.IsArray():
		var calls []api.ToolCall
		for _, el := range result.Array() {
			if call, ok := parseCallObject(el); ok {
				calls = append(calls, call)
			}
		}
		return calls
	case result.IsObject():
		if call, ok := parseCallObject(result); ok {
			return []api.ToolCall{call}
		}
	}
	return nil
}

// parseCallBody parses a single call body: a JSON object first, then the
// <arg_key>/<arg_value> form.
func parseCallBody(body string, params paramTypes) (api.ToolCall, bool) {
	body = stripFences(body)
	if gjson.Valid(body) {
		result := gjson.Parse(body)
		if result.IsObject() {
			return parseCallObject(result)
		}
	}
	return parseKeyValueCall(body, params)
}
// parseCallObject accepts {"name","arguments"} as well as the OpenAI shape
// {"id","type","function":{"name","arguments"}}. Arguments may be a JSON
// value or a JSON-encoded string.
func parseCallObject(obj gjson.Result) (api.ToolCall, bool) {
	if !obj.IsObject() {
		return api.ToolCall{}, false
	}

	name := obj.Get("name")
	if !name.Exists() {
		name = obj.Get("function.name")
	}
	if name.Type != gjson.String || strings.TrimSpace(name.String()) == "" {
		return api.ToolCall{}, false
	}

	var args gjson.Result
	for _, path := range []string{"arguments", "function.arguments", "parameters", "input"} {
		if args = obj.Get(path); args.Exists() {
			break
		}
	}

	call := api.ToolCall{
		ID:   obj.Get("id").String(),
		Type: api.ToolTypeFunction,
		Function: api.FunctionCall{
			Name:      cleanName(name.String()),
			Arguments: argumentsFromResult(args),
		},
	}
	return call, call.Function.Name != ""
}

func argumentsFromResult(r gjson.Result) api.Arguments {
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return api.Arguments("{}")
	case r.Type == gjson.String:
		return api.RawArguments(r.String())
	default:
		return api.RawArguments(r.Raw)
	}
}

// parseKeyValueCall parses "name <arg_key>k</arg_key><arg_value>v</arg_value>..."
// pairing keys and values by position. It is only accepted when the number of
// keys equals the number of values and the leading name is identifier-like.
// Values of declared parameters follow the declared type.
func parseKeyValueCall(body string, params paramTypes) (api.ToolCall, bool) {
	keys := argKeyRx.FindAllStringSubmatchIndex(body, -1)
	values := argValueRx.FindAllStringSubmatch(body, -1)
	if len(keys) != len(values) {
		return api.ToolCall{}, false
	}

	head := body
	if len(keys) > 0 {
		head = body[:keys[0][0]]
	}
	name := cleanName(strings.TrimSpace(head))
	if !callNameRx.MatchString(name) {
		return api.ToolCall{}, false
	}

	types := params[name]
	args := make(map[string]json.RawMessage, len(keys))
	for i, k := range keys {
		key := strings.TrimSpace(body[k[2]:k[3]])
		args[key] = typedValue(values[i][1], types[key])
	}
	data, err := json.Marshal(args)
	if err != nil {
		return api.ToolCall{}, false
	}

	return api.ToolCall{
		Type: api.ToolTypeFunction,
		Function: api.FunctionCall{
			Name:      name,
			Arguments: api.Arguments(data),
		},
	}, true
}

// naturalValue converts an <arg_value> payload of an undeclared parameter
// back to JSON. Literals, numbers, objects, arrays and quoted strings are
// taken as JSON, everything else is a string.
func naturalValue(s string) json.RawMessage {
	trimmed := strings.TrimSpace(s)
	switch {
	case trimmed == "true" || trimmed == "false" || trimmed == "null":
		return json.RawMessage(trimmed)
	case numberRx.MatchString(trimmed):
		return json.RawMessage(trimmed)
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, `"`):
		if json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed)
		}
	}
	return stringValue(s)
}

// typedValue converts an <arg_value> payload to the declared JSON-Schema
// type. A payload that does not fit the type is read as naturalValue.
func typedValue(s, typ string) json.RawMessage {
	trimmed := strings.TrimSpace(s)
	switch typ {
	case "":
	case "string":
		if strings.HasPrefix(trimmed, `"`) && json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed)
		}
		return stringValue(s)
	case "integer", "number":
		if numberRx.MatchString(trimmed) {
			return json.RawMessage(trimmed)
		}
	case "boolean":
		if trimmed == "true" || trimmed == "false" {
			return json.RawMessage(trimmed)
		}
	case "object", "array":
		open := "{"
		if typ == "array" {
			open = "["
		}
		if strings.HasPrefix(trimmed, open) && json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed)
		}
	}
	return naturalValue(s)
}

func stringValue(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

// stripFences removes a surrounding Markdown code fence and its language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	if first, rest, found := strings.Cut(s, "\n"); found && fenceLangRx.MatchString(strings.TrimSpace(first)) {
		s = rest
	}
	return strings.TrimSpace(s)
}

// cleanName drops a leading "functions." namespace and a trailing ":N" index.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "functions.")
	return callIndexRx.ReplaceAllString(name, "")
}

// removeSpans cuts the spans out of text. Spans must not overlap.
func removeSpans(text string, spans []span) string {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	pos := 0
	for _, sp := range spans {
		if sp.start < pos {
			continue
		}
		b.WriteString(text[pos:sp.start])
		pos = sp.end
	}
	b.WriteString(text[pos:])
	return b.String()
}

// cleanupRemnants drops envelopes and section markers emptied by removeSpans.
func cleanupRemnants(text string) string {
	text = emptyEnvelopeRx.ReplaceAllString(text, "")
	return moonshotMarkerRx.ReplaceAllString(text, "")
}

// finalize assigns positional indices, generated ids and the function type.
func finalize(calls []api.ToolCall) []api.ToolCall {
	for i := range calls {
		calls[i].Index = i
		if calls[i].ID == "" {
			calls[i].ID = api.NewToolCallID()
		}
		calls[i].Type = api.ToolTypeFunction
		if len(calls[i].Function.Arguments) == 0 {
			calls[i].Function.Arguments = api.Arguments("{}")
		}
	}
	return calls
}
