// Package toolcall translates tool calls to and from the textual dialects
// that model families use to express them inside ordinary message content.
//
// The backend has no native tools field. Tool definitions travel as a system
// preamble, earlier assistant tool calls and tool results travel as markup in
// message content, and tool calls emitted by the model are recovered by
// scanning the completion text.
//
// Supported dialects:
//
//	json      <tool_calls>[{"name":..., "arguments":{...}}]</tool_calls>
//	qwen      <tool_call>{"name":..., "arguments":{...}}</tool_call> per call
//	zai       <tool_call>name<arg_key>k</arg_key><arg_value>v</arg_value></tool_call>
//	moonshot  <|tool_calls_section_begin|><|tool_call_begin|>name:0<|tool_call_argument_begin|>{...}<|tool_call_end|><|tool_calls_section_end|>
//
// Every dialect parses its own markup first and then falls back to the json
// and moonshot forms, since models drift between conventions. Absence of
// markup is a normal outcome and yields no calls, never an error.
//
// All regular expressions are compiled once at package initialization and
// are read-only afterwards. Dialects are stateless and safe for concurrent use.
package toolcall
