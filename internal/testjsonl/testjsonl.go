// Package testjsonl provides shared JSONL fixture builders for the
// three archive record generations. Used by the archive and server
// test packages.
package testjsonl

import (
	"encoding/json"
	"strings"
)

// TurnsJSON returns a canonical-generation record: a pre-assembled
// turn list under "accumulated_conversations", plus any extra
// top-level fields.
func TurnsJSON(turns []map[string]any, extra map[string]any) string {
	m := map[string]any{"accumulated_conversations": turns}
	for k, v := range extra {
		m[k] = v
	}
	return mustMarshal(m)
}

// ParallelJSON returns a middle-generation record with parallel
// "conversation" and "response" arrays.
func ParallelJSON(prompts []any, responses []string) string {
	return mustMarshal(map[string]any{
		"conversation": prompts,
		"response":     responses,
	})
}

// PromptOnlyJSON returns an early-generation record carrying only a
// "conversation" array.
func PromptOnlyJSON(prompts []any) string {
	return mustMarshal(map[string]any{"conversation": prompts})
}

// Turn builds one {role, content} object for TurnsJSON.
func Turn(role, content string) map[string]any {
	return map[string]any{"role": role, "content": content}
}

// JoinJSONL joins records into JSONL content with a trailing newline.
func JoinJSONL(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
