package archive

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Field names produced by the three generations of the upstream
// record format, newest first.
const (
	fieldTurns     = "accumulated_conversations"
	fieldPrompts   = "conversation"
	fieldResponses = "response"
)

// Conversation is the canonical view of one session record: an
// ordered turn list, or the record itself when no recognized field is
// present. Exactly one of Turns and Raw is set.
type Conversation struct {
	Turns []json.RawMessage
	Raw   json.RawMessage
}

// MarshalJSON emits Raw verbatim when set, otherwise the turn list as
// a JSON array.
func (c Conversation) MarshalJSON() ([]byte, error) {
	if c.Raw != nil {
		return c.Raw, nil
	}
	if c.Turns == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Turns)
}

// Turn is one {role, content} entry, used when a legacy record needs
// its turns reconstructed.
type Turn struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Normalize upgrades any historical record shape to the canonical
// conversation, first matching rule wins:
//
//  1. a pre-assembled turn list under "accumulated_conversations" is
//     used verbatim;
//  2. parallel "conversation"/"response" arrays are interleaved
//     prompt-then-response per index;
//  3. a lone "conversation" array is used unchanged;
//  4. otherwise the record itself is returned unmodified — the
//     documented fallback, not a failure.
//
// Content is never transformed, only re-grouped.
func Normalize(record gjson.Result) Conversation {
	if v := record.Get(fieldTurns); v.Exists() {
		return Conversation{Raw: json.RawMessage(v.Raw)}
	}
	prompts := record.Get(fieldPrompts)
	responses := record.Get(fieldResponses)
	if prompts.IsArray() && responses.IsArray() {
		return interleave(prompts.Array(), responses.Array())
	}
	if prompts.IsArray() {
		return Conversation{Raw: json.RawMessage(prompts.Raw)}
	}
	return Conversation{Raw: json.RawMessage(record.Raw)}
}

// interleave merges the legacy parallel arrays: for each index, the
// prompt element (if present) then the response element (if present).
// A shorter array simply stops contributing once exhausted.
//
// Known limitation, preserved from the original writer: whether
// prompt elements are {role, content} objects or plain strings is
// decided by inspecting the first element only; later elements of a
// mixed-type array are not independently checked. Response elements
// are always plain strings and are wrapped with the assistant role.
func interleave(prompts, responses []gjson.Result) Conversation {
	promptObjects := len(prompts) > 0 && prompts[0].IsObject()

	n := max(len(prompts), len(responses))
	turns := make([]json.RawMessage, 0, len(prompts)+len(responses))
	for i := 0; i < n; i++ {
		if i < len(prompts) {
			if promptObjects {
				turns = append(turns, json.RawMessage(prompts[i].Raw))
			} else {
				turns = append(turns, wrapTurn("user", prompts[i]))
			}
		}
		if i < len(responses) {
			turns = append(turns, wrapTurn("assistant", responses[i]))
		}
	}
	return Conversation{Turns: turns}
}

func wrapTurn(role string, content gjson.Result) json.RawMessage {
	// content.Raw is known-valid JSON, so marshaling cannot fail.
	b, _ := json.Marshal(Turn{
		Role:    role,
		Content: json.RawMessage(content.Raw),
	})
	return b
}
