package llm

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SystemPrompt instructs the model on the action vocabulary and the output shape.
const SystemPrompt = `You are a desktop automation assistant. Analyze the screenshot and UI tree, then return a JSON array of actions to accomplish the user's request.

Available actions:
- click: {"action": "click", "params": {"x": 100, "y": 200}}
- type: {"action": "type", "params": {"text": "hello"}}
- press_keys: {"action": "press_keys", "params": {"keys": ["LWin", "R"]}}
- scroll: {"action": "scroll", "params": {"delta": -3, "x": 500, "y": 400}}
- wait: {"action": "wait", "params": {"ms": 1000}}

Each action may carry an optional "confidence" between 0 and 1.
UI tree elements carry screen bounds; click the center of an element's bounds.
Prefer keyboard shortcuts when a control is not visible in the tree.

Return ONLY a JSON array of actions, no other text.`

// UserText renders the instruction and the UI tree into the user message text.
func UserText(rc *RequestContext) string {
	var b strings.Builder
	b.WriteString("User request: ")
	b.WriteString(rc.Instruction)
	if tree := compactTree(rc.UITree); tree != "" {
		b.WriteString("\n\nUI Tree: ")
		b.WriteString(tree)
	}
	return b.String()
}

func compactTree(tree json.RawMessage) string {
	if len(tree) == 0 || string(tree) == "null" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, tree); err != nil {
		return string(tree)
	}
	return buf.String()
}
