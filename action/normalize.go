package action

import (
	"encoding/json"
	"strings"

	"github.com/BaSui01/actiongate/types"
)

const fenceMarker = "```"

// Normalize 将 adapter 提取出的原始文本转换为有序的候选动作序列。
//
// 语法固定且有界：
//  1. 若文本以围栏开头，去掉首行（可带语言标记），若最后一个非空行是裸围栏也去掉，再 trim；
//  2. 解析为 JSON，得到数组即返回；
//  3. 若得到的是字符串（二次编码），对该字符串再解析恰好一次；
//  4. 否则返回 PARSE_ERROR，RawResponse 保留未经处理的原始文本。
func Normalize(raw string) ([]types.RawActionCandidate, error) {
	text := stripFence(strings.TrimSpace(raw))

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, types.NewParseError("", "model output is not valid JSON", raw).WithCause(err)
	}

	if s, ok := decoded.(string); ok {
		decoded = nil
		if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &decoded); err != nil {
			return nil, types.NewParseError("", "double-encoded model output is not valid JSON", raw).WithCause(err)
		}
	}

	list, ok := decoded.([]any)
	if !ok {
		return nil, types.NewParseError("", "model output is not an array of actions", raw)
	}
	return list, nil
}

// stripFence 去掉 ```json ... ``` 围栏；不以围栏开头的文本原样返回。
func stripFence(text string) string {
	if !strings.HasPrefix(text, fenceMarker) {
		return text
	}

	lines := strings.Split(text, "\n")
	lines = lines[1:]

	last := len(lines) - 1
	for last >= 0 && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	if last >= 0 && strings.TrimSpace(lines[last]) == fenceMarker {
		lines = lines[:last]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
