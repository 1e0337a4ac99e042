package action

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/BaSui01/actiongate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// genCandidate 生成任意候选：合法动作、越界动作、未知类型与非对象值混合
func genCandidate() *rapid.Generator[types.RawActionCandidate] {
	return rapid.Custom(func(t *rapid.T) types.RawActionCandidate {
		switch rapid.IntRange(0, 6).Draw(t, "shape") {
		case 0:
			return map[string]any{"action": "click", "params": map[string]any{
				"x": rapid.Float64Range(-100, 12000).Draw(t, "x"),
				"y": rapid.Float64Range(-100, 12000).Draw(t, "y"),
			}}
		case 1:
			return map[string]any{"action": "type", "params": map[string]any{
				"text": rapid.StringN(0, 20, -1).Draw(t, "text"),
			}}
		case 2:
			return map[string]any{"action": "wait", "params": map[string]any{
				"ms": rapid.Float64Range(-10, 40000).Draw(t, "ms"),
			}}
		case 3:
			return map[string]any{"action": "scroll", "params": map[string]any{
				"delta": rapid.Float64Range(-200, 200).Draw(t, "delta"),
			}}
		case 4:
			return map[string]any{"action": rapid.SampledFrom([]string{"rm_rf", "exec", "", "CLICK"}).Draw(t, "kind")}
		case 5:
			return rapid.String().Draw(t, "scalar")
		default:
			return map[string]any{"action": "press_keys", "params": map[string]any{
				"keys": []any{rapid.SampledFrom([]string{"ctrl", "alt", "", "enter"}).Draw(t, "key")},
			}}
		}
	})
}

// Property: 接受数 + 丢弃数 = 输入数，且每个被接受动作的类型都合法
func TestProperty_Validator_AcceptedPlusDroppedEqualsInput(t *testing.T) {
	v := NewValidator(DefaultLimits())

	rapid.Check(t, func(rt *rapid.T) {
		candidates := rapid.SliceOfN(genCandidate(), 0, 30).Draw(rt, "candidates")

		res := v.Validate(candidates)

		require.Equal(t, len(candidates), len(res.Actions)+res.Dropped)
		for _, a := range res.Actions {
			assert.True(t, a.Action.Valid(), "unexpected kind %q", a.Action)
			assert.GreaterOrEqual(t, a.Confidence, 0.0)
			assert.LessOrEqual(t, a.Confidence, 1.0)
		}
	})
}

// Property: 被接受的动作保持输入中的相对顺序
func TestProperty_Validator_PreservesOrder(t *testing.T) {
	v := NewValidator(DefaultLimits())

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(rt, "n")
		candidates := make([]types.RawActionCandidate, 0, n)
		var want []string
		for i := 0; i < n; i++ {
			text := fmt.Sprintf("step-%d", i)
			if rapid.Bool().Draw(rt, fmt.Sprintf("valid_%d", i)) {
				candidates = append(candidates, map[string]any{"action": "type", "params": map[string]any{"text": text}})
				want = append(want, text)
			} else {
				candidates = append(candidates, map[string]any{"action": "type", "params": map[string]any{"text": ""}})
			}
		}

		res := v.Validate(candidates)

		got := make([]string, 0, len(res.Actions))
		for _, a := range res.Actions {
			got = append(got, a.Params["text"].(string))
		}
		assert.Equal(t, len(want), len(got))
		for i := range want {
			assert.Equal(t, want[i], got[i])
		}
	})
}

// Property: 被接受的点击坐标一定落在 [0, MaxCoordinate) 内
func TestProperty_Validator_ClickWithinScreen(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		bound := rapid.Float64Range(1, 20000).Draw(rt, "bound")
		v := NewValidator(Limits{MaxCoordinate: bound})

		x := rapid.Float64Range(-1000, 25000).Draw(rt, "x")
		y := rapid.Float64Range(-1000, 25000).Draw(rt, "y")

		res := v.Validate([]types.RawActionCandidate{
			map[string]any{"action": "click", "params": map[string]any{"x": x, "y": y}},
		})

		inside := x >= 0 && x < bound && y >= 0 && y < bound
		require.Equal(t, inside, len(res.Actions) == 1)
		if inside {
			cx := res.Actions[0].Params["x"].(int)
			assert.GreaterOrEqual(t, cx, 0)
			assert.Less(t, float64(cx), bound)
		}
	})
}

// Property: 围栏包裹与二次编码不改变解析结果
func TestProperty_Normalize_WrappingIsTransparent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 5).Draw(rt, "n")
		items := make([]map[string]any, n)
		for i := range items {
			items[i] = map[string]any{
				"action": "wait",
				"params": map[string]any{"ms": rapid.IntRange(1, 30000).Draw(rt, fmt.Sprintf("ms_%d", i))},
			}
		}
		bare, err := json.Marshal(items)
		require.NoError(t, err)

		want, err := Normalize(string(bare))
		require.NoError(t, err)

		tag := rapid.SampledFrom([]string{"", "json", "JSON"}).Draw(rt, "tag")
		fenced, err := Normalize("```" + tag + "\n" + string(bare) + "\n```")
		require.NoError(t, err)
		assert.Equal(t, want, fenced)

		encoded, err := json.Marshal(string(bare))
		require.NoError(t, err)
		double, err := Normalize(string(encoded))
		require.NoError(t, err)
		assert.Equal(t, want, double)
	})
}
