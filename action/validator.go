package action

import (
	"encoding/json"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/actiongate/types"
	"go.uber.org/zap"
)

// DefaultConfidence 模型未给出 confidence 时使用的默认值
const DefaultConfidence = 0.7

// DropReason 丢弃原因，用于日志与指标标签
type DropReason string

const (
	DropNotObject     DropReason = "not_object"
	DropMissingAction DropReason = "missing_action"
	DropUnknownAction DropReason = "unknown_action"
	DropInvalidParams DropReason = "invalid_params"
	DropOutOfBounds   DropReason = "out_of_bounds"
)

// Limits 安全边界配置
type Limits struct {
	// MaxCoordinate 坐标上界（不含），合法区间 [0, MaxCoordinate)
	MaxCoordinate float64 `yaml:"max_coordinate" toml:"max_coordinate" env:"MAX_COORDINATE"`
	// MaxTextLength type 文本最大字符数（含），按 rune 计数
	MaxTextLength int `yaml:"max_text_length" toml:"max_text_length" env:"MAX_TEXT_LENGTH"`
	// MaxWaitMs wait 最大毫秒数（含），合法区间 (0, MaxWaitMs]
	MaxWaitMs float64 `yaml:"max_wait_ms" toml:"max_wait_ms" env:"MAX_WAIT_MS"`
	// MaxKeys press_keys 单次组合键最大数量
	MaxKeys int `yaml:"max_keys" toml:"max_keys" env:"MAX_KEYS"`
	// MaxScrollDelta scroll 幅度绝对值上限（含）
	MaxScrollDelta float64 `yaml:"max_scroll_delta" toml:"max_scroll_delta" env:"MAX_SCROLL_DELTA"`
}

// DefaultLimits 返回默认安全边界
func DefaultLimits() Limits {
	return Limits{
		MaxCoordinate:  10000,
		MaxTextLength:  10000,
		MaxWaitMs:      30000,
		MaxKeys:        10,
		MaxScrollDelta: 100,
	}
}

// withDefaults 用默认值填充未设置（<=0）的字段
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxCoordinate <= 0 {
		l.MaxCoordinate = d.MaxCoordinate
	}
	if l.MaxTextLength <= 0 {
		l.MaxTextLength = d.MaxTextLength
	}
	if l.MaxWaitMs <= 0 {
		l.MaxWaitMs = d.MaxWaitMs
	}
	if l.MaxKeys <= 0 {
		l.MaxKeys = d.MaxKeys
	}
	if l.MaxScrollDelta <= 0 {
		l.MaxScrollDelta = d.MaxScrollDelta
	}
	return l
}

// DropObserver is notified once per dropped candidate.
type DropObserver func(reason DropReason)

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for per-drop debug entries.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger.With(zap.String("component", "action_validator"))
		}
	}
}

// WithDropObserver registers a callback invoked for each dropped candidate.
func WithDropObserver(fn DropObserver) Option {
	return func(v *Validator) { v.onDrop = fn }
}

// Validator 动作安全策略。无状态，可并发使用。
type Validator struct {
	limits Limits
	logger *zap.Logger
	onDrop DropObserver
}

// NewValidator 创建校验器，零值边界取默认值
func NewValidator(limits Limits, opts ...Option) *Validator {
	v := &Validator{
		limits: limits.withDefaults(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Limits 返回生效的边界
func (v *Validator) Limits() Limits {
	return v.limits
}

// Validate 单遍过滤候选动作。每条候选独立判定，被接受的动作保持原有顺序。
// 丢弃不是错误，只反映在 Dropped 计数中。
func (v *Validator) Validate(candidates []types.RawActionCandidate) types.ValidationResult {
	result := types.ValidationResult{
		Actions: make([]types.ActionRecord, 0, len(candidates)),
	}

	for i, c := range candidates {
		record, reason, ok := v.classify(c)
		if !ok {
			result.Dropped++
			v.logger.Debug("action dropped",
				zap.Int("index", i),
				zap.String("reason", string(reason)),
			)
			if v.onDrop != nil {
				v.onDrop(reason)
			}
			continue
		}
		result.Actions = append(result.Actions, record)
	}

	return result
}

func (v *Validator) classify(c types.RawActionCandidate) (types.ActionRecord, DropReason, bool) {
	obj, ok := c.(map[string]any)
	if !ok {
		return types.ActionRecord{}, DropNotObject, false
	}

	rawKind, present := obj["action"]
	if !present {
		return types.ActionRecord{}, DropMissingAction, false
	}
	kindStr, ok := rawKind.(string)
	if !ok {
		return types.ActionRecord{}, DropUnknownAction, false
	}
	kind := types.ActionKind(kindStr)
	if !kind.Valid() {
		return types.ActionRecord{}, DropUnknownAction, false
	}

	params, _ := obj["params"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}

	var (
		canonical map[string]any
		reason    DropReason
	)
	switch kind {
	case types.ActionClick:
		canonical, reason = v.click(params)
	case types.ActionType:
		canonical, reason = v.typeText(params)
	case types.ActionWait:
		canonical, reason = v.wait(params)
	case types.ActionPressKeys:
		canonical, reason = v.pressKeys(params)
	case types.ActionScroll:
		canonical, reason = v.scroll(params)
	}
	if canonical == nil {
		return types.ActionRecord{}, reason, false
	}

	return types.ActionRecord{
		Action:     kind,
		Params:     canonical,
		Confidence: confidence(obj["confidence"]),
	}, "", true
}

func (v *Validator) click(p map[string]any) (map[string]any, DropReason) {
	x, okX := number(p["x"])
	y, okY := number(p["y"])
	if !okX || !okY {
		return nil, DropInvalidParams
	}
	if !v.inScreen(x) || !v.inScreen(y) {
		return nil, DropOutOfBounds
	}

	out := map[string]any{"x": int(x), "y": int(y)}

	if b, present := p["button"]; present {
		button, ok := b.(string)
		if !ok {
			return nil, DropInvalidParams
		}
		switch button {
		case "left", "right", "middle":
			out["button"] = button
		default:
			return nil, DropInvalidParams
		}
	}
	if d, present := p["double"]; present {
		double, ok := d.(bool)
		if !ok {
			return nil, DropInvalidParams
		}
		out["double"] = double
	}
	return out, ""
}

func (v *Validator) typeText(p map[string]any) (map[string]any, DropReason) {
	text, ok := p["text"].(string)
	if !ok || text == "" {
		return nil, DropInvalidParams
	}
	if utf8.RuneCountInString(text) > v.limits.MaxTextLength {
		return nil, DropOutOfBounds
	}
	return map[string]any{"text": text}, ""
}

func (v *Validator) wait(p map[string]any) (map[string]any, DropReason) {
	ms, ok := number(p["ms"])
	if !ok {
		return nil, DropInvalidParams
	}
	if ms <= 0 || ms > v.limits.MaxWaitMs {
		return nil, DropOutOfBounds
	}
	return map[string]any{"ms": int(math.Ceil(ms))}, ""
}

func (v *Validator) pressKeys(p map[string]any) (map[string]any, DropReason) {
	list, ok := p["keys"].([]any)
	if !ok || len(list) == 0 {
		return nil, DropInvalidParams
	}
	if len(list) > v.limits.MaxKeys {
		return nil, DropOutOfBounds
	}
	keys := make([]string, 0, len(list))
	for _, k := range list {
		s, ok := k.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, DropInvalidParams
		}
		keys = append(keys, strings.TrimSpace(s))
	}
	return map[string]any{"keys": keys}, ""
}

func (v *Validator) scroll(p map[string]any) (map[string]any, DropReason) {
	delta, ok := number(p["delta"])
	if !ok {
		return nil, DropInvalidParams
	}
	if math.Abs(delta) > v.limits.MaxScrollDelta {
		return nil, DropOutOfBounds
	}
	out := map[string]any{"delta": int(delta)}

	_, hasX := p["x"]
	_, hasY := p["y"]
	if hasX || hasY {
		x, okX := number(p["x"])
		y, okY := number(p["y"])
		if !okX || !okY {
			return nil, DropInvalidParams
		}
		if !v.inScreen(x) || !v.inScreen(y) {
			return nil, DropOutOfBounds
		}
		out["x"] = int(x)
		out["y"] = int(y)
	}
	return out, ""
}

func (v *Validator) inScreen(c float64) bool {
	return c >= 0 && c < v.limits.MaxCoordinate
}

// number 只接受真正的数值类型；字符串、布尔、NaN/Inf 均视为非数值
func number(raw any) (float64, bool) {
	var f float64
	switch n := raw.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func confidence(raw any) float64 {
	c, ok := number(raw)
	if !ok || c < 0 || c > 1 {
		return DefaultConfidence
	}
	return c
}
