package presents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ichi0g0y/present-calendar/internal/types"
	"gopkg.in/yaml.v3"
)

// 区画の既定色（偶数番目／奇数番目）
var (
	evenOptionStyle = optionStyle{Color: "#c62828", TextColor: "#ffffff"}
	oddOptionStyle  = optionStyle{Color: "#2e7d32", TextColor: "#ffffff"}
)

type optionStyle struct {
	Color     string `json:"color" yaml:"color"`
	TextColor string `json:"textColor" yaml:"textColor"`
	// snake_case でも受け付ける
	TextColorSnake string `json:"text_color" yaml:"text_color"`
}

func (s optionStyle) textColor() string {
	if s.TextColor != "" {
		return s.TextColor
	}
	return s.TextColorSnake
}

type labeledOption struct {
	Label string `json:"label" yaml:"label"`
	optionStyle `yaml:",inline"`
}

// rawOptions は options フィールドの入力形式（ラベル配列 or ラベル→スタイルのマップ）を
// 読み込み時に一度だけ []types.WheelOption へ正規化する。
type rawOptions struct {
	options []types.WheelOption
}

func (r *rawOptions) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		r.options = nil
		return nil
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		opts := make([]types.WheelOption, 0, len(items))
		for _, item := range items {
			opt, ok := decodeJSONListItem(item)
			if ok {
				opts = append(opts, opt)
			}
		}
		r.options = normalizeOptions(opts)
		return nil

	case '{':
		opts, err := decodeJSONMapping(trimmed)
		if err != nil {
			return err
		}
		r.options = normalizeOptions(opts)
		return nil
	}

	// 想定外の形式はルーレットなしとして扱う
	r.options = nil
	return nil
}

func decodeJSONListItem(item json.RawMessage) (types.WheelOption, bool) {
	var label string
	if err := json.Unmarshal(item, &label); err == nil {
		return types.WheelOption{Label: label}, true
	}
	var lo labeledOption
	if err := json.Unmarshal(item, &lo); err != nil {
		return types.WheelOption{}, false
	}
	return types.WheelOption{Label: lo.Label, Color: lo.Color, TextColor: lo.textColor()}, true
}

// decodeJSONMapping はキーの出現順を保ったままマップを読む（map[string]では順序が失われる）
func decodeJSONMapping(data []byte) ([]types.WheelOption, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	var opts []types.WheelOption
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		label, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected option key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		opts = append(opts, styleFromJSON(label, value))
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return opts, nil
}

func styleFromJSON(label string, value json.RawMessage) types.WheelOption {
	var color string
	if err := json.Unmarshal(value, &color); err == nil {
		return types.WheelOption{Label: label, Color: color}
	}
	var style optionStyle
	if err := json.Unmarshal(value, &style); err != nil {
		return types.WheelOption{Label: label}
	}
	return types.WheelOption{Label: label, Color: style.Color, TextColor: style.textColor()}
}

func (r *rawOptions) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		opts := make([]types.WheelOption, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind == yaml.ScalarNode {
				opts = append(opts, types.WheelOption{Label: item.Value})
				continue
			}
			var lo labeledOption
			if err := item.Decode(&lo); err != nil {
				continue
			}
			opts = append(opts, types.WheelOption{Label: lo.Label, Color: lo.Color, TextColor: lo.textColor()})
		}
		r.options = normalizeOptions(opts)
		return nil

	case yaml.MappingNode:
		// Content は key, value, key, value... の順
		opts := make([]types.WheelOption, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			label := node.Content[i].Value
			value := node.Content[i+1]
			opt := types.WheelOption{Label: label}
			switch value.Kind {
			case yaml.ScalarNode:
				opt.Color = value.Value
			case yaml.MappingNode:
				var style optionStyle
				if err := value.Decode(&style); err == nil {
					opt.Color = style.Color
					opt.TextColor = style.textColor()
				}
			}
			opts = append(opts, opt)
		}
		r.options = normalizeOptions(opts)
		return nil

	}

	r.options = nil
	return nil
}

// normalizeOptions drops empty labels and fills missing colours by even/odd position.
// 位置は空ラベル除去後のものを使う。
func normalizeOptions(in []types.WheelOption) []types.WheelOption {
	out := make([]types.WheelOption, 0, len(in))
	for _, opt := range in {
		opt.Label = strings.TrimSpace(opt.Label)
		if opt.Label == "" {
			continue
		}
		def := evenOptionStyle
		if len(out)%2 == 1 {
			def = oddOptionStyle
		}
		if opt.Color == "" {
			opt.Color = def.Color
		}
		if opt.TextColor == "" {
			opt.TextColor = def.TextColor
		}
		out = append(out, opt)
	}
	return out
}
