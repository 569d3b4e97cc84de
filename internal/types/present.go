package types

import "time"

// WheelOption はルーレットの1区画
type WheelOption struct {
	Label     string `json:"label" yaml:"label"`
	Color     string `json:"color" yaml:"color"`
	TextColor string `json:"text_color" yaml:"textColor"`
}

// Present はカレンダーの1アイテム（プレゼント）
// UnlockAtText は入力ファイルに書かれたままの解放時刻で、ルーレットのシード文字列に使う
type Present struct {
	ID           string        `json:"id"`
	Title        string        `json:"title,omitempty"`
	UnlockAt     time.Time     `json:"unlock_at"`
	UnlockAtText string        `json:"unlock_at_text"`
	ImagePath    string        `json:"image_path"`
	Action       string        `json:"action,omitempty"`
	Options      []WheelOption `json:"options,omitempty"`
}

// DisplayTitle returns the title, falling back to the id.
func (p Present) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.ID
}

// Labels returns the option labels in source order.
func (p Present) Labels() []string {
	labels := make([]string, len(p.Options))
	for i, o := range p.Options {
		labels[i] = o.Label
	}
	return labels
}

// PresentState は表示状態のタグ
type PresentState string

const (
	StateLocked   PresentState = "locked"
	StateUnlocked PresentState = "unlocked"
	StateRevealed PresentState = "revealed"
	// プレゼントが1件もない
	StateEmpty PresentState = "empty"
	// presentsファイルの読み込みに失敗
	StateFailed PresentState = "failed"
)
