package presents

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/types"
)

const sampleJSON = `[
  {"id": "day-2", "title": "Day 2", "unlockAt": "2024-12-02T00:00:00Z", "imagePath": "images/2.png",
   "action": "Spin the WHEEL!", "options": {"Zebra": "#000000", "Apple": {"color": "#ff0000", "textColor": "#111111"}, "Mango": {}}},
  {"image_id": "day-1", "open_at": "2024-12-01T09:00:00+09:00", "image_path": "images/1.png"},
  {"id": "no-image", "unlockAt": "2024-12-03T00:00:00Z"},
  {"id": "bad-time", "unlockAt": "tomorrow", "imagePath": "x.png"},
  {"id": 42, "unlockAt": "2024-12-03T00:00:00Z", "imagePath": "x.png"},
  "not an object",
  {"id": "day-1", "unlockAt": "2024-12-05T00:00:00Z", "imagePath": "dup.png"},
  {"id": "day-3", "unlockAt": "2024-12-03 18:00", "imagePath": "images/3.png", "options": ["Red", "", "Blue", "Green"]}
]`

func TestParse_JSON(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	result, err := Parse([]byte(sampleJSON), FormatJSON, tokyo)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(result.Presents) != 4 {
		t.Fatalf("unexpected present count: got=%d want=4", len(result.Presents))
	}
	if result.Dropped != 4 {
		t.Fatalf("unexpected dropped count: got=%d want=4", result.Dropped)
	}

	day2 := result.Presents[0]
	if day2.ID != "day-2" || day2.UnlockAtText != "2024-12-02T00:00:00Z" {
		t.Fatalf("unexpected first present: %+v", day2)
	}
	wantOpts := []types.WheelOption{
		{Label: "Zebra", Color: "#000000", TextColor: "#ffffff"},
		{Label: "Apple", Color: "#ff0000", TextColor: "#111111"},
		{Label: "Mango", Color: "#c62828", TextColor: "#ffffff"},
	}
	if len(day2.Options) != len(wantOpts) {
		t.Fatalf("unexpected options: %+v", day2.Options)
	}
	for i := range wantOpts {
		if day2.Options[i] != wantOpts[i] {
			t.Fatalf("option %d mismatch: got=%+v want=%+v", i, day2.Options[i], wantOpts[i])
		}
	}
	if !OffersChoice(day2) {
		t.Fatalf("day-2 should offer a choice")
	}

	day1 := result.Presents[1]
	if day1.ID != "day-1" || day1.ImagePath != "images/1.png" {
		t.Fatalf("legacy keys not mapped: %+v", day1)
	}
	if !day1.UnlockAt.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected unlock time: %v", day1.UnlockAt)
	}
	if OffersChoice(day1) {
		t.Fatalf("day-1 has no options")
	}

	// 数値の id は文字列として扱う
	if num := result.Presents[2]; num.ID != "42" {
		t.Fatalf("numeric id should be kept as text: %+v", num)
	}

	day3 := result.Presents[3]
	if !day3.UnlockAt.Equal(time.Date(2024, 12, 3, 18, 0, 0, 0, tokyo)) {
		t.Fatalf("zone-less time should use configured location: %v", day3.UnlockAt)
	}
	labels := day3.Labels()
	if len(labels) != 3 || labels[0] != "Red" || labels[1] != "Blue" || labels[2] != "Green" {
		t.Fatalf("unexpected labels: %v", labels)
	}
	if day3.Options[1].Color != "#2e7d32" {
		t.Fatalf("odd position should use odd default colour: %+v", day3.Options[1])
	}
	if OffersChoice(day3) {
		t.Fatalf("day-3 has no wheel action")
	}
}

const sampleYAML = `
- id: eve
  title: Christmas Eve
  unlockAt: 2024-12-24T18:00:00+09:00
  imagePath: images/eve.png
  action: wheel
  options:
    Cake: "#ffcc00"
    Turkey:
      color: "#884400"
      text_color: "#ffffff"
- id: plain
  unlockAt: "2024-12-25"
  imagePath: images/plain.png
  options: [One, Two]
- id: broken
  unlockAt: [not, a, time]
  imagePath: x.png
`

func TestParse_YAML(t *testing.T) {
	result, err := Parse([]byte(sampleYAML), FormatYAML, time.UTC)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Presents) != 2 || result.Dropped != 1 {
		t.Fatalf("unexpected result: presents=%d dropped=%d", len(result.Presents), result.Dropped)
	}

	eve := result.Presents[0]
	if eve.UnlockAtText != "2024-12-24T18:00:00+09:00" {
		t.Fatalf("unlock text should be kept verbatim: %q", eve.UnlockAtText)
	}
	if len(eve.Options) != 2 || eve.Options[0].Label != "Cake" || eve.Options[1].Label != "Turkey" {
		t.Fatalf("mapping order not preserved: %+v", eve.Options)
	}
	if eve.Options[1].Color != "#884400" {
		t.Fatalf("unexpected style: %+v", eve.Options[1])
	}
	if !OffersChoice(eve) {
		t.Fatalf("eve should offer a choice")
	}

	plain := result.Presents[1]
	if len(plain.Options) != 2 || plain.Options[1].Label != "Two" {
		t.Fatalf("unexpected options: %+v", plain.Options)
	}
}

func TestParse_MistypedOptionalFieldsKeepRecord(t *testing.T) {
	const doc = `[
  {"id": "a", "unlockAt": "2024-12-01T00:00:00Z", "imagePath": "a.png", "title": 2024},
  {"id": "b", "unlockAt": "2024-12-02T00:00:00Z", "imagePath": "b.png", "action": true},
  {"id": 7, "unlockAt": "2024-12-03T00:00:00Z", "imagePath": "c.png"},
  {"id": "d", "unlockAt": "2024-12-04T00:00:00Z", "imagePath": "d.png", "title": {"x": 1}, "options": 5},
  {"id": "e", "unlockAt": 20241205, "imagePath": "e.png"},
  {"id": null, "unlockAt": "2024-12-06T00:00:00Z", "imagePath": "f.png"}
]`
	result, err := Parse([]byte(doc), FormatJSON, time.UTC)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Presents) != 4 || result.Dropped != 2 {
		t.Fatalf("unexpected result: presents=%d dropped=%d", len(result.Presents), result.Dropped)
	}

	tests := []struct {
		id, title, action string
	}{
		{"a", "2024", ""},
		{"b", "", "true"},
		{"7", "", ""},
		{"d", "", ""},
	}
	for i, tt := range tests {
		p := result.Presents[i]
		if p.ID != tt.id || p.Title != tt.title || p.Action != tt.action {
			t.Fatalf("present %d got=%+v want id=%q title=%q action=%q", i, p, tt.id, tt.title, tt.action)
		}
	}
	if len(result.Presents[3].Options) != 0 {
		t.Fatalf("malformed options should be ignored: %+v", result.Presents[3].Options)
	}
}

func TestParse_YAMLMistypedOptionalFields(t *testing.T) {
	const doc = `
- id: 7
  unlockAt: "2024-12-01"
  imagePath: a.png
  title: [not, a, title]
  action: true
- id: b
  unlockAt: "2024-12-02"
  imagePath: b.png
  title: ~
  options: {Red: {color: [1, 2]}, Blue: "#0000ff"}
- just a string
`
	result, err := Parse([]byte(doc), FormatYAML, time.UTC)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Presents) != 2 || result.Dropped != 1 {
		t.Fatalf("unexpected result: presents=%d dropped=%d", len(result.Presents), result.Dropped)
	}
	if p := result.Presents[0]; p.ID != "7" || p.Title != "" || p.Action != "true" {
		t.Fatalf("unexpected first present: %+v", p)
	}
	if p := result.Presents[1]; p.ID != "b" || p.Title != "" {
		t.Fatalf("unexpected second present: %+v", p)
	}
}

func TestParse_KeepsIDAndUnlockTextVerbatim(t *testing.T) {
	const doc = `[{"id": " day 1 ", "unlockAt": " 2024-12-01T00:00:00Z ", "imagePath": "a.png"}]`
	result, err := Parse([]byte(doc), FormatJSON, time.UTC)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Presents) != 1 {
		t.Fatalf("unexpected present count: got=%d want=1", len(result.Presents))
	}
	p := result.Presents[0]
	if p.ID != " day 1 " {
		t.Fatalf("id got=%q want=%q", p.ID, " day 1 ")
	}
	if p.UnlockAtText != " 2024-12-01T00:00:00Z " {
		t.Fatalf("unlock text got=%q want=%q", p.UnlockAtText, " 2024-12-01T00:00:00Z ")
	}
	if !p.UnlockAt.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unlock time got=%v", p.UnlockAt)
	}
}

func TestParse_TopLevelFailure(t *testing.T) {
	if _, err := Parse([]byte(`{"id": "x"}`), FormatJSON, time.UTC); err == nil {
		t.Fatalf("object document should fail")
	}
	if _, err := Parse([]byte(`[{`), FormatJSON, time.UTC); err == nil {
		t.Fatalf("truncated JSON should fail")
	}

	result, err := Parse([]byte(`[]`), FormatJSON, time.UTC)
	if err != nil || len(result.Presents) != 0 {
		t.Fatalf("empty list should parse to empty set: %v", err)
	}
}

func TestOffersChoice(t *testing.T) {
	two := []types.WheelOption{{Label: "A"}, {Label: "B"}}
	tests := []struct {
		action  string
		options []types.WheelOption
		want    bool
	}{
		{"wheel", two, true},
		{"Spin The Wheel", two, true},
		{"WHEEL", two, true},
		{"open", two, false},
		{"wheel", two[:1], false},
		{"", two, false},
	}
	for _, tt := range tests {
		got := OffersChoice(types.Present{Action: tt.action, Options: tt.options})
		if got != tt.want {
			t.Fatalf("OffersChoice(%q, %d options): got=%v want=%v", tt.action, len(tt.options), got, tt.want)
		}
	}
}

func TestLoad_FileAndHTTP(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "presents.json")
	if err := os.WriteFile(jsonPath, []byte(sampleJSON), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	yamlPath := filepath.Join(dir, "presents.yml")
	if err := os.WriteFile(yamlPath, []byte(sampleYAML), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	ctx := context.Background()
	if r, err := Load(ctx, jsonPath, Options{Location: time.UTC}); err != nil || len(r.Presents) != 3 {
		t.Fatalf("json file load failed: %v", err)
	}
	if r, err := Load(ctx, yamlPath, Options{Location: time.UTC}); err != nil || len(r.Presents) != 2 {
		t.Fatalf("yaml file load failed: %v", err)
	}

	if _, err := Load(ctx, filepath.Join(dir, "missing.json"), Options{}); !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("missing file should be ErrLoadFailed, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/presents.yaml":
			w.Write([]byte(sampleYAML))
		case "/presents.json":
			w.Write([]byte(sampleJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	if r, err := Load(ctx, srv.URL+"/presents.yaml", Options{Location: time.UTC}); err != nil || len(r.Presents) != 2 {
		t.Fatalf("http yaml load failed: %v", err)
	}
	if r, err := Load(ctx, srv.URL+"/presents.json?v=1", Options{Location: time.UTC}); err != nil || len(r.Presents) != 3 {
		t.Fatalf("http json load failed: %v", err)
	}
	if _, err := Load(ctx, srv.URL+"/nope.json", Options{}); !errors.Is(err, ErrLoadFailed) {
		t.Fatalf("404 should be ErrLoadFailed, got %v", err)
	}
}
