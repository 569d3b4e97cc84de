package presents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/ichi0g0y/present-calendar/internal/shared/logger"
	"github.com/ichi0g0y/present-calendar/internal/types"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// ChoiceMarker を action に含むプレゼントはルーレットを表示する（大文字小文字は区別しない）
const ChoiceMarker = "wheel"

const maxSourceBytes = 8 << 20

var ErrLoadFailed = errors.New("failed to load presents")

// zone-less layouts interpreted in the configured timezone
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// rawRecord は入力ファイルの1レコード。旧形式の image_id / open_at / image_path も受け付ける。
// フィールド単位で読むので、任意フィールドの型違いでレコード全体を捨てることはない。
type rawRecord struct {
	ID             string
	ImageID        string
	UnlockAt       string
	OpenAt         string
	ImagePath      string
	ImagePathSnake string
	Title          string
	Action         string
	Options        rawOptions
}

// set assigns a scalar field by its input key. 未知のキーは無視する
func (r *rawRecord) set(key, value string) {
	switch key {
	case "id":
		r.ID = value
	case "image_id":
		r.ImageID = value
	case "unlockAt":
		r.UnlockAt = value
	case "open_at":
		r.OpenAt = value
	case "imagePath":
		r.ImagePath = value
	case "image_path":
		r.ImagePathSnake = value
	case "title":
		r.Title = value
	case "action":
		r.Action = value
	}
}

// Options controls parsing.
type Options struct {
	Location   *time.Location
	HTTPClient *http.Client
}

// Result is the working set after filtering.
type Result struct {
	Presents []types.Present
	Dropped  int
}

// Load fetches the presents file once (local path or http(s) URL) and parses it.
// 個々の不正レコードは捨てるだけでエラーにしない。ファイル自体の取得・解析失敗のみ ErrLoadFailed。
func Load(ctx context.Context, source string, opts Options) (*Result, error) {
	data, err := fetch(ctx, source, opts.HTTPClient)
	if err != nil {
		logger.Error("Failed to fetch presents file", zap.String("source", source), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	result, err := Parse(data, formatOf(source), opts.Location)
	if err != nil {
		logger.Error("Failed to parse presents file", zap.String("source", source), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}

	logger.Info("Presents loaded",
		zap.String("source", source),
		zap.Int("count", len(result.Presents)),
		zap.Int("dropped", result.Dropped))
	return result, nil
}

func fetch(ctx context.Context, source string, client *http.Client) ([]byte, error) {
	if !isRemote(source) {
		return os.ReadFile(source)
	}

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Format of the presents file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func formatOf(source string) Format {
	p := source
	if isRemote(source) {
		if u, err := url.Parse(source); err == nil {
			p = u.Path
		}
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes the document and filters it into the working set.
func Parse(data []byte, format Format, loc *time.Location) (*Result, error) {
	if loc == nil {
		loc = time.Local
	}

	var records []*rawRecord
	var err error
	switch format {
	case FormatYAML:
		records, err = decodeYAML(data)
	default:
		records, err = decodeJSON(data)
	}
	if err != nil {
		return nil, err
	}

	result := &Result{Presents: make([]types.Present, 0, len(records))}
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		p, ok := rec.toPresent(loc)
		if !ok {
			logger.Debug("Dropping invalid present record", zap.Int("index", i))
			result.Dropped++
			continue
		}
		if _, dup := seen[p.ID]; dup {
			logger.Warn("Dropping duplicate present id", zap.String("id", p.ID), zap.Int("index", i))
			result.Dropped++
			continue
		}
		seen[p.ID] = struct{}{}
		result.Presents = append(result.Presents, p)
	}
	return result, nil
}

func decodeJSON(data []byte) ([]*rawRecord, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	records := make([]*rawRecord, len(items))
	for i, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue // nil = drop
		}
		rec := &rawRecord{}
		for key, raw := range fields {
			if key == "options" {
				if err := rec.Options.UnmarshalJSON(raw); err != nil {
					logger.Debug("Ignoring malformed options", zap.Int("index", i), zap.Error(err))
					rec.Options = rawOptions{}
				}
				continue
			}
			if v, ok := jsonScalar(raw); ok {
				rec.set(key, v)
			}
		}
		records[i] = rec
	}
	return records, nil
}

// jsonScalar は文字列・数値・真偽値をテキストとして返す。オブジェクトや配列、null は ok=false
func jsonScalar(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false
	}
	switch c := trimmed[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	case c == 't' || c == 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return "", false
		}
		return strconv.FormatBool(b), true
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
	return "", false
}

func decodeYAML(data []byte) ([]*rawRecord, error) {
	var items []yaml.Node
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	records := make([]*rawRecord, len(items))
	for i := range items {
		node := &items[i]
		if node.Kind != yaml.MappingNode {
			continue
		}
		rec := &rawRecord{}
		// Content は key, value, key, value... の順
		for j := 0; j+1 < len(node.Content); j += 2 {
			key, value := node.Content[j].Value, node.Content[j+1]
			if key == "options" {
				if err := rec.Options.UnmarshalYAML(value); err != nil {
					logger.Debug("Ignoring malformed options", zap.Int("index", i), zap.Error(err))
					rec.Options = rawOptions{}
				}
				continue
			}
			if value.Kind == yaml.ScalarNode && value.Tag != "!!null" {
				rec.set(key, value.Value)
			}
		}
		records[i] = rec
	}
	return records, nil
}

func (r *rawRecord) toPresent(loc *time.Location) (types.Present, bool) {
	if r == nil {
		return types.Present{}, false
	}

	id := firstNonEmpty(r.ID, r.ImageID)
	unlockText := firstNonEmpty(r.UnlockAt, r.OpenAt)
	imagePath := firstNonEmpty(r.ImagePath, r.ImagePathSnake)
	if id == "" || unlockText == "" || imagePath == "" {
		return types.Present{}, false
	}

	unlockAt, err := ParseUnlockAt(unlockText, loc)
	if err != nil {
		return types.Present{}, false
	}

	return types.Present{
		ID:           id,
		Title:        strings.TrimSpace(r.Title),
		UnlockAt:     unlockAt,
		UnlockAtText: unlockText,
		ImagePath:    imagePath,
		Action:       r.Action,
		Options:      r.Options.options,
	}, true
}

// ParseUnlockAt accepts RFC 3339 or a zone-less timestamp in loc.
func ParseUnlockAt(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid unlock time %q", s)
}

// OffersChoice reports whether the wheel should be shown for p.
func OffersChoice(p types.Present) bool {
	if len(p.Options) < 2 {
		return false
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(p.Action), fold.String(ChoiceMarker))
}

// firstNonEmpty returns the first value that is not blank, as written.
// id と unlockAt はキーやシードに使うので空白を含めて元の値のまま返す
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
