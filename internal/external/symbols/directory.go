package symbols

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry maps one ticker to its search keyword and Wikipedia article
type Entry struct {
	Company string `yaml:"company" json:"company"`
	Article string `yaml:"article" json:"article"`
}

// File is the YAML layout of a symbol override file
type File struct {
	Symbols map[string]Entry `yaml:"symbols"`
}

// defaults covers the large caps the service is usually asked about
var defaults = map[string]Entry{
	"AAPL":  {Company: "Apple", Article: "Apple_Inc."},
	"GOOGL": {Company: "Google", Article: "Google"},
	"MSFT":  {Company: "Microsoft", Article: "Microsoft"},
	"AMZN":  {Company: "Amazon", Article: "Amazon_(company)"},
	"TSLA":  {Company: "Tesla", Article: "Tesla,_Inc."},
	"META":  {Company: "Meta", Article: "Meta_Platforms"},
	"NVDA":  {Company: "Nvidia", Article: "Nvidia"},
	"NFLX":  {Company: "Netflix", Article: "Netflix"},
	"AMD":   {Company: "AMD", Article: "Advanced_Micro_Devices"},
	"INTC":  {Company: "Intel", Article: "Intel"},
}

// Directory resolves tickers to company names and article titles.
// Unknown tickers fall back to the ticker itself.
// ⭐ SSOT: 티커 → 검색어/문서 매핑은 여기서만
type Directory struct {
	entries map[string]Entry
}

// NewDirectory returns the built-in mapping
func NewDirectory() *Directory {
	entries := make(map[string]Entry, len(defaults))
	for k, v := range defaults {
		entries[k] = v
	}
	return &Directory{entries: entries}
}

// Load returns the built-in mapping overlaid with path (if non-empty).
// KnownFields(true): 오타/미사용 필드는 즉시 실패
func Load(path string) (*Directory, error) {
	dir := NewDirectory()
	if path == "" {
		return dir, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbol file: %w", err)
	}

	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode symbol file %s: %w", path, err)
	}

	for symbol, entry := range file.Symbols {
		key := normalize(symbol)
		if key == "" {
			return nil, fmt.Errorf("symbol file %s: empty ticker", path)
		}
		if entry.Company == "" && entry.Article == "" {
			return nil, fmt.Errorf("symbol file %s: %s has neither company nor article", path, key)
		}
		dir.entries[key] = entry
	}
	return dir, nil
}

// CompanyName returns the search keyword for symbol
func (d *Directory) CompanyName(symbol string) string {
	key := normalize(symbol)
	if e, ok := d.entries[key]; ok && e.Company != "" {
		return e.Company
	}
	return key
}

// WikiArticle returns the article title for symbol
func (d *Directory) WikiArticle(symbol string) string {
	key := normalize(symbol)
	if e, ok := d.entries[key]; ok && e.Article != "" {
		return e.Article
	}
	return key
}

// Symbols lists the known tickers, sorted
func (d *Directory) Symbols() []string {
	out := make([]string, 0, len(d.entries))
	for k := range d.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
