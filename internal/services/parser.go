package services

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedItem is one quantified item extracted from pasted text.
type ParsedItem struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	IsBPC    bool   `json:"is_bpc"`
	Line     int    `json:"line"` // 1-based source line
}

// ParseResult is what the parser always returns; parsing never fails outright.
// Unparsed maps 1-based line numbers to their original text.
type ParseResult struct {
	Items    []ParsedItem   `json:"items"`
	Unparsed map[int]string `json:"unparsed"`
	Strategy string         `json:"strategy"`
	Success  bool           `json:"success"`
}

// parseStrategy is one format heuristic. Strategies are tried in registration
// order; the first one that succeeds wins.
type parseStrategy interface {
	name() string
	parse(lines []string) strategyResult
}

type strategyResult struct {
	items    []ParsedItem
	unparsed map[int]string
	success  bool
}

// Parser converts freeform pasted inventory text into quantified items using
// an ordered list of format strategies: cargo scans first (most specific),
// then tab-delimited asset lists, then a plain name listing as the fallback.
type Parser struct {
	strategies []parseStrategy
}

func NewParser() *Parser {
	return &Parser{
		strategies: []parseStrategy{
			cargoScanStrategy{},
			assetListStrategy{},
			listingStrategy{},
		},
	}
}

// Parse runs the strategies in order and returns the first successful result.
// When nothing matches, the result carries Success=false and every nonempty
// line as unparsed.
func (p *Parser) Parse(input string) ParseResult {
	lines := strings.Split(strings.TrimSpace(input), "\n")

	for _, strategy := range p.strategies {
		result := strategy.parse(lines)
		if result.success {
			return ParseResult{
				Items:    consolidateItems(result.items),
				Unparsed: result.unparsed,
				Strategy: strategy.name(),
				Success:  true,
			}
		}
	}

	unparsed := make(map[int]string)
	for i, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			unparsed[i+1] = trimmed
		}
	}
	return ParseResult{Unparsed: unparsed, Strategy: "unknown"}
}

// quantitySeparators are the digit grouping characters stripped before
// parsing: "1,234", "1.234", "1'234" and "1 234" all mean 1234.
var quantitySeparators = strings.NewReplacer(",", "", ".", "", "'", "", " ", "")

func parseQuantity(s string) int64 {
	n, err := strconv.ParseInt(quantitySeparators.Replace(strings.TrimSpace(s)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// stripBlueprintSuffix removes the "(Copy)"/"(Original)" markers a cargo scan
// appends to blueprint names. Only "(Copy)" marks the item as a BPC.
func stripBlueprintSuffix(name string) (string, bool) {
	if strings.HasSuffix(name, " (Copy)") {
		return strings.TrimSuffix(name, " (Copy)"), true
	}
	return strings.ReplaceAll(name, " (Original)", ""), false
}

// cargoScanStrategy parses "<quantity> <name>" lines as produced by cargo
// scanners, e.g. "1,234 Tritanium" or "2 Rifter Blueprint (Copy)".
type cargoScanStrategy struct{}

var cargoScanPattern = regexp.MustCompile(`^([\d,.' ]+)\s+(.+)$`)

func (cargoScanStrategy) name() string { return "cargo_scan" }

func (cargoScanStrategy) parse(lines []string) strategyResult {
	var items []ParsedItem
	unparsed := make(map[int]string)

	for i, line := range lines {
		lineNum := i + 1
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if matches := cargoScanPattern.FindStringSubmatch(line); matches != nil {
			quantity := parseQuantity(matches[1])
			name, isBPC := stripBlueprintSuffix(strings.TrimSpace(matches[2]))

			if quantity > 0 && name != "" {
				items = append(items, ParsedItem{
					Name:     name,
					Quantity: quantity,
					IsBPC:    isBPC,
					Line:     lineNum,
				})
				continue
			}
		}

		unparsed[lineNum] = line
	}

	return strategyResult{items: items, unparsed: unparsed, success: len(items) > 0}
}

// assetListStrategy parses tab-delimited asset exports: "name<TAB>quantity",
// possibly with further columns. An empty or non-numeric quantity cell means
// a single unit; a negative one demotes the line.
type assetListStrategy struct{}

func (assetListStrategy) name() string { return "assets" }

func (assetListStrategy) parse(lines []string) strategyResult {
	var items []ParsedItem
	unparsed := make(map[int]string)

	for i, line := range lines {
		lineNum := i + 1
		line = strings.TrimRight(line, " \r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) >= 2 {
			name := strings.TrimSpace(parts[0])
			quantity := parseQuantity(parts[1])
			if quantity == 0 {
				quantity = 1
			}

			if name != "" && quantity > 0 {
				items = append(items, ParsedItem{
					Name:     name,
					Quantity: quantity,
					Line:     lineNum,
				})
				continue
			}
		}

		unparsed[lineNum] = strings.TrimSpace(line)
	}

	return strategyResult{items: items, unparsed: unparsed, success: len(items) > 0}
}

// listingStrategy treats every line as a bare item name with quantity 1. It
// is the most permissive strategy, so it only succeeds when it parses more
// lines than it rejects; otherwise noise input would always "parse".
type listingStrategy struct{}

func (listingStrategy) name() string { return "listing" }

func (listingStrategy) parse(lines []string) strategyResult {
	var items []ParsedItem
	unparsed := make(map[int]string)

	for i, line := range lines {
		lineNum := i + 1
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if len(line) > 2 && len(line) < 200 {
			items = append(items, ParsedItem{
				Name:     line,
				Quantity: 1,
				Line:     lineNum,
			})
		} else {
			unparsed[lineNum] = line
		}
	}

	return strategyResult{
		items:    items,
		unparsed: unparsed,
		success:  len(items) > 0 && len(items) > len(unparsed),
	}
}

// consolidateItems merges lines naming the same (name, BPC flag) pair by
// summing their quantities, keeping the first line number seen.
func consolidateItems(items []ParsedItem) []ParsedItem {
	type key struct {
		name  string
		isBPC bool
	}

	index := make(map[key]int)
	var consolidated []ParsedItem

	for _, item := range items {
		k := key{item.Name, item.IsBPC}
		if i, ok := index[k]; ok {
			consolidated[i].Quantity += item.Quantity
		} else {
			index[k] = len(consolidated)
			consolidated = append(consolidated, item)
		}
	}

	return consolidated
}
