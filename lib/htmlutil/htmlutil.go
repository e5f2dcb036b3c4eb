package htmlutil

import (
	"ansible-matrix/lib/textutil"
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("ansible-matrix.lib.htmlutil")

var ErrTableNotFound = errors.New("table not found")

// GetText concatenates every text node under `node`, whitespace is kept as is.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// SelectionText is GetText over every node in the selection.
func SelectionText(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		getTextRecursive(n, &buffer)
	}
	return buffer.String()
}

// TableQuery describes how to locate a single <table> in a document.
//
// When Header is set, the first table with a header cell containing Header
// (compared with textutil.NormalizeName) wins. If none does and Fuzzy is set,
// the table whose closest header has the highest Jaro-Winkler similarity is
// used, provided it reaches FuzzyThreshold.
//
// When Header is empty, Index selects the table by position.
type TableQuery struct {
	Header         string  `json:"header"`
	Index          int     `json:"index"`
	Fuzzy          bool    `json:"fuzzy"`
	FuzzyThreshold float64 `json:"fuzzy_threshold"`
}

func (q TableQuery) String() string {
	if q.Header != "" {
		return fmt.Sprintf("table with header %q", q.Header)
	}
	return fmt.Sprintf("table at index %d", q.Index)
}

const defaultFuzzyThreshold = 0.85

func FindTable(ctx context.Context, doc *goquery.Document, q TableQuery) (*goquery.Selection, error) {
	_, span := tracer.Start(ctx, "FindTable")
	defer span.End()

	tables := doc.Find("table")
	span.SetAttributes(
		attribute.String("query", q.String()),
		attribute.Int("tables", tables.Length()),
	)

	if q.Header == "" {
		if q.Index < 0 || q.Index >= tables.Length() {
			err := fmt.Errorf("%w: %s (page has %d tables)", ErrTableNotFound, q, tables.Length())
			span.RecordError(err)
			span.SetStatus(codes.Error, "table index out of range")
			return nil, err
		}
		return tables.Eq(q.Index), nil
	}

	target := textutil.NormalizeName(q.Header)

	var found *goquery.Selection
	tables.EachWithBreak(func(_ int, table *goquery.Selection) bool {
		for _, header := range HeaderCells(table) {
			if textutil.MatchName(header, []string{target}) {
				found = table
				return false
			}
		}
		return true
	})
	if found != nil {
		return found, nil
	}

	if q.Fuzzy {
		threshold := q.FuzzyThreshold
		if threshold <= 0 {
			threshold = defaultFuzzyThreshold
		}

		var best *goquery.Selection
		var bestSimilarity float64
		tables.Each(func(_ int, table *goquery.Selection) {
			for _, header := range HeaderCells(table) {
				similarity := matchr.JaroWinkler(textutil.NormalizeName(header), target, false)
				if similarity > bestSimilarity {
					bestSimilarity = similarity
					best = table
				}
			}
		})
		span.SetAttributes(attribute.Float64("fuzzy_similarity", bestSimilarity))
		if best != nil && bestSimilarity >= threshold {
			return best, nil
		}
	}

	err := fmt.Errorf("%w: %s", ErrTableNotFound, q)
	span.RecordError(err)
	span.SetStatus(codes.Error, "no table matched")
	return nil, err
}

// HeaderCells returns the text of the table's <th> cells, or the <td> cells
// of its first row when it has no <th>.
func HeaderCells(table *goquery.Selection) []string {
	cells := table.Find("th")
	if cells.Length() == 0 {
		cells = table.Find("tr").First().Find("td")
	}
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, cell *goquery.Selection) {
		out = append(out, textutil.CollapseSpace(SelectionText(cell)))
	})
	return out
}

// DataRows returns every <tr> of the table except the first one, which is
// assumed to be the header row.
func DataRows(table *goquery.Selection) []*goquery.Selection {
	rows := table.Find("tr")
	if rows.Length() <= 1 {
		return nil
	}
	out := make([]*goquery.Selection, 0, rows.Length()-1)
	rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		out = append(out, row)
	})
	return out
}

// Cells returns the raw text of each <td> in the row, header cells are ignored.
func Cells(row *goquery.Selection) []string {
	tds := row.Find("td")
	out := make([]string, 0, tds.Length())
	tds.Each(func(_ int, cell *goquery.Selection) {
		out = append(out, SelectionText(cell))
	})
	return out
}
