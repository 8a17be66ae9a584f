// Package prose cleans the HTML returned by the extracts API into plain
// article text suitable for readability analysis.
package prose

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Info contains the cleaned prose and metadata.
type Info struct {
	Text      string
	WordCount int
}

// Extract parses extract HTML and collects the main body paragraphs, skipping
// citation markers and trailing structural noise (reference lists, navboxes).
func Extract(r io.Reader) (*Info, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var output []string
	var totalWords int

	root := findBody(doc)
	if root == nil {
		root = doc
	}

	shouldStop := false
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if shouldStop {
			break
		}

		if c.Type == html.ElementNode {
			// Reference lists and navboxes mark the end of prose
			if isStructuralNoise(c) {
				shouldStop = true
				continue
			}

			if c.DataAtom == atom.P {
				text := cleanParagraph(c)
				if text != "" {
					output = append(output, text)
					totalWords += countWords(text)
				}
			}
		}
	}

	return &Info{
		Text:      strings.Join(output, "\n\n"),
		WordCount: totalWords,
	}, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findBody(c); res != nil {
			return res
		}
	}
	return nil
}

func cleanParagraph(p *html.Node) string {
	var b strings.Builder
	traverseParagraph(p, &b)
	return strings.TrimSpace(b.String())
}

func traverseParagraph(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}

	if n.Type == html.ElementNode {
		// Skip unwanted elements inside paragraphs:
		// - <sup> for citations [1][2]
		// - <style>, <script>
		// - .mw-empty-elt and .reference spans
		if n.DataAtom == atom.Sup || n.DataAtom == atom.Style || n.DataAtom == atom.Script {
			return
		}
		for _, a := range n.Attr {
			if a.Key == "class" && (strings.Contains(a.Val, "mw-empty-elt") || strings.Contains(a.Val, "reference")) {
				return
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		traverseParagraph(c, b)
	}
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func isStructuralNoise(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "class" {
			val := strings.ToLower(a.Val)
			if strings.Contains(val, "reflist") ||
				strings.Contains(val, "references") ||
				strings.Contains(val, "navbox") ||
				strings.Contains(val, "catlinks") {
				return true
			}
		}
	}
	return false
}
