// Package htmlutil is a read-only view over a parsed HTML document.
//
// Selections are always in document order, so "first" always means the first match in the
// document.
package htmlutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	ErrNoMatch          = errors.New("no element matched")
	ErrAttributeMissing = errors.New("attribute missing")
)

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

var innerWhitespace = regexp.MustCompile(`\s+`)

// NormalizeText trims the text and collapses runs of whitespace into a single space.
func NormalizeText(text string) string {
	text = strings.TrimSpace(text)
	return innerWhitespace.ReplaceAllString(text, " ")
}

// Document is a parsed HTML document. Parsing is permissive in the same way a browser is,
// malformed markup never causes an error.
type Document struct {
	doc *goquery.Document
}

func ParseDocument(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Document{}, err
	}
	return Document{doc: doc}, nil
}

func ParseString(markup string) (Document, error) {
	return ParseDocument(strings.NewReader(markup))
}

func ParseBytes(markup []byte) (Document, error) {
	return ParseDocument(bytes.NewReader(markup))
}

// Select returns every element matching the CSS selector `pattern`.
func (d Document) Select(pattern string) Nodes {
	return nodesFromSelection(d.doc.Find(pattern))
}

// Node is a single element of a Document.
type Node struct {
	node *html.Node
}

// Attr returns the value of the attribute `name`, it fails with ErrAttributeMissing if the
// element does not have it.
func (n Node) Attr(name string) (string, error) {
	for _, a := range n.node.Attr {
		if a.Key == name {
			return a.Val, nil
		}
	}
	return "", fmt.Errorf("<%s> %s: %w", n.node.Data, name, ErrAttributeMissing)
}

// Text returns the concatenated text of all descendants, normalized with NormalizeText.
func (n Node) Text() string {
	return NormalizeText(GetText(n.node))
}

// Tag returns the element name, ex. "a".
func (n Node) Tag() string {
	return n.node.Data
}

// Nodes is an ordered sequence of elements.
type Nodes []Node

func nodesFromSelection(sel *goquery.Selection) Nodes {
	out := make(Nodes, 0, len(sel.Nodes))
	for _, n := range sel.Nodes {
		out = append(out, Node{node: n})
	}
	return out
}

func (n Nodes) Len() int {
	return len(n)
}

// First returns the first node, it fails with ErrNoMatch if there are none.
func (n Nodes) First() (Node, error) {
	if len(n) == 0 {
		return Node{}, ErrNoMatch
	}
	return n[0], nil
}

// Narrow returns the nodes that satisfy the predicate, preserving order.
func (n Nodes) Narrow(pred Predicate) Nodes {
	out := Nodes{}
	for _, node := range n {
		if pred(node) {
			out = append(out, node)
		}
	}
	return out
}

// Texts returns the text of every node.
func (n Nodes) Texts() []string {
	out := make([]string, len(n))
	for i, node := range n {
		out[i] = node.Text()
	}
	return out
}

type Predicate func(Node) bool

func TextContains(substr string) Predicate {
	return func(n Node) bool {
		return strings.Contains(n.Text(), substr)
	}
}

func TextEquals(text string) Predicate {
	return func(n Node) bool {
		return n.Text() == text
	}
}

func TextIn(set []string) Predicate {
	return func(n Node) bool {
		return slices.Contains(set, n.Text())
	}
}

func HasAttr(name string) Predicate {
	return func(n Node) bool {
		_, err := n.Attr(name)
		return err == nil
	}
}
