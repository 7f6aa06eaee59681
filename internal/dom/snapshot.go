package dom

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

var snapshotTags = map[string]bool{
	"html": true, "head": true, "body": true, "title": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "div": true, "span": true, "br": false, "hr": false,
	"ul": true, "ol": true, "li": true, "nav": true, "main": true, "section": true, "dialog": true,
	"table": true, "thead": true, "tbody": true, "tfoot": true, "tr": true, "th": true, "td": true,
	"a": true, "button": true, "input": false, "textarea": true, "select": true, "option": true, "label": true,
	"form": true, "img": false, "pre": true, "code": true, "strong": true, "em": true, "b": true, "i": true,
}

var snapshotAttrs = map[string]bool{
	"href": true, "src": true, "alt": true, "title": true,
	"id": true, "for": true, "role": true,
	"type": true, "value": true, "placeholder": true, "name": true,
	"selected": true, "checked": true, "disabled": true, "readonly": true, "hidden": true,
	"aria-label": true, "aria-hidden": true, "aria-checked": true, "aria-selected": true, "data-state": true,
}

// emptyAttrs are written even when their value is empty.
var emptyAttrs = map[string]bool{
	"value": true, "selected": true, "checked": true, "disabled": true, "readonly": true, "hidden": true,
}

var droppedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "meta": true, "link": true, "svg": true,
}

// Snapshot reduces a page's HTML to the structure and attributes that matter
// when diagnosing a failed step. Output longer than limit bytes is truncated;
// limit <= 0 disables truncation.
func Snapshot(htmlContent string, limit int) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := simplifyNode(&buf, doc); err != nil {
		return "", err
	}
	out := buf.String()
	if limit > 0 && len(out) > limit {
		out = out[:limit] + "…"
	}
	return out, nil
}

func simplifyNode(w io.Writer, n *html.Node) error {
	switch n.Type {
	case html.ErrorNode, html.CommentNode:
		return nil
	case html.DocumentNode:
	case html.DoctypeNode:
		if _, err := io.WriteString(w, "<!DOCTYPE "+n.Data+">"); err != nil {
			return err
		}
	case html.TextNode:
		trimmed := strings.Join(strings.Fields(n.Data), " ")
		if trimmed != "" {
			if _, err := io.WriteString(w, html.EscapeString(trimmed)+" "); err != nil {
				return err
			}
		}
		return nil
	case html.ElementNode:
		if droppedTags[n.Data] {
			return nil
		}
		if _, known := snapshotTags[n.Data]; !known {
			return simplifyChildren(w, n)
		}
		if err := writeOpenTag(w, n); err != nil {
			return err
		}
	}

	if err := simplifyChildren(w, n); err != nil {
		return err
	}

	if n.Type == html.ElementNode && snapshotTags[n.Data] {
		if _, err := io.WriteString(w, "</"+n.Data+">"); err != nil {
			return err
		}
	}
	return nil
}

func simplifyChildren(w io.Writer, n *html.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := simplifyNode(w, c); err != nil {
			return err
		}
	}
	return nil
}

func writeOpenTag(w io.Writer, n *html.Node) error {
	if _, err := io.WriteString(w, "<"+n.Data); err != nil {
		return err
	}
	for _, a := range n.Attr {
		if !snapshotAttrs[a.Key] {
			continue
		}
		val := strings.TrimSpace(a.Val)
		if val == "" && !emptyAttrs[a.Key] {
			continue
		}
		if _, err := io.WriteString(w, " "+a.Key+"=\""+html.EscapeString(val)+"\""); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ">")
	return err
}
