// Package render turns block editor documents into HTML for course pages
// and Markdown for exports.
package render

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/outline"
)

type blockData struct {
	Text         string          `json:"text"`
	Level        int             `json:"level"`
	Style        string          `json:"style"`
	Items        json.RawMessage `json:"items"`
	Caption      string          `json:"caption"`
	Code         string          `json:"code"`
	Title        string          `json:"title"`
	Message      string          `json:"message"`
	URL          string          `json:"url"`
	File         fileRef         `json:"file"`
	Source       string          `json:"source"`
	Content      json.RawMessage `json:"content"`
	WithHeadings bool            `json:"withHeadings"`
}

type fileRef struct {
	URL string `json:"url"`
}

type listItem struct {
	Content string     `json:"content"`
	Items   []listItem `json:"items"`
	Text    string     `json:"text"`
	Checked bool       `json:"checked"`
}

// listItems accepts both the flat string list and the nested item form.
func listItems(raw json.RawMessage) []listItem {
	if len(raw) == 0 {
		return nil
	}
	var flat []string
	if err := json.Unmarshal(raw, &flat); err == nil {
		out := make([]listItem, len(flat))
		for i, s := range flat {
			out[i] = listItem{Content: s}
		}
		return out
	}
	var nested []listItem
	_ = json.Unmarshal(raw, &nested)
	return nested
}

// Options shift heading levels so page content nests under outer titles.
type Options struct {
	HeadingOffset int
}

// HTML renders a page body. Unknown block types are skipped.
func HTML(content models.Content, opts Options) (string, error) {
	doc, err := content.Document()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, block := range doc.Blocks {
		if err := writeBlock(&b, block, opts); err != nil {
			return "", fmt.Errorf("block %s: %w", block.Type, err)
		}
	}
	return b.String(), nil
}

func writeBlock(b *strings.Builder, block models.Block, opts Options) error {
	var d blockData
	if len(block.Data) > 0 {
		if err := json.Unmarshal(block.Data, &d); err != nil {
			return err
		}
	}

	switch block.Type {
	case "paragraph":
		b.WriteString("<p>" + SanitizeInline(d.Text) + "</p>\n")
	case "header":
		level := d.Level
		if level < 1 {
			level = 2
		}
		level += opts.HeadingOffset
		if level > 6 {
			level = 6
		}
		tag := "h" + strconv.Itoa(level)
		b.WriteString("<" + tag + ">" + SanitizeInline(d.Text) + "</" + tag + ">\n")
	case "list":
		tag := "ul"
		if d.Style == "ordered" {
			tag = "ol"
		}
		if d.Style == "checklist" {
			writeChecklist(b, listItems(d.Items))
			break
		}
		writeList(b, tag, listItems(d.Items))
	case "checklist":
		writeChecklist(b, listItems(d.Items))
	case "quote":
		b.WriteString("<blockquote><p>" + SanitizeInline(d.Text) + "</p>")
		if d.Caption != "" {
			b.WriteString("<footer>" + SanitizeInline(d.Caption) + "</footer>")
		}
		b.WriteString("</blockquote>\n")
	case "code":
		b.WriteString("<pre><code>" + html.EscapeString(d.Code) + "</code></pre>\n")
	case "Math", "math":
		b.WriteString(`<pre><code class="language-latex">` + html.EscapeString(d.Text) + "</code></pre>\n")
	case "delimiter":
		b.WriteString("<hr>\n")
	case "warning":
		b.WriteString("<blockquote><p><strong>" + SanitizeInline(d.Title) + "</strong></p><p>" + SanitizeInline(d.Message) + "</p></blockquote>\n")
	case "image", "simpleImage":
		src := d.URL
		if src == "" {
			src = d.File.URL
		}
		if !SafeURL(src) {
			return nil
		}
		b.WriteString(`<figure><img src="` + html.EscapeString(src) + `" alt="` + html.EscapeString(plain(d.Caption)) + `">`)
		if d.Caption != "" {
			b.WriteString("<figcaption>" + SanitizeInline(d.Caption) + "</figcaption>")
		}
		b.WriteString("</figure>\n")
	case "embed", "linkTool":
		link := d.Source
		if link == "" {
			link = d.URL
		}
		if !SafeURL(link) {
			return nil
		}
		label := plain(d.Caption)
		if label == "" {
			label = link
		}
		b.WriteString(`<p><a href="` + html.EscapeString(link) + `">` + html.EscapeString(label) + "</a></p>\n")
	case "table":
		writeTable(b, d.Content, d.WithHeadings)
	}
	return nil
}

func writeList(b *strings.Builder, tag string, items []listItem) {
	b.WriteString("<" + tag + ">")
	for _, it := range items {
		b.WriteString("<li>" + SanitizeInline(it.Content))
		if len(it.Items) > 0 {
			writeList(b, tag, it.Items)
		}
		b.WriteString("</li>")
	}
	b.WriteString("</" + tag + ">\n")
}

func writeChecklist(b *strings.Builder, items []listItem) {
	b.WriteString("<ul>")
	for _, it := range items {
		mark := "[ ] "
		if it.Checked {
			mark = "[x] "
		}
		text := it.Text
		if text == "" {
			text = it.Content
		}
		b.WriteString("<li>" + mark + SanitizeInline(text) + "</li>")
	}
	b.WriteString("</ul>\n")
}

func writeTable(b *strings.Builder, raw json.RawMessage, withHeadings bool) {
	var rows [][]string
	if err := json.Unmarshal(raw, &rows); err != nil || len(rows) == 0 {
		return
	}
	b.WriteString("<table>")
	for i, row := range rows {
		cell := "td"
		if withHeadings && i == 0 {
			cell = "th"
		}
		b.WriteString("<tr>")
		for _, c := range row {
			b.WriteString("<" + cell + ">" + SanitizeInline(c) + "</" + cell + ">")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>\n")
}

// plain strips all markup from inline HTML.
func plain(s string) string {
	clean := SanitizeInline(s)
	var b strings.Builder
	inTag := false
	for _, r := range clean {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return html.UnescapeString(b.String())
}

// CourseHTML renders the whole outline of a course as one document.
func CourseHTML(course *models.Course, tree []outline.SectionTree) (string, error) {
	var b strings.Builder
	b.WriteString("<h1>" + html.EscapeString(course.Title) + "</h1>\n")
	if course.Description != "" {
		b.WriteString("<p>" + html.EscapeString(course.Description) + "</p>\n")
	}
	for _, s := range tree {
		b.WriteString("<h2>" + html.EscapeString(s.Title) + "</h2>\n")
		for _, p := range s.Pages {
			b.WriteString("<h3>" + html.EscapeString(p.Title) + "</h3>\n")
			body, err := HTML(p.Content, Options{HeadingOffset: 2})
			if err != nil {
				return "", fmt.Errorf("page %s: %w", p.ID, err)
			}
			b.WriteString(body)
		}
	}
	return b.String(), nil
}

// CourseMarkdown exports the course outline as Markdown.
func CourseMarkdown(course *models.Course, tree []outline.SectionTree) (string, error) {
	doc, err := CourseHTML(course, tree)
	if err != nil {
		return "", err
	}
	md, err := htmltomarkdown.ConvertString(doc)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return md, nil
}
