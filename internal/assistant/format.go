package assistant

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	boldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe  = regexp.MustCompile(`(^|[^*])\*([^*\n]+)\*`)
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletRe  = regexp.MustCompile(`^\s*[-*•]\s+(.*)$`)
	orderedRe = regexp.MustCompile(`^\s*\d+[.)]\s+(.*)$`)
)

func inline(s string) string {
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicRe.ReplaceAllString(s, "$1<em>$2</em>")
	return s
}

// FormatReply turns the markdown-ish text the model produces into a small
// HTML fragment: headings, bold, italics, lists, paragraphs and line
// breaks. Raw HTML in the reply is escaped first.
func FormatReply(text string) string {
	lines := strings.Split(strings.ReplaceAll(html.EscapeString(strings.TrimSpace(text)), "\r\n", "\n"), "\n")

	var b strings.Builder
	var para []string
	list := ""

	flushPara := func() {
		if len(para) > 0 {
			b.WriteString("<p>" + strings.Join(para, "<br>") + "</p>")
			para = nil
		}
	}
	closeList := func() {
		if list != "" {
			b.WriteString("</" + list + ">")
			list = ""
		}
	}
	openList := func(tag string) {
		if list != tag {
			closeList()
			b.WriteString("<" + tag + ">")
			list = tag
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushPara()
			closeList()
		case headingRe.MatchString(trimmed):
			flushPara()
			closeList()
			m := headingRe.FindStringSubmatch(trimmed)
			level := len(m[1]) + 2
			if level > 6 {
				level = 6
			}
			tag := "h" + string(rune('0'+level))
			b.WriteString("<" + tag + ">" + inline(m[2]) + "</" + tag + ">")
		case bulletRe.MatchString(line):
			flushPara()
			openList("ul")
			b.WriteString("<li>" + inline(bulletRe.FindStringSubmatch(line)[1]) + "</li>")
		case orderedRe.MatchString(line):
			flushPara()
			openList("ol")
			b.WriteString("<li>" + inline(orderedRe.FindStringSubmatch(line)[1]) + "</li>")
		default:
			closeList()
			para = append(para, inline(trimmed))
		}
	}
	flushPara()
	closeList()
	return Sanitize(b.String())
}

var allowedTags = map[string]bool{
	"p": true, "br": true, "strong": true, "em": true, "b": true, "i": true,
	"ul": true, "ol": true, "li": true,
	"h3": true, "h4": true, "h5": true, "h6": true,
}

var droppedTags = map[string]bool{
	"script": true, "style": true, "iframe": true, "object": true, "embed": true,
}

const rootID = "assistant-reply"

// Sanitize keeps only the formatting tags the chat widget renders. Other
// elements are unwrapped, dangerous ones dropped with their content, and
// every attribute is removed.
func Sanitize(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div id="` + rootID + `">` + fragment + `</div>`))
	if err != nil {
		return html.EscapeString(fragment)
	}
	root := doc.Find("#" + rootID)

	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		switch {
		case droppedTags[tag]:
			s.Remove()
		case !allowedTags[tag]:
			s.ReplaceWithSelection(s.Contents())
		default:
			for _, n := range s.Nodes {
				n.Attr = nil
			}
		}
	})

	out, err := root.Html()
	if err != nil {
		return html.EscapeString(fragment)
	}
	return out
}
