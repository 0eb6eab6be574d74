package render

import (
	"strings"

	xhtml "golang.org/x/net/html"
)

// HTMLToText converts a product description's HTML to plain text with basic
// formatting: paragraphs and line breaks, bullet lists, headings, emphasis,
// links and preformatted blocks. The result is wrapped to width.
func HTMLToText(raw string, width int) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	tokenizer := xhtml.NewTokenizer(strings.NewReader(raw))
	var sb strings.Builder
	var inPre bool
	var skip int
	var anchorURL string
	var listDepth int

	newline := func(n int) {
		if sb.Len() == 0 {
			return
		}
		s := sb.String()
		trailing := len(s) - len(strings.TrimRight(s, "\n"))
		for ; trailing < n; trailing++ {
			sb.WriteString("\n")
		}
	}

	for {
		tt := tokenizer.Next()
		switch tt {
		case xhtml.ErrorToken:
			return wrapText(strings.TrimSpace(sb.String()), width)

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "script", "style":
				if tt == xhtml.StartTagToken {
					skip++
				}
			case "p", "div", "h1", "h2", "h3", "h4", "table":
				newline(2)
			case "br":
				newline(1)
			case "tr":
				newline(1)
			case "td", "th":
				sb.WriteString(" ")
			case "ul", "ol":
				listDepth++
				newline(1)
			case "li":
				newline(1)
				sb.WriteString(strings.Repeat("  ", max(listDepth-1, 0)))
				sb.WriteString("• ")
			case "b", "strong", "i", "em":
				sb.WriteString("*")
			case "code":
				if !inPre {
					sb.WriteString("`")
				}
			case "pre":
				inPre = true
				newline(1)
			case "a":
				for _, attr := range t.Attr {
					if attr.Key == "href" {
						anchorURL = attr.Val
					}
				}
			}

		case xhtml.EndTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "h1", "h2", "h3", "h4":
				newline(1)
			case "ul", "ol":
				if listDepth > 0 {
					listDepth--
				}
				newline(1)
			case "b", "strong", "i", "em":
				sb.WriteString("*")
			case "code":
				if !inPre {
					sb.WriteString("`")
				}
			case "pre":
				inPre = false
				newline(1)
			case "a":
				if anchorURL != "" {
					text := strings.TrimSpace(sb.String())
					// Only append URL if it differs from the link text.
					if !strings.HasSuffix(text, anchorURL) {
						sb.WriteString(" [")
						sb.WriteString(anchorURL)
						sb.WriteString("]")
					}
				}
				anchorURL = ""
			}

		case xhtml.TextToken:
			if skip > 0 {
				continue
			}
			text := string(tokenizer.Text())
			if inPre {
				// Preserve whitespace in pre blocks, indent with 4 spaces.
				for i, line := range strings.Split(text, "\n") {
					if i > 0 {
						sb.WriteString("\n")
					}
					if line != "" {
						sb.WriteString("    ")
						sb.WriteString(line)
					}
				}
				continue
			}
			sb.WriteString(collapseSpace(text))
		}
	}
}

// collapseSpace folds runs of whitespace, newlines included, into one space.
func collapseSpace(s string) string {
	if s == "" {
		return s
	}
	fields := strings.Fields(s)
	out := strings.Join(fields, " ")
	if len(fields) == 0 {
		return " "
	}
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// Truncate shortens s to at most n runes, adding an ellipsis when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// wrapText performs simple word wrapping to the given width.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var result strings.Builder
	for _, paragraph := range strings.Split(text, "\n") {
		if strings.HasPrefix(paragraph, "    ") {
			// Don't wrap code blocks.
			result.WriteString(paragraph)
			result.WriteString("\n")
			continue
		}
		indent := paragraph[:len(paragraph)-len(strings.TrimLeft(paragraph, " "))]
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}
		result.WriteString(indent)
		lineLen := len(indent)
		for i, word := range words {
			wlen := len([]rune(word))
			if i > 0 && lineLen+1+wlen > width {
				result.WriteString("\n")
				result.WriteString(indent)
				lineLen = len(indent)
			} else if i > 0 {
				result.WriteString(" ")
				lineLen++
			}
			result.WriteString(word)
			lineLen += wlen
		}
		result.WriteString("\n")
	}
	return strings.TrimRight(result.String(), "\n")
}
