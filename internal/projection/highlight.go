package projection

import (
	"html"
	"regexp"
	"strings"
)

// Segment - кусок текста; Match отмечает совпадение с запросом.
type Segment struct {
	Text  string `json:"text"`
	Match bool   `json:"match,omitempty"`
}

// Highlight делит text на куски, отмечая каждое непересекающееся
// вхождение query без учета регистра. Запрос ищется как подстрока,
// метасимволы экранируются.
func Highlight(text, query string) []Segment {
	if text == "" {
		return nil
	}
	// байты вне UTF-8 (например, search=%FF из URL) не участвуют в поиске
	query = strings.ToValidUTF8(query, "")
	if strings.TrimSpace(query) == "" {
		return []Segment{{Text: text}}
	}
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(query))
	if err != nil {
		return []Segment{{Text: text}}
	}

	var out []Segment
	last := 0
	for _, m := range re.FindAllStringIndex(text, -1) {
		if m[0] > last {
			out = append(out, Segment{Text: text[last:m[0]]})
		}
		out = append(out, Segment{Text: text[m[0]:m[1]], Match: true})
		last = m[1]
	}
	if last < len(text) {
		out = append(out, Segment{Text: text[last:]})
	}
	return out
}

// Mark возвращает HTML, в котором совпадения обернуты в <mark>.
func Mark(text, query string) string {
	var b strings.Builder
	for _, s := range Highlight(text, query) {
		if s.Match {
			b.WriteString("<mark>")
			b.WriteString(html.EscapeString(s.Text))
			b.WriteString("</mark>")
			continue
		}
		b.WriteString(html.EscapeString(s.Text))
	}
	return b.String()
}
