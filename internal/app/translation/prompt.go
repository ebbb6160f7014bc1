package translation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"globalnews_translator/internal/common"
	"globalnews_translator/internal/domain/model"

	"github.com/PuerkitoBio/goquery"
)

// maxContentRunes caps how much article body goes into a prompt.
const maxContentRunes = 2000

// SourceText is the article text actually sent to the model.
type SourceText struct {
	Language    string
	Title       string
	Description string
	Content     string
}

// ParsedTranslation is a model response mapped back onto article fields.
type ParsedTranslation struct {
	Title       string `json:"translated_title"`
	Description string `json:"translated_description"`
	Content     string `json:"translated_content"`
	Summary     string `json:"translated_summary"`
	// Fallback is set when the response was not valid JSON and the fields were
	// recovered line by line.
	Fallback bool `json:"-"`
}

// ArticleText strips markup from the article fields. Quality scoring measures
// translations against this full text.
func ArticleText(a *model.Article) SourceText {
	return SourceText{
		Language:    a.SourceLanguage(),
		Title:       StripHTML(a.Title),
		Description: StripHTML(a.DescriptionText()),
		Content:     StripHTML(a.ContentText()),
	}
}

// PrepareSource is ArticleText with the content cut to what a prompt carries.
func PrepareSource(a *model.Article) SourceText {
	return ArticleText(a).forPrompt()
}

func (s SourceText) forPrompt() SourceText {
	if r := []rune(s.Content); len(r) > maxContentRunes {
		s.Content = string(r[:maxContentRunes])
	}
	return s
}

// StripHTML returns the text content of an HTML fragment with whitespace collapsed.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func BuildPrompt(src SourceText, targetLanguage string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following news article from %s to %s.\n",
		model.LanguageName(src.Language), model.LanguageName(targetLanguage))
	b.WriteString("Keep names, numbers and quotations accurate and preserve the journalistic tone.\n\n")

	fmt.Fprintf(&b, "Title: %s\n", src.Title)
	if src.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", src.Description)
	}
	if src.Content != "" {
		fmt.Fprintf(&b, "Content: %s\n", src.Content)
	}

	b.WriteString("\nRespond with a single JSON object and nothing else, using exactly these fields:\n")
	b.WriteString(`{"translated_title": "...", "translated_description": "...", "translated_content": "...", "translated_summary": "..."}`)
	b.WriteString("\nUse an empty string for any field that has no source text.")
	return b.String()
}

// jsonFieldLine matches a `"key": value` line of a JSON object the model
// broke or pretty-printed.
var jsonFieldLine = regexp.MustCompile(`^[{\[]?\s*"[^"]*"\s*:\s*(.*?)\s*[,}\]]*$`)

// ParseResponse extracts the JSON object from raw model output. When no object
// is found or it does not decode, it falls back to first line = title, second =
// description and the rest = content. An object that decodes without any
// translated field is an error, not a fallback.
func ParseResponse(raw string) (*ParsedTranslation, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty response: %w", common.ErrParse)
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		var parsed ParsedTranslation
		if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err == nil {
			if parsed.empty() {
				return nil, fmt.Errorf("response object has no translated fields: %w", common.ErrParse)
			}
			parsed.trim()
			return &parsed, nil
		}
	}

	lines := make([]string, 0, 8)
	for _, line := range strings.Split(raw, "\n") {
		if line = fallbackLine(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no usable lines: %w", common.ErrParse)
	}

	parsed := &ParsedTranslation{Title: lines[0], Fallback: true}
	if len(lines) > 1 {
		parsed.Description = lines[1]
	}
	if len(lines) > 2 {
		parsed.Content = strings.Join(lines[2:], "\n")
	}
	return parsed, nil
}

// fallbackLine returns the text a response line contributes, or "" when it
// carries none, such as code fences, lone brackets or non-text JSON fields.
func fallbackLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "```") || strings.Trim(line, "{}[], ") == "" {
		return ""
	}
	m := jsonFieldLine.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	var value string
	if err := json.Unmarshal([]byte(m[1]), &value); err != nil {
		if json.Valid([]byte(m[1])) {
			return ""
		}
		return line
	}
	return strings.TrimSpace(value)
}

func (p *ParsedTranslation) empty() bool {
	return strings.TrimSpace(p.Title+p.Description+p.Content+p.Summary) == ""
}

func (p *ParsedTranslation) trim() {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Content = strings.TrimSpace(p.Content)
	p.Summary = strings.TrimSpace(p.Summary)
}
