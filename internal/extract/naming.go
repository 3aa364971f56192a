package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/codecrawler/internal/crawler"
	"github.com/JakeFAU/codecrawler/internal/hash/xxhash"
)

// nameRule pulls an identifier out of code. groups lists the capture groups
// that may hold it, tried in order.
type nameRule struct {
	pattern *regexp.Regexp
	groups  []int
}

func (r nameRule) find(code string) string {
	match := r.pattern.FindStringSubmatch(code)
	if match == nil {
		return ""
	}
	for _, g := range r.groups {
		if g < len(match) && match[g] != "" {
			return match[g]
		}
	}
	return ""
}

var languageNameRules = map[string]nameRule{
	"python": {regexp.MustCompile(`(def|class)\s+(\w+)`), []int{2}},
	"javascript": {
		regexp.MustCompile(`(function|class)\s+(\w+)|const\s+(\w+)\s*=\s*(?:function|\(.*?\)\s*=>)`),
		[]int{2, 3},
	},
	"java":   {regexp.MustCompile(`(?:public|private|protected|static)?\s*(?:class|void|String|int|boolean)\s+(\w+)`), []int{1}},
	"go":     {regexp.MustCompile(`func\s+(\w+)`), []int{1}},
	"ruby":   {regexp.MustCompile(`def\s+(\w+)`), []int{1}},
	"php":    {regexp.MustCompile(`function\s+(\w+)`), []int{1}},
	"csharp": {regexp.MustCompile(`(?:public|private|protected|static)?\s*(?:class|void|string|int|bool)\s+(\w+)`), []int{1}},
}

var genericNameRules = []nameRule{
	{regexp.MustCompile(`(?:function|def|class|void|public|private)\s+(\w+)`), []int{1}},
	{regexp.MustCompile(`(?:const|let|var)\s+(\w+)\s*=`), []int{1}},
	{regexp.MustCompile(`@\w+\s*\(\s*["'](\w+)["']`), []int{1}},
	{regexp.MustCompile(`#\s*(\w+)`), []int{1}},
}

var (
	nonWordRE    = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// BlockName derives a human-meaningful name for a code block. It tries a
// language-specific identifier, a generic identifier, the heading, the
// section, and the first line before falling back to a content tag.
func BlockName(code, language string, ctx crawler.CodeContext) string {
	if rule, ok := languageNameRules[language]; ok {
		if name := rule.find(code); name != "" {
			return name + "_" + language
		}
	}
	for _, rule := range genericNameRules {
		if name := rule.find(code); name != "" {
			return name + "_" + language
		}
	}
	if heading := slug(ctx.Heading, 30); heading != "" {
		return heading + "_" + language
	}
	if section := slug(ctx.Section, 20); section != "" {
		return section + "_" + language
	}
	firstLine := strings.TrimSpace(strings.SplitN(code, "\n", 2)[0])
	if n := utf8.RuneCountInString(firstLine); n >= 10 && n <= 40 {
		if name := slug(firstLine, 25); name != "" {
			return name + "_" + language
		}
	}
	return fmt.Sprintf("%s_snippet_%s", language, xxhash.Short(code))
}

// slug drops punctuation, joins words with underscores, lowercases, and keeps
// at most limit runes.
func slug(text string, limit int) string {
	cleaned := strings.TrimSpace(nonWordRE.ReplaceAllString(text, ""))
	cleaned = strings.ToLower(whitespaceRE.ReplaceAllString(cleaned, "_"))
	if runes := []rune(cleaned); len(runes) > limit {
		cleaned = string(runes[:limit])
	}
	return cleaned
}
