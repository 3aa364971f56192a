package extract

import (
	"regexp"
	"strings"
)

// fallbackLanguage labels code nothing else could classify.
const fallbackLanguage = "text"

// knownLanguages are matched as substrings of class tokens, in order.
var knownLanguages = []string{
	"python", "javascript", "js", "java", "cpp", "csharp", "ruby",
	"go", "php", "html", "css", "sql", "bash", "shell",
}

// highlighterPrefixes are stripped from class tokens before the substring
// match, since "hljs" itself contains "js". What follows the prefix, as in
// hljs-javascript, is still matched.
var highlighterPrefixes = []string{"hljs"}

// contentRule classifies code by its text. When any pattern matches, the
// language is the first matching refinement, or language itself.
type contentRule struct {
	language string
	patterns []*regexp.Regexp
	refine   []contentRule
}

// contentRules run in order; the first rule with a matching pattern wins.
var contentRules = []contentRule{
	{
		language: "python",
		patterns: compileAll(`def\s+\w+\s*\(.*\):`, `import\s+\w+`, `from\s+\w+\s+import`),
	},
	{
		language: "javascript",
		patterns: compileAll(`(const|let|var)\s+\w+\s*=`, `function\s+\w+\s*\(`, `=>`),
	},
	{
		language: "html",
		patterns: compileAll(`<\w+>.*</\w+>`, `<(div|span|p|a|img)[^>]*>`),
	},
	{
		language: "css",
		patterns: compileAll(`[.#]\w+\s*\{[^}]*\}`, `@media`),
	},
	{
		language: "sql",
		patterns: compileAll(`(?i)SELECT|INSERT|UPDATE|DELETE|CREATE TABLE`),
	},
	{
		language: "java",
		patterns: compileAll(`(public|private|protected)\s+(static\s+)?\w+\s+\w+\s*\(`),
		refine: []contentRule{
			{language: "java", patterns: compileAll(`System\.out\.println`)},
			{language: "csharp", patterns: compileAll(`Console\.WriteLine`)},
			{language: "cpp", patterns: compileAll(`std::`)},
		},
	},
	{
		language: "bash",
		patterns: compileAll(`^#!.*sh`, `\$\s+`),
	},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

func (r contentRule) matches(code string) bool {
	for _, p := range r.patterns {
		if p.MatchString(code) {
			return true
		}
	}
	return false
}

func (r contentRule) classify(code string) string {
	for _, sub := range r.refine {
		if sub.matches(code) {
			return sub.language
		}
	}
	return r.language
}

// DetectLanguage labels code using class hints first and content second.
// classLists holds the class attributes of the node and its relatives,
// nearest first.
func DetectLanguage(classLists []string, code string) string {
	if lang := explicitLanguage(classLists); lang != "" {
		return lang
	}
	if lang := classLanguage(classLists); lang != "" {
		return lang
	}
	return contentLanguage(code)
}

func explicitLanguage(classLists []string) string {
	for _, classes := range classLists {
		for _, token := range strings.Fields(strings.ToLower(classes)) {
			idx := strings.Index(token, "language-")
			if idx < 0 {
				continue
			}
			if lang := token[idx+len("language-"):]; lang != "" {
				return lang
			}
		}
	}
	return ""
}

func classLanguage(classLists []string) string {
	for _, classes := range classLists {
		for _, token := range strings.Fields(strings.ToLower(classes)) {
			token = trimHighlighter(token)
			if token == "" {
				continue
			}
			for _, lang := range knownLanguages {
				if strings.Contains(token, lang) {
					return lang
				}
			}
		}
	}
	return ""
}

func trimHighlighter(token string) string {
	for _, prefix := range highlighterPrefixes {
		if rest, ok := strings.CutPrefix(token, prefix); ok {
			return rest
		}
	}
	return token
}

func contentLanguage(code string) string {
	for _, rule := range contentRules {
		if rule.matches(code) {
			return rule.classify(code)
		}
	}
	return fallbackLanguage
}
