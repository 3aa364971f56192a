package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		classes []string
		code    string
		want    string
	}{
		{"explicit on node", []string{"language-python"}, "plain words", "python"},
		{"explicit on parent keeps full remainder", []string{"", "language-TypeScript"}, "plain words", "typescript"},
		{"explicit beats substring", []string{"ruby", "language-go"}, "plain words", "go"},
		{"class substring", []string{"highlight-source-ruby"}, "plain words", "ruby"},
		{"highlighter token ignored", []string{"hljs"}, "plain words only here", "text"},
		{"highlighter suffix names language", []string{"hljs hljs-javascript"}, "plain words only here", "javascript"},
		{"highlighter suffix not read as js", []string{"hljs-bash"}, "plain words only here", "bash"},
		{"python imports", nil, "import os\nprint(os.getcwd())", "python"},
		{"javascript declaration", nil, "const x = 5;", "javascript"},
		{"html tags", nil, "<div>hi</div>", "html"},
		{"css rule", nil, ".box { color: red; }", "css"},
		{"sql keywords", nil, "select id from users", "sql"},
		{"java print", nil, "public static void main(String[] args) { System.out.println(1); }", "java"},
		{"csharp print", nil, "public void Run() { Console.WriteLine(1); }", "csharp"},
		{"cpp namespace", nil, "private int add(int a) { return std::abs(a); }", "cpp"},
		{"c-family default", nil, "protected int count(int a) { return a; }", "java"},
		{"shebang", nil, "#!/bin/sh\necho hi", "bash"},
		{"prompt", nil, "$ npm install", "bash"},
		{"fallback", nil, "just some words here", "text"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, DetectLanguage(tc.classes, tc.code))
		})
	}
}
