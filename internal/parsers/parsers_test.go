package parsers

import (
	"strings"
	"testing"
)

func TestBuiltinNames(t *testing.T) {
	var names []string
	for _, p := range Builtin() {
		names = append(names, p.Name())
	}
	want := []string{"text", "html"}
	if len(names) != len(want) {
		t.Fatalf("Builtin() returned %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Builtin()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestTextParser(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "single paragraph",
			input: "hello world",
			want:  "<p>hello world</p>",
		},
		{
			name:  "two paragraphs",
			input: "first\n\nsecond",
			want:  "<p>first</p>\n<p>second</p>",
		},
		{
			name:  "line break inside paragraph",
			input: "line one\nline two",
			want:  "<p>line one<br>\nline two</p>",
		},
		{
			name:  "markup escaped",
			input: "<script>alert(1)</script>",
			want:  "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>",
		},
		{
			name:  "crlf normalized",
			input: "a\r\n\r\nb",
			want:  "<p>a</p>\n<p>b</p>",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "\n\n  padded  \n\n",
			want:  "<p>padded</p>",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := (TextParser{}).Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHTMLParserWhitelist(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "allowed markup kept",
			input: "<p>hello <strong>world</strong></p>",
			want:  "<p>hello <strong>world</strong></p>",
		},
		{
			name:  "unknown tag stripped, text kept",
			input: "<marquee>spin</marquee>",
			want:  "spin",
		},
		{
			name:  "script subtree dropped",
			input: "before<script>alert(1)</script>after",
			want:  "beforeafter",
		},
		{
			name:  "style subtree dropped",
			input: "<style>p { color: red }</style>text",
			want:  "text",
		},
		{
			name:  "comment dropped",
			input: "a<!-- hidden -->b",
			want:  "ab",
		},
		{
			name:  "event handler attribute stripped",
			input: `<p onclick="evil()">x</p>`,
			want:  "<p>x</p>",
		},
		{
			name:  "safe link kept",
			input: `<a href="https://example.com" title="t">link</a>`,
			want:  `<a href="https://example.com" title="t">link</a>`,
		},
		{
			name:  "javascript href stripped",
			input: `<a href="javascript:alert(1)">x</a>`,
			want:  "<a>x</a>",
		},
		{
			name:  "data src stripped",
			input: `<img src="data:text/html;base64,x" alt="pic">`,
			want:  `<img alt="pic">`,
		},
		{
			name:  "relative href kept",
			input: `<a href="/archive">x</a>`,
			want:  `<a href="/archive">x</a>`,
		},
		{
			name:  "mailto kept",
			input: `<a href="mailto:me@example.com">mail</a>`,
			want:  `<a href="mailto:me@example.com">mail</a>`,
		},
		{
			name:  "void tags",
			input: "a<br>b<hr>",
			want:  "a<br>b<hr>",
		},
		{
			name:  "text escaped",
			input: "2 < 3 & 4 > 1",
			want:  "2 &lt; 3 &amp; 4 &gt; 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := (HTMLParser{}).Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHTMLParserNestedLists(t *testing.T) {
	input := "<ul><li>one</li><li>two <em>loud</em></li></ul>"
	got, err := (HTMLParser{}).Parse(input)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got != input {
		t.Errorf("Parse = %q, want input unchanged", got)
	}
	if strings.Contains(got, "<script") {
		t.Errorf("sanitized output contains script tag: %q", got)
	}
}
