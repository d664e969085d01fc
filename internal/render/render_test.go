package render

import (
	"strings"
	"testing"
)

func TestMarkdown_BasicElements(t *testing.T) {
	html := string(Markdown([]byte("# Hello World\n\nThis is a test.")))
	for _, want := range []string{"<h1", "Hello World", "<p>", "This is a test."} {
		if !strings.Contains(html, want) {
			t.Fatalf("Markdown output missing %q:\n%s", want, html)
		}
	}
}

func TestMarkdown_Table(t *testing.T) {
	src := "| Header 1 | Header 2 |\n|----------|----------|\n| Cell 1   | Cell 2   |"
	html := string(Markdown([]byte(src)))
	if !strings.Contains(html, "<table>") || !strings.Contains(html, "<th>") {
		t.Fatalf("table not rendered:\n%s", html)
	}
}

func TestMarkdown_CodeBlock(t *testing.T) {
	html := string(Markdown([]byte("```go\nfunc main() {}\n```")))
	if !strings.Contains(html, "<pre>") || !strings.Contains(html, "<code") {
		t.Fatalf("code block not rendered:\n%s", html)
	}
	if !strings.Contains(html, "func main()") {
		t.Fatalf("code content missing:\n%s", html)
	}
}

func TestMarkdown_Strikethrough(t *testing.T) {
	html := string(Markdown([]byte("~~gone~~")))
	if !strings.Contains(html, "<del>") {
		t.Fatalf("strikethrough not rendered:\n%s", html)
	}
}

func TestMarkdown_StripsScript(t *testing.T) {
	html := string(Markdown([]byte("hello <script>alert(1)</script> world")))
	if strings.Contains(html, "<script>") {
		t.Fatalf("script tag survived sanitization:\n%s", html)
	}
	if !strings.Contains(html, "hello") {
		t.Fatalf("surrounding text lost:\n%s", html)
	}
}

func TestPage_WrapsContent(t *testing.T) {
	page, err := Page("README.md", []byte("<h1>Test</h1>"))
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>README.md</title>",
		"<h1>Test</h1>",
		"EventSource('/events')",
		"github-markdown.min.css",
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestPage_EscapesTitle(t *testing.T) {
	page, err := Page(`<img src=x>`, []byte("<p>ok</p>"))
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if strings.Contains(page, "<title><img") {
		t.Fatalf("title not escaped")
	}
}
