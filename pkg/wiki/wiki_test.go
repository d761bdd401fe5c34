package wiki

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	html, err := Render("# Titel\n\n- [x] erledigt\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<h1>Titel</h1>", `type="checkbox"`, "<table>"} {
		if !strings.Contains(html, want) {
			t.Errorf("missing %q in %s", want, html)
		}
	}
}

func TestRenderDropsRawHTML(t *testing.T) {
	html, err := Render("<script>alert(1)</script>\n\ntext")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("raw html passed through: %s", html)
	}
}
