package openrouter

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// codeFenceLanguages are the fence info strings accepted as OpenSCAD code.
// An unlabeled fence counts, since models often omit the language tag.
var codeFenceLanguages = map[string]bool{
	"":         true,
	"openscad": true,
	"scad":     true,
}

// ExtractCode pulls OpenSCAD source out of a model response. Fenced code
// blocks tagged openscad, scad, or nothing are joined in order; when the
// response has no fenced blocks at all it is assumed to be bare code.
func ExtractCode(model, content string) (string, error) {
	source := []byte(content)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var blocks []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		lang := strings.ToLower(string(fence.Language(source)))
		if !codeFenceLanguages[lang] {
			return ast.WalkContinue, nil
		}

		var sb strings.Builder
		lines := fence.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(source))
		}
		if block := strings.TrimRight(sb.String(), "\n"); block != "" {
			blocks = append(blocks, block)
		}
		return ast.WalkContinue, nil
	})

	if len(blocks) > 0 {
		return strings.Join(blocks, "\n\n"), nil
	}

	// No fenced blocks anywhere: treat the whole response as code, minus
	// any stray backtick wrapping
	if !strings.Contains(content, "```") {
		trimmed := strings.Trim(strings.TrimSpace(content), "`")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed != "" {
			return trimmed, nil
		}
	}

	return "", &ExtractError{Model: model, Message: "no OpenSCAD code block found in response"}
}
