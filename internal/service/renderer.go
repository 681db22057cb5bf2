package service

import (
	"fmt"
	"sort"
	"strings"

	"autoreply-project/internal/domain"
)

// Renderer substitutes {{name}} placeholders in reply templates.
//
// Placeholders whose name looks like a link (see domain.IsLinkName) are
// rewritten into a redirect URL so they open from inside the chat client.
type Renderer struct {
	redirectBase string
}

// NewRenderer creates a renderer that wraps links with redirectBase.
func NewRenderer(redirectBase string) *Renderer {
	return &Renderer{redirectBase: redirectBase}
}

// Render replaces every {{name}} for each key in data. Placeholders without
// a key are left as they are.
func (r *Renderer) Render(tmpl string, data map[string]any) (string, error) {
	if tmpl == "" {
		return "", &domain.RenderError{Err: fmt.Errorf("%w: empty template", domain.ErrRender)}
	}
	if data == nil {
		return "", &domain.RenderError{Template: preview(tmpl), Err: fmt.Errorf("%w: nil data", domain.ErrRender)}
	}

	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	out := tmpl
	for _, name := range names {
		placeholder := "{{" + name + "}}"
		if !strings.Contains(out, placeholder) {
			continue
		}
		out = strings.ReplaceAll(out, placeholder, r.value(name, data[name]))
	}
	return out, nil
}

func (r *Renderer) value(name string, v any) string {
	if !domain.IsLinkName(name) {
		return plainString(v)
	}

	link, ok := v.(string)
	if !ok {
		return ""
	}
	link = domain.TrimLinkMarkers(link)
	switch {
	case strings.HasPrefix(link, domain.AppCardPrefix):
		return link
	case link != "":
		return r.redirectBase + EncodeURIComponent(link)
	default:
		return ""
	}
}

// plainString coerces a value to text; nil, false, zero and empty values
// render as nothing.
func plainString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case int:
		if t == 0 {
			return ""
		}
	case int64:
		if t == 0 {
			return ""
		}
	case float64:
		if t == 0 {
			return ""
		}
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// EncodeURIComponent percent-encodes s the way browsers' encodeURIComponent
// does: everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ) is escaped as UTF-8
// bytes. url.QueryEscape differs (spaces become "+", and !*'() are escaped).
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isURIUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > 32 {
		return string(r[:32]) + "..."
	}
	return s
}
