package whatsapp

import (
	"regexp"
	"strings"
)

// The assistant occasionally emits HTML formatting. WhatsApp understands its
// own markdown (*bold*, _italic_, ~strike~, ```mono```), so outbound text is
// converted before sending.
var (
	boldRe   = regexp.MustCompile(`(?is)<(?:b|strong)>(.*?)</(?:b|strong)>`)
	italicRe = regexp.MustCompile(`(?is)<(?:i|em)>(.*?)</(?:i|em)>`)
	strikeRe = regexp.MustCompile(`(?is)<(?:s|strike|del)>(.*?)</(?:s|strike|del)>`)
	monoRe   = regexp.MustCompile(`(?is)<(?:code|pre)>(.*?)</(?:code|pre)>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
)

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
)

// SanitizeForWhatsApp converts HTML tags to WhatsApp markdown and strips
// whatever tags remain.
func SanitizeForWhatsApp(text string) string {
	text = boldRe.ReplaceAllString(text, "*$1*")
	text = italicRe.ReplaceAllString(text, "_${1}_")
	text = strikeRe.ReplaceAllString(text, "~$1~")
	text = monoRe.ReplaceAllString(text, "```$1```")
	text = tagRe.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)
	return strings.TrimSpace(text)
}
