package memotl

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageNames maps language tags to the names used in backend prompts.
// Tags not listed here are named through the CLDR tables in x/text.
var LanguageNames = map[string]string{
	"ja":    "Japanese",
	"zh":    "Chinese",
	"zh-CN": "Simplified Chinese",
	"zh-TW": "Traditional Chinese",
	"zh-HK": "Traditional Chinese (Hong Kong)",
	"ko":    "Korean",
	"en":    "English",
	"en-US": "English (United States)",
	"en-GB": "English (United Kingdom)",
	"de":    "German",
	"es":    "Spanish",
	"fr":    "French",
	"it":    "Italian",
	"pt":    "Portuguese",
	"pt-BR": "Portuguese (Brazil)",
	"ru":    "Russian",
	"th":    "Thai",
	"vi":    "Vietnamese",
	"id":    "Indonesian",
}

// NormalizeTag converts a language code to BCP 47 form (e.g., "zh_CN" to "zh-CN").
func NormalizeTag(code string) string {
	return strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
}

// LanguageName returns the human-readable name for a language code.
// Falls back to the code itself if the code cannot be parsed.
func LanguageName(code string) string {
	tag := NormalizeTag(code)
	if name, ok := LanguageNames[tag]; ok {
		return name
	}

	parsed, err := language.Parse(tag)
	if err != nil || parsed == language.Und {
		return code
	}
	if name := display.English.Tags().Name(parsed); name != "" {
		return name
	}
	return code
}

// SameLanguage reports whether translating from a to b would be a no-op.
// Tags match when base language and script agree ("ja" and "ja_JP" do,
// "zh-CN" and "zh-TW" do not), and, when both name a region, the regions agree.
// Codes x/text cannot parse are compared case-insensitively.
func SameLanguage(a, b string) bool {
	na, nb := NormalizeTag(a), NormalizeTag(b)
	ta, errA := language.Parse(na)
	tb, errB := language.Parse(nb)
	if errA != nil || errB != nil {
		return strings.EqualFold(na, nb)
	}

	baseA, _ := ta.Base()
	baseB, _ := tb.Base()
	if baseA != baseB {
		return false
	}

	scriptA, _ := ta.Script()
	scriptB, _ := tb.Script()
	if scriptA != scriptB {
		return false
	}

	regionA, confA := ta.Region()
	regionB, confB := tb.Region()
	if confA == language.Exact && confB == language.Exact {
		return regionA == regionB
	}
	return true
}
