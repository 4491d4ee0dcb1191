package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultLanguage はプロンプトが書かれている言語です。
const DefaultLanguage = "English"

// LanguageName は、言語指定を人が読める英語名に揃えます。
// "ru" や "pt-BR" のようなタグは "Russian" などに変換し、
// タグとして解釈できない自由記述はそのまま使います。
func LanguageName(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return DefaultLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return lang
}

// IsDefaultLanguage は、言語指示が不要かどうかを返します。
func IsDefaultLanguage(lang string) bool {
	if strings.EqualFold(LanguageName(lang), DefaultLanguage) {
		return true
	}
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "en"
}

// LanguageInstruction は、既定以外の言語で応答させるための指示を返します。
// 吹き替えと同じで、人物像も話の中身も変えずに言語だけを変えます。
func LanguageInstruction(lang string) string {
	if IsDefaultLanguage(lang) {
		return ""
	}
	name := LanguageName(lang)
	return fmt.Sprintf(`

LANGUAGE: Respond entirely in %[1]s.
Every character stays the same person with the same background and personality.
Think of a dubbed movie: the characters and what they say stay the same, they just speak %[1]s.
JSON keys and enum values (next_action, player_intent, game_status) stay in English.`, name)
}
