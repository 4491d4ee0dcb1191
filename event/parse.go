package event

import (
	"encoding/json"
	"strings"
)

const fence = "```"

// Parse は、モデルの生の出力から Event を取り出します。
//
// 指示に反して Markdown のコードブロックで包まれていても受け付けます。
// JSON として読めない場合は失敗扱いにせず、生のテキストをそのまま台詞として返します。
// セッションが壊れた出力で止まらないことを優先しています。
func Parse(raw string) Event {
	text := stripFences(strings.TrimSpace(raw))

	fields, ok := decodeObject(text)
	if !ok {
		return Event{
			SpokenDisplay: raw,
			SpokenTTS:     raw,
			PlayerIntent:  IntentContinue,
		}
	}

	// 型の違うフィールドがあっても、その一つだけを捨てて残りは生かす
	ev := Event{
		Narrative:     fields.text("narrative"),
		Speaker:       fields.text("speaker"),
		SpokenDisplay: fields.text("spoken_display"),
		SpokenTTS:     fields.text("spoken_tts"),
		NextAction:    fields.text("next_action"),
		PlayerIntent:  Intent(fields.text("player_intent")),
		FEN:           fields.text("fen"),
		GameStatus:    fields.text("game_status"),
		PlayerMove:    fields.text("player_move"),
		HustlerMove:   fields.text("hustler_move"),
	}
	ev.PlayerIntent = Intent(strings.ToLower(strings.TrimSpace(string(ev.PlayerIntent))))
	if !ev.PlayerIntent.Valid() {
		ev.PlayerIntent = IntentContinue
	}
	ev.NextAction = strings.TrimSpace(ev.NextAction)
	ev.Speaker = strings.TrimSpace(ev.Speaker)
	return ev
}

// stripFences は、先頭の ```json（または ```）と末尾の ``` を一つずつ取り除きます。
func stripFences(s string) string {
	if strings.HasPrefix(s, fence) {
		s = strings.TrimPrefix(s, fence)
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, fence) {
		s = strings.TrimSuffix(s, fence)
	}
	return strings.TrimSpace(s)
}

// object は JSON オブジェクトのフィールドを小文字のキーで引けるようにしたものです。
type object map[string]json.RawMessage

func decodeObject(text string) (object, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil || raw == nil {
		return nil, false
	}
	fields := make(object, len(raw))
	for k, v := range raw {
		key := strings.ToLower(k)
		if _, exists := fields[key]; exists && k != key {
			continue
		}
		fields[key] = v
	}
	return fields, true
}

// text はフィールドを文字列として読みます。
// 数値や真偽値はその表記のまま、null やオブジェクト、配列は空文字列になります。
func (o object) text(name string) string {
	raw, ok := o[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	scalar := strings.TrimSpace(string(raw))
	if scalar == "null" || strings.HasPrefix(scalar, "{") || strings.HasPrefix(scalar, "[") {
		return ""
	}
	return scalar
}
