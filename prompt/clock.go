package prompt

import "time"

// Time は、プロンプトに埋め込む公園の時刻情報です。
type Time struct {
	TimeOfDay string
	Date      string
	DayOfWeek string
}

// TimeOfDay は時刻（0〜23時）を雰囲気のラベルに変換します。
// 深夜と早朝は公園が閉まっているので late evening に寄せます。
func TimeOfDay(hour int) string {
	switch {
	case hour >= 22 || hour < 6:
		return "late evening"
	case hour < 9:
		return "early morning"
	case hour < 12:
		return "morning"
	case hour < 14:
		return "midday"
	case hour < 17:
		return "afternoon"
	case hour < 20:
		return "evening"
	default:
		return "late evening"
	}
}

// ParkTime は now から公園の時刻情報を作ります。
func ParkTime(now time.Time) Time {
	return Time{
		TimeOfDay: TimeOfDay(now.Hour()),
		Date:      now.Format("January 2"),
		DayOfWeek: now.Weekday().String(),
	}
}
