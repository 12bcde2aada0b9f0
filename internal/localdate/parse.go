// Package localdate はイベントタイムスタンプのワイヤ表現の解釈と、
// 月キー・日キー・表示ラベルへの射影を提供する。
//
// バックエンドのタイムスタンプはEastern現地のwall-clock値であるにもかかわらず、
// GMTやZといったゾーン表記が付与されて配信される。このパッケージは表記上の
// ゾーンを無視し、数値フィールドの字面どおりにローカル時刻を構築する。
// タイムゾーン変換は決して行わない。
package localdate

import (
	"regexp"
	"strconv"
	"time"
)

// isoPattern はISO風表現にマッチする。
// 区切りは"T"または空白のいずれも受理し、秒とゾーンサフィックスは省略可能。
// 例: "2026-03-01T19:30:00", "2026-03-01 19:30:00Z", "2026-03-01T19:30-05:00"
var isoPattern = regexp.MustCompile(
	`^(\d{4})-(\d{2})-(\d{2})(?:[T ](\d{2}):(\d{2})(?::(\d{2}))?)?`,
)

// rfc2822Pattern は疑似RFC-2822表現にマッチする。
// 例: "Wed, 18 Feb 2026 19:30:00 GMT"
var rfc2822Pattern = regexp.MustCompile(
	`^[A-Za-z]{3}, (\d{1,2}) ([A-Za-z]{3}) (\d{4}) (\d{2}):(\d{2}):(\d{2})`,
)

// monthsByName は英語3文字月名から月番号への対応表。
var monthsByName = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// Parse はワイヤ表現のタイムスタンプをローカル時刻として解釈する。
//
// 受理する表現は2種類:
//   - ISO風: "2026-03-01T19:30:00"（区切りは空白でも可、末尾のゾーン表記は無視）
//   - 疑似RFC-2822: "Wed, 18 Feb 2026 19:30:00 GMT"（GMT表記は無視）
//
// どちらも同一の論理タイムスタンプのエンコーディングであり、数値フィールドが
// 同じなら同一のローカル時刻に解決される。空文字列や解釈不能な入力は現在時刻に
// フォールバックする（非致命）。
func Parse(raw string) time.Time {
	if raw == "" {
		return time.Now()
	}

	if m := isoPattern.FindStringSubmatch(raw); m != nil {
		return buildLocal(m[3], m[2], m[1], m[4], m[5], m[6])
	}

	if m := rfc2822Pattern.FindStringSubmatch(raw); m != nil {
		month, ok := monthsByName[m[2]]
		if !ok {
			return time.Now()
		}
		day := atoi(m[1])
		year := atoi(m[3])
		return time.Date(year, month, day, atoi(m[4]), atoi(m[5]), atoi(m[6]), 0, time.Local)
	}

	return time.Now()
}

// buildLocal は文字列フィールドからローカル時刻を構築する。
// 時刻部が省略された場合は00:00:00になる。
func buildLocal(day, month, year, hour, min, sec string) time.Time {
	return time.Date(
		atoi(year), time.Month(atoi(month)), atoi(day),
		atoi(hour), atoi(min), atoi(sec), 0, time.Local,
	)
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

// MonthKey はローカル時刻を"YYYY-MM"形式の月キーに射影する。
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// DayKey はローカル時刻を"YYYY-MM-DD"形式の日キーに射影する。
// 日別グルーピングのバケットキーとして使用する。
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// TimeTBDLabel は開始時刻が未定の場合の表示ラベル。
const TimeTBDLabel = "Time TBD"

// TimeLabel はイベントの表示用開始時刻ラベルを返す。
// 時と分がちょうど00:00の場合は"Time TBD"を返す。
// このヒューリスティックは本物の深夜0時開始と未指定を区別できない。
func TimeLabel(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 {
		return TimeTBDLabel
	}
	return t.Format("3:04 PM")
}
