package localdate

import (
	"testing"
	"time"
)

func TestParse_ISOString_BuildsLocalTimeFromLiteralFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			name: "T区切り",
			raw:  "2026-03-01T19:30:00",
			want: time.Date(2026, 3, 1, 19, 30, 0, 0, time.Local),
		},
		{
			name: "空白区切り",
			raw:  "2026-03-01 19:30:00",
			want: time.Date(2026, 3, 1, 19, 30, 0, 0, time.Local),
		},
		{
			name: "Zサフィックスは無視される",
			raw:  "2026-03-01T19:30:00Z",
			want: time.Date(2026, 3, 1, 19, 30, 0, 0, time.Local),
		},
		{
			name: "オフセットサフィックスは無視される",
			raw:  "2026-03-01T19:30:00-05:00",
			want: time.Date(2026, 3, 1, 19, 30, 0, 0, time.Local),
		},
		{
			name: "秒省略",
			raw:  "2026-03-01T19:30",
			want: time.Date(2026, 3, 1, 19, 30, 0, 0, time.Local),
		},
		{
			name: "日付のみ",
			raw:  "2026-03-01",
			want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParse_RFC2822String_IgnoresGMTMarker(t *testing.T) {
	// GMT表記が付いていてもオフセット変換は行わず、字面どおりのローカル時刻になること
	got := Parse("Wed, 18 Feb 2026 19:30:00 GMT")
	want := time.Date(2026, 2, 18, 19, 30, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("Parse() = %v, want %v", got, want)
	}
}

func TestParse_BothEncodings_ResolveToSameLocalFields(t *testing.T) {
	// 同一の論理タイムスタンプの2表現が同一のローカル時刻に解決されること
	tests := []struct {
		iso     string
		rfc2822 string
	}{
		{"2026-02-18T19:30:00", "Wed, 18 Feb 2026 19:30:00 GMT"},
		{"2026-07-04 09:00:00", "Sat, 4 Jul 2026 09:00:00 GMT"},
		{"2026-12-31T23:59:59Z", "Thu, 31 Dec 2026 23:59:59 GMT"},
		{"2026-01-05T00:00:00-05:00", "Mon, 5 Jan 2026 00:00:00 GMT"},
	}

	for _, tt := range tests {
		a := Parse(tt.iso)
		b := Parse(tt.rfc2822)
		if !a.Equal(b) {
			t.Errorf("Parse(%q) = %v, Parse(%q) = %v: 同一時刻であるべき", tt.iso, a, tt.rfc2822, b)
		}
	}
}

func TestParse_EmptyOrGarbage_FallsBackToNow(t *testing.T) {
	for _, raw := range []string{"", "not a date", "Xyz, 99 Foo 2026 12:00:00 GMT"} {
		before := time.Now()
		got := Parse(raw)
		after := time.Now()
		if got.Before(before.Add(-time.Second)) || got.After(after.Add(time.Second)) {
			t.Errorf("Parse(%q) = %v: 現在時刻へのフォールバックであるべき", raw, got)
		}
	}
}

func TestMonthKeyAndDayKey(t *testing.T) {
	ts := time.Date(2026, 3, 7, 18, 0, 0, 0, time.Local)
	if got := MonthKey(ts); got != "2026-03" {
		t.Errorf("MonthKey() = %q, want %q", got, "2026-03")
	}
	if got := DayKey(ts); got != "2026-03-07" {
		t.Errorf("DayKey() = %q, want %q", got, "2026-03-07")
	}
}

func TestTimeLabel(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{
			name: "通常の時刻はフォーマットされる",
			ts:   time.Date(2026, 3, 1, 19, 30, 0, 0, time.Local),
			want: "7:30 PM",
		},
		{
			name: "00:00はTime TBD",
			ts:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local),
			want: TimeTBDLabel,
		},
		{
			name: "00:00:30でも時分が00:00ならTime TBD",
			ts:   time.Date(2026, 3, 1, 0, 0, 30, 0, time.Local),
			want: TimeTBDLabel,
		},
		{
			name: "午前0時台でも分があればフォーマットされる",
			ts:   time.Date(2026, 3, 1, 0, 15, 0, 0, time.Local),
			want: "12:15 AM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeLabel(tt.ts); got != tt.want {
				t.Errorf("TimeLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}
