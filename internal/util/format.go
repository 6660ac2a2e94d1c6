package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Discord timestamp styles, see https://discord.com/developers/docs/reference#message-formatting-timestamp-styles
const (
	TimestampRelative = "R"
	TimestampShort    = "f"
)

// FormatTimestamp renders t as a Discord timestamp tag shown in the reader's
// local time zone.
func FormatTimestamp(t time.Time, style string) string {
	if style == "" {
		return fmt.Sprintf("<t:%d>", t.Unix())
	}
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

// Thousands formats n with comma separators, e.g. 1234567 -> "1,234,567".
func Thousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Fill replaces every {key} placeholder in template with its value.
func Fill(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
