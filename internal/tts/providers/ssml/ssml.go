// Package ssml builds the minimal SSML documents the vendor providers send.
package ssml

import (
	"encoding/xml"
	"fmt"
	"math"
	"strings"
)

// Escape returns text safe to embed in an SSML element.
func Escape(text string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(text))
	return b.String()
}

// Prosody wraps escaped text in a <prosody> element when any attribute is
// set. Empty attributes are omitted.
func Prosody(text, rate, pitch string) string {
	body := Escape(text)
	if rate == "" && pitch == "" {
		return body
	}
	var attrs []string
	if rate != "" {
		attrs = append(attrs, fmt.Sprintf(`rate="%s"`, rate))
	}
	if pitch != "" {
		attrs = append(attrs, fmt.Sprintf(`pitch="%s"`, pitch))
	}
	return "<prosody " + strings.Join(attrs, " ") + ">" + body + "</prosody>"
}

// Speak wraps inner markup in a bare <speak> root.
func Speak(inner string) string {
	return "<speak>" + inner + "</speak>"
}

// Percent renders a rate multiplier as an absolute percentage, 1.0 -> "100%".
func Percent(mult float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(mult*100)))
}

// RelativePercent renders a multiplier as a signed delta, 1.2 -> "+20%".
func RelativePercent(mult float64) string {
	return fmt.Sprintf("%+d%%", int(math.Round((mult-1)*100)))
}

// Semitones renders a pitch shift, 2 -> "+2st".
func Semitones(st float64) string {
	return fmt.Sprintf("%+gst", st)
}
