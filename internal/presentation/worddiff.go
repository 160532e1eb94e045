package presentation

import (
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// wordDiffMaxLength skips the word diff for long definitions.
const wordDiffMaxLength = 2000

type segmentType int

const (
	segmentUnchanged segmentType = iota
	segmentAdded
	segmentDeleted
)

type segment struct {
	Type segmentType
	Text string
}

// tokenize splits text into words, whitespace and punctuation.
// Example: "A buyer, or payer." → ["A", " ", "buyer", ",", " ", "or", " ", "payer", "."]
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			flush()
			tokens = append(tokens, string(r))
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return tokens
}

// wordDiff returns the merged word-level edit script from before to after.
func wordDiff(before, after string) []segment {
	switch {
	case before == after:
		return []segment{{Type: segmentUnchanged, Text: before}}
	case before == "":
		return []segment{{Type: segmentAdded, Text: after}}
	case after == "":
		return []segment{{Type: segmentDeleted, Text: before}}
	}

	dmp := diffmatchpatch.New()
	// Tokens are joined with NUL so the character diff aligns on word edges.
	oldText := strings.Join(tokenize(before), "\x00")
	newText := strings.Join(tokenize(after), "\x00")
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldText, newText, false))

	var segments []segment
	for _, d := range diffs {
		text := strings.ReplaceAll(d.Text, "\x00", "")
		if text == "" {
			continue
		}
		var t segmentType
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			t = segmentAdded
		case diffmatchpatch.DiffDelete:
			t = segmentDeleted
		default:
			t = segmentUnchanged
		}
		if n := len(segments); n > 0 && segments[n-1].Type == t {
			segments[n-1].Text += text
			continue
		}
		segments = append(segments, segment{Type: t, Text: text})
	}
	return segments
}

// renderWordDiff marks deletions as [-text-] and insertions as {+text+},
// styled when the writer supports color. Newlines are flattened.
func renderWordDiff(st Styles, before, after string) string {
	if len(before) > wordDiffMaxLength || len(after) > wordDiffMaxLength {
		return ""
	}
	var b strings.Builder
	for _, seg := range wordDiff(before, after) {
		text := strings.ReplaceAll(seg.Text, "\n", " ")
		switch seg.Type {
		case segmentAdded:
			b.WriteString(st.Added.Render("{+" + text + "+}"))
		case segmentDeleted:
			b.WriteString(st.Removed.Render("[-" + text + "-]"))
		default:
			b.WriteString(text)
		}
	}
	return b.String()
}
