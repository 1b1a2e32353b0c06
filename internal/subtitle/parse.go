package subtitle

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedFormat is returned when the input has no recognizable
// subtitle header.
var ErrUnsupportedFormat = errors.New("unsupported subtitle format")

// ErrMalformed is returned when a recognized format fails to parse past
// recovery of any preceding segments.
var ErrMalformed = errors.New("malformed subtitle content")

// Format identifies the subtitle syntax detected in the source text.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
	FormatSSA Format = "ssa"
)

// Detect inspects content and returns the subtitle format it appears to be,
// or ErrUnsupportedFormat if no recognizable header is present.
func Detect(content string) (Format, error) {
	trimmed := strings.TrimSpace(content)
	switch {
	case strings.HasPrefix(trimmed, "WEBVTT"):
		return FormatVTT, nil
	case strings.HasPrefix(trimmed, "[Script Info]"):
		if strings.Contains(trimmed, "ScriptType: v4.00+") || strings.Contains(trimmed, "[V4+ Styles]") {
			return FormatASS, nil
		}
		return FormatSSA, nil
	case looksLikeSRT(trimmed):
		return FormatSRT, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

func looksLikeSRT(content string) bool {
	lines := strings.SplitN(content, "\n", 4)
	for _, line := range lines {
		if strings.Contains(line, "-->") {
			return true
		}
	}
	return false
}

// Parse detects the format of content and parses it into an ordered,
// normalized segment list.
func Parse(content string) ([]Segment, Format, error) {
	format, err := Detect(content)
	if err != nil {
		return nil, "", err
	}
	var segments []Segment
	switch format {
	case FormatSRT:
		segments, err = parseSRT(content)
	case FormatVTT:
		segments, err = parseVTT(content)
	case FormatASS, FormatSSA:
		segments, err = parseASS(content)
	}
	if err != nil {
		return nil, format, err
	}
	return normalize(segments), format, nil
}

func parseSRT(content string) ([]Segment, error) {
	var segments []Segment
	blocks := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n")
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		var timingIdx int
		found := false
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timingIdx = i
				found = true
				break
			}
		}
		if !found {
			continue // best-effort recovery: skip a cue with no timing line
		}
		start, end, err := parseArrowLine(lines[timingIdx])
		if err != nil {
			continue
		}
		text := strings.TrimSpace(strings.Join(lines[timingIdx+1:], "\n"))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Text: text, StartMS: start, EndMS: end})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no cues recovered", ErrMalformed)
	}
	return segments, nil
}

// parseVTT handles both standard WebVTT and the YouTube auto-caption
// variant, which emits <c> word-timing tags and duplicate rolling-caption
// text across consecutive cues; those duplicates are merged by normalize.
func parseVTT(content string) ([]Segment, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var segments []Segment
	var pendingStart, pendingEnd int64
	var textLines []string
	inCue := false

	flush := func() {
		if !inCue {
			return
		}
		text := strings.TrimSpace(strings.Join(textLines, "\n"))
		text = stripVTTTags(text)
		if text != "" {
			segments = append(segments, Segment{Text: text, StartMS: pendingStart, EndMS: pendingEnd})
		}
		textLines = nil
		inCue = false
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" :
			flush()
		case strings.Contains(line, "-->"):
			flush()
			start, end, err := parseArrowLine(line)
			if err != nil {
				continue
			}
			pendingStart, pendingEnd = start, end
			inCue = true
		case strings.HasPrefix(trimmed, "WEBVTT"), strings.HasPrefix(trimmed, "NOTE"), strings.HasPrefix(trimmed, "STYLE"):
			// header/metadata lines carry no cue text
		default:
			if inCue {
				textLines = append(textLines, line)
			}
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no cues recovered", ErrMalformed)
	}
	return segments, nil
}

func stripVTTTags(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func parseASS(content string) ([]Segment, error) {
	var segments []Segment
	var fields []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	inEvents := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.EqualFold(line, "[Events]"):
			inEvents = true
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			inEvents = false
		case inEvents && strings.HasPrefix(line, "Format:"):
			raw := strings.TrimPrefix(line, "Format:")
			for _, f := range strings.Split(raw, ",") {
				fields = append(fields, strings.TrimSpace(f))
			}
		case inEvents && strings.HasPrefix(line, "Dialogue:"):
			seg, ok := parseDialogueLine(strings.TrimPrefix(line, "Dialogue:"), fields)
			if ok {
				segments = append(segments, seg)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no dialogue lines recovered", ErrMalformed)
	}
	return segments, nil
}

func parseDialogueLine(raw string, fields []string) (Segment, bool) {
	if len(fields) == 0 {
		return Segment{}, false
	}
	parts := strings.SplitN(raw, ",", len(fields))
	if len(parts) != len(fields) {
		return Segment{}, false
	}
	index := map[string]int{}
	for i, name := range fields {
		index[name] = i
	}
	startIdx, ok1 := index["Start"]
	endIdx, ok2 := index["End"]
	textIdx, ok3 := index["Text"]
	if !ok1 || !ok2 || !ok3 {
		return Segment{}, false
	}
	start, err := parseASSTimestamp(strings.TrimSpace(parts[startIdx]))
	if err != nil {
		return Segment{}, false
	}
	end, err := parseASSTimestamp(strings.TrimSpace(parts[endIdx]))
	if err != nil {
		return Segment{}, false
	}
	text := stripASSOverrides(strings.TrimSpace(parts[textIdx]))
	if text == "" {
		return Segment{}, false
	}
	return Segment{Text: text, StartMS: start, EndMS: end}, true
}

func stripASSOverrides(text string) string {
	text = strings.ReplaceAll(text, `\N`, "\n")
	text = strings.ReplaceAll(text, `\n`, "\n")
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// parseASSTimestamp parses "H:MM:SS.cc" (centiseconds).
func parseASSTimestamp(value string) (int64, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid ass timestamp %q", value)
	}
	hours, errH := strconv.Atoi(parts[0])
	minutes, errM := strconv.Atoi(parts[1])
	secParts := strings.Split(parts[2], ".")
	if len(secParts) != 2 {
		return 0, fmt.Errorf("invalid ass timestamp %q", value)
	}
	seconds, errS := strconv.Atoi(secParts[0])
	centis, errC := strconv.Atoi(secParts[1])
	if errH != nil || errM != nil || errS != nil || errC != nil {
		return 0, fmt.Errorf("invalid ass timestamp %q", value)
	}
	total := int64(hours*3600+minutes*60+seconds)*1000 + int64(centis)*10
	return total, nil
}

// parseArrowLine parses a "<start> --> <end> [cue settings]" line shared by
// SRT and VTT timing syntax, accepting both comma and dot millisecond
// separators and VTT's optional hours-elided "MM:SS.mmm" form.
func parseArrowLine(line string) (int64, int64, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	startText := strings.TrimSpace(parts[0])
	endText := strings.TrimSpace(strings.Fields(strings.TrimSpace(parts[1]))[0])

	start, err := parseTimestamp(startText)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(endText)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ",", ".")
	hms := strings.Split(value, ":")
	var hours, minutes int
	var secText string
	switch len(hms) {
	case 3:
		var err error
		hours, err = strconv.Atoi(hms[0])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		minutes, err = strconv.Atoi(hms[1])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		secText = hms[2]
	case 2:
		var err error
		minutes, err = strconv.Atoi(hms[0])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		secText = hms[1]
	default:
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	secParts := strings.Split(secText, ".")
	seconds, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var millis int
	if len(secParts) == 2 {
		fractional := secParts[1]
		for len(fractional) < 3 {
			fractional += "0"
		}
		fractional = fractional[:3]
		millis, err = strconv.Atoi(fractional)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
	}
	total := int64(hours*3600+minutes*60+seconds)*1000 + int64(millis)
	return total, nil
}
