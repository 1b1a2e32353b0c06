package subtitle

import (
	"errors"
	"testing"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,500
Hello there.

2
00:00:03,500 --> 00:00:06,000
General Kenobi.
`

const sampleVTT = `WEBVTT

00:00:01.000 --> 00:00:03.500
Hello there.

00:00:03.500 --> 00:00:06.000
General Kenobi.
`

const sampleYouTubeVTT = `WEBVTT
Kind: captions
Language: en

00:00:01.000 --> 00:00:03.500 align:start position:0%
Hello <c> there</c>

00:00:03.000 --> 00:00:06.000 align:start position:0%
Hello there
General Kenobi.
`

const sampleASS = `[Script Info]
ScriptType: v4.00+

[V4+ Styles]
Format: Name, Fontname, Fontsize
Style: Default,Arial,40

[Events]
Format: Layer, Start, End, Style, Text
Dialogue: 0,0:00:01.00,0:00:03.50,Default,Hello there.
Dialogue: 0,0:00:03.50,0:00:06.00,Default,{\i1}General Kenobi.{\i0}
`

func TestDetect(t *testing.T) {
	cases := map[string]Format{
		sampleSRT: FormatSRT,
		sampleVTT: FormatVTT,
		sampleASS: FormatASS,
	}
	for content, want := range cases {
		got, err := Detect(content)
		if err != nil {
			t.Fatalf("Detect() error = %v", err)
		}
		if got != want {
			t.Errorf("Detect() = %s, want %s", got, want)
		}
	}
}

func TestDetectUnsupported(t *testing.T) {
	_, err := Detect("just some plain text\nwith no timing markers\n")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Detect() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParseSRT(t *testing.T) {
	segments, format, err := Parse(sampleSRT)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if format != FormatSRT {
		t.Fatalf("format = %s, want srt", format)
	}
	if len(segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(segments))
	}
	if segments[0].Text != "Hello there." || segments[0].StartMS != 1000 || segments[0].EndMS != 3500 {
		t.Errorf("segments[0] = %+v", segments[0])
	}
}

func TestParseVTT(t *testing.T) {
	segments, format, err := Parse(sampleVTT)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if format != FormatVTT {
		t.Fatalf("format = %s, want vtt", format)
	}
	if len(segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(segments))
	}
}

func TestParseYouTubeVTTStripsTagsWithoutEmptySegments(t *testing.T) {
	segments, _, err := Parse(sampleYouTubeVTT)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for _, seg := range segments {
		if seg.Text == "" {
			t.Fatalf("empty segment text after tag stripping: %+v", seg)
		}
	}
}

func TestParseASS(t *testing.T) {
	segments, format, err := Parse(sampleASS)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if format != FormatASS {
		t.Fatalf("format = %s, want ass", format)
	}
	if len(segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(segments))
	}
	if segments[1].Text != "General Kenobi." {
		t.Errorf("override tags should be stripped, got %q", segments[1].Text)
	}
}

func TestCoverage(t *testing.T) {
	segments := []Segment{
		{StartMS: 0, EndMS: 1000},
		{StartMS: 2000, EndMS: 4000},
	}
	got := Coverage(segments, 4000)
	want := 0.75
	if got != want {
		t.Fatalf("Coverage() = %v, want %v", got, want)
	}
}

func TestCoverageUnknownDurationIsValid(t *testing.T) {
	if got := Coverage(nil, 0); got != 1 {
		t.Fatalf("Coverage() with unknown duration = %v, want 1 (subtitle-first optimism)", got)
	}
}
