package course

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrBadHeader is returned (wrapped) when a document's mandatory header
// cannot be parsed. Callers treat it as file-scoped: skip the document,
// keep ingesting the rest of the batch.
var ErrBadHeader = errors.New("course: malformed document header")

// Header line prefixes of the fixed document grammar.
const (
	titlePrefix      = "Course Title:"
	linkPrefix       = "Course Link:"
	instructorPrefix = "Course Instructor:"
	lessonLinkPrefix = "Lesson Link:"
)

// lessonMarker matches a "Lesson <N>: <title>" line that opens a new lesson
// region.
var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// ParseConfig holds the chunking parameters used by Parse.
type ParseConfig struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to 800 if zero.
	ChunkSize int

	// ChunkOverlap is the number of trailing characters carried from the end
	// of one chunk into the start of the next. Defaults to 100 if zero.
	// Overlap never crosses a lesson boundary.
	ChunkOverlap int
}

// withDefaults returns cfg with zero fields replaced by defaults.
func (cfg ParseConfig) withDefaults() ParseConfig {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 100
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 8
	}
	return cfg
}

// region is an intermediate lesson body collected during the scan phase.
type region struct {
	// lesson is nil for body text that precedes any lesson marker, or for a
	// document with no markers at all.
	lesson *Lesson
	// lines is the raw body text of the region.
	lines []string
}

// Parse reads a raw course document and returns its Course record plus the
// ordered chunk sequence. The first three non-blank lines must form the
// header (title mandatory, link and instructor optional); otherwise Parse
// fails with a wrapped [ErrBadHeader] and the document should be skipped.
//
// A document with no "Lesson N:" markers is treated as a single implicit
// lesson spanning the whole body: its chunks carry no lesson number.
func Parse(raw string, cfg ParseConfig) (Course, []Chunk, error) {
	cfg = cfg.withDefaults()

	lines := strings.Split(raw, "\n")
	crs, rest, err := parseHeader(lines)
	if err != nil {
		return Course{}, nil, err
	}

	regions := splitRegions(rest)
	for _, reg := range regions {
		if reg.lesson != nil {
			crs.Lessons = append(crs.Lessons, *reg.lesson)
		}
	}

	chunks := chunkRegions(crs.Title, regions, cfg)
	return crs, chunks, nil
}

// parseHeader consumes the three-line header and returns the course skeleton
// plus the remaining body lines.
func parseHeader(lines []string) (Course, []string, error) {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) {
		return Course{}, nil, fmt.Errorf("%w: document is empty", ErrBadHeader)
	}

	first := strings.TrimSpace(lines[i])
	if !strings.HasPrefix(first, titlePrefix) {
		return Course{}, nil, fmt.Errorf("%w: first line %q does not start with %q", ErrBadHeader, first, titlePrefix)
	}
	title := strings.TrimSpace(strings.TrimPrefix(first, titlePrefix))
	if title == "" {
		return Course{}, nil, fmt.Errorf("%w: course title is empty", ErrBadHeader)
	}

	crs := Course{Title: title}
	i++

	// Link and instructor are optional but, when present, must directly
	// follow the title line.
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, linkPrefix):
			crs.Link = strings.TrimSpace(strings.TrimPrefix(line, linkPrefix))
		case strings.HasPrefix(line, instructorPrefix):
			crs.Instructor = strings.TrimSpace(strings.TrimPrefix(line, instructorPrefix))
		default:
			return crs, lines[i:], nil
		}
	}

	return crs, nil, nil
}

// splitRegions walks the body lines and groups them into lesson regions.
// Text before the first marker forms an unnumbered region; an optional
// "Lesson Link:" line immediately after a marker is captured on the lesson
// rather than kept as body text.
func splitRegions(lines []string) []region {
	var regions []region
	cur := region{}

	flush := func() {
		if cur.lesson != nil || len(cur.lines) > 0 {
			regions = append(regions, cur)
		}
	}

	expectLink := false
	for _, rawLine := range lines {
		line := strings.TrimRight(rawLine, "\r")

		if m := lessonMarker.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			num, err := strconv.Atoi(m[1])
			if err == nil {
				flush()
				cur = region{lesson: &Lesson{Number: num, Title: strings.TrimSpace(m[2])}}
				expectLink = true
				continue
			}
		}

		trimmed := strings.TrimSpace(line)
		if expectLink {
			expectLink = false
			if strings.HasPrefix(trimmed, lessonLinkPrefix) {
				cur.lesson.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, lessonLinkPrefix))
				continue
			}
		}

		cur.lines = append(cur.lines, line)
	}
	flush()

	return regions
}
