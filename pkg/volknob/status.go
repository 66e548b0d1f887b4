package volknob

import (
	"fmt"
	"regexp"
	"strings"
)

// section headers of the wpctl status report that list audio clients.
// "Clients:" holds every process connected to the audio server, "Streams:"
// holds the ones with active playback (PulseAudio's sink inputs)
var trackedStatusSections = []string{"Clients:", "Streams:"}

// tree-drawing glyphs wpctl prefixes nested report lines with
const statusTreeGlyphs = " \t│├─└"

// reportListsPID scans a wpctl status report and reports whether pid appears
// as a whole-word token inside one of the tracked sections. Tracking of a
// section ends as soon as the next header line is encountered, so a pid
// embedded in an unrelated later section never counts as a match.
func reportListsPID(report string, pid int) bool {
	pidPattern := regexp.MustCompile(fmt.Sprintf(`\b%d\b`, pid))

	tracking := false

	for _, line := range strings.Split(report, "\n") {
		if header, ok := statusSectionHeader(line); ok {
			tracking = isTrackedSection(header)
			continue
		}

		if tracking && pidPattern.MatchString(line) {
			return true
		}
	}

	return false
}

// statusSectionHeader extracts a section header from a report line, if the
// line is one. Two shapes qualify: a bare word ending with a colon at any
// tree depth ("Clients:", "Sinks:"), or an unindented top-level group name
// ("Audio", "Video"). Detail lines carry commas/equals signs and never match.
func statusSectionHeader(line string) (string, bool) {
	payload := strings.Trim(line, statusTreeGlyphs)

	if payload == "" || strings.ContainsAny(strings.TrimSuffix(payload, ":"), " \t,=") {
		return "", false
	}

	if strings.HasSuffix(payload, ":") {
		return payload, true
	}

	// top-level group headers aren't indented and have no colon
	if line == payload {
		return payload, true
	}

	return "", false
}

func isTrackedSection(header string) bool {
	for _, section := range trackedStatusSections {
		if header == section {
			return true
		}
	}

	return false
}
