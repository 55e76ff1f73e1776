package llmclient

import "strings"

// StopTruncator truncates a stream of text chunks at the first
// occurrence of any stop word, even when the stop word straddles a
// chunk boundary. Feed it chunks in order via Write; once Done()
// reports true, stop calling Write.
type StopTruncator struct {
	stops   []string
	maxStop int
	tail    string
	done    bool
	out     strings.Builder
}

// NewStopTruncator builds a StopTruncator for the given stop words.
func NewStopTruncator(stops []string) *StopTruncator {
	max := 0
	for _, s := range stops {
		if len(s) > max {
			max = len(s)
		}
	}
	return &StopTruncator{stops: stops, maxStop: max}
}

// Write appends chunk to the accumulated output, stopping at the first
// stop word. It returns the text newly confirmed as output (which may
// include bytes buffered from an earlier chunk once they're confirmed
// not to be a stop-word prefix) and whether the stream should stop.
func (t *StopTruncator) Write(chunk string) (accepted string, stop bool) {
	if t.done || len(t.stops) == 0 {
		if !t.done {
			t.out.WriteString(chunk)
		}
		return chunk, t.done
	}

	// Consider the carried-over tail together with the new chunk so a
	// stop word split across the boundary is still detected.
	window := t.tail + chunk
	earliest := -1
	for _, s := range t.stops {
		if idx := strings.Index(window, s); idx != -1 {
			if earliest == -1 || idx < earliest {
				earliest = idx
			}
		}
	}
	if earliest != -1 {
		// Nothing in window (tail or chunk) has been emitted yet, so
		// everything before the match is newly revealed text.
		accepted = window[:earliest]
		t.out.WriteString(accepted)
		t.done = true
		t.tail = ""
		return accepted, true
	}

	// No stop word yet. Emit everything except a trailing window that
	// could still be a stop-word prefix, and carry that window forward.
	keep := t.maxStop - 1
	if keep < 0 {
		keep = 0
	}
	if len(window) <= keep {
		t.tail = window
		return "", false
	}
	emitUpTo := len(window) - keep
	emitFromChunk := emitUpTo - len(t.tail)
	if emitFromChunk < 0 {
		emitFromChunk = 0
	}
	if emitFromChunk > len(chunk) {
		emitFromChunk = len(chunk)
	}
	accepted = chunk[:emitFromChunk]
	t.out.WriteString(accepted)
	t.tail = window[emitUpTo:]
	return accepted, false
}

// Done reports whether a stop word has been found.
func (t *StopTruncator) Done() bool { return t.done }

// String returns everything accepted so far.
func (t *StopTruncator) String() string { return t.out.String() }

// Flush releases any buffered tail that turned out not to be part of a
// stop word, for callers that want the final bytes once the stream
// ends without ever matching a stop word.
func (t *StopTruncator) Flush() string {
	if t.done {
		return ""
	}
	t.out.WriteString(t.tail)
	rest := t.tail
	t.tail = ""
	return rest
}
