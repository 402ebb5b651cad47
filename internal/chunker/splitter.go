package chunker

import "strings"

// separators ordered best to worst for keeping context intact: paragraph
// break, line break, space. Mid-token cuts happen only when a window
// contains none of them.
var separators = []string{"\n\n", "\n", " "}

// Splitter produces ordered, overlapping character windows. Size and
// Overlap are rune counts; consecutive chunks share roughly Overlap runes.
type Splitter struct {
	Size    int
	Overlap int
}

func New(size, overlap int) *Splitter {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Splitter{Size: size, Overlap: overlap}
}

// Split chunks text into windows of at most Size runes. Each window tries
// to end at the highest-priority separator found in its second half so
// chunks break at paragraph or line boundaries where possible.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.Size {
		return []string{text}
	}

	var chunks []string
	i := 0
	for i < len(runes) {
		end := i + s.Size
		if end >= len(runes) {
			end = len(runes)
		} else if cut := boundaryCut(runes[i:end]); cut > 0 {
			end = i + cut
		}

		chunk := strings.TrimSpace(string(runes[i:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}
		next := end - s.Overlap
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return chunks
}

// boundaryCut returns the rune offset to cut the window at, or 0 when no
// separator lands in the window's second half.
func boundaryCut(window []rune) int {
	half := len(window) / 2
	for _, sep := range separators {
		if idx := lastIndex(window, []rune(sep)); idx >= half {
			return idx
		}
	}
	return 0
}

func lastIndex(window, sep []rune) int {
	if len(sep) == 0 || len(sep) > len(window) {
		return -1
	}
	for i := len(window) - len(sep); i >= 0; i-- {
		match := true
		for j := range sep {
			if window[i+j] != sep[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
