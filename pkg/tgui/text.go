package tgui

// TextLimit is the longest body sent as one message.
const TextLimit = 4000

// TruncRunes returns the first n runes of s. No ellipsis is added.
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// ChunkRunes cuts s into consecutive pieces of at most size runes. The cut
// ignores word boundaries; joining the pieces yields s. An empty s yields a
// single empty piece so callers always have something to send.
func ChunkRunes(s string, size int) []string {
	if size <= 0 {
		return []string{s}
	}
	out := make([]string, 0, len(s)/size+1)
	start, count := 0, 0
	for i := range s {
		if count == size {
			out = append(out, s[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(out, s[start:])
}
