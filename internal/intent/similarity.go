package intent

// Ratio returns the sequence-matching similarity of a and b: 2*M/T, where M is
// the number of runes covered by matching blocks and T the combined rune length.
// Matching blocks come from repeatedly taking the longest common substring and
// recursing on both sides of it. Two empty strings are identical (1.0).
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchedRunes(ra, rb)) / float64(total)
}

type span struct{ alo, ahi, blo, bhi int }

func matchedRunes(a, b []rune) int {
	matched := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestMatch(a, b, s)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest common substring of a[alo:ahi] and b[blo:bhi].
// Ties go to the block starting earliest in a, then earliest in b.
func longestMatch(a, b []rune, s span) (besti, bestj, bestk int) {
	besti, bestj = s.alo, s.blo
	width := s.bhi - s.blo
	prev := make([]int, width+1)
	cur := make([]int, width+1)
	for i := s.alo; i < s.ahi; i++ {
		for j := s.blo; j < s.bhi; j++ {
			col := j - s.blo + 1
			if a[i] != b[j] {
				cur[col] = 0
				continue
			}
			k := prev[col-1] + 1
			cur[col] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		prev, cur = cur, prev
	}
	return besti, bestj, bestk
}
