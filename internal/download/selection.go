// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-search/pkg/types"
)

// Selection names the records to reconcile. Indices are 1-based positions
// in the loaded corpus. All takes precedence over Indices.
type Selection struct {
	All     bool
	Indices []int
}

// indices returns the selected positions for a corpus of n records,
// deduplicated and ascending. Out-of-range positions are dropped and
// returned separately.
func (s Selection) indices(n int) (selected, skipped []int) {
	if s.All {
		selected = make([]int, n)
		for i := range selected {
			selected[i] = i + 1
		}
		return selected, nil
	}

	seen := make(map[int]bool, len(s.Indices))
	for _, idx := range s.Indices {
		if seen[idx] {
			continue
		}
		seen[idx] = true
		if idx < 1 || idx > n {
			skipped = append(skipped, idx)
			continue
		}
		selected = append(selected, idx)
	}
	sort.Ints(selected)
	sort.Ints(skipped)
	return selected, skipped
}

var rangeToken = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)

// maxRangeSpan bounds a single range token so "1-999999999" cannot
// allocate without limit.
const maxRangeSpan = 100000

// ParseSelection parses a comma-separated list of 1-based indices and
// inclusive ranges such as "1,3,5-10". The keyword "all" selects every
// record. Values beyond the corpus size are kept; Resolve skips them.
func ParseSelection(s string) (Selection, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Selection{}, types.NewValidationError("selection", "empty selection")
	}
	if strings.EqualFold(s, "all") {
		return Selection{All: true}, nil
	}

	var sel Selection
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if m := rangeToken.FindStringSubmatch(tok); m != nil {
			lo, errLo := strconv.Atoi(m[1])
			hi, errHi := strconv.Atoi(m[2])
			if errLo != nil || errHi != nil || lo < 1 || hi < lo {
				return Selection{}, types.NewValidationError("selection", fmt.Sprintf("bad range %q", tok))
			}
			if hi-lo >= maxRangeSpan {
				return Selection{}, types.NewValidationError("selection", fmt.Sprintf("range %q is too large", tok))
			}
			for i := lo; i <= hi; i++ {
				sel.Indices = append(sel.Indices, i)
			}
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 {
			return Selection{}, types.NewValidationError("selection", fmt.Sprintf("bad index %q", tok))
		}
		sel.Indices = append(sel.Indices, n)
	}
	if len(sel.Indices) == 0 {
		return Selection{}, types.NewValidationError("selection", "no indices given")
	}
	return sel, nil
}
