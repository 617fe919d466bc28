package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitChildOrderID splits a child order id "<parent>-<NN>" into parent and
// numeric suffix. ok is false when the trailing segment is not a number.
// Example: "4019635-02" -> ("4019635", 2, true)
func SplitChildOrderID(id string) (parent string, seq int, ok bool) {
	id = strings.TrimSpace(id)
	idx := strings.LastIndex(id, "-")
	if idx <= 0 || idx == len(id)-1 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:idx], n, true
}

// FormatChildOrderID builds a child order id with a two digit suffix.
// Example: ("4019635", 3) -> "4019635-03"
func FormatChildOrderID(parent string, seq int) string {
	return fmt.Sprintf("%s-%02d", parent, seq)
}

// NextChildOrderID returns the id following the highest numeric suffix among ids.
// Ids without a numeric suffix are ignored; with none at all the result is <parent>-01.
func NextChildOrderID(parent string, ids []string) string {
	maxSeq := 0
	for _, id := range ids {
		if _, seq, ok := SplitChildOrderID(id); ok && seq > maxSeq {
			maxSeq = seq
		}
	}
	return FormatChildOrderID(parent, maxSeq+1)
}
