package puzzle

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/crossplay/backend/internal/apperr"
)

// NormalizeClues accepts the three legacy clue shapes and returns clues
// sorted by number:
//
//  1. pair arrays:    [[1, "First clue"], [4, "Second clue"]]
//  2. object arrays:  [{"number": 1, "clue": "First clue"}, ...]
//  3. sparse arrays:  [null, "First clue", null, null, "Second clue"]
//
// In the object shape, feeds have been seen with number and clue swapped
// (a numeric clue field and a textual number field); those are swapped back.
func NormalizeClues(raw json.RawMessage) ([]Clue, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, apperr.Validation("clues must be an array")
	}

	var out []Clue
	for i, el := range elems {
		if len(el) == 0 || string(el) == "null" {
			continue
		}

		// pair shape
		var pair []json.RawMessage
		if err := json.Unmarshal(el, &pair); err == nil {
			if len(pair) != 2 {
				return nil, apperr.Validation("clue pair must have two elements")
			}
			num, numOK := asInt(pair[0])
			text, _ := asString(pair[1])
			if !numOK {
				return nil, apperr.Validation("clue pair number is not numeric")
			}
			out = append(out, Clue{Number: num, Text: text})
			continue
		}

		// object shape
		var obj struct {
			Number json.RawMessage `json:"number"`
			Clue   json.RawMessage `json:"clue"`
		}
		if err := json.Unmarshal(el, &obj); err == nil && (obj.Number != nil || obj.Clue != nil) {
			num, numOK := asInt(obj.Number)
			text, _ := asString(obj.Clue)
			if !numOK {
				// Legacy swap: number holds the text and clue holds the
				// number.
				if swapped, ok := asInt(obj.Clue); ok {
					num, numOK = swapped, true
					text, _ = asString(obj.Number)
				}
			}
			if !numOK {
				return nil, apperr.Validation("clue object has no numeric number")
			}
			out = append(out, Clue{Number: num, Text: text})
			continue
		}

		// sparse shape: index is the clue number
		var text string
		if err := json.Unmarshal(el, &text); err == nil {
			if text != "" {
				out = append(out, Clue{Number: i, Text: text})
			}
			continue
		}

		return nil, apperr.Validation("unparseable clue at index %d", i)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// asInt accepts a JSON number or a numeric string.
func asInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
	}
	return 0, false
}

// asString accepts a JSON string or renders a number as text.
func asString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return "", false
}
