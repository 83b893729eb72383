package luminaire

import (
	"strings"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/ocr"
)

// charPosToTokenIndex maps a rune position in the space-joined token
// string back to the owning token. Positions past the end map to the
// last token rather than the first; a mismatched mapping should stay
// near the tail it came from.
func charPosToTokenIndex(tokens []string, runePos int) int {
	cursor := 0
	for idx, token := range tokens {
		next := cursor + len([]rune(token))
		if runePos >= cursor && runePos < next {
			return idx
		}
		cursor = next + 1
	}
	if len(tokens) == 0 {
		return 0
	}
	return len(tokens) - 1
}

func rowTokens(words []ocr.WordBox) []string {
	tokens := make([]string, len(words))
	for i, w := range words {
		tokens[i] = ocr.NormalizeText(w.Text)
	}
	return tokens
}

// extractModelOnlyCandidates picks bare model numbers from a row with
// no symbol token. A wattage marker must be present so dimension rows
// do not produce phantom models.
func extractModelOnlyCandidates(words []ocr.WordBox) []Candidate {
	if len(words) < 2 {
		return nil
	}
	tokens := rowTokens(words)
	rowText := strings.Join(tokens, " ")
	normalizedRowText := dashVariantsPattern.ReplaceAllString(rowText, "-")
	if !wattagePattern.MatchString(rowText) {
		return nil
	}

	type seenKey struct {
		tokenIndex int
		model      string
	}
	seen := map[seenKey]bool{}
	var candidates []Candidate
	for _, loc := range modelPattern.FindAllStringSubmatchIndex(normalizedRowText, -1) {
		model := appendMultiplierSuffix(normalizedRowText, normalizedRowText[loc[2]:loc[3]], loc[3])
		if model == "" {
			continue
		}
		tokenIndex := charPosToTokenIndex(tokens, len([]rune(normalizedRowText[:loc[0]])))
		key := seenKey{tokenIndex, model}
		if seen[key] {
			continue
		}
		seen[key] = true
		x := words[tokenIndex].X0
		candidates = append(candidates, Candidate{
			RowX:   x,
			ModelX: x,
			Model:  model,
			Kind:   KindModelOnly,
		})
	}
	return candidates
}

// extractColonModelOnlyCandidates picks maker:model pairs from a row
// with no symbol token. No wattage guard here: continuation rows may
// carry nothing but "DAIKO:LZA-93039" and still need extraction.
func extractColonModelOnlyCandidates(words []ocr.WordBox) []Candidate {
	if len(words) < 2 {
		return nil
	}
	tokens := rowTokens(words)
	rowText := strings.Join(tokens, " ")
	normalizedRowText := dashVariantsPattern.ReplaceAllString(rowText, "-")

	type seenKey struct {
		tokenIndex int
		model      string
	}
	seen := map[seenKey]bool{}
	var candidates []Candidate
	for _, loc := range colonModelPattern.FindAllStringSubmatchIndex(normalizedRowText, -1) {
		maker := strings.TrimSpace(normalizedRowText[loc[2]:loc[3]])
		model := appendMultiplierSuffix(normalizedRowText, normalizedRowText[loc[4]:loc[5]], loc[5])
		if maker == "" || model == "" {
			continue
		}
		equivalentModel := maker + ":" + model
		tokenIndex := charPosToTokenIndex(tokens, len([]rune(normalizedRowText[:loc[2]])))
		key := seenKey{tokenIndex, equivalentModel}
		if seen[key] {
			continue
		}
		seen[key] = true
		x := words[tokenIndex].X0
		candidates = append(candidates, Candidate{
			RowX:   x,
			ModelX: x,
			Model:  equivalentModel,
			Kind:   KindColonOnly,
		})
	}
	return candidates
}

// ExtractCandidatesFromRow recognizes schedule row candidates in one
// y-cluster. The row is segmented at each fixture symbol token; each
// segment resolves its model text through the colon, ditto or bare
// model branch.
func ExtractCandidatesFromRow(row cluster.Row) []Candidate {
	words := row.Words
	if len(words) == 0 {
		return nil
	}
	tokens := rowTokens(words)

	var codeIndexes []int
	for idx, token := range tokens {
		if isEquipmentCodeToken(token) {
			codeIndexes = append(codeIndexes, idx)
		}
	}
	if len(codeIndexes) == 0 {
		hasColonToken := false
		for _, token := range tokens {
			if strings.ContainsAny(token, ":：") {
				hasColonToken = true
				break
			}
		}
		if hasColonToken {
			if candidates := extractColonModelOnlyCandidates(words); len(candidates) > 0 {
				return candidates
			}
		}
		return extractModelOnlyCandidates(words)
	}

	var candidates []Candidate
	for index, codeStart := range codeIndexes {
		codeEnd := len(tokens)
		if index+1 < len(codeIndexes) {
			codeEnd = codeIndexes[index+1]
		}
		segmentTokens := tokens[codeStart:codeEnd]
		segmentText := strings.TrimSpace(strings.Join(segmentTokens, " "))
		if segmentText == "" {
			continue
		}

		equipment := normalizeCodeToken(segmentTokens[0])
		model := ""
		kind := KindCoded
		rowX := words[codeStart].X0
		modelX := rowX

		if strings.ContainsAny(segmentText, ":：") {
			maker, m, makerStart := extractMakerAndModel(segmentText)
			if maker != "" && m != "" {
				model = maker + ":" + m
				makerTokenIndex := charPosToTokenIndex(segmentTokens, makerStart)
				modelX = words[codeStart+makerTokenIndex].X0
			} else if m != "" {
				model = m
			}
		} else {
			remainder := strings.Join(segmentTokens[1:], " ")
			model = normalizeDittoModel(remainder)
			if model != "" {
				kind = KindDitto
			} else {
				var modelStart int
				model, modelStart = extractModelWithStart(remainder)
				if modelStart >= 0 {
					modelTokenIndex := 1 + charPosToTokenIndex(segmentTokens[1:], modelStart)
					modelX = words[codeStart+modelTokenIndex].X0
				}
			}
		}

		if model == "" {
			continue
		}
		candidates = append(candidates, Candidate{
			RowX:      rowX,
			ModelX:    modelX,
			Equipment: equipment,
			Model:     model,
			Kind:      kind,
		})
	}
	return candidates
}
