package luminaire

import (
	"sort"
	"strings"

	"github.com/zumenkit/schedscan/internal/ocr"
	"github.com/zumenkit/schedscan/internal/output"
)

// OutputRow is one finished schedule entry.
type OutputRow struct {
	Equipment    string
	Manufacturer string
	Model        string
}

var outputColumns = []string{"器具記号", "メーカー", "相当型番"}

func shouldSkipOutputRow(equipment, model string) bool {
	if model == "" {
		return true
	}
	compactEquipment := strings.ToUpper(ocr.CompactText(equipment))
	if excludedEmergencyCodes[compactEquipment] {
		return true
	}
	return isEmergencyCertificationModel(model)
}

// BuildOutputRows orders candidates into reading order and drops the
// rows that never belong in the schedule: emergency circuit symbols,
// certification labels, and rows that resolved no model. Legitimate
// duplicates survive; the same fixture can appear in several sections.
func BuildOutputRows(candidates []Candidate) []OutputRow {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		if a.Block != b.Block {
			return a.Block < b.Block
		}
		if a.RowY != b.RowY {
			return a.RowY < b.RowY
		}
		return a.RowX < b.RowX
	})

	var rows []OutputRow
	for _, c := range sorted {
		manufacturer, model := SplitEquivalentModel(c.Model)
		equipment := strings.TrimSpace(c.Equipment)
		if shouldSkipOutputRow(equipment, model) {
			continue
		}
		rows = append(rows, OutputRow{
			Equipment:    equipment,
			Manufacturer: manufacturer,
			Model:        model,
		})
	}
	return rows
}

// WriteCSV writes the schedule with the fixed column set.
func WriteCSV(rows []OutputRow, path string) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{r.Equipment, r.Manufacturer, r.Model})
	}
	return output.WriteCSV(path, outputColumns, records)
}
