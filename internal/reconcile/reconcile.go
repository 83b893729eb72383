package reconcile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/zumenkit/schedscan/internal/config"
	"github.com/zumenkit/schedscan/internal/output"
)

// Canonical input fields and the header spellings that map to them.
var columnAliases = map[string][]string{
	"equipment_id": {"機器番号", "機械番号"},
	"schedule_name": {"名称", "機器名称"},
	"schedule_power_per_unit_kw": {
		"動力 (50Hz)_消費電力 (KW)",
		"動力(50Hz)_消費電力(KW)",
		"動力(50Hz)_消費電力(Kw)",
		"動力 (50Hz)_消費電力 (Kw)",
	},
	"schedule_count":          {"台数"},
	"schedule_drawing_number": {"図面番号", "図番", "機器表 図面番号"},
	"panel_name":              {"機器名称", "名称"},
	"panel_voltage":           {"電圧(V)", "電圧（V）"},
	"panel_capacity_kw":       {"容量(kW)", "容量(KW)", "容量(Kw)", "容量（kW）"},
	"panel_drawing_number":    {"図面番号", "盤表 図面番号"},
}

var outputColumns = []string{
	"総合判定", "台数判定", "容量判定", "名称判定", "機器ID照合", "判定理由",
	"機器ID", "機器表 記載名", "盤表 記載名",
	"機器表 台数", "盤表 台数", "台数差",
	"機器表 消費電力(kW)", "機器表 モード容量(kW)", "機器表 判定モード",
	"機器表 判定採用容量(kW)", "容量判定補足",
	"盤表 容量(kW)", "容量差(kW)",
	"機器表 図面番号", "盤表 図面番号", "盤表 記載トレース",
}

var ErrMissingHeaders = errors.New("required csv headers are missing")

func normalizeHeader(text string) string {
	return strings.ToLower(compactCell(text))
}

func normalizeKey(text string) string {
	return strings.ToUpper(compactCell(text))
}

func resolveHeader(fieldnames []string, canonicalKey string) (string, bool) {
	normalized := map[string]string{}
	for _, name := range fieldnames {
		if _, ok := normalized[normalizeHeader(name)]; !ok {
			normalized[normalizeHeader(name)] = name
		}
	}
	for _, alias := range columnAliases[canonicalKey] {
		if matched, ok := normalized[normalizeHeader(alias)]; ok {
			return matched, true
		}
	}
	return "", false
}

// readCSV reads a header row plus records into field maps, tolerating
// a UTF-8 BOM and ragged rows.
func readCSV(path string) ([]string, []map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("csv has no header: %s", path)
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := map[string]string{}
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// panelAggregate collects all panel rows sharing one equipment code.
type panelAggregate struct {
	EquipmentIDs   []string
	Names          []string
	Voltages       []string
	CapacityValues []string
	DrawingNumbers []string
	TraceRows      []traceRow
	MatchCount     int
}

// missingIDAggregate groups panel rows with no equipment code by their
// content.
type missingIDAggregate struct {
	Name            string
	CapacityDisplay string
	DrawingNumber   string
	TraceRows       []traceRow
	Count           int
}

// Result summarizes one reconciliation run.
type Result struct {
	RowCount    int
	OutputCSV   string
	ScheduleCSV string
	PanelCSV    string
}

// Merge joins the equipment schedule CSV with the panel schedule CSV
// and writes the judgment table.
func Merge(cfg config.Config, scheduleCSVPath, panelCSVPath, outCSVPath string) (*Result, error) {
	scheduleHeaders, scheduleRows, err := readCSV(scheduleCSVPath)
	if err != nil {
		return nil, err
	}
	panelHeaders, panelRows, err := readCSV(panelCSVPath)
	if err != nil {
		return nil, err
	}

	scheduleIDHeader, okID := resolveHeader(scheduleHeaders, "equipment_id")
	scheduleNameHeader, _ := resolveHeader(scheduleHeaders, "schedule_name")
	schedulePowerHeader, okPower := resolveHeader(scheduleHeaders, "schedule_power_per_unit_kw")
	scheduleCountHeader, okCount := resolveHeader(scheduleHeaders, "schedule_count")
	scheduleDrawingHeader, hasScheduleDrawing := resolveHeader(scheduleHeaders, "schedule_drawing_number")
	if !okID || !okPower || !okCount {
		return nil, fmt.Errorf("%w: equipment schedule %s", ErrMissingHeaders, scheduleCSVPath)
	}

	panelIDHeader, okPanelID := resolveHeader(panelHeaders, "equipment_id")
	panelNameHeader, okPanelName := resolveHeader(panelHeaders, "panel_name")
	panelVoltageHeader, okPanelVoltage := resolveHeader(panelHeaders, "panel_voltage")
	panelCapacityHeader, okPanelCapacity := resolveHeader(panelHeaders, "panel_capacity_kw")
	panelDrawingHeader, hasPanelDrawing := resolveHeader(panelHeaders, "panel_drawing_number")
	if !okPanelID || !okPanelName || !okPanelVoltage || !okPanelCapacity {
		return nil, fmt.Errorf("%w: panel schedule %s", ErrMissingHeaders, panelCSVPath)
	}

	scheduleDrawingAgg := map[string][]string{}
	if hasScheduleDrawing {
		for _, row := range scheduleRows {
			key := normalizeKey(row[scheduleIDHeader])
			if key == "" {
				continue
			}
			scheduleDrawingAgg[key] = append(scheduleDrawingAgg[key], row[scheduleDrawingHeader])
		}
	}

	panelAgg := map[string]*panelAggregate{}
	var panelKeys []string
	missingAgg := map[string]*missingIDAggregate{}
	var missingKeys []string
	for _, row := range panelRows {
		key := normalizeKey(row[panelIDHeader])
		drawingRaw := ""
		if hasPanelDrawing {
			drawingRaw = row[panelDrawingHeader]
		}
		if key == "" {
			nameRaw := row[panelNameHeader]
			voltageRaw := row[panelVoltageHeader]
			capacityRaw := row[panelCapacityHeader]
			if pickFirstNonBlank([]string{nameRaw, voltageRaw, capacityRaw, drawingRaw}) == "" {
				continue
			}
			capacityDisplay := normalizeCell(capacityRaw)
			missingKey := strings.Join([]string{
				normalizeNameForCompare(nameRaw),
				strings.ToLower(compactCell(voltageRaw)),
				strings.ToLower(compactCell(capacityDisplay)),
				strings.ToLower(compactCell(drawingRaw)),
			}, "|")
			agg := missingAgg[missingKey]
			if agg == nil {
				agg = &missingIDAggregate{
					Name:            pickFirstNonBlank([]string{nameRaw}),
					CapacityDisplay: capacityDisplay,
					DrawingNumber:   pickFirstNonBlank([]string{drawingRaw}),
				}
				missingAgg[missingKey] = agg
				missingKeys = append(missingKeys, missingKey)
			}
			agg.Count++
			agg.TraceRows = append(agg.TraceRows, traceRow{drawingRaw, nameRaw, capacityRaw, voltageRaw})
			if agg.Name == "" {
				agg.Name = pickFirstNonBlank([]string{nameRaw})
			}
			if agg.DrawingNumber == "" {
				agg.DrawingNumber = pickFirstNonBlank([]string{drawingRaw})
			}
			continue
		}

		agg := panelAgg[key]
		if agg == nil {
			agg = &panelAggregate{}
			panelAgg[key] = agg
			panelKeys = append(panelKeys, key)
		}
		agg.MatchCount++
		agg.EquipmentIDs = append(agg.EquipmentIDs, row[panelIDHeader])
		agg.Names = append(agg.Names, row[panelNameHeader])
		agg.Voltages = append(agg.Voltages, row[panelVoltageHeader])
		agg.CapacityValues = append(agg.CapacityValues, row[panelCapacityHeader])
		if hasPanelDrawing {
			agg.DrawingNumbers = append(agg.DrawingNumbers, drawingRaw)
		}
		agg.TraceRows = append(agg.TraceRows, traceRow{drawingRaw, row[panelNameHeader], row[panelCapacityHeader], row[panelVoltageHeader]})
	}

	var outRows [][]string
	scheduleKeys := map[string]bool{}
	for _, scheduleRow := range scheduleRows {
		equipmentID := scheduleRow[scheduleIDHeader]
		key := normalizeKey(equipmentID)
		if key != "" {
			scheduleKeys[key] = true
		}
		agg := panelAgg[key]
		idMatchMark := "✗"
		if agg != nil {
			idMatchMark = "◯"
		}

		powerRaw := scheduleRow[schedulePowerHeader]
		scheduleCount, hasScheduleCount := parseNumber(scheduleRow[scheduleCountHeader])
		scheduleNameRaw := ""
		if scheduleNameHeader != "" {
			scheduleNameRaw = scheduleRow[scheduleNameHeader]
		}
		scheduleName := compactCell(scheduleNameRaw)
		capacityRes := resolveScheduleCapacity(powerRaw, scheduleNameRaw, cfg.CapacityMaxFallback)

		existsCode := judgmentMismatch
		panelMatchCount := 0
		if agg != nil {
			existsCode = judgmentMatch
			panelMatchCount = agg.MatchCount
		}

		var panelVariants []capacityVariant
		var panelNames []string
		panelNamesDisplay := ""
		panelDrawing := ""
		panelTrace := ""
		if agg != nil {
			panelVariants = collectCapacityVariants(agg.CapacityValues)
			panelNames = collectUniqueNonBlank(agg.Names)
			panelNamesDisplay = strings.Join(panelNames, ",")
			panelDrawing = strings.Join(collectUniqueNonBlank(agg.DrawingNumbers), ",")
			panelTrace = formatTraceRows(agg.TraceRows)
		}

		scheduleDrawing := ""
		if numbers, ok := scheduleDrawingAgg[key]; ok {
			scheduleDrawing = strings.Join(collectUniqueNonBlank(numbers), ",")
		}

		qtyCode, countDiff, hasCountDiff, qtyReason := evaluateQuantity(scheduleCount, hasScheduleCount, panelMatchCount, existsCode)
		capacityCode, capacityDiff, hasCapacityDiff, capacityReason := evaluateCapacity(capacityVariant{
			Display: capacityRes.SelectedDisplay,
			Value:   capacityRes.SelectedValue,
			HasVal:  capacityRes.HasValue,
			Kind:    capacityRes.SelectedKind,
		}, panelVariants, existsCode)
		nameCode, nameReason := evaluateName(scheduleName, panelNames, existsCode)

		overall := aggregateJudgments(existsCode, qtyCode, capacityCode, nameCode)
		legacyReason := buildLegacyReason(overall, existsCode, qtyCode, qtyReason, countDiff, hasCountDiff, capacityCode, capacityReason, nameCode, nameReason)
		reason := pickReason(overall, legacyReason, []string{qtyReason, capacityReason, nameReason})

		scheduleCountDisplay := ""
		if hasScheduleCount {
			scheduleCountDisplay = formatNumber(scheduleCount)
		}
		countDiffDisplay := ""
		if hasCountDiff {
			countDiffDisplay = formatNumber(countDiff)
		}
		capacityDiffDisplay := ""
		if hasCapacityDiff {
			capacityDiffDisplay = formatNumber(capacityDiff)
		}
		adoptedDisplay := ""
		if capacityRes.SelectedKind == capacityNumeric && capacityRes.HasValue {
			adoptedDisplay = formatNumber(capacityRes.SelectedValue)
		}

		outRows = append(outRows, []string{
			toMark(overall), toMark(qtyCode), toMark(capacityCode), toMark(nameCode),
			idMatchMark, reason,
			equipmentID, scheduleName, panelNamesDisplay,
			scheduleCountDisplay, strconv.Itoa(panelMatchCount), countDiffDisplay,
			capacityRes.RawDisplay, capacityRes.ModeValuesDisplay, capacityRes.SelectedMode,
			adoptedDisplay, capacityRes.Note,
			joinCapacityVariants(panelVariants), capacityDiffDisplay,
			scheduleDrawing, panelDrawing, panelTrace,
		})
	}

	for _, key := range panelKeys {
		if scheduleKeys[key] {
			continue
		}
		agg := panelAgg[key]
		equipmentID := pickFirstNonBlank(agg.EquipmentIDs)
		if equipmentID == "" {
			equipmentID = key
		}
		outRows = append(outRows, []string{
			toMark(judgmentMismatch), toMark(judgmentMismatch), toMark(judgmentMismatch), toMark(judgmentMismatch),
			"✗", "機器表に記載なし",
			equipmentID, "", strings.Join(collectUniqueNonBlank(agg.Names), ","),
			"", strconv.Itoa(agg.MatchCount), "",
			"", "", "", "", "",
			joinCapacityVariants(collectCapacityVariants(agg.CapacityValues)), "",
			"", strings.Join(collectUniqueNonBlank(agg.DrawingNumbers), ","), formatTraceRows(agg.TraceRows),
		})
	}

	for _, key := range missingKeys {
		agg := missingAgg[key]
		outRows = append(outRows, []string{
			toMark(judgmentReview), toMark(judgmentReview), toMark(judgmentReview), toMark(judgmentReview),
			"✗", "盤表ID未記載",
			"", "", agg.Name,
			"", strconv.Itoa(agg.Count), "",
			"", "", "", "", "",
			agg.CapacityDisplay, "",
			"", agg.DrawingNumber, formatTraceRows(agg.TraceRows),
		})
	}

	if err := output.WriteCSV(outCSVPath, outputColumns, outRows); err != nil {
		return nil, err
	}
	log.Info("schedules reconciled",
		"schedule_rows", len(scheduleRows), "panel_rows", len(panelRows),
		"judgments", len(outRows), "out", outCSVPath)
	return &Result{
		RowCount:    len(outRows),
		OutputCSV:   outCSVPath,
		ScheduleCSV: scheduleCSVPath,
		PanelCSV:    panelCSVPath,
	}, nil
}
