package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Row 解析后的一行血糖数据
type Row struct {
	MeasuredAt   time.Time `validate:"required"`
	ValueMgdl    float64   `validate:"gt=0,lt=1000"`
	MealRelation string    `validate:"omitempty,oneof=fasting before_meal after_meal bedtime general"`
	Notes        string    `validate:"max=1024"`
}

// RowError 行级解析错误
type RowError struct {
	Line int    `json:"line"`
	Err  string `json:"error"`
}

// ParseResult 解析结果
// 行级错误不终止整个批次,被收集后随批次一起记录
type ParseResult struct {
	Rows      []Row
	RowErrors []RowError
	Total     int // 数据行总数（不含表头）
}

// 支持的时间格式,按顺序尝试
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"01/02/2006 15:04",
	"2006-01-02",
}

// mmol/L 到 mg/dL 的换算系数
const mmolToMgdl = 18.0182

// Parser CSV 解析器
// 将 CSV 行解析为带类型的血糖读数,列顺序由表头决定
type Parser struct {
	validate *validator.Validate
}

// NewParser 创建 CSV 解析器
func NewParser() *Parser {
	return &Parser{validate: validator.New()}
}

// Parse 解析 CSV 内容
func (p *Parser) Parse(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{}
	line := 1 // 表头占第 1 行

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Total++
			result.RowErrors = append(result.RowErrors, RowError{Line: line, Err: err.Error()})
			continue
		}

		// 跳过空行
		if isBlank(record) {
			continue
		}
		result.Total++

		row, err := p.parseRow(record, cols)
		if err != nil {
			result.RowErrors = append(result.RowErrors, RowError{Line: line, Err: err.Error()})
			continue
		}

		result.Rows = append(result.Rows, *row)
	}

	return result, nil
}

// columns 表头列索引
type columns struct {
	timestamp int
	value     int
	unit      int // -1 表示缺省,按 mg/dL 处理
	meal      int
	notes     int
}

// mapColumns 根据表头确定列位置,表头名大小写不敏感
func mapColumns(header []string) (*columns, error) {
	cols := &columns{timestamp: -1, value: -1, unit: -1, meal: -1, notes: -1}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "timestamp", "time", "datetime", "date":
			if cols.timestamp == -1 {
				cols.timestamp = i
			}
		case "glucose", "value", "reading", "blood_glucose":
			if cols.value == -1 {
				cols.value = i
			}
		case "unit", "units":
			cols.unit = i
		case "meal", "meal_relation", "tag":
			cols.meal = i
		case "notes", "note", "comment":
			cols.notes = i
		}
	}

	if cols.timestamp == -1 {
		return nil, fmt.Errorf("csv header missing timestamp column")
	}
	if cols.value == -1 {
		return nil, fmt.Errorf("csv header missing glucose value column")
	}

	return cols, nil
}

// parseRow 解析单行记录
func (p *Parser) parseRow(record []string, cols *columns) (*Row, error) {
	if cols.timestamp >= len(record) || cols.value >= len(record) {
		return nil, fmt.Errorf("row has too few fields")
	}

	measuredAt, err := parseTime(record[cols.timestamp])
	if err != nil {
		return nil, err
	}

	rawValue := strings.TrimSpace(record[cols.value])
	value, err := strconv.ParseFloat(rawValue, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid glucose value %q", rawValue)
	}

	// 单位列为 mmol/L 时换算为 mg/dL
	if cols.unit != -1 && cols.unit < len(record) {
		unit := strings.ToLower(strings.TrimSpace(record[cols.unit]))
		if unit == "mmol/l" || unit == "mmol" {
			value = value * mmolToMgdl
		}
	}

	row := &Row{
		MeasuredAt: measuredAt,
		ValueMgdl:  value,
	}
	if cols.meal != -1 && cols.meal < len(record) {
		row.MealRelation = normalizeMeal(record[cols.meal])
	}
	if cols.notes != -1 && cols.notes < len(record) {
		row.Notes = strings.TrimSpace(record[cols.notes])
	}

	if err := p.validate.Struct(row); err != nil {
		return nil, fmt.Errorf("row validation failed: %w", err)
	}

	return row, nil
}

// parseTime 按已知格式逐一尝试解析时间
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// normalizeMeal 归一化用餐标签
func normalizeMeal(s string) string {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")) {
	case "fasting":
		return "fasting"
	case "before_meal", "pre_meal", "premeal":
		return "before_meal"
	case "after_meal", "post_meal", "postmeal":
		return "after_meal"
	case "bedtime":
		return "bedtime"
	case "":
		return ""
	default:
		return "general"
	}
}

// isBlank 判断记录是否为空行
func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
