package excel

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"reporter/internal/models"
)

const (
	sheetName = "Report"

	dateFormat   = "yyyy-mm-dd hh:mm"
	amountFormat = "#,##0.00"

	// MimeType — MIME тип генерируемого файла.
	MimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// headers задаёт порядок колонок отчёта. Порядок фиксированный:
// один и тот же набор строк всегда даёт одинаковую раскладку.
var headers = []string{"ID", "Date", "Employee ID", "First Name", "Last Name", "Terminal", "Amount"}

// Generator формирует XLSX-документ из строк транзакций.
type Generator struct {
	logger *logrus.Logger
}

// NewGenerator создает новый генератор Excel отчетов.
func NewGenerator(logger *logrus.Logger) *Generator {
	return &Generator{logger: logger}
}

// Generate строит документ: одна строка заголовков и по строке на каждую
// транзакцию во входном порядке. Возвращает содержимое файла.
func (g *Generator) Generate(ops []models.Operation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	if err := g.writeHeader(f); err != nil {
		return nil, err
	}
	if err := g.writeRows(f, ops); err != nil {
		return nil, err
	}

	g.adjustColumnWidths(f, ops)

	// Автофильтр по всей использованной области
	lastCell, _ := excelize.CoordinatesToCellName(len(headers), len(ops)+1)
	if err := f.AutoFilter(sheetName, "A1:"+lastCell, nil); err != nil {
		g.logger.WithError(err).Warn("Не удалось установить автофильтр")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"rows": len(ops),
		"size": buf.Len(),
	}).Info("Excel отчет сгенерирован")

	return buf.Bytes(), nil
}

// writeHeader записывает строку заголовков со стилем.
func (g *Generator) writeHeader(f *excelize.File) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#4F81BD"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	return nil
}

// writeRows записывает строки транзакций с форматами дат и сумм.
func (g *Generator) writeRows(f *excelize.File, ops []models.Operation) error {
	dateFmt := dateFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	amountFmt := amountFormat
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &amountFmt})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	for i, op := range ops {
		row := i + 2
		values := []any{op.ID, op.Date, op.EmployeeID, op.FirstName, op.LastName, op.Terminal, op.Amount}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}

		dateCell, _ := excelize.CoordinatesToCellName(2, row)
		f.SetCellStyle(sheetName, dateCell, dateCell, dateStyle)

		amountCell, _ := excelize.CoordinatesToCellName(len(headers), row)
		f.SetCellStyle(sheetName, amountCell, amountCell, amountStyle)
	}
	return nil
}

// adjustColumnWidths подбирает ширину колонок по содержимому, как в
// исходном отчёте: максимум по колонке плюс небольшой отступ.
func (g *Generator) adjustColumnWidths(f *excelize.File, ops []models.Operation) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, op := range ops {
		display := []string{
			fmt.Sprintf("%d", op.ID),
			op.Date.Format("2006-01-02 15:04"),
			op.EmployeeID,
			op.FirstName,
			op.LastName,
			op.Terminal,
			fmt.Sprintf("%.2f", op.Amount),
		}
		for i, s := range display {
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, float64(w+2))
	}
}
