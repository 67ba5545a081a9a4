package export

import (
	"fmt"
	"io"
	"time"

	"tourdesk/internal/models"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the bookings report.
const SheetName = "Bookings"

var header = []interface{}{
	"ID", "Booking Date", "Destination", "Tour Start", "Tour End", "Customer", "Email", "Phone",
	"Guests", "Status", "Payment", "Total", "Notes", "Created At",
}

var statusFill = map[string]string{
	models.StatusPending:   "#FFF2CC",
	models.StatusConfirmed: "#E2EFDA",
	models.StatusCancelled: "#F8CBAD",
}

// WriteBookings renders bookings as an XLSX workbook into w. Row 1 carries
// the report title, row 2 the column headers and every booking follows with
// its row tinted by status.
func WriteBookings(w io.Writer, bookings []*models.BookingDetails, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("error renaming sheet: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Bookings report, generated %s UTC (%d bookings)",
		generatedAt.UTC().Format("2006-01-02 15:04"), len(bookings))
	_ = f.SetCellValue(SheetName, "A1", title)
	_ = f.MergeCell(SheetName, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(SheetName, "A1", "A1", titleStyle)

	if err := f.SetSheetRow(SheetName, "A2", &header); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	_ = f.SetCellStyle(SheetName, "A2", lastCol+"2", headerStyle)

	styles := make(map[string]int, len(statusFill))
	for status, color := range statusFill {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("error creating style: %w", err)
		}
		styles[status] = style
	}

	for i, b := range bookings {
		row := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			b.ID, b.BookingDate, b.Destination, b.TourStartDate, b.TourEndDate,
			b.CustomerName, b.CustomerEmail, b.CustomerPhone,
			b.NumGuests, b.Status, b.PaymentStatus, b.TotalAmount, b.Notes,
			b.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("error writing booking %d: %w", b.ID, err)
		}
		if style, ok := styles[b.Status]; ok {
			end, _ := excelize.CoordinatesToCellName(len(header), row)
			_ = f.SetCellStyle(SheetName, cell, end, style)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 8)
	_ = f.SetColWidth(SheetName, "B", lastCol, 18)
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 2, TopLeftCell: "A3", ActivePane: "bottomLeft"})

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// FileName is the download name of a report generated at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", t.UTC().Format("2006-01-02_1504"))
}
