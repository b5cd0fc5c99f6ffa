// Package export renders owner reports as Excel workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"tavolo/internal/models"
)

const sheetName = "Bookings"

var columns = []string{
	"Reference", "Date", "Time", "Party", "Status",
	"Customer", "Email", "Mobile", "Special requests", "Created", "Updated",
}

// WriteBookings writes the booking list as a one-sheet workbook to w.
func WriteBookings(w io.Writer, bookings []models.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return err
		}
	}

	// Bold header row.
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(sheetName, start, end, style)
	}

	for i, b := range bookings {
		row := bookingRow(&b)
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func bookingRow(b *models.Booking) []any {
	var name, email, mobile string
	if b.Customer != nil {
		name = b.Customer.FullName()
		email = b.Customer.Email
		mobile = b.Customer.Mobile
	}
	return []any{
		b.Reference, b.VisitDate, b.VisitTime, b.PartySize, b.Status,
		name, email, mobile, b.SpecialRequests, b.CreatedAt, b.UpdatedAt,
	}
}
