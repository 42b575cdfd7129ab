package importer

import (
	"fmt"
	"io"

	"ecom-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

// ContentTypeXLSX is the MIME type of the product export
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var productHeaders = []string{
	"Product ID", "SKU", "Name", "Type", "Category", "Subcategory", "HSN Code",
	"Model", "Color", "Price", "Original Price", "Stock", "Stock Status",
	"Offer %", "Rating", "Raters", "Updated At",
}

// WriteProductsXLSX writes one row per color. Products without colors get a
// single row with the variant columns left blank.
func WriteProductsXLSX(w io.Writer, products []models.ProductView) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range productHeaders {
		header.AddCell().SetValue(h)
	}

	for _, p := range products {
		modelNames := make(map[int64]string, len(p.Models))
		for _, m := range p.Models {
			modelNames[m.ID] = m.Name
		}

		if len(p.Colors) == 0 {
			addProductRow(sheet, &p, nil, "")
			continue
		}
		for i := range p.Colors {
			c := &p.Colors[i]
			model := ""
			if c.ModelID != nil {
				model = modelNames[*c.ModelID]
			}
			addProductRow(sheet, &p, c, model)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func addProductRow(sheet *xlsx.Sheet, p *models.ProductView, c *models.ColorView, model string) {
	row := sheet.AddRow()
	row.AddCell().SetInt64(p.ID)
	row.AddCell().SetString(deref(p.SKU))
	row.AddCell().SetString(p.Name)
	row.AddCell().SetString(p.ProductType)
	row.AddCell().SetString(deref(p.CategoryName))
	row.AddCell().SetString(deref(p.SubcategoryName))
	row.AddCell().SetString(deref(p.HSNCode))
	row.AddCell().SetString(model)

	if c == nil {
		for i := 0; i < 5; i++ {
			row.AddCell().SetString("")
		}
	} else {
		row.AddCell().SetString(c.Name)
		row.AddCell().SetString(c.Price.StringFixed(2))
		row.AddCell().SetString(nullDecimal(c.OriginalPrice))
		row.AddCell().SetInt(c.StockQuantity)
		row.AddCell().SetString(c.Status)
	}

	row.AddCell().SetString(nullDecimal(p.Offers))
	row.AddCell().SetFloat(p.Rating)
	row.AddCell().SetInt(p.Raters)
	row.AddCell().SetString(p.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
