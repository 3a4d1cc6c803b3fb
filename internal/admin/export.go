package admin

import (
	"context"
	"fmt"
	"io"

	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/tealeg/xlsx"
)

// ExportContentType is the MIME type of the transactions workbook
const ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const exportPageSize = 200

var exportHeaders = []string{
	"ID", "Order ID", "User ID", "Amount", "Currency", "Status",
	"Payment Provider", "Provider Transaction ID", "Created At",
}

// ExportTransactions writes every transaction matching f to w as an xlsx
// workbook, following the pages of the filter endpoint.
func (t *Transactions) ExportTransactions(ctx context.Context, api *apiclient.Client, f model.TransactionFilter, w io.Writer) (int, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Transactions")
	if err != nil {
		return 0, fmt.Errorf("create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}

	f.PageSize = exportPageSize
	rows := 0
	for page := 1; ; page++ {
		f.Page = page
		res, err := t.Filter(ctx, api, f)
		if err != nil {
			return rows, err
		}
		for _, tx := range res.Items {
			writeTransactionRow(sheet.AddRow(), tx)
			rows++
		}
		if page >= res.TotalPages || len(res.Items) == 0 {
			break
		}
	}

	if err := file.Write(w); err != nil {
		return rows, fmt.Errorf("write workbook: %w", err)
	}
	return rows, nil
}

func writeTransactionRow(row *xlsx.Row, tx model.Transaction) {
	row.AddCell().SetValue(tx.ID)
	row.AddCell().SetValue(tx.OrderID)
	row.AddCell().SetValue(tx.UserID)
	amount, _ := tx.Amount.Float64()
	row.AddCell().SetFloat(amount)
	row.AddCell().SetValue(tx.Currency)
	row.AddCell().SetValue(tx.Status.String())
	row.AddCell().SetValue(tx.PaymentProvider)
	row.AddCell().SetValue(tx.ProviderTransactionID)
	row.AddCell().SetValue(tx.CreatedAt.Format("2006-01-02 15:04:05"))
}
