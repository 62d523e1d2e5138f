package commands

import (
	"observatorio-backend/internal/sheet"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	sheetCmd.AddCommand(sheetShowCmd)
	rootCmd.AddCommand(sheetCmd)
}

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Reads back written spreadsheets.",
}

var sheetShowCmd = &cobra.Command{
	Use:   "show <path/to/file.xlsx>",
	Short: "Prints every sheet of a workbook.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := sheet.ReadXLSX(args[0])
		if err != nil {
			return err
		}
		for _, st := range tables {
			t := newTable()
			t.SetTitle(st.Name)

			header := table.Row{}
			for _, c := range st.Columns {
				header = append(header, c)
			}
			t.AppendHeader(header)
			for _, row := range st.Rows {
				t.AppendRow(table.Row(row))
			}
			t.Render()
		}
		return nil
	},
}
