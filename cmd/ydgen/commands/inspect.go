package commands

import (
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/WhisperCapital/go-yd/internal/gen"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the dispatch tables and record roles",
	Long: `Analyse the declarations without writing anything and print, for every
callback and active record, its dispatch table in slot order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, header, err := loadInputs()
		if err != nil {
			return err
		}
		m, err := gen.Analyze(header, cfg)
		if err != nil {
			return err
		}

		roles := pterm.TableData{{"Record", "Native", "Role"}}
		for _, r := range m.Records {
			roles = append(roles, []string{r.Name, r.Native, r.Role.String()})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(roles).Render(); err != nil {
			return err
		}

		for _, r := range m.Records {
			if r.Role != gen.RoleCallback && r.Role != gen.RoleActive {
				continue
			}
			pterm.DefaultSection.Printf("%s (%s, %s ABI)", r.Native, r.Role, cfg.ABI)
			if err := pterm.DefaultTable.WithHasHeader().WithData(slotTable(r)).Render(); err != nil {
				return err
			}
		}
		return nil
	},
}

func slotTable(r *gen.Record) pterm.TableData {
	data := pterm.TableData{{"Slot", "Field", "Declared in", "Go", "Parameters"}}
	for _, m := range r.Methods {
		for i, name := range m.SlotNames {
			goName := m.GoName
			if m.Destructor {
				goName = pterm.Gray("(stub)")
			}
			params := make([]string, len(m.Params))
			for j, p := range m.Params {
				params[j] = p.GoName + " " + p.Type.GoType(false)
			}
			data = append(data, []string{
				strconv.Itoa(m.Slot + i),
				name,
				m.Declaring,
				goName,
				strings.Join(params, ", "),
			})
		}
	}
	return data
}
