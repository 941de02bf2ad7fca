package libro

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Amounts are rendered es-MX for the export layer; the projections
// themselves stay numeric.
var esMX = message.NewPrinter(language.Spanish)

// FormatAmount renders a money amount with thousand separators, e.g.
// 1234567.5 -> "$1,234,567.50".
func FormatAmount(v float64) string {
	return esMX.Sprintf("$%.2f", v)
}

// BalanzaRowViewModel is one formatted trial balance line.
type BalanzaRowViewModel struct {
	Codigo  string `json:"codigo"`
	Nombre  string `json:"nombre"`
	Inicial string `json:"saldo_inicial"`
	Debe    string `json:"debe"`
	Haber   string `json:"haber"`
	Final   string `json:"saldo_final"`
}

// BalanzaViewModel holds formatted data for rendering or export.
type BalanzaViewModel struct {
	Rows    []BalanzaRowViewModel `json:"rows"`
	Totals  BalanzaRowViewModel   `json:"totals"`
	Warning string                `json:"warning,omitempty"`
}

// NewBalanzaViewModel formats a projection for presentation.
func NewBalanzaViewModel(projection BalanzaProjection) BalanzaViewModel {
	vm := BalanzaViewModel{Warning: projection.Warning}
	for _, row := range projection.Rows {
		vm.Rows = append(vm.Rows, formatBalanzaRow(row))
	}
	vm.Totals = formatBalanzaRow(projection.Totals)
	return vm
}

func formatBalanzaRow(row BalanzaRow) BalanzaRowViewModel {
	return BalanzaRowViewModel{
		Codigo:  row.CuentaCode,
		Nombre:  row.CuentaName,
		Inicial: FormatAmount(row.Opening),
		Debe:    FormatAmount(row.Debe),
		Haber:   FormatAmount(row.Haber),
		Final:   FormatAmount(row.Closing),
	}
}
