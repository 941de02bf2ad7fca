package libro

import (
	"fmt"
	"math"
	"sort"

	"github.com/haciendadigital/sicam/internal/catalogo/cuentas"
)

// balanceTolerance mirrors the partida doble allowance of the entry store.
const balanceTolerance = 0.01

// BuildDiario orders entries chronologically (date, then sequence) and
// expands each with its line items and totals.
func BuildDiario(entries []Entry) DiarioProjection {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Fecha.Equal(sorted[j].Fecha) {
			return sorted[i].Fecha.Before(sorted[j].Fecha)
		}
		return sorted[i].SequenceNumber < sorted[j].SequenceNumber
	})

	projection := DiarioProjection{}
	for _, entry := range sorted {
		row := DiarioEntry{Entry: entry}
		for _, line := range entry.Lines {
			row.TotalDebe += line.Debe
			row.TotalHaber += line.Haber
		}
		projection.Entries = append(projection.Entries, row)
		projection.TotalDebe += row.TotalDebe
		projection.TotalHaber += row.TotalHaber
	}
	return projection
}

// BuildMayor groups movements per account and accumulates a running balance
// per line, seeded from the account's opening balance. Deudora accounts
// accumulate +debe-haber; acreedoras the inverse.
func BuildMayor(lines []Line, openings map[int64]float64) MayorProjection {
	groups := make(map[int64]*MayorAccount)
	for _, line := range lines {
		grp, ok := groups[line.CuentaID]
		if !ok {
			grp = &MayorAccount{
				CuentaID:   line.CuentaID,
				CuentaCode: line.CuentaCode,
				CuentaName: line.CuentaName,
				Nature:     line.Nature,
				Opening:    openings[line.CuentaID],
			}
			groups[line.CuentaID] = grp
		}
		grp.Lines = append(grp.Lines, MayorLine{Line: line})
	}

	accounts := make([]MayorAccount, 0, len(groups))
	for _, grp := range groups {
		sort.SliceStable(grp.Lines, func(i, j int) bool {
			a, b := grp.Lines[i], grp.Lines[j]
			if !a.Fecha.Equal(b.Fecha) {
				return a.Fecha.Before(b.Fecha)
			}
			return a.SequenceNumber < b.SequenceNumber
		})
		balance := grp.Opening
		for i := range grp.Lines {
			line := &grp.Lines[i]
			if grp.Nature == cuentas.NatureAcreedora {
				balance += line.Haber - line.Debe
			} else {
				balance += line.Debe - line.Haber
			}
			line.Balance = balance
		}
		grp.Closing = balance
		accounts = append(accounts, *grp)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CuentaCode < accounts[j].CuentaCode
	})
	return MayorProjection{Accounts: accounts}
}

// BuildBalanza sorts rows by account code, computes closings per nature and
// appends the grand totals row. Totals imbalance becomes a warning.
func BuildBalanza(rows []BalanzaRow) BalanzaProjection {
	sorted := append([]BalanzaRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CuentaCode < sorted[j].CuentaCode
	})

	projection := BalanzaProjection{}
	for _, row := range sorted {
		if row.Nature == cuentas.NatureAcreedora {
			row.Closing = row.Opening + row.Haber - row.Debe
		} else {
			row.Closing = row.Opening + row.Debe - row.Haber
		}
		projection.Rows = append(projection.Rows, row)
		projection.Totals.Opening += row.Opening
		projection.Totals.Debe += row.Debe
		projection.Totals.Haber += row.Haber
		projection.Totals.Closing += row.Closing
	}
	projection.Totals.CuentaName = "TOTALES"

	if diff := math.Abs(projection.Totals.Debe - projection.Totals.Haber); diff >= balanceTolerance {
		projection.Warning = fmt.Sprintf("la balanza no cuadra: cargos %.2f, abonos %.2f, diferencia %.2f",
			projection.Totals.Debe, projection.Totals.Haber, diff)
	}
	return projection
}
