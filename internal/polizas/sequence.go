package polizas

import (
	"fmt"
	"strconv"
	"strings"
)

var tipoPrefix = map[Tipo]string{
	TipoIngreso: "I",
	TipoEgreso:  "E",
	TipoDiario:  "D",
	TipoAjuste:  "A",
	TipoCierre:  "C",
}

var prefixTipo = map[string]Tipo{
	"I": TipoIngreso,
	"E": TipoEgreso,
	"D": TipoDiario,
	"A": TipoAjuste,
	"C": TipoCierre,
}

// FormatSequenceRef renders the printable reference of a poliza, e.g.
// egreso 15 -> "E-015". Numbers past 999 widen naturally.
func FormatSequenceRef(tipo Tipo, number int64) string {
	prefix, ok := tipoPrefix[tipo]
	if !ok {
		prefix = "?"
	}
	return fmt.Sprintf("%s-%03d", prefix, number)
}

// ParseSequenceRef recovers the tipo and number from a printed reference.
func ParseSequenceRef(ref string) (Tipo, int64, error) {
	prefix, digits, found := strings.Cut(ref, "-")
	if !found {
		return "", 0, fmt.Errorf("polizas: referencia invalida %q", ref)
	}
	tipo, ok := prefixTipo[prefix]
	if !ok {
		return "", 0, fmt.Errorf("polizas: prefijo desconocido %q", prefix)
	}
	number, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || number < 1 {
		return "", 0, fmt.Errorf("polizas: numero invalido en %q", ref)
	}
	return tipo, number, nil
}
