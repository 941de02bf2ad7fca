package polizas

import "testing"

func TestFormatSequenceRef(t *testing.T) {
	cases := []struct {
		tipo   Tipo
		number int64
		want   string
	}{
		{TipoEgreso, 15, "E-015"},
		{TipoIngreso, 1, "I-001"},
		{TipoDiario, 999, "D-999"},
		{TipoAjuste, 1000, "A-1000"},
		{TipoCierre, 7, "C-007"},
	}
	for _, tc := range cases {
		if got := FormatSequenceRef(tc.tipo, tc.number); got != tc.want {
			t.Errorf("FormatSequenceRef(%s, %d) = %q, want %q", tc.tipo, tc.number, got, tc.want)
		}
	}
}

func TestParseSequenceRefRoundTrip(t *testing.T) {
	ref := FormatSequenceRef(TipoEgreso, 15)
	tipo, number, err := ParseSequenceRef(ref)
	if err != nil {
		t.Fatalf("parse %q: %v", ref, err)
	}
	if tipo != TipoEgreso || number != 15 {
		t.Fatalf("parsed %s/%d", tipo, number)
	}
}

func TestParseSequenceRefRejectsGarbage(t *testing.T) {
	for _, ref := range []string{"", "E", "X-001", "E-", "E-abc", "E-000"} {
		if _, _, err := ParseSequenceRef(ref); err == nil {
			t.Errorf("ParseSequenceRef(%q) should fail", ref)
		}
	}
}
