package cuentas

import "testing"

func TestPostable(t *testing.T) {
	cases := []struct {
		name    string
		account Account
		want    bool
	}{
		{"detail flag", Account{Code: "1.1.1.01", Level: 4, IsDetail: true}, true},
		{"deep level without flag", Account{Code: "1.1.1", Level: 3}, true},
		{"summary account", Account{Code: "1.1", Level: 2}, false},
		{"root", Account{Code: "1", Level: 1}, false},
	}
	for _, tc := range cases {
		if got := tc.account.Postable(); got != tc.want {
			t.Errorf("%s: Postable() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParentCode(t *testing.T) {
	if got := (Account{Code: "1.1.1.01"}).ParentCode(); got != "1.1.1" {
		t.Fatalf("parent of 1.1.1.01 = %q", got)
	}
	if got := (Account{Code: "1"}).ParentCode(); got != "" {
		t.Fatalf("parent of root = %q", got)
	}
}

func TestNatureForKind(t *testing.T) {
	deudoras := []Kind{KindActivo, KindGastos}
	for _, k := range deudoras {
		if NatureForKind(k) != NatureDeudora {
			t.Errorf("%s should be deudora", k)
		}
	}
	acreedoras := []Kind{KindPasivo, KindHacienda, KindIngresos}
	for _, k := range acreedoras {
		if NatureForKind(k) != NatureAcreedora {
			t.Errorf("%s should be acreedora", k)
		}
	}
}
