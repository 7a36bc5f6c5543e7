package cache

import "testing"

func TestKey(t *testing.T) {
	if got := Key("Audi", "A4", "2020"); got != "AUDI_A4_2020" {
		t.Errorf("unexpected key: %s", got)
	}
	if got := Key("Mercedes Benz", "C Class", "1999"); got != "MERCEDES BENZ_C CLASS_1999" {
		t.Errorf("unexpected key: %s", got)
	}
}

func TestKeyDeterministic(t *testing.T) {
	k1 := Key("Audi ", " a4", "2020")
	k2 := Key("AUDI", "A4", "2020")
	k3 := Key("BMW", "A4", "2020")

	if k1 != k2 {
		t.Error("trim and case variants should derive the same key")
	}
	if k1 == k3 {
		t.Error("different makes should derive different keys")
	}
}

func TestKeyPreservesYearLiteral(t *testing.T) {
	if Key("Audi", "A4", "2020") == Key("Audi", "A4", "+2020") {
		t.Error("year literal variants should derive different keys")
	}
	if got := Key("Audi", "A4", " 2020"); got != "AUDI_A4_ 2020" {
		t.Errorf("year whitespace should be kept verbatim, got %q", got)
	}
}
