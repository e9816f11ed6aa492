package apdaemon

import "testing"

func TestParseMACRoundTrip(t *testing.T) {
	mac, err := parseMAC("aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("parseMAC: %v", err)
	}
	if mac.String() != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("mac.String() = %q, want aa:bb:cc:dd:ee:ff", mac.String())
	}
}

func TestParseMACRejectsMalformed(t *testing.T) {
	cases := []string{"", "not-a-mac", "aa:bb:cc:dd:ee", "aa:bb:cc:dd:ee:gg"}
	for _, c := range cases {
		if _, err := parseMAC(c); err == nil {
			t.Errorf("parseMAC(%q): expected an error", c)
		}
	}
}
