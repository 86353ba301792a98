package auxstore

import "testing"

func TestLooksLikeWGS(t *testing.T) {
	cases := map[string]bool{
		"AAAA01000001":   true,
		"ABCDEF01123456": true,
		"NM_000170":      false,
		"AAAA01":         false,
		"aaaa01000001":   false,
	}
	for acc, want := range cases {
		if got := LooksLikeWGS(acc); got != want {
			t.Errorf("LooksLikeWGS(%q) = %v, want %v", acc, got, want)
		}
	}
}

func TestJSONCodecRoundTrip(t *testing.T) {
	c := jsonCodec{}
	req := &lookupRequest{Accession: "AAAA01000001", Version: 1, SeqIdType: 5}

	data, err := c.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got := &lookupRequest{}
	if err := c.Unmarshal(data, got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if *got != *req {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", got, req)
	}
	if c.Name() != "json" {
		t.Fatalf("Name() = %q, want json", c.Name())
	}
}
