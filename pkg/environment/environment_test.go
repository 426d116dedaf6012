package environment

import "testing"

func TestToMapAndFromMap(t *testing.T) {
	input := map[string]string{
		"WASHINGTON": "George",
		"ADAMS":      "John",
		"JEFFERSON":  "Thomas",
	}

	entries := FromMap(input)
	if len(entries) != len(input) {
		t.Fatalf("entry count mismatch: %d != %d", len(entries), len(input))
	}

	roundTripped := ToMap(entries)
	if len(roundTripped) != len(input) {
		t.Fatalf("round-tripped map size mismatch: %d != %d", len(roundTripped), len(input))
	}
	for k, v := range input {
		if rv, ok := roundTripped[k]; !ok || rv != v {
			t.Errorf("round-tripped value for %s mismatch: got %q, want %q", k, rv, v)
		}
	}
}

func TestToMapSkipsMalformedAndLastWins(t *testing.T) {
	result := ToMap([]string{"NOEQUALS", "KEY=first", "KEY=second"})
	if len(result) != 1 {
		t.Fatalf("expected exactly one surviving key, got %d", len(result))
	}
	if result["KEY"] != "second" {
		t.Fatalf("expected later entry to win, got %q", result["KEY"])
	}
}

func TestFormat(t *testing.T) {
	lines := Format(map[string]string{"A": "1"})
	if len(lines) != 1 || lines[0] != "A=1" {
		t.Fatalf("unexpected formatted output: %v", lines)
	}
}

func TestParseBlock(t *testing.T) {
	input := "KEY=VALUE\nKEY=duplicate\r\nOTHER=2\nIGNORED\n\n"
	expected := []string{
		"KEY=VALUE",
		"KEY=duplicate",
		"OTHER=2",
		"IGNORED",
	}

	output := ParseBlock(input)
	if len(output) != len(expected) {
		t.Fatalf("output length mismatch: %d != %d", len(output), len(expected))
	}
	for i, v := range output {
		if v != expected[i] {
			t.Errorf("entry %d mismatch: %q != %q", i, v, expected[i])
		}
	}
}

func TestParseBlockEmpty(t *testing.T) {
	if out := ParseBlock("   \n\n  "); out != nil {
		t.Fatalf("expected nil for blank block, got %v", out)
	}
}
