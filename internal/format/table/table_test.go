package table

import (
	"reflect"
	"testing"
)

func TestFormatPadsColumns(t *testing.T) {
	rows := [][]string{
		{"File > Open", "app.open", "Ctrl+O"},
		{"Edit > Paste", "unity.paste", ""},
	}
	got := Format(rows, []Column{{}, {}, {Align: AlignRight}})
	want := []string{
		"File > Open   app.open     Ctrl+O",
		"Edit > Paste  unity.paste",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected layout:\n%q\nwant\n%q", got, want)
	}
}

func TestFormatHeaderAndMaxWidth(t *testing.T) {
	rows := [][]string{{"Preferences and Settings", "on"}}
	got := Format(rows, []Column{{Title: "KEY", Max: 8}, {Title: "STATE"}})
	want := []string{
		"KEY       STATE",
		"Prefere…  on",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected layout:\n%q\nwant\n%q", got, want)
	}
}

func TestFormatCountsDisplayWidth(t *testing.T) {
	rows := [][]string{{"✓", "x"}, {"ab", "y"}}
	got := Format(rows, nil)
	want := []string{"✓   x", "ab  y"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected layout: %q", got)
	}
}

func TestFormatEmpty(t *testing.T) {
	if got := Format(nil, nil); got != nil {
		t.Fatalf("expected nil, got %q", got)
	}
}
