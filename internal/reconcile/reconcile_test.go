package reconcile

import (
	"reflect"
	"testing"

	"github.com/JonMunkholm/bondweb/internal/overlay"
	"github.com/JonMunkholm/bondweb/internal/record"
	"github.com/JonMunkholm/bondweb/internal/tabular"
)

func rec(pairs ...string) record.Record { return record.New(pairs...) }

func assertRecords(t *testing.T, got, want []record.Record) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d records %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range got {
		if !got[i].Equal(want[i]) {
			t.Errorf("record %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMerge_Scenario(t *testing.T) {
	base := []record.Record{rec("id", "1", "name", "Alpha"), rec("id", "2", "name", "Beta")}
	ov := overlay.Empty()
	ov.Modifications["1"] = rec("name", "Alpha Corp")
	ov.Deletions = []string{"2"}
	ov.Additions = []record.Record{rec("id", "3", "name", "Gamma")}
	ov.CustomFields = []string{"country"}

	got := Merge(base, ov)

	assertRecords(t, got, []record.Record{
		rec("id", "1", "name", "Alpha Corp", "country", ""),
		rec("id", "3", "name", "Gamma", "country", ""),
	})
	if want := []string{"id", "name", "country"}; !reflect.DeepEqual(got[0].Keys(), want) {
		t.Errorf("Keys() = %v, want %v", got[0].Keys(), want)
	}
}

func TestMerge_DeletionBeatsModification(t *testing.T) {
	base := []record.Record{rec("id", "1", "name", "Alpha"), rec("id", "2", "name", "Beta")}
	ov := overlay.Empty()
	ov.Modifications["2"] = rec("name", "Beta Prime")
	ov.Deletions = []string{"2"}

	got := Merge(base, ov)

	for _, r := range got {
		if r.ID() == "2" {
			t.Fatalf("deleted id 2 present in output: %v", got)
		}
	}
	assertRecords(t, got, []record.Record{rec("id", "1", "name", "Alpha")})
}

func TestMerge_EmptyStringModificationReplaces(t *testing.T) {
	base := []record.Record{rec("id", "1", "name", "Alpha", "website", "https://alpha.example")}
	ov := overlay.Empty()
	ov.Modifications["1"] = rec("website", "")

	got := Merge(base, ov)

	assertRecords(t, got, []record.Record{rec("id", "1", "name", "Alpha", "website", "")})
}

func TestMerge_FieldUnionCompleteness(t *testing.T) {
	base := []record.Record{
		rec("id", "1", "name", "Alpha"),
		rec("id", "2", "name", "Beta", "category", "Bank"),
	}
	ov := overlay.Empty()
	ov.Modifications["1"] = rec("rating", "AA")
	ov.Additions = []record.Record{rec("id", "3", "region", "EU")}
	ov.CustomFields = []string{"country", "category"}

	got := Merge(base, ov)

	want := []string{"id", "name", "rating", "category", "region", "country"}
	for _, r := range got {
		if r.Len() != len(want) {
			t.Errorf("record %v has %d fields, want %d", r, r.Len(), len(want))
		}
		for _, f := range want {
			if !r.Has(f) {
				t.Errorf("record %s missing field %q", r.ID(), f)
			}
		}
	}
	if err := CheckComplete(got); err != nil {
		t.Errorf("CheckComplete() error = %v", err)
	}
	if got := FieldUnion(got); !reflect.DeepEqual(got, want) {
		t.Errorf("FieldUnion() = %v, want %v", got, want)
	}
}

func TestMerge_OrderAndNoInterleave(t *testing.T) {
	base := []record.Record{rec("id", "b"), rec("id", "a"), rec("id", "c")}
	ov := overlay.Empty()
	ov.Additions = []record.Record{rec("id", "z"), rec("id", "y")}

	got := Merge(base, ov)

	var ids []string
	for _, r := range got {
		ids = append(ids, r.ID())
	}
	if want := []string{"b", "a", "c", "z", "y"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := []record.Record{rec("id", "1", "name", "Alpha")}
	ov := overlay.Empty()
	ov.Modifications["1"] = rec("name", "Alpha Corp")
	ov.Additions = []record.Record{rec("id", "2")}
	ov.CustomFields = []string{"country"}

	_ = Merge(base, ov)

	if base[0].Has("country") || base[0].Value("name") != "Alpha" {
		t.Errorf("authoritative record mutated: %v", base[0])
	}
	if ov.Additions[0].Has("country") || ov.Additions[0].Has("name") {
		t.Errorf("addition mutated: %v", ov.Additions[0])
	}
	if ov.Modifications["1"].Has("id") {
		t.Errorf("modification mutated: %v", ov.Modifications["1"])
	}
}

func TestMerge_IsIdempotentForSameInputs(t *testing.T) {
	base := []record.Record{rec("id", "1", "name", "Alpha")}
	ov := overlay.Empty()
	ov.CustomFields = []string{"country"}

	first := Merge(base, ov)
	second := Merge(base, ov)
	assertRecords(t, second, first)
}

func TestMerge_EmptyOverlay(t *testing.T) {
	base := []record.Record{rec("id", "1", "name", "Alpha")}
	assertRecords(t, Merge(base, overlay.Overlay{}), base)
	if got := Merge(nil, overlay.Empty()); len(got) != 0 {
		t.Errorf("Merge(nil) = %v", got)
	}
}

func TestSerialize(t *testing.T) {
	tests := []struct {
		name string
		in   []record.Record
		want string
	}{
		{
			name: "empty",
			in:   nil,
			want: "",
		},
		{
			name: "plain",
			in:   []record.Record{rec("id", "1", "name", "Alpha"), rec("id", "2", "name", "Beta")},
			want: "id,name\n1,Alpha\n2,Beta",
		},
		{
			name: "quoting",
			in:   []record.Record{rec("id", "1", "name", "O'Brien, Inc.", "note", `say "hi"`)},
			want: "id,name,note\n1,\"O'Brien, Inc.\",\"say \"\"hi\"\"\"",
		},
		{
			name: "heterogeneous rows",
			in:   []record.Record{rec("id", "1"), rec("name", "Beta", "id", "2")},
			want: "id,name\n1,\n2,Beta",
		},
		{
			name: "single empty column",
			in:   []record.Record{rec("id", "1"), rec("id", ""), rec("id", "3")},
			want: "id\n1\n\"\"\n3",
		},
		{
			name: "semicolons stay unquoted",
			in:   []record.Record{rec("id", "1", "name", "a;b")},
			want: "id,name\n1,a;b",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Serialize(tt.in); got != tt.want {
				t.Errorf("Serialize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	records := []record.Record{
		rec("id", "1", "name", "Alpha", "country", "NO"),
		rec("id", "2", "name", "Beta", "country", ""),
	}
	got := tabular.Parse(Serialize(records))
	assertRecords(t, got, records)
}

func TestSerialize_RoundTripSpecialValues(t *testing.T) {
	values := []string{"a,b", `quote " inside`, "two\nlines", "a\r\nb", "line one\r\nline two", `"wrapped"`, "trailing,\n", ""}
	records := make([]record.Record, len(values))
	for i, v := range values {
		records[i] = rec("id", string(rune('a'+i)), "value", v)
	}

	got := tabular.Parse(Serialize(records))

	assertRecords(t, got, records)
}

func TestSerialize_RoundTripSingleColumnEmptyValue(t *testing.T) {
	records := []record.Record{rec("id", "1"), rec("id", ""), rec("id", "3")}

	got := tabular.Parse(Serialize(records))

	assertRecords(t, got, records)
}
