package datasets

import (
	"testing"

	"github.com/JonMunkholm/bondweb/internal/core"
)

func TestRegistered(t *testing.T) {
	want := []string{"institutions", "investors", "issuers"}
	keys := core.Keys()
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	inst, ok := core.Get("institutions")
	if !ok || !inst.Editable || !inst.Remote {
		t.Fatalf("institutions = %+v, %v", inst, ok)
	}
	for _, name := range []string{"id", "name"} {
		found := false
		for _, f := range inst.FormFields {
			if f.Name == name && f.Required {
				found = true
			}
		}
		if !found {
			t.Errorf("institutions form field %q should be required", name)
		}
	}

	for _, key := range []string{"investors", "issuers"} {
		def, _ := core.Get(key)
		if def.Editable {
			t.Errorf("%s should be read-only", key)
		}
	}
}
