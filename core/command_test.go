package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCommandRegistryAssignsSequentialIDs(t *testing.T) {
	r := NewCommandRegistry()
	id1 := r.Register("first", "a=%u", nil)
	id2 := r.Register("second", "", nil)
	if id1 != 0 || id2 != 1 {
		t.Errorf("IDs %d, %d; expected registration order 0, 1", id1, id2)
	}
	if again := r.Register("first", "a=%u", nil); again != id1 {
		t.Errorf("re-registration returned %d, expected existing ID %d", again, id1)
	}
}

func TestCommandRegistryDispatch(t *testing.T) {
	r := NewCommandRegistry()
	called := false
	id := r.Register("cmd", "", func(cmdID uint16, data *[]byte) error {
		called = true
		return nil
	})

	if err := r.Dispatch(id, &[]byte{}); err != nil || !called {
		t.Errorf("dispatch err=%v called=%v", err, called)
	}
	if err := r.Dispatch(99, &[]byte{}); err == nil {
		t.Error("dispatch of unknown ID did not fail")
	}
}

func TestDictionaryBootstrapIDs(t *testing.T) {
	s := NewServer(NewController())

	var d dictionary
	if err := json.Unmarshal(s.dict, &d); err != nil {
		t.Fatalf("dictionary does not parse: %v", err)
	}

	if d.Version != Version {
		t.Errorf("version %q, expected %q", d.Version, Version)
	}

	// The bootstrap pair carries fixed IDs so a host can fetch the
	// dictionary before it knows any other ID.
	if id, ok := findEntry(d.Responses, "identify_response"); !ok || id != 0 {
		t.Errorf("identify_response ID %d (found=%v), expected 0", id, ok)
	}
	if id, ok := findEntry(d.Commands, "identify"); !ok || id != 1 {
		t.Errorf("identify ID %d (found=%v), expected 1", id, ok)
	}

	for _, name := range []string{"reg_write", "reg_read", "xfer"} {
		if _, ok := findEntry(d.Commands, name); !ok {
			t.Errorf("command %q missing from dictionary", name)
		}
	}
	for _, name := range []string{"reg_read_response", "xfer_response"} {
		if _, ok := findEntry(d.Responses, name); !ok {
			t.Errorf("response %q missing from dictionary", name)
		}
	}

	if d.Config["DATA_WIDTH"] != DataWidth || d.Config["CS_WIDTH"] != CSWidth {
		t.Errorf("config constants %v do not match the model", d.Config)
	}
}

// findEntry resolves a bare name against "name arg=%type ..." keys.
func findEntry(m map[string]int, name string) (int, bool) {
	if id, ok := m[name]; ok {
		return id, true
	}
	for k, id := range m {
		if strings.HasPrefix(k, name+" ") {
			return id, true
		}
	}
	return 0, false
}
