package navtree

import "testing"

func TestIndex_ShardFor(t *testing.T) {
	idx := NewIndex([]string{
		"_c_make_files_23_824_80_2_compiler_id_c_2_c_make_c_compiler_id_8c.html",
		"bootloader_2config_2sdkconfig_8h.html#a0e71084dca48cc6909fb54050d9463a3",
		"config_2sdkconfig_8h.html#a36bcbf33ed30badd9660dac47d183dc5",
		"group___m_p_u6050.html#ga213a533a7baf3afe916fd6d7d73c4ec1",
		"timer__mcu_8c.html#a289b78452d903091ccd8f6b4021d195c",
	})

	tests := []struct {
		id     string
		shard  int
		wantOK bool
	}{
		{"_c_make_files_23_824_80_2_compiler_id_c_2_c_make_c_compiler_id_8c.html", 0, true},
		{"annotated.html", 0, true},
		{"bootloader_2config_2sdkconfig_8h.html#a0e71084dca48cc6909fb54050d9463a3", 1, true},
		{"bootloader_2config_2sdkconfig_8h.html#a78c4", 1, true},
		{"files.html", 2, true},
		{"group___m_p_u6050.html", 2, true},
		{"group___m_p_u6050.html#ga8f1a", 3, true},
		{"led_8c.html#a4d27", 3, true},
		{"timer__mcu_8c.html#a289b78452d903091ccd8f6b4021d195c", 4, true},
		{"uart__mcu_8c.html", 4, true},
		// Sorts before the first entry: renderer falls back to the root page.
		{"Index.html", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		shard, ok := idx.ShardFor(tt.id)
		if shard != tt.shard || ok != tt.wantOK {
			t.Errorf("ShardFor(%q) = (%d, %v), want (%d, %v)", tt.id, shard, ok, tt.shard, tt.wantOK)
		}
	}
}

func TestIndex_ShardForStopsAtFirstGreaterEntry(t *testing.T) {
	// Unsorted input: the scan stops at "z" even though "c" follows.
	idx := NewIndex([]string{"a", "z", "c"})
	shard, ok := idx.ShardFor("d")
	if !ok || shard != 0 {
		t.Errorf("expected shard 0, got %d (ok=%v)", shard, ok)
	}
}

func TestIndex_ShardForDuplicates(t *testing.T) {
	idx := NewIndex([]string{"a.html", "m.html", "m.html", "x.html"})
	shard, ok := idx.ShardFor("m.html")
	if !ok || shard != 2 {
		t.Errorf("expected last duplicate shard 2, got %d", shard)
	}
}

func TestIndex_Empty(t *testing.T) {
	var idx Index
	if !idx.IsEmpty() || idx.Len() != 0 {
		t.Error("zero Index should be empty")
	}
	shard, ok := idx.ShardFor("index.html")
	if ok || shard != 0 {
		t.Errorf("expected fallback on empty index, got (%d, %v)", shard, ok)
	}
}

func TestIndex_KeysIsCopy(t *testing.T) {
	src := []string{"a", "b"}
	idx := NewIndex(src)
	src[0] = "z"
	if idx.At(0) != "a" {
		t.Error("NewIndex shares caller's slice")
	}
	keys := idx.Keys()
	keys[1] = "z"
	if idx.At(1) != "b" {
		t.Error("Keys exposes internal slice")
	}
}

func TestNewShard_DropsDuplicateKeys(t *testing.T) {
	s := NewShard([]string{"a", "b", "a"}, map[string][]int{"a": {1}, "b": {2}})
	if s.Len() != 2 {
		t.Errorf("expected 2 keys, got %d", s.Len())
	}
	if p, ok := s.Lookup("a"); !ok || p[0] != 1 {
		t.Errorf("unexpected path for a: %v", p)
	}
	if _, ok := s.Lookup("missing"); ok {
		t.Error("expected missing key to fail")
	}
}
