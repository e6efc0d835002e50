package navtree

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dgallion1/docnav/internal/jsdata"
)

const examenData = `var NAVTREE =
[
  [ "Examen", "index.html", [
    [ "Template", "index.html", "index" ],
    [ "Topics", "topics.html", "topics" ],
    [ "Estructuras de datos", "annotated.html", [
      [ "Estructuras de datos", "annotated.html", "annotated_dup" ],
      [ "Índice de estructuras de datos", "classes.html", null ]
    ] ],
    [ "Archivos", "files.html", [
      [ "Lista de archivos", "files.html", "files_dup" ]
    ] ]
  ] ]
];

var NAVTREEINDEX =
[
"_c_make_files_23_824_80_2_compiler_id_c_2_c_make_c_compiler_id_8c.html",
"bootloader_2config_2sdkconfig_8h.html#a0e71084dca48cc6909fb54050d9463a3",
"config_2sdkconfig_8h.html#a36bcbf33ed30badd9660dac47d183dc5",
"group___m_p_u6050.html#ga213a533a7baf3afe916fd6d7d73c4ec1",
"timer__mcu_8c.html#a289b78452d903091ccd8f6b4021d195c"
];

var SYNCONMSG = 'pulsar para deshabilitar sincronización';
var SYNCOFFMSG = 'pulsar para habilitar sincronización';
`

func loadExamen(t *testing.T) *Tree {
	t.Helper()
	script, err := jsdata.Decode(strings.NewReader(examenData))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tree, err := FromScript(script)
	if err != nil {
		t.Fatalf("FromScript: %v", err)
	}
	return tree
}

func TestFromScript_Structure(t *testing.T) {
	tree := loadExamen(t)

	root := tree.Root()
	if root.Label() != "Examen" || root.Target() != "index.html" {
		t.Errorf("unexpected root %q -> %q", root.Label(), root.Target())
	}
	if tree.ProjectName() != "Examen" {
		t.Errorf("expected project name Examen, got %q", tree.ProjectName())
	}
	if root.Kind() != Inline || root.NumChildren() != 4 {
		t.Fatalf("expected 4 inline children, got kind=%s n=%d", root.Kind(), root.NumChildren())
	}

	template := root.Child(0)
	if template.Kind() != Lazy || template.Ref() != "index" {
		t.Errorf("expected lazy ref index, got kind=%s ref=%q", template.Kind(), template.Ref())
	}
	classes := root.Child(2).Child(1)
	if classes.Kind() != Leaf {
		t.Errorf("expected leaf, got %s", classes.Kind())
	}
	if classes.Label() != "Índice de estructuras de datos" {
		t.Errorf("unexpected label %q", classes.Label())
	}

	if tree.Index().Len() != 5 {
		t.Errorf("expected 5 index entries, got %d", tree.Index().Len())
	}
	if tree.Sync().On != "pulsar para deshabilitar sincronización" {
		t.Errorf("unexpected sync-on message %q", tree.Sync().On)
	}
}

func TestFromScript_MissingTree(t *testing.T) {
	script, _ := jsdata.Decode(strings.NewReader(`var NAVTREEINDEX = [];`))
	if _, err := FromScript(script); err == nil {
		t.Fatal("expected error for missing NAVTREE")
	}
}

func TestFromScript_EmptyTree(t *testing.T) {
	script, _ := jsdata.Decode(strings.NewReader(`var NAVTREE = [];`))
	if _, err := FromScript(script); err == nil {
		t.Fatal("expected error for NAVTREE without root")
	}
}

func TestFromScript_OptionalIndexAndMessages(t *testing.T) {
	script, _ := jsdata.Decode(strings.NewReader(`var NAVTREE = [ [ "p", "index.html", null ] ];`))
	tree, err := FromScript(script)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tree.Index().IsEmpty() {
		t.Errorf("expected empty index")
	}
	if tree.Sync() != (SyncMessages{}) {
		t.Errorf("expected empty sync messages, got %+v", tree.Sync())
	}
}

func TestNodesFromValue_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"not an array", `var a = "x";`},
		{"entry not array", `var a = [ "x" ];`},
		{"too short", `var a = [ [ "x" ] ];`},
		{"numeric label", `var a = [ [ 1, "x.html", null ] ];`},
		{"numeric target", `var a = [ [ "x", 2, null ] ];`},
		{"bad children", `var a = [ [ "x", "x.html", true ] ];`},
		{"nested bad", `var a = [ [ "x", "x.html", [ [ "y" ] ] ] ];`},
	}
	for _, tt := range tests {
		script, err := jsdata.Decode(strings.NewReader(tt.src))
		if err != nil {
			t.Fatalf("%s: decode: %v", tt.name, err)
		}
		v, _ := script.Lookup("a")
		if _, err := NodesFromValue(v); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestNodesFromValue_NullTargetAndTwoFields(t *testing.T) {
	script, _ := jsdata.Decode(strings.NewReader(`var a = [ [ "Group", null, null ], [ "Page", "page.html" ] ];`))
	v, _ := script.Lookup("a")
	nodes, err := NodesFromValue(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nodes[0].Target() != "" || nodes[1].Kind() != Leaf {
		t.Errorf("unexpected nodes %+v %+v", nodes[0], nodes[1])
	}
}

func TestNode_Immutability(t *testing.T) {
	kids := []*Node{NewLeaf("a", "a.html")}
	n := NewBranch("root", "index.html", kids)
	kids[0] = NewLeaf("b", "b.html")
	if n.Child(0).Label() != "a" {
		t.Error("branch shares caller's slice")
	}

	got := n.Children()
	got[0] = nil
	if n.Child(0) == nil {
		t.Error("Children exposes internal slice")
	}
}

func TestTree_WalkAndNodeAt(t *testing.T) {
	tree := loadExamen(t)

	var visited []string
	err := tree.Walk(func(path []int, n *Node) error {
		visited = append(visited, n.Label())
		got, ok := tree.NodeAt(path)
		if !ok || got != n {
			t.Errorf("NodeAt(%v) does not return walked node %q", path, n.Label())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(visited) != 8 {
		t.Errorf("expected 8 nodes, got %d: %v", len(visited), visited)
	}

	if _, ok := tree.NodeAt([]int{0, 9}); ok {
		t.Error("expected out-of-range path to fail")
	}
	if _, ok := tree.NodeAt(nil); ok {
		t.Error("expected empty path to fail")
	}
}

func TestTree_MarshalJSON(t *testing.T) {
	tree := loadExamen(t)
	data, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out struct {
		Roots []struct {
			Label    string `json:"label"`
			Children []struct {
				Lazy string `json:"lazy"`
			} `json:"children"`
		} `json:"roots"`
		Index []string `json:"index"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Roots[0].Label != "Examen" || out.Roots[0].Children[0].Lazy != "index" {
		t.Errorf("unexpected JSON: %s", data)
	}
	if len(out.Index) != 5 {
		t.Errorf("expected 5 index keys, got %d", len(out.Index))
	}
}

func TestToScript_ReloadsEqual(t *testing.T) {
	tree := loadExamen(t)
	var buf bytes.Buffer
	if err := jsdata.EncodeScript(&buf, ToScript(tree)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	script, err := jsdata.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	again, err := FromScript(script)
	if err != nil {
		t.Fatalf("FromScript: %v", err)
	}
	a, _ := json.Marshal(tree)
	b, _ := json.Marshal(again)
	if !bytes.Equal(a, b) {
		t.Errorf("round trip changed tree:\n%s\n%s", a, b)
	}
}

func TestShardFromValue(t *testing.T) {
	src := `var NAVTREEINDEX0 = { "index.html":[], "led_8c.html":[3,0,1] };`
	script, _ := jsdata.Decode(strings.NewReader(src))
	v, _ := script.Lookup(ShardVar(0))
	shard, err := ShardFromValue(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shard.Len() != 2 || shard.First() != "index.html" {
		t.Errorf("unexpected shard keys %v", shard.Keys())
	}
	path, ok := shard.Lookup("led_8c.html")
	if !ok || len(path) != 3 || path[0] != 3 || path[2] != 1 {
		t.Errorf("unexpected path %v", path)
	}
	path[0] = 99
	again, _ := shard.Lookup("led_8c.html")
	if again[0] != 3 {
		t.Error("Lookup exposes internal slice")
	}

	bad := []string{
		`var NAVTREEINDEX0 = [ "x" ];`,
		`var NAVTREEINDEX0 = { "x": "y" };`,
		`var NAVTREEINDEX0 = { "x": [1.5] };`,
		`var NAVTREEINDEX0 = { "x": [-1] };`,
	}
	for _, src := range bad {
		script, _ := jsdata.Decode(strings.NewReader(src))
		v, _ := script.Lookup(ShardVar(0))
		if _, err := ShardFromValue(v); err == nil {
			t.Errorf("%s: expected error", src)
		}
	}
}

func TestNames(t *testing.T) {
	if ShardFile(3) != "navtreeindex3.js" {
		t.Errorf("unexpected shard file %q", ShardFile(3))
	}
	if ShardVar(12) != "NAVTREEINDEX12" {
		t.Errorf("unexpected shard var %q", ShardVar(12))
	}
	if LazyFile("files_dup") != "files_dup.js" {
		t.Errorf("unexpected lazy file %q", LazyFile("files_dup"))
	}
}
