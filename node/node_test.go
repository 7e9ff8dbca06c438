package node

import (
	"testing"
)

func buildColorDesc(t *testing.T) DescID {
	t.Helper()
	e := BeginDesc("color_const")
	if err := e.AddParam("value", Constant, Color, 0, []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	return e.End()
}

func buildMixDesc(t *testing.T) DescID {
	t.Helper()
	e := BeginDesc("mix")
	if err := e.AddParam("a", Constant, Color, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.AddParam("b", Constant, Color, 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := e.AddParam("weight", Constant, Float, 0, nil); err != nil {
		t.Fatal(err)
	}
	return e.End()
}

func TestDescSizes(t *testing.T) {
	id := buildColorDesc(t)
	d, err := Describe(id)
	if err != nil {
		t.Fatal(err)
	}
	if d.BlockSize != 12 {
		t.Fatalf("BlockSize = %d, want 12", d.BlockSize)
	}
	if i := d.Index("value"); i != 0 {
		t.Fatalf("Index = %d, want 0", i)
	}
}

func TestDescBadDefaultSize(t *testing.T) {
	e := BeginDesc("bad")
	err := e.AddParam("value", Constant, Float, 0, []byte{1, 2})
	if err != ErrBadSize {
		t.Fatalf("err = %v, want ErrBadSize", err)
	}
}

func TestInstanceSetAndGetParameter(t *testing.T) {
	id := buildColorDesc(t)
	r := NewRegistry()

	ed, err := r.BeginInstance(id, "red")
	if err != nil {
		t.Fatal(err)
	}
	red := []byte{0, 0, 0x80, 0x3f, 0, 0, 0, 0, 0, 0, 0, 0} // 1.0, 0, 0 as float32 LE
	if err := ed.SetParameter("value", red); err != nil {
		t.Fatal(err)
	}
	inst, err := ed.End()
	if err != nil {
		t.Fatal(err)
	}

	got, err := r.GetParameter(inst, "value")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(red) {
		t.Fatalf("GetParameter = %v, want %v", got, red)
	}
}

func TestReadingWhileEditingFails(t *testing.T) {
	id := buildColorDesc(t)
	r := NewRegistry()
	ed, err := r.BeginInstance(id, "pending")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.GetParameter(ed.ID(), "value"); err != ErrEditing {
		t.Fatalf("err = %v, want ErrEditing", err)
	}
	if _, err := r.LookupParameter(ed.ID(), "value"); err != ErrEditing {
		t.Fatalf("err = %v, want ErrEditing", err)
	}

	if _, err := ed.End(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetParameter(ed.ID(), "value"); err != nil {
		t.Fatal(err)
	}
}

func TestLinkParameterRequiresFinishedSource(t *testing.T) {
	colorID := buildColorDesc(t)
	mixID := buildMixDesc(t)
	r := NewRegistry()

	srcEd, err := r.BeginInstance(colorID, "src")
	if err != nil {
		t.Fatal(err)
	}

	dstEd, err := r.BeginInstance(mixID, "dst")
	if err != nil {
		t.Fatal(err)
	}

	// src is still being edited: linking to it must fail. This is
	// the mechanism that makes a parameter-dataflow cycle impossible
	// to construct, since an instance ID only becomes a valid link
	// target after its own Editor.End has returned.
	if err := dstEd.LinkParameter("a", srcEd.ID(), 0); err != ErrNotFinal {
		t.Fatalf("err = %v, want ErrNotFinal", err)
	}

	srcID, err := srcEd.End()
	if err != nil {
		t.Fatal(err)
	}

	if err := dstEd.LinkParameter("a", srcID, 0); err != nil {
		t.Fatal(err)
	}
	dstID, err := dstEd.End()
	if err != nil {
		t.Fatal(err)
	}

	edge, err := r.ParameterEdge(dstID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !edge.Linked || edge.Src != srcID || edge.SrcParam != 0 {
		t.Fatalf("edge = %+v, want linked to %v:0", edge, srcID)
	}
}

func TestUnlinkParameter(t *testing.T) {
	colorID := buildColorDesc(t)
	mixID := buildMixDesc(t)
	r := NewRegistry()

	srcEd, _ := r.BeginInstance(colorID, "src")
	srcID, _ := srcEd.End()

	dstEd, _ := r.BeginInstance(mixID, "dst")
	if err := dstEd.LinkParameter("a", srcID, 0); err != nil {
		t.Fatal(err)
	}
	if err := dstEd.UnlinkParameter("a"); err != nil {
		t.Fatal(err)
	}
	dstID, _ := dstEd.End()

	edge, err := r.ParameterEdge(dstID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if edge.Linked {
		t.Fatalf("edge still linked after UnlinkParameter")
	}
}

func TestDeclareParameterExtendsBlock(t *testing.T) {
	id := buildColorDesc(t)
	r := NewRegistry()
	ed, err := r.BeginInstance(id, "custom")
	if err != nil {
		t.Fatal(err)
	}
	if err := ed.DeclareParameter(ParamDesc{Name: "user_tag", Class: Uniform, Kind: Int}); err != nil {
		t.Fatal(err)
	}
	inst, err := ed.End()
	if err != nil {
		t.Fatal(err)
	}
	if n := r.NumParameters(inst); n != 2 {
		t.Fatalf("NumParameters = %d, want 2", n)
	}
	i, err := r.LookupParameter(inst, "user_tag")
	if err != nil {
		t.Fatal(err)
	}
	if i != 1 {
		t.Fatalf("LookupParameter(user_tag) = %d, want 1", i)
	}
}

func TestTimestampAdvancesPerEdit(t *testing.T) {
	id := buildColorDesc(t)
	r := NewRegistry()
	ed1, _ := r.BeginInstance(id, "a")
	inst1, _ := ed1.End()
	ed2, _ := r.BeginInstance(id, "b")
	inst2, _ := ed2.End()

	if r.Timestamp(inst2) <= r.Timestamp(inst1) {
		t.Fatalf("timestamps not monotonic: %d, %d", r.Timestamp(inst1), r.Timestamp(inst2))
	}
}

func TestBeginInstanceBadDesc(t *testing.T) {
	r := NewRegistry()
	if _, err := r.BeginInstance(DescID(999), "x"); err != ErrBadDesc {
		t.Fatalf("err = %v, want ErrBadDesc", err)
	}
}
