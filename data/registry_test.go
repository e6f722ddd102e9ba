package data

import (
	"testing"

	"github.com/forge-engine/forge/reclaim"
)

func TestCreateWriteCommitRoundTripsByName(t *testing.T) {
	reg := NewRegistry(WithCapacity(8))

	id, err := reg.CreateObject()
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}

	w, err := reg.Write(id)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	w.SetString(PropertyName, "io")
	if err := reg.Commit(w); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := reg.GetObjectByName("io")
	if err != nil {
		t.Fatalf("GetObjectByName: %v", err)
	}
	if got != id {
		t.Fatalf("GetObjectByName(io) = %v, want %v", got, id)
	}

	reader, err := reg.Read(id)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer reg.EndRead(reader)
	if reader.Name() != "io" {
		t.Fatalf("reader.Name() = %q, want io", reader.Name())
	}
}

func TestOutstandingReaderSeesConsistentSnapshotAcrossCommit(t *testing.T) {
	reg := NewRegistry(WithCapacity(8), WithPolicyFactory(func(onRetire reclaim.RetireFunc) reclaim.Policy {
		return reclaim.NewStrict(onRetire)
	}))

	id, _ := reg.CreateObject()
	w, _ := reg.Write(id)
	w.SetBuffer(PropertyBuffer, []byte("v1"))
	if err := reg.Commit(w); err != nil {
		t.Fatal(err)
	}

	reader, err := reg.Read(id)
	if err != nil {
		t.Fatal(err)
	}

	w2, _ := reg.Write(id)
	w2.SetBuffer(PropertyBuffer, []byte("v2"))
	if err := reg.Commit(w2); err != nil {
		t.Fatal(err)
	}

	// The outstanding reader must still observe v1, not v2.
	if string(reader.Buffer()) != "v1" {
		t.Fatalf("outstanding reader saw %q, want v1", reader.Buffer())
	}

	reg.EndRead(reader)
	reg.GarbageCollect()

	reader2, err := reg.Read(id)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.EndRead(reader2)
	if string(reader2.Buffer()) != "v2" {
		t.Fatalf("new reader saw %q, want v2", reader2.Buffer())
	}
}

func TestPoolExhaustionFails(t *testing.T) {
	reg := NewRegistry(WithCapacity(2))
	if _, err := reg.CreateObject(); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.CreateObject(); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.CreateObject(); err != ErrPoolExhausted {
		t.Fatalf("CreateObject on exhausted pool = %v, want ErrPoolExhausted", err)
	}
}

func TestDeleteObjectBumpsGenerationAndRejectsStaleID(t *testing.T) {
	reg := NewRegistry(WithCapacity(4))
	id, _ := reg.CreateObject()
	w, _ := reg.Write(id)
	w.SetString(PropertyName, "stale-test")
	if err := reg.Commit(w); err != nil {
		t.Fatal(err)
	}

	if err := reg.DeleteObject(id); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}

	if _, err := reg.Read(id); err != ErrUnknownID {
		t.Fatalf("Read on deleted id = %v, want ErrUnknownID", err)
	}
	if _, err := reg.GetObjectByName("stale-test"); err != ErrNameNotFound {
		t.Fatalf("GetObjectByName after delete = %v, want ErrNameNotFound", err)
	}

	// The slot should be reusable, but under a bumped generation.
	id2, err := reg.CreateObject()
	if err != nil {
		t.Fatal(err)
	}
	if id2.Index == id.Index && id2.Generation == id.Generation {
		t.Fatalf("reused slot did not bump generation: %v -> %v", id, id2)
	}
}

func TestRenameUpdatesNameIndex(t *testing.T) {
	reg := NewRegistry(WithCapacity(4))
	id, _ := reg.CreateObject()

	w1, _ := reg.Write(id)
	w1.SetString(PropertyName, "first")
	reg.Commit(w1)

	w2, _ := reg.Write(id)
	w2.SetString(PropertyName, "second")
	reg.Commit(w2)

	if _, err := reg.GetObjectByName("first"); err != ErrNameNotFound {
		t.Fatalf("old name still resolves: %v", err)
	}
	got, err := reg.GetObjectByName("second")
	if err != nil || got != id {
		t.Fatalf("GetObjectByName(second) = (%v, %v), want (%v, nil)", got, err, id)
	}
}

func TestSetDataGetDataShim(t *testing.T) {
	reg := NewRegistry(WithCapacity(4))
	if _, err := reg.SetData("memory", []byte("tracker")); err != nil {
		t.Fatal(err)
	}
	got, err := reg.GetData("memory")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "tracker" {
		t.Fatalf("GetData = %q, want tracker", got)
	}

	// SetData again updates in place rather than allocating a new id.
	if _, err := reg.SetData("memory", []byte("tracker2")); err != nil {
		t.Fatal(err)
	}
	got2, _ := reg.GetData("memory")
	if string(got2) != "tracker2" {
		t.Fatalf("GetData after update = %q, want tracker2", got2)
	}
}
