package modbuscore

import (
	"errors"
	"testing"

	"golang.org/x/exp/slices"
)

func TestSnapshotRoundTrip(t *testing.T) {
	// Odd sizes exercise the padding of the packed bit banks.
	cfg := ContextConfig{Coils: 13, Discretes: 7, Holdings: 5, Inputs: 3}
	src := newTestContext(t, cfg)
	src.SetBool(0, true, BankCoil)
	src.SetBool(12, true, BankCoil)
	src.SetBool(3, true, BankDiscrete)
	src.SetBulk(0, []uint16{11, 22, 0xFFFF, 0, 0x8001}, BankHolding)
	src.SetBulk(0, []uint16{7, 8, 9}, BankInput)

	snap := src.Dump()
	wantLen := snapshotHeaderLen + 2 + 1 + 2*5 + 2*3
	if len(snap) != wantLen {
		t.Fatalf("Dump length = %d, want %d", len(snap), wantLen)
	}

	dst := newTestContext(t, cfg)
	if err := dst.Restore(snap); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(dst.coils, src.coils) {
		t.Error("coils differ after restore")
	}
	if !slices.Equal(dst.discretes, src.discretes) {
		t.Error("discrete inputs differ after restore")
	}
	if !slices.Equal(dst.holdings, src.holdings) {
		t.Error("holding registers differ after restore")
	}
	if !slices.Equal(dst.inputs, src.inputs) {
		t.Error("input registers differ after restore")
	}

	// A second dump must be byte-identical: the serialization is
	// deterministic.
	if !slices.Equal(dst.Dump(), snap) {
		t.Error("dump of restored context differs from original snapshot")
	}
}

func TestRestoreRejectsMalformedSnapshot(t *testing.T) {
	cfg := ContextConfig{Coils: 8, Discretes: 8, Holdings: 4, Inputs: 4}
	src := newTestContext(t, cfg)
	src.SetBulk(0, []uint16{1, 2, 3, 4}, BankHolding)
	snap := src.Dump()

	dst := newTestContext(t, cfg)
	dst.Set(0, 0xAAAA, BankHolding)
	dst.SetBool(7, true, BankCoil)
	before := dst.Dump()

	cases := []struct {
		name string
		snap []byte
	}{
		{"empty", nil},
		{"short header", snap[:10]},
		{"truncated body", snap[:len(snap)-1]},
		{"trailing garbage", append(slices.Clone(snap), 0)},
	}
	for _, tc := range cases {
		if err := dst.Restore(tc.snap); !errors.Is(err, ErrSnapshotFormat) {
			t.Errorf("%s: Restore returned %v, want ErrSnapshotFormat", tc.name, err)
		}
	}

	// A snapshot from a differently shaped context is a format error too.
	other := newTestContext(t, ContextConfig{Coils: 16, Discretes: 8, Holdings: 4, Inputs: 4})
	if err := dst.Restore(other.Dump()); !errors.Is(err, ErrSnapshotFormat) {
		t.Errorf("mismatched sizes: Restore returned %v, want ErrSnapshotFormat", err)
	}

	// Every failed restore above must have left dst untouched.
	if !slices.Equal(dst.Dump(), before) {
		t.Fatal("failed Restore mutated the context")
	}
}
