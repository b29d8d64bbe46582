package cleartrack

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestTable_MarkCleared(t *testing.T) {
	tbl := New(3, 4)

	for level := uint32(0); level < 3; level++ {
		for layer := uint32(0); layer < 4; layer++ {
			if !tbl.NeedsClear(level, layer) {
				t.Fatalf("(%d,%d) should start uncleared", level, layer)
			}
		}
	}

	tbl.MarkCleared(1, 2)
	if !tbl.IsCleared(1, 2) {
		t.Error("(1,2) should be cleared")
	}
	if tbl.IsCleared(2, 1) {
		t.Error("(2,1) should be untouched")
	}
	if tbl.IsCleared(1, 1) || tbl.IsCleared(1, 3) {
		t.Error("neighbouring layers should be untouched")
	}

	tbl.Reset()
	if tbl.IsCleared(1, 2) {
		t.Error("Reset should mark every subresource uncleared")
	}
}

func TestTable_OutOfRange(t *testing.T) {
	tbl := New(1, 1)
	if !tbl.IsCleared(5, 0) {
		t.Error("out-of-range level should report cleared")
	}
	tbl.MarkCleared(0, 9) // must not panic

	var nilTable *Table
	if !nilTable.IsCleared(0, 0) {
		t.Error("nil table should report cleared")
	}
	nilTable.Reset()
}

func TestNew_ZeroCounts(t *testing.T) {
	tbl := New(0, 0)
	if tbl.Levels() != 1 || tbl.Layers() != 1 {
		t.Errorf("New(0,0) = %dx%d, want 1x1", tbl.Levels(), tbl.Layers())
	}
}

func TestWriteCompletelyClears(t *testing.T) {
	logical := gputypes.Extent3D{Width: 64, Height: 32, DepthOrArrayLayers: 1}
	tests := []struct {
		name    string
		dim     gputypes.TextureDimension
		written gputypes.Extent3D
		want    bool
	}{
		{"2d full", gputypes.TextureDimension2D, gputypes.Extent3D{Width: 64, Height: 32, DepthOrArrayLayers: 1}, true},
		{"2d partial height", gputypes.TextureDimension2D, gputypes.Extent3D{Width: 64, Height: 31, DepthOrArrayLayers: 1}, false},
		{"2d partial width", gputypes.TextureDimension2D, gputypes.Extent3D{Width: 1, Height: 32, DepthOrArrayLayers: 1}, false},
		{"1d full width", gputypes.TextureDimension1D, gputypes.Extent3D{Width: 64, Height: 1, DepthOrArrayLayers: 1}, true},
		{"3d slice", gputypes.TextureDimension3D, gputypes.Extent3D{Width: 64, Height: 32, DepthOrArrayLayers: 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WriteCompletelyClears(tt.dim, tt.written, logical); got != tt.want {
				t.Errorf("WriteCompletelyClears() = %v, want %v", got, tt.want)
			}
		})
	}
}
