package backend

import (
	"errors"
	"slices"
	"testing"
)

type stubDevice struct {
	Device
	name string
}

func (d stubDevice) Name() string { return d.name }

func TestRegistry(t *testing.T) {
	Register("stub-a", func() (Device, error) { return stubDevice{name: "stub-a"}, nil })
	defer Unregister("stub-a")

	if !IsRegistered("stub-a") {
		t.Fatal("stub-a should be registered")
	}
	if !slices.Contains(Available(), "stub-a") {
		t.Errorf("Available() = %v, missing stub-a", Available())
	}

	d, err := Get("stub-a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.Name() != "stub-a" {
		t.Errorf("Name() = %q, want %q", d.Name(), "stub-a")
	}

	if _, err := Get("missing"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Get(missing) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestDefaultPriority(t *testing.T) {
	Register("zz-other", func() (Device, error) { return stubDevice{name: "zz-other"}, nil })
	defer Unregister("zz-other")

	failing := errors.New("no adapter")
	Register(BackendWGPU, func() (Device, error) { return nil, failing })
	defer Unregister(BackendWGPU)

	d, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if d.Name() != "zz-other" {
		t.Errorf("Default() = %q, want fallback past the failing wgpu backend", d.Name())
	}
}

func TestDefaultNoneAvailable(t *testing.T) {
	failing := errors.New("no adapter")
	Register(BackendWGPU, func() (Device, error) { return nil, failing })
	defer Unregister(BackendWGPU)

	// Only meaningful when nothing else is registered in this test binary.
	if len(Available()) != 1 {
		t.Skip("other backends registered")
	}
	_, err := Default()
	if !errors.Is(err, ErrBackendNotAvailable) || !errors.Is(err, failing) {
		t.Errorf("Default() error = %v, want both ErrBackendNotAvailable and the factory error", err)
	}
}

func TestCapsMax3DBytesPerRow(t *testing.T) {
	if got := (Caps{}).Max3DBytesPerRow(4); got != 8192 {
		t.Errorf("default Max3DBytesPerRow(4) = %d, want 8192", got)
	}
	if got := (Caps{Max3DCopyRowBlocks: 16}).Max3DBytesPerRow(8); got != 128 {
		t.Errorf("Max3DBytesPerRow(8) = %d, want 128", got)
	}
}

func TestStoreActionResolves(t *testing.T) {
	tests := []struct {
		a    StoreAction
		want bool
	}{
		{StoreActionDontCare, false},
		{StoreActionStore, false},
		{StoreActionMultisampleResolve, true},
		{StoreActionStoreAndMultisampleResolve, true},
	}
	for _, tt := range tests {
		t.Run(tt.a.String(), func(t *testing.T) {
			if got := tt.a.Resolves(); got != tt.want {
				t.Errorf("Resolves() = %v, want %v", got, tt.want)
			}
		})
	}
}
