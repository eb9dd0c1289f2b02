package errs

import (
	"errors"
	"fmt"
	"testing"

	jujuerrors "github.com/juju/errors"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"invalid", Invalidf("address %q", "x"), InvalidArgument},
		{"duplicate", Duplicatef("component %q", "host_1"), DuplicateIdentity},
		{"not found", NotFoundf("group %q", "g"), NotFound},
		{"invariant", Invariantf("interface %q already connected", "a"), InvariantViolation},
		{"exhausted", Exhaustedf("network %q", "10.0.0.0/30"), Exhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !Is(tt.err, tt.kind) {
				t.Errorf("expected %v to be %v", tt.err, tt.kind)
			}
			wrapped := fmt.Errorf("handler: %w", tt.err)
			if !errors.Is(wrapped, tt.kind) {
				t.Errorf("wrapping lost kind for %v", tt.err)
			}
		})
	}
}

func TestJujuInterop(t *testing.T) {
	if !errors.Is(NotFoundf("vlan %d", 3), jujuerrors.NotFound) {
		t.Error("expected juju NotFound to match")
	}
	if errors.Is(Invariantf("x"), jujuerrors.NotFound) {
		t.Error("invariant violation must not match NotFound")
	}
}
