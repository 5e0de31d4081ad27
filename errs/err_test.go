package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErr(t *testing.T) {
	err := InvalidDelay.Printf("%q", "-3")
	if err.Error() != `invalid delay: "-3"` {
		t.Fatalf("desc: %s", err.Error())
	}
	if !errors.Is(err, InvalidDelay) {
		t.Fatal("printf error lost its code")
	}
	if errors.Is(err, Parse) {
		t.Fatal("different codes must not match")
	}
	wrapped := fmt.Errorf("start timer: %w", err)
	if CodeOf(wrapped) != ErrCode_InvalidDelay {
		t.Fatalf("code of wrapped: %d", CodeOf(wrapped))
	}
	if CodeOf(errors.New("boom")) != ErrCode_Unknown {
		t.Fatal("foreign error should map to unknown")
	}
	if CodeOf(nil) != ErrCode_OK {
		t.Fatal("nil should be ok")
	}
	if got := Capacity.Print("a", "b").Error(); got != "delay exceeds wheel capacity: a: b" {
		t.Fatalf("print: %s", got)
	}
}
