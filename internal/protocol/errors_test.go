package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrBadRequest,
		ErrNotFound,
		ErrNoSpace,
		ErrInvalidOperation,
		ErrUnimplemented,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := DecodeBase([]byte(`{"type":"ACT","protocol_version":"0.4"}`))
	if err != nil {
		t.Fatalf("DecodeBase: %v", err)
	}
	if m.Type != TypeAct || m.ProtocolVersion != Version {
		t.Fatalf("base = %+v", m)
	}
	if _, err := DecodeBase([]byte(`{`)); err == nil {
		t.Fatalf("expected error for truncated frame")
	}
}
