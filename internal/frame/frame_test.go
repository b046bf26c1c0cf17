package frame

import "testing"

func TestPackPropertiesZeroesPayload(t *testing.T) {
	f := New(8)
	copy(f.Msg, "garbage!")
	f.PackProperties(0, 42, TypeMSG)
	for i, b := range f.Msg {
		if b != 0 {
			t.Fatalf("byte %d not zeroed: %x", i, b)
		}
	}
	if f.Seq != 42 || f.Flags != TypeMSG {
		t.Fatalf("unexpected header: %+v", f)
	}
}

func TestPackHandshakeEncodesWindowAsASCII(t *testing.T) {
	f := New(16)
	f.PackHandshake(7, TypeSYN, 32, 16)
	if f.Size != 32 {
		t.Fatalf("expected size 32, got %d", f.Size)
	}
	if string(f.Msg[:2]) != "16" {
		t.Fatalf("expected ASCII window '16', got %q", f.Msg[:2])
	}
	if f.Msg[2] != 0 {
		t.Fatalf("expected null terminator after ASCII digits, got %x", f.Msg[2])
	}
}

func TestPackMessageSetsENDWhenExhausted(t *testing.T) {
	f := New(4)
	f.PackMessage([]byte("ab"), 3, true)
	if !HasFlag(f.Flags, FlagEND) {
		t.Fatalf("expected END flag set")
	}
	if f.Size != 2 {
		t.Fatalf("expected size 2, got %d", f.Size)
	}
	if string(f.Msg[:2]) != "ab" {
		t.Fatalf("expected payload 'ab', got %q", f.Msg[:2])
	}
}

func TestPackMessageWithoutEND(t *testing.T) {
	f := New(4)
	f.PackMessage([]byte("cd"), 4, false)
	if HasFlag(f.Flags, FlagEND) {
		t.Fatalf("did not expect END flag")
	}
}

func TestIntegrityRoundTrip(t *testing.T) {
	f := New(8)
	f.PackMessage([]byte("hello"), 1, false)
	f.Time = 1234
	f.IntegrityAttach()

	if !f.IntegrityVerify() {
		t.Fatalf("expected verify to pass immediately after attach")
	}

	f.Msg[0] ^= 0xFF
	if f.IntegrityVerify() {
		t.Fatalf("expected verify to fail after payload corruption")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f := New(8)
	f.PackMessage([]byte("payload!"), 99, true)
	f.Time = 555
	f.IntegrityAttach()

	buf := f.Encode()
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Seq != f.Seq || got.Time != f.Time || got.Flags != f.Flags || got.Size != f.Size {
		t.Fatalf("header mismatch: got %+v want %+v", got, f)
	}
	if string(got.Msg) != string(f.Msg) {
		t.Fatalf("payload mismatch: got %q want %q", got.Msg, f.Msg)
	}
	if !got.IntegrityVerify() {
		t.Fatalf("decoded frame should verify")
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	if _, err := Decode(make([]byte, HeaderSize-1)); err == nil {
		t.Fatalf("expected error for short buffer")
	}
}

func TestTypeAndFlagHelpers(t *testing.T) {
	flags := TypeNAK | FlagREQ
	if Type(flags) != TypeNAK {
		t.Fatalf("expected type NAK, got %d", Type(flags))
	}
	if !HasFlag(flags, FlagREQ) {
		t.Fatalf("expected REQ flag present")
	}
	if ExactFlags(flags, TypeNAK) {
		t.Fatalf("ExactFlags should not ignore the REQ modifier")
	}
	if !ExactFlags(flags, TypeNAK|FlagREQ) {
		t.Fatalf("ExactFlags should match the full combination")
	}
}
