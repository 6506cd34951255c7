package bank

import (
	"errors"
	"strings"
	"testing"
)

func TestShareableID_Roundtrip(t *testing.T) {
	ids := []string{
		"a-1",
		"BxBXxLj1m4HMXBm9WZZmCWVbPjX16EHwv99vp",
		"vzeNDwK7KQIm4yEog683uElbp9GRLEFXGK98D",
		"x",
		"account_with_underscores_and-dashes",
	}

	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			encoded := EncodeShareableID(id)
			if encoded == id {
				t.Errorf("EncodeShareableID(%q) returned input unchanged", id)
			}
			if strings.ContainsAny(encoded, "+/=") {
				t.Errorf("EncodeShareableID(%q) = %q is not URL safe", id, encoded)
			}

			decoded, err := DecodeShareableID(encoded)
			if err != nil {
				t.Fatalf("DecodeShareableID(%q) failed: %v", encoded, err)
			}
			if decoded != id {
				t.Errorf("DecodeShareableID(EncodeShareableID(%q)) = %q", id, decoded)
			}
			if again := EncodeShareableID(decoded); again != encoded {
				t.Errorf("EncodeShareableID(DecodeShareableID(%q)) = %q", encoded, again)
			}
		})
	}
}

func TestShareableID_Deterministic(t *testing.T) {
	if EncodeShareableID("a-1") != EncodeShareableID("a-1") {
		t.Error("EncodeShareableID() is not deterministic")
	}
	if EncodeShareableID("a-1") == EncodeShareableID("a-2") {
		t.Error("EncodeShareableID() collided for distinct IDs")
	}
}

func TestDecodeShareableID_Invalid(t *testing.T) {
	tests := []string{
		"",
		"!!!",
		"YS0x=",  // padded input is not accepted
		"YS0y+/", // standard alphabet
		"YR",     // non-canonical trailing bits
		"_w",     // decodes to invalid UTF-8
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := DecodeShareableID(in); !errors.Is(err, ErrInvalidShareableID) {
				t.Errorf("DecodeShareableID(%q) error = %v, want ErrInvalidShareableID", in, err)
			}
		})
	}
}
