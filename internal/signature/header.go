package signature

import "strings"

// Header element keys.
const (
	TimestampKey = "t"
	SignatureKey = "v1"
)

// Header is a parsed signature header.
type Header struct {
	Timestamp string
	Signature string
}

// ParseHeader extracts the t and v1 elements from a signature header.
//
// Each comma-separated element is split once on its first '='. The first
// occurrence of each key wins. The timestamp is not validated beyond being
// non-empty.
func ParseHeader(header string) (Header, error) {
	var h Header
	var haveT, haveV1 bool

	for _, element := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(element, "=")
		if !ok {
			continue
		}
		switch key {
		case TimestampKey:
			if !haveT {
				h.Timestamp, haveT = value, true
			}
		case SignatureKey:
			if !haveV1 {
				h.Signature, haveV1 = value, true
			}
		}
	}

	if h.Timestamp == "" || h.Signature == "" {
		return Header{}, ErrMalformedHeader
	}
	return h, nil
}

// String renders the header in canonical t,v1 order.
func (h Header) String() string {
	return TimestampKey + "=" + h.Timestamp + "," + SignatureKey + "=" + h.Signature
}
