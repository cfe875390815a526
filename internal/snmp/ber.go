// Package snmp decodes the BER subset needed to receive SNMP v1/v2c trap
// datagrams: lengths, integers, octet strings, sequences, OIDs and the two
// trap PDU tags. Nothing here aims to be a general ASN.1 codec.
package snmp

import (
	"errors"
	"strconv"
	"strings"
)

// BER tags recognized by the decoder.
const (
	tagInteger     = 0x02
	tagOctetString = 0x04
	tagNull        = 0x05
	tagOID         = 0x06
	tagSequence    = 0x30
	tagIPAddress   = 0x40
	tagCounter32   = 0x41
	tagGauge32     = 0x42
	tagTimeTicks   = 0x43
	tagTrapV1      = 0xA4
	tagTrapV2      = 0xA7
)

var (
	// ErrInvalidAsn1 is returned for any BER inconsistency in the trap
	// envelope; the datagram is dropped.
	ErrInvalidAsn1 = errors.New("snmp: invalid ASN.1 encoding")

	// ErrInvalidVersion is returned for SNMP versions other than v1, v2c
	// and v3.
	ErrInvalidVersion = errors.New("snmp: invalid version")
)

// decodeLength reads a BER length at the start of b. Short form encodes
// 0-127 in one byte; long form 0x80|n means the next n (at most 4) bytes
// hold the big-endian length. Returns the length and bytes consumed.
func decodeLength(b []byte) (int, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrInvalidAsn1
	}
	first := b[0]
	if first < 0x80 {
		return int(first), 1, nil
	}
	n := int(first & 0x7f)
	if n == 0 || n > 4 || len(b) < 1+n {
		return 0, 0, ErrInvalidAsn1
	}
	length := 0
	for i := 0; i < n; i++ {
		length = length<<8 | int(b[1+i])
	}
	return length, 1 + n, nil
}

// readTLV expects the given tag at b[0] and returns the value bytes plus
// the total encoded size of the element.
func readTLV(b []byte, tag byte) ([]byte, int, error) {
	if len(b) == 0 || b[0] != tag {
		return nil, 0, ErrInvalidAsn1
	}
	length, n, err := decodeLength(b[1:])
	if err != nil {
		return nil, 0, err
	}
	end := 1 + n + length
	if end > len(b) {
		return nil, 0, ErrInvalidAsn1
	}
	return b[1+n : end], end, nil
}

// decodeInt interprets value bytes as a signed two's-complement integer.
func decodeInt(v []byte) (int64, error) {
	if len(v) == 0 || len(v) > 8 {
		return 0, ErrInvalidAsn1
	}
	var n int64
	if v[0]&0x80 != 0 {
		n = -1
	}
	for _, c := range v {
		n = n<<8 | int64(c)
	}
	return n, nil
}

// readInt reads an INTEGER TLV.
func readInt(b []byte) (int64, int, error) {
	v, n, err := readTLV(b, tagInteger)
	if err != nil {
		return 0, 0, err
	}
	val, err := decodeInt(v)
	if err != nil {
		return 0, 0, err
	}
	return val, n, nil
}

// decodeOID renders object identifier value bytes as dotted decimal. The
// first byte packs the first two sub-identifiers as b/40 and b%40; the
// rest use base-128 continuation with the high bit marking more bytes.
func decodeOID(v []byte) (string, error) {
	if len(v) == 0 {
		return "", ErrInvalidAsn1
	}
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(v[0] / 40)))
	sb.WriteByte('.')
	sb.WriteString(strconv.Itoa(int(v[0] % 40)))

	val := 0
	pending := false
	for _, c := range v[1:] {
		val = val<<7 | int(c&0x7f)
		if c&0x80 != 0 {
			pending = true
			continue
		}
		sb.WriteByte('.')
		sb.WriteString(strconv.Itoa(val))
		val = 0
		pending = false
	}
	if pending {
		return "", ErrInvalidAsn1
	}
	return sb.String(), nil
}
