package snmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlog-systems/ledgerlog/internal/models"
)

// tlv encodes one element with a short- or long-form length as needed.
func tlv(tag byte, content []byte) []byte {
	var out []byte
	out = append(out, tag)
	n := len(content)
	switch {
	case n < 0x80:
		out = append(out, byte(n))
	case n <= 0xff:
		out = append(out, 0x81, byte(n))
	default:
		out = append(out, 0x82, byte(n>>8), byte(n))
	}
	return append(out, content...)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func v1TrapDatagram() []byte {
	pdu := concat(
		tlv(tagOID, []byte{0x2b, 0x06, 0x01, 0x04, 0x01}), // 1.3.6.1.4.1
		tlv(tagIPAddress, []byte{192, 168, 1, 1}),
		tlv(tagInteger, []byte{0x03}), // generic
		tlv(tagInteger, []byte{0x07}), // specific
		tlv(tagTimeTicks, []byte{0x00}),
		tlv(tagSequence, nil), // no varbinds
	)
	return tlv(tagSequence, concat(
		tlv(tagInteger, []byte{0x00}), // version 0 = v1
		tlv(tagOctetString, []byte("public")),
		tlv(tagTrapV1, pdu),
	))
}

func v2TrapDatagram() []byte {
	varbind := tlv(tagSequence, concat(
		tlv(tagOID, []byte{0x2b, 0x06, 0x01, 0x04, 0x01}),
		tlv(tagOctetString, []byte("linkDown")),
	))
	pdu := concat(
		tlv(tagInteger, []byte{0x01}), // request-id
		tlv(tagInteger, []byte{0x00}), // error-status
		tlv(tagInteger, []byte{0x00}), // error-index
		tlv(tagSequence, varbind),
	)
	return tlv(tagSequence, concat(
		tlv(tagInteger, []byte{0x01}), // version 1 = v2c
		tlv(tagOctetString, []byte("public")),
		tlv(tagTrapV2, pdu),
	))
}

func TestParseTrapV1(t *testing.T) {
	trap, err := ParseTrap(v1TrapDatagram())
	require.NoError(t, err)

	assert.Equal(t, 1, trap.Version)
	assert.Equal(t, "public", trap.Community)
	assert.Equal(t, byte(tagTrapV1), trap.PDUType)
	assert.Equal(t, "1.3.6.1.4.1", trap.Enterprise)
	assert.Equal(t, "192.168.1.1", trap.AgentAddr)
	assert.Equal(t, int64(3), trap.GenericTrap)
	assert.Equal(t, int64(7), trap.SpecificTrap)
	assert.Empty(t, trap.Varbinds)
}

func TestParseTrapV2(t *testing.T) {
	trap, err := ParseTrap(v2TrapDatagram())
	require.NoError(t, err)

	assert.Equal(t, 2, trap.Version)
	assert.Equal(t, "public", trap.Community)
	assert.Equal(t, byte(tagTrapV2), trap.PDUType)
	require.Len(t, trap.Varbinds, 1)
	assert.Equal(t, "1.3.6.1.4.1", trap.Varbinds[0].OID)
	assert.Equal(t, "linkDown", trap.Varbinds[0].Value)
}

func TestParseTrapV1TruncatedPDUKeepsPlaceholders(t *testing.T) {
	// An empty v1 PDU body is an envelope-level success; the inner
	// decode degrades to the placeholder values.
	datagram := tlv(tagSequence, concat(
		tlv(tagInteger, []byte{0x00}),
		tlv(tagOctetString, []byte("public")),
		tlv(tagTrapV1, nil),
	))
	trap, err := ParseTrap(datagram)
	require.NoError(t, err)

	assert.Equal(t, int64(6), trap.GenericTrap)
	assert.Equal(t, "", trap.AgentAddr)
	assert.Empty(t, trap.Varbinds)
}

func TestParseTrapInvalidVersion(t *testing.T) {
	datagram := tlv(tagSequence, concat(
		tlv(tagInteger, []byte{0x02}), // version 2 is not assigned
		tlv(tagOctetString, []byte("public")),
		tlv(tagTrapV2, nil),
	))
	_, err := ParseTrap(datagram)
	assert.ErrorIs(t, err, ErrInvalidVersion)
}

func TestParseTrapInvalidEnvelope(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x02, 0x01, 0x00}, // not a sequence
		tlv(tagSequence, tlv(tagOctetString, []byte("public"))), // no version
		tlv(tagSequence, concat(
			tlv(tagInteger, []byte{0x00}),
			tlv(tagOctetString, []byte("public")),
			tlv(tagSequence, nil), // not a trap PDU tag
		)),
	}
	for _, in := range cases {
		_, err := ParseTrap(in)
		assert.ErrorIs(t, err, ErrInvalidAsn1, "input %x", in)
	}
}

func TestParseTrapToEntry(t *testing.T) {
	data := v1TrapDatagram()
	entry, err := ParseTrapToEntry(data)
	require.NoError(t, err)

	assert.Equal(t, models.SourceSNMP, entry.Source)
	assert.Equal(t, models.LevelNotice, entry.Level)
	assert.Equal(t, "192.168.1.1", entry.Host)
	require.NotNil(t, entry.AppName)
	assert.Equal(t, "snmptrapd", *entry.AppName)
	assert.Equal(t, "Trap Type: 3 Specific: 7", entry.Message)
	assert.Equal(t, data, entry.RawData)
}

func TestParseTrapToEntryVarbinds(t *testing.T) {
	entry, err := ParseTrapToEntry(v2TrapDatagram())
	require.NoError(t, err)

	assert.Equal(t, "unknown", entry.Host)
	assert.Equal(t, "Trap Type: 0 Specific: 0 [1.3.6.1.4.1=linkDown]", entry.Message)
}
