package snmp

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerlog-systems/ledgerlog/internal/models"
)

// Trap is the decoded envelope of an SNMP trap datagram. The inner PDU is
// decoded best-effort: when it cannot be read, GenericTrap keeps the v1
// placeholder value 6, varbinds stay empty and AgentAddr stays "".
type Trap struct {
	Version      int // 1, 2 (v2c) or 3
	Community    string
	PDUType      byte
	Enterprise   string
	AgentAddr    string
	GenericTrap  int64
	SpecificTrap int64
	Varbinds     []Varbind
}

// Varbind is one OID/value pair from a trap PDU, with the value already
// rendered to text.
type Varbind struct {
	OID   string
	Value string
}

// ParseTrap decodes the trap envelope: outer SEQUENCE, version, community
// and PDU tag. Envelope inconsistencies fail the datagram; inner-PDU
// inconsistencies degrade to placeholder values.
func ParseTrap(data []byte) (*Trap, error) {
	seq, _, err := readTLV(data, tagSequence)
	if err != nil {
		return nil, err
	}

	version, n, err := readInt(seq)
	if err != nil {
		return nil, err
	}
	seq = seq[n:]

	var t Trap
	switch version {
	case 0:
		t.Version = 1
	case 1:
		t.Version = 2
	case 3:
		t.Version = 3
	default:
		return nil, ErrInvalidVersion
	}

	community, n, err := readTLV(seq, tagOctetString)
	if err != nil {
		return nil, err
	}
	t.Community = string(community)
	seq = seq[n:]

	if len(seq) == 0 || (seq[0] != tagTrapV1 && seq[0] != tagTrapV2) {
		return nil, ErrInvalidAsn1
	}
	t.PDUType = seq[0]

	pdu, _, err := readTLV(seq, t.PDUType)
	if err != nil {
		return nil, err
	}

	if t.PDUType == tagTrapV1 {
		t.GenericTrap = 6 // placeholder until the PDU body decodes
		decodeV1PDU(pdu, &t)
	} else {
		decodeV2PDU(pdu, &t)
	}

	return &t, nil
}

// decodeV1PDU reads enterprise, agent address, generic/specific trap and
// varbinds. Any failure leaves the fields decoded so far.
func decodeV1PDU(pdu []byte, t *Trap) {
	enterprise, n, err := readTLV(pdu, tagOID)
	if err != nil {
		return
	}
	oid, err := decodeOID(enterprise)
	if err != nil {
		return
	}
	t.Enterprise = oid
	pdu = pdu[n:]

	addr, n, err := readTLV(pdu, tagIPAddress)
	if err != nil || len(addr) != 4 {
		return
	}
	t.AgentAddr = fmt.Sprintf("%d.%d.%d.%d", addr[0], addr[1], addr[2], addr[3])
	pdu = pdu[n:]

	generic, n, err := readInt(pdu)
	if err != nil {
		return
	}
	t.GenericTrap = generic
	pdu = pdu[n:]

	specific, n, err := readInt(pdu)
	if err != nil {
		return
	}
	t.SpecificTrap = specific
	pdu = pdu[n:]

	if _, n, err = readTLV(pdu, tagTimeTicks); err != nil {
		return
	}
	pdu = pdu[n:]

	t.Varbinds = decodeVarbinds(pdu)
}

// decodeV2PDU reads request-id, error-status, error-index and varbinds.
func decodeV2PDU(pdu []byte, t *Trap) {
	for i := 0; i < 3; i++ {
		_, n, err := readInt(pdu)
		if err != nil {
			return
		}
		pdu = pdu[n:]
	}
	t.Varbinds = decodeVarbinds(pdu)
}

func decodeVarbinds(b []byte) []Varbind {
	list, _, err := readTLV(b, tagSequence)
	if err != nil {
		return nil
	}

	var binds []Varbind
	for len(list) > 0 {
		pair, n, err := readTLV(list, tagSequence)
		if err != nil {
			return binds
		}
		list = list[n:]

		oidBytes, m, err := readTLV(pair, tagOID)
		if err != nil {
			return binds
		}
		oid, err := decodeOID(oidBytes)
		if err != nil {
			return binds
		}
		binds = append(binds, Varbind{OID: oid, Value: renderValue(pair[m:])})
	}
	return binds
}

// renderValue formats a varbind value by tag; unrecognized tags render as
// hex of the value bytes.
func renderValue(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	switch b[0] {
	case tagInteger, tagCounter32, tagGauge32, tagTimeTicks:
		v, _, err := readTLV(b, b[0])
		if err != nil {
			return ""
		}
		n, err := decodeInt(v)
		if err != nil {
			return ""
		}
		return strconv.FormatInt(n, 10)
	case tagOctetString:
		v, _, err := readTLV(b, tagOctetString)
		if err != nil {
			return ""
		}
		return string(v)
	case tagOID:
		v, _, err := readTLV(b, tagOID)
		if err != nil {
			return ""
		}
		oid, err := decodeOID(v)
		if err != nil {
			return ""
		}
		return oid
	case tagNull:
		return "null"
	default:
		v, _, err := readTLV(b, b[0])
		if err != nil {
			return ""
		}
		return hex.EncodeToString(v)
	}
}

// ParseTrapToEntry decodes a trap datagram into a canonical log entry.
// The entry keeps data as its raw payload.
func ParseTrapToEntry(data []byte) (*models.LogEntry, error) {
	t, err := ParseTrap(data)
	if err != nil {
		return nil, err
	}

	host := t.AgentAddr
	if host == "" {
		host = "unknown"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Trap Type: %d Specific: %d", t.GenericTrap, t.SpecificTrap)
	for _, vb := range t.Varbinds {
		fmt.Fprintf(&sb, " [%s=%s]", vb.OID, vb.Value)
	}

	app := "snmptrapd"
	return &models.LogEntry{
		Timestamp: time.Now().Unix(),
		Level:     models.LevelNotice,
		Source:    models.SourceSNMP,
		Host:      host,
		AppName:   &app,
		Message:   sb.String(),
		RawData:   data,
	}, nil
}
