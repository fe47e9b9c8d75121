package credential

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const recordFormatVersionCurrent = 1

// Fixed header layout (byte offsets, zero-based). The rotation and revocation
// Lua scripts depend on these offsets; changing them requires a new version
// byte and fallback parsing in the scripts.
//
//	[0]      version
//	[1]      status
//	[2:18]   credential id
//	[18:34]  family id
//	[34:42]  created_at, big-endian unix millis
//	[42:50]  expires_at, big-endian unix millis
//	[50:58]  rotated_at, big-endian unix millis (zero until rotated)
//	[58]     identity length, then identity bytes
//	then     uint16 context length, then context bytes
const recordHeaderSize = 59

func Encode(c *Credential) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordFormatVersionCurrent)
	buf.WriteByte(byte(c.Status))
	buf.Write(c.ID[:])
	buf.Write(c.FamilyID[:])

	if err := binary.Write(&buf, binary.BigEndian, c.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, c.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, c.RotatedAt); err != nil {
		return nil, err
	}

	if len(c.IdentityID) == 0 {
		return nil, errors.New("identityID empty")
	}
	if len(c.IdentityID) > 255 {
		return nil, errors.New("identityID too long")
	}
	buf.WriteByte(byte(len(c.IdentityID)))
	buf.WriteString(c.IdentityID)

	if len(c.Context) > 65535 {
		return nil, errors.New("context too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(c.Context))); err != nil {
		return nil, err
	}
	buf.WriteString(c.Context)

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Credential, error) {
	if len(data) < recordHeaderSize {
		return nil, ErrRecordCorrupt
	}
	if data[0] != recordFormatVersionCurrent {
		return nil, ErrRecordCorrupt
	}

	c := &Credential{}
	c.Status = Status(data[1])
	if c.Status > StatusRevoked {
		return nil, ErrRecordCorrupt
	}
	copy(c.ID[:], data[2:18])
	copy(c.FamilyID[:], data[18:34])
	c.CreatedAt = int64(binary.BigEndian.Uint64(data[34:42]))
	c.ExpiresAt = int64(binary.BigEndian.Uint64(data[42:50]))
	c.RotatedAt = int64(binary.BigEndian.Uint64(data[50:58]))

	r := bytes.NewReader(data[58:])

	identity, err := readString8(r)
	if err != nil {
		return nil, ErrRecordCorrupt
	}
	c.IdentityID = identity

	contextInfo, err := readString16(r)
	if err != nil {
		return nil, ErrRecordCorrupt
	}
	c.Context = contextInfo

	return c, nil
}

func readString8(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readString16(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
