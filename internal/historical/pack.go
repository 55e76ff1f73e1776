package historical

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// currentVersion is the only blob version this package writes. Readers
// reject any other version outright ("readers must reject
// unknown versions").
const currentVersion uint16 = 1

// Pack encodes the current contents of the buffer into the binary layout
// below:
//
//	header: u16 version, u16 numFields
//	per field: u8 nameLen, name bytes, f64 initialValue, u32 sampleCount,
//	           samples: f64 time, f64 value
//
// All integers and floats are little-endian. Pack does not mutate or
// reset the buffer; callers reset separately once the blob is persisted.
func (b *Buffer) Pack() ([]byte, error) {
	fields := b.Fields()

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, currentVersion); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(fields))); err != nil {
		return nil, err
	}

	for _, name := range fields {
		fh := b.fields[name]
		if len(name) > 255 {
			return nil, fmt.Errorf("historical: field name %q exceeds 255 bytes", name)
		}
		buf.WriteByte(byte(len(name)))
		buf.WriteString(name)
		if err := binary.Write(&buf, binary.LittleEndian, fh.InitialValue); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(fh.Samples))); err != nil {
			return nil, err
		}
		for _, s := range fh.Samples {
			if err := binary.Write(&buf, binary.LittleEndian, s.Time); err != nil {
				return nil, err
			}
			if err := binary.Write(&buf, binary.LittleEndian, s.Value); err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}

// Unpacked is the client-facing decoding of a packed blob: one
// FieldHistory per tracked field, keyed by name.
type Unpacked map[string]FieldHistory

// Unpack decodes a blob produced by Pack. Unknown field names are not
// possible to detect at this layer (the wire format has no notion of a
// caller-known schema); callers implementing "unknown fields are
// discarded on read" filter the returned map against their
// own tracked-field set.
func Unpack(blob []byte) (Unpacked, error) {
	r := bytes.NewReader(blob)

	var version, numFields uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("historical: reading version: %w", err)
	}
	if version != currentVersion {
		return nil, fmt.Errorf("historical: unsupported blob version %d", version)
	}
	if err := binary.Read(r, binary.LittleEndian, &numFields); err != nil {
		return nil, fmt.Errorf("historical: reading field count: %w", err)
	}

	out := make(Unpacked, numFields)
	for i := 0; i < int(numFields); i++ {
		nameLen, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("historical: reading name length: %w", err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := r.Read(nameBytes); err != nil {
			return nil, fmt.Errorf("historical: reading name: %w", err)
		}

		var fh FieldHistory
		if err := binary.Read(r, binary.LittleEndian, &fh.InitialValue); err != nil {
			return nil, fmt.Errorf("historical: reading initial value: %w", err)
		}

		var sampleCount uint32
		if err := binary.Read(r, binary.LittleEndian, &sampleCount); err != nil {
			return nil, fmt.Errorf("historical: reading sample count: %w", err)
		}

		fh.Samples = make([]Sample, sampleCount)
		for j := range fh.Samples {
			if err := binary.Read(r, binary.LittleEndian, &fh.Samples[j].Time); err != nil {
				return nil, fmt.Errorf("historical: reading sample %d time: %w", j, err)
			}
			if err := binary.Read(r, binary.LittleEndian, &fh.Samples[j].Value); err != nil {
				return nil, fmt.Errorf("historical: reading sample %d value: %w", j, err)
			}
		}

		out[string(nameBytes)] = fh
	}

	return out, nil
}

// ValueAt reconstructs a tracked field's value at time t by linearly
// interpolating between the surrounding samples, holding the last known
// value constant outside the sampled range ("missing fields
// default to their last known value").
func (fh FieldHistory) ValueAt(t float64) float64 {
	if len(fh.Samples) == 0 {
		return fh.InitialValue
	}
	if t <= fh.Samples[0].Time {
		return fh.InitialValue
	}
	for i := 0; i < len(fh.Samples)-1; i++ {
		a, b := fh.Samples[i], fh.Samples[i+1]
		if t >= a.Time && t <= b.Time {
			if b.Time == a.Time {
				return a.Value
			}
			frac := (t - a.Time) / (b.Time - a.Time)
			return a.Value + (b.Value-a.Value)*frac
		}
	}
	return fh.Samples[len(fh.Samples)-1].Value
}
