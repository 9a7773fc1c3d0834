// Package network implements the NetworkSurface: the Events TCP
// request/reply endpoint and the Axes/Joints UDP streaming endpoints,
// plus an additive JSON debug mirror in the debugws subpackage.
package network

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arobi-robotics/robotd/internal/dof"
)

// recordSize is DOF_DATA_BLOCK_SIZE + 1 index byte: 7 float32 fields plus
// a one-byte DoF index, per shared_dof_variables.h.
const recordSize = 1 + 7*4

// MaxMessageBytes bounds a single streaming datagram.
const MaxMessageBytes = 512

// MaxRecords is the largest DoF count a single message can carry within
// MaxMessageBytes, including the leading count byte.
const MaxRecords = (MaxMessageBytes - 1) / recordSize

// Record pairs a DoF index with its variables, the unit of the Axes/Joints
// streaming codec.
type Record struct {
	Index     uint8
	Variables dof.Variables
}

// EncodeRecords writes the streaming codec's wire format: one count byte
// followed by one recordSize block per record, little-endian IEEE-754
// single precision.
func EncodeRecords(records []Record) ([]byte, error) {
	if len(records) > MaxRecords {
		return nil, fmt.Errorf("network: %d records exceeds max %d", len(records), MaxRecords)
	}

	buf := make([]byte, 1+len(records)*recordSize)
	buf[0] = uint8(len(records))

	offset := 1
	for _, r := range records {
		buf[offset] = r.Index
		offset++
		offset = putFloat32(buf, offset, r.Variables.Position)
		offset = putFloat32(buf, offset, r.Variables.Velocity)
		offset = putFloat32(buf, offset, r.Variables.Force)
		offset = putFloat32(buf, offset, r.Variables.Acceleration)
		offset = putFloat32(buf, offset, r.Variables.Inertia)
		offset = putFloat32(buf, offset, r.Variables.Stiffness)
		offset = putFloat32(buf, offset, r.Variables.Damping)
	}

	return buf, nil
}

// DecodeRecords parses the streaming codec's wire format. A truncated
// trailing record is an error; a message announcing more records than it
// carries is rejected rather than read out of bounds.
func DecodeRecords(data []byte) ([]Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("network: empty message")
	}

	count := int(data[0])
	want := 1 + count*recordSize
	if len(data) < want {
		return nil, fmt.Errorf("network: message declares %d records, needs %d bytes, got %d", count, want, len(data))
	}

	records := make([]Record, count)
	offset := 1
	for i := 0; i < count; i++ {
		records[i].Index = data[offset]
		offset++
		records[i].Variables.Position, offset = getFloat32(data, offset)
		records[i].Variables.Velocity, offset = getFloat32(data, offset)
		records[i].Variables.Force, offset = getFloat32(data, offset)
		records[i].Variables.Acceleration, offset = getFloat32(data, offset)
		records[i].Variables.Inertia, offset = getFloat32(data, offset)
		records[i].Variables.Stiffness, offset = getFloat32(data, offset)
		records[i].Variables.Damping, offset = getFloat32(data, offset)
	}

	return records, nil
}

func putFloat32(buf []byte, offset int, v float64) int {
	binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(float32(v)))
	return offset + 4
}

func getFloat32(buf []byte, offset int) (float64, int) {
	bits := binary.LittleEndian.Uint32(buf[offset:])
	return float64(math.Float32frombits(bits)), offset + 4
}
