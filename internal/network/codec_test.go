package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arobi-robotics/robotd/internal/dof"
)

func TestEncodeDecodeRecordsRoundTrip(t *testing.T) {
	records := []Record{
		{Index: 0, Variables: dof.Variables{Position: 0.5, Velocity: -1.25, Force: 3, Acceleration: 0.125, Inertia: 1, Stiffness: 2, Damping: 0.5}},
		{Index: 3, Variables: dof.Variables{Position: -2}},
	}

	data, err := EncodeRecords(records)
	require.NoError(t, err)
	assert.Equal(t, 1+2*recordSize, len(data))

	decoded, err := DecodeRecords(data)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, uint8(0), decoded[0].Index)
	assert.InDelta(t, 0.5, decoded[0].Variables.Position, 1e-6)
	assert.InDelta(t, -1.25, decoded[0].Variables.Velocity, 1e-6)
	assert.Equal(t, uint8(3), decoded[1].Index)
	assert.InDelta(t, -2, decoded[1].Variables.Position, 1e-6)
}

func TestEncodeRecordsEmpty(t *testing.T) {
	data, err := EncodeRecords(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, data)

	decoded, err := DecodeRecords(data)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestEncodeRecordsRejectsTooMany(t *testing.T) {
	records := make([]Record, MaxRecords+1)
	_, err := EncodeRecords(records)
	assert.Error(t, err)
}

func TestDecodeRecordsRejectsTruncatedMessage(t *testing.T) {
	_, err := DecodeRecords([]byte{1, 0, 0, 0})
	assert.Error(t, err)
}

func TestDecodeRecordsRejectsEmptyInput(t *testing.T) {
	_, err := DecodeRecords(nil)
	assert.Error(t, err)
}
