package entry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload, err := Encode(map[string]string{"step": "foundation"}, "working", 30*time.Minute)
	require.NoError(t, err)

	var out map[string]string
	e, err := DecodeValue(payload, &out)
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, e.Version)
	assert.Equal(t, "working", e.MemoryType)
	assert.Equal(t, int64(1800), e.TTLSeconds)
	assert.Equal(t, "foundation", out["step"])
	assert.WithinDuration(t, time.Now().UTC(), e.CreatedAt, 5*time.Second)
}

func TestEncodeNotSerializable(t *testing.T) {
	_, err := Encode(make(chan int), "cache", time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSerializable)
}

func TestDecodeRejectsNewerSchema(t *testing.T) {
	raw, err := json.Marshal(Entry{Version: SchemaVersion + 1, Value: json.RawMessage(`{}`)})
	require.NoError(t, err)

	_, err = Decode(raw)
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}

func TestExpired(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		entry   Entry
		expired bool
	}{
		{
			name:    "fresh entry within ttl",
			entry:   Entry{CreatedAt: now.Add(-10 * time.Second), TTLSeconds: 60},
			expired: false,
		},
		{
			name:    "entry past ttl",
			entry:   Entry{CreatedAt: now.Add(-2 * time.Minute), TTLSeconds: 60},
			expired: true,
		},
		{
			name:    "no ttl never expires",
			entry:   Entry{CreatedAt: now.Add(-365 * 24 * time.Hour), TTLSeconds: 0},
			expired: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tt.entry.Expired(now))
		})
	}
}

func TestAge(t *testing.T) {
	now := time.Now().UTC()
	e := Entry{CreatedAt: now.Add(-90 * time.Second)}
	assert.InDelta(t, 90, e.Age(now).Seconds(), 0.1)
}
