package mtapi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tp(t time.Time) *time.Time { return &t }

func TestMakeEnvelope(t *testing.T) {
	t1 := baseTime
	t2 := baseTime.Add(time.Minute)

	tests := []struct {
		name    string
		entries []StationArrivals
		want    *time.Time
	}{
		{"nil data", nil, nil},
		{"empty data", []StationArrivals{}, nil},
		{"no timestamps", []StationArrivals{{ID: "a"}, {ID: "b"}}, nil},
		{"minimum wins", []StationArrivals{{ID: "a", LastUpdate: tp(t2)}, {ID: "b", LastUpdate: tp(t1)}}, &t1},
		{"missing defers", []StationArrivals{{ID: "a"}, {ID: "b", LastUpdate: tp(t2)}, {ID: "c"}}, &t2},
		{"single", []StationArrivals{{ID: "a", LastUpdate: tp(t1)}}, &t1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := MakeEnvelope(tt.entries)
			assert.NotNil(t, env.Data)
			if tt.want == nil {
				assert.Nil(t, env.Updated)
				return
			}
			require.NotNil(t, env.Updated)
			assert.True(t, tt.want.Equal(*env.Updated))
		})
	}
}

func TestEnvelope_JSON(t *testing.T) {
	b, err := json.Marshal(MakeEnvelope(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"updated":null}`, string(b))

	d := 0.25
	env := MakeEnvelope([]StationArrivals{{
		ID:         "L01",
		Name:       "8 Av",
		Location:   [2]float64{40.7, -74.0},
		Routes:     []string{"L"},
		LastUpdate: tp(baseTime),
		Distance:   &d,
		Generation: 3,
	}})
	b, err = json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	entry := decoded["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "L01", entry["id"])
	assert.Equal(t, 0.25, entry["distance"])
	assert.NotContains(t, entry, "Generation")
	assert.Equal(t, "2024-03-01T12:00:00Z", decoded["updated"])
}
