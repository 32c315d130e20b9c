package model

import (
	"testing"

	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
)

func TestParseAxis(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    Axis
		wantErr bool
	}{
		{name: "brake", arg: "BRAKE", want: AxisBrake},
		{name: "steering", arg: "STEERING", want: AxisSteering},
		{name: "lowercase is rejected", arg: "brake", wantErr: true},
		{name: "unknown", arg: "HANDBRAKE", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAxis(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

//nolint:funlen // table
func TestLookupAxisValue(t *testing.T) {
	tests := []struct {
		name  string
		axis  Axis
		frame string
		want  AxisValue
		found bool
	}{
		{
			name:  "brake present",
			axis:  AxisBrake,
			frame: `{"RSC - Input Display - Analog_Brake":{"currentAngle":17}}`,
			want:  PedalValue{CurrentAngle: 17},
			found: true,
		},
		{
			name:  "steering present",
			axis:  AxisSteering,
			frame: `{"RSC - Input Display - Analog_Steering":{"rotation":-5.5}}`,
			want:  SteeringValue{Rotation: -5.5},
			found: true,
		},
		{
			name:  "axis absent",
			axis:  AxisThrottle,
			frame: `{"RSC - Input Display - Analog_Brake":{"currentAngle":17}}`,
			found: false,
		},
		{
			name:  "wrong shape",
			axis:  AxisClutch,
			frame: `{"RSC - Input Display - Analog_Clutch":42}`,
			found: false,
		},
		{
			name:  "missing attribute",
			axis:  AxisSteering,
			frame: `{"RSC - Input Display - Analog_Steering":{"currentAngle":1}}`,
			found: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := oj.ParseString(tt.frame)
			assert.NoError(t, err)
			got, found := LookupAxisValue(tt.axis, frame)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
