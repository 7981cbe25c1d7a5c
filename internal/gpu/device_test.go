package gpu

import (
	"context"
	"testing"
	"time"

	"github.com/hpckit/gpulease/internal/testutil"
)

func TestParseDeviceLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Device
		ok   bool
	}{
		{
			name: "well formed",
			line: "0, NVIDIA GeForce RTX 3090, 20318",
			want: Device{Index: 0, Name: "NVIDIA GeForce RTX 3090", FreeMemoryMiB: 20318},
			ok:   true,
		},
		{
			name: "no spaces",
			line: "1,Tesla K80,11441",
			want: Device{Index: 1, Name: "Tesla K80", FreeMemoryMiB: 11441},
			ok:   true,
		},
		{
			name: "empty line",
			line: "",
		},
		{
			name: "missing field",
			line: "0, Tesla K80",
		},
		{
			name: "non-numeric memory",
			line: "0, Tesla K80, lots",
		},
		{
			name: "non-numeric index",
			line: "GPU0, Tesla K80, 11441",
		},
		{
			name: "blank name",
			line: "0, , 11441",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDeviceLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("parseDeviceLine(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("parseDeviceLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestQueryReturnsFirstDevice(t *testing.T) {
	testutil.SkipIfNoShell(t)

	tool := NewTool(
		testutil.FakeDeviceTool(t, "0, Tesla K80, 11441", 0),
		time.Second, nil,
	)
	dev, ok := tool.Query(context.Background())
	if !ok {
		t.Fatal("Query() found no device")
	}
	want := Device{Index: 0, Name: "Tesla K80", FreeMemoryMiB: 11441}
	if dev != want {
		t.Errorf("Query() = %+v, want %+v", dev, want)
	}
}

func TestQueryFailuresAreNoDevice(t *testing.T) {
	testutil.SkipIfNoShell(t)

	tests := []struct {
		name string
		tool *Tool
	}{
		{
			name: "tool missing",
			tool: NewTool("/nonexistent/nvidia-smi", time.Second, nil),
		},
		{
			name: "tool exits nonzero",
			tool: NewTool(testutil.FakeDeviceTool(t, "", 9), time.Second, nil),
		},
		{
			name: "unparsable output",
			tool: NewTool(testutil.FakeDeviceTool(t, "no devices found", 0), time.Second, nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.tool.Query(context.Background()); ok {
				t.Error("Query() reported a device, want none")
			}
		})
	}
}
