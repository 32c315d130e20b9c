package utils

import "testing"

func TestExtractFromWebsocketURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		addr  string
		proto string
	}{
		{name: "with port and path", url: "ws://localhost:8888/ws", addr: "localhost:8888", proto: "ws"},
		{name: "with port no path", url: "ws://localhost:8888", addr: "localhost:8888", proto: "ws"},
		{name: "default ws port", url: "ws://telemetry.example.com/feed", addr: "telemetry.example.com:80", proto: "ws"},
		{name: "default wss port", url: "wss://telemetry.example.com", addr: "telemetry.example.com:443", proto: "wss"},
		{name: "not a websocket url", url: "http://localhost:8888", addr: "", proto: ""},
		{name: "garbage", url: "not-a-url", addr: "", proto: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, proto := ExtractFromWebsocketURL(tt.url)
			if addr != tt.addr || proto != tt.proto {
				t.Errorf("ExtractFromWebsocketURL(%s) = (%s,%s), want (%s,%s)",
					tt.url, addr, proto, tt.addr, tt.proto)
			}
		})
	}
}
