package wifi

import "testing"

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		addr    string
		host    string
		port    uint16
		wantErr bool
	}{
		{addr: "10.0.0.9:1883", host: "10.0.0.9", port: 1883},
		{addr: "broker.local:8883", host: "broker.local", port: 8883},
		{addr: "[fe80::1]:1883", host: "fe80::1", port: 1883},
		{addr: "broker.local", wantErr: true},
		{addr: ":1883", wantErr: true},
		{addr: "broker.local:", wantErr: true},
		{addr: "broker.local:mqtt", wantErr: true},
		{addr: "broker.local:70000", wantErr: true},
		{addr: "broker.local:0", wantErr: true},
	}
	for _, tt := range tests {
		host, port, err := splitHostPort(tt.addr)
		if tt.wantErr {
			if err == nil {
				t.Errorf("splitHostPort(%q) = %q, %d, want error", tt.addr, host, port)
			}
			continue
		}
		if err != nil {
			t.Errorf("splitHostPort(%q): %v", tt.addr, err)
			continue
		}
		if host != tt.host || port != tt.port {
			t.Errorf("splitHostPort(%q) = %q, %d, want %q, %d", tt.addr, host, port, tt.host, tt.port)
		}
	}
}
