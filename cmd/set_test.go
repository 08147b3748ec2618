// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		want    int
		wantErr bool
	}{
		{"register value", []string{"5"}, 5, false},
		{"names", []string{"Analog Out", "S/PDIF"}, 6, false},
		{"names any case", []string{"digital in", "aes"}, 1, false},
		{"indexes", []string{"3", "1"}, 7, false},
		{"not a number", []string{"five"}, 0, true},
		{"unknown meter", []string{"Headphones", "AES"}, 0, true},
		{"unknown input", []string{"Analog In", "TOSLINK"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMode(tt.values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMode(%q) error = %v, wantErr %v", tt.values, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseMode(%q) = %d, want %d", tt.values, got, tt.want)
			}
		})
	}
}
