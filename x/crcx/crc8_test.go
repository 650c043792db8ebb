package crcx

import "testing"

func TestCRC8(t *testing.T) {
	cases := []struct {
		in   []byte
		poly byte
		init byte
		want byte
	}{
		// Sensirion datasheet vector.
		{[]byte{0xBE, 0xEF}, 0x31, 0xFF, 0x92},
		{nil, 0x31, 0xFF, 0xFF},
		// CRC-8/SMBUS check value for "123456789".
		{[]byte("123456789"), 0x07, 0x00, 0xF4},
	}
	for _, tc := range cases {
		if got := CRC8(tc.in, tc.poly, tc.init); got != tc.want {
			t.Errorf("CRC8(%x, %#x, %#x)=%#x want %#x", tc.in, tc.poly, tc.init, got, tc.want)
		}
	}
}
