// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

// crcTable is the 256-entry lookup for the CCITT polynomial, filled at
// package init.
var crcTable [256]uint16

func init() {
	for i := range crcTable {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// CalculateCRC computes the CRC-16-CCITT checksum of data (polynomial
// 0x1021, initial value 0xFFFF, no final XOR).
func CalculateCRC(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>8)^b]
	}
	return crc
}
