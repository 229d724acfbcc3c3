package repository

import (
	"strings"

	"github.com/sigurn/crc16"
)

const redisClusterSlots = 16384

var xmodemTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// keySlot returns the Redis Cluster hash slot of key, honouring {hash tags}.
func keySlot(key string) uint16 {
	if start := strings.IndexByte(key, '{'); start >= 0 {
		if end := strings.IndexByte(key[start+1:], '}'); end > 0 {
			key = key[start+1 : start+1+end]
		}
	}
	return crc16.Checksum([]byte(key), xmodemTable) % redisClusterSlots
}
