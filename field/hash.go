package field

var hashTable = func() [256]uint32 {
	var t [256]uint32
	for i := range t {
		c := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if c&0x80000000 != 0 {
				c = c<<1 ^ 0x04C11DB7
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return t
}()

// Hash returns the 32-bit field name hash used to tag fields in a payload.
func Hash(name string) uint32 {
	crc := uint32(0xFFFFFFFF)
	for i := 0; i < len(name); i++ {
		crc = hashTable[byte(crc>>24)^name[i]] ^ crc<<8
	}
	return ^crc
}

// ClassNameField names the field carrying the record class.
const ClassNameField = "_className"

// ClassNameHash identifies the class-name field.
var ClassNameHash = Hash(ClassNameField)
