package common

// WipeByteArray overwrites the contents of b with zeros. Used for passwords
// read from the terminal once they have been sent.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
