//go:build unix

package hostheap

import "golang.org/x/sys/unix"

const mapped = true

func mapRegion(size uint32) ([]byte, error) {
	return unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func unmapRegion(b []byte) error {
	return unix.Munmap(b)
}
