package mirror

import (
	"encoding/binary"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"
)

var (
	idsBucket     = []byte("ids")
	pathsBucket   = []byte("paths")
	digestsBucket = []byte("digests")
	devicesBucket = []byte("devices")
	tokensBucket  = []byte("tokens")
)

func allBuckets() [][]byte {
	return [][]byte{idsBucket, pathsBucket, digestsBucket, devicesBucket, tokensBucket}
}

func idKey(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

// idFor returns the id of p, assigning the next sequence number on first
// sight. Must be called within an update transaction.
func idFor(tx *bolt.Tx, p string) (uint64, error) {
	ids := tx.Bucket(idsBucket)
	if v := ids.Get([]byte(p)); v != nil {
		return binary.BigEndian.Uint64(v), nil
	}
	id, err := ids.NextSequence()
	if err != nil {
		return 0, err
	}
	if err := ids.Put([]byte(p), idKey(id)); err != nil {
		return 0, err
	}
	if err := tx.Bucket(pathsBucket).Put(idKey(id), []byte(p)); err != nil {
		return 0, err
	}
	return id, nil
}

func pathOf(tx *bolt.Tx, id uint64) (string, bool) {
	v := tx.Bucket(pathsBucket).Get(idKey(id))
	if v == nil {
		return "", false
	}
	return string(v), true
}

// subtree returns p and every indexed path below it.
func subtree(tx *bolt.Tx, p string) map[string]uint64 {
	out := map[string]uint64{}
	c := tx.Bucket(idsBucket).Cursor()
	for k, v := c.Seek([]byte(p)); k != nil && strings.HasPrefix(string(k), p); k, v = c.Next() {
		key := string(k)
		if key == p || strings.HasPrefix(key, strings.TrimSuffix(p, "/")+"/") {
			out[key] = binary.BigEndian.Uint64(v)
		}
	}
	return out
}

// rekey moves the ids of a subtree from one path prefix to another so ids
// survive renames and moves.
func rekey(tx *bolt.Tx, from, to string) error {
	ids := tx.Bucket(idsBucket)
	paths := tx.Bucket(pathsBucket)
	for old, id := range subtree(tx, from) {
		next := to + old[len(from):]
		if err := ids.Delete([]byte(old)); err != nil {
			return err
		}
		if err := ids.Put([]byte(next), idKey(id)); err != nil {
			return err
		}
		if err := paths.Put(idKey(id), []byte(next)); err != nil {
			return err
		}
	}
	return nil
}

// forget drops a subtree and its digests.
func forget(tx *bolt.Tx, p string) error {
	for old, id := range subtree(tx, p) {
		if err := tx.Bucket(idsBucket).Delete([]byte(old)); err != nil {
			return err
		}
		if err := tx.Bucket(pathsBucket).Delete(idKey(id)); err != nil {
			return err
		}
		if err := tx.Bucket(digestsBucket).Delete(idKey(id)); err != nil {
			return err
		}
	}
	return nil
}

// putDigests stores the slice digests of a file as a count followed by the
// digests.
func putDigests(tx *bolt.Tx, id uint64, digests []uint64) error {
	buf := make([]byte, 8*(len(digests)+1))
	binary.BigEndian.PutUint64(buf, uint64(len(digests)))
	for i, d := range digests {
		binary.BigEndian.PutUint64(buf[8*(i+1):], d)
	}
	return tx.Bucket(digestsBucket).Put(idKey(id), buf)
}

// getDigests returns the stored digests, or false for files that were never
// uploaded through the drive.
func getDigests(tx *bolt.Tx, id uint64) ([]uint64, bool, error) {
	v := tx.Bucket(digestsBucket).Get(idKey(id))
	if v == nil {
		return nil, false, nil
	}
	if len(v) < 8 {
		return nil, false, fmt.Errorf("digest record of %d is truncated", id)
	}
	n := binary.BigEndian.Uint64(v)
	if uint64(len(v)) != 8*(n+1) {
		return nil, false, fmt.Errorf("digest record of %d is truncated", id)
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint64(v[8*(i+1):])
	}
	return out, true, nil
}
