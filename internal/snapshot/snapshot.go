package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"time"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"StudentIntro/internal/address"
	"StudentIntro/internal/ledger"
	"StudentIntro/internal/storage"
	"StudentIntro/internal/types"
)

// formatVersion is the current snapshot format version.
const formatVersion = 1

var (
	// ErrChecksum is returned when a snapshot's contents do not match its checksum.
	ErrChecksum = errors.New("snapshot checksum mismatch")

	// ErrNotEmpty is returned when restoring over a ledger that already holds accounts.
	ErrNotEmpty = errors.New("ledger is not empty")
)

// Info summarizes a snapshot.
type Info struct {
	Version   uint32    `json:"version"`   // Version is the format version
	CreatedAt time.Time `json:"createdAt"` // CreatedAt is when the snapshot was taken
	Accounts  int       `json:"accounts"`  // Accounts is the number of accounts carried
	Executed  int       `json:"executed"`  // Executed is the number of consumed transaction hashes carried
}

// entry holds one account's address and encoded bytes.
type entry struct {
	addr address.Address
	data []byte
}

// Export captures every committed account and consumed transaction hash and
// returns the zstd-compressed snapshot.
func Export(l *ledger.Ledger, now time.Time) ([]byte, *Info, error) {
	entries, err := collect(l)
	if err != nil {
		return nil, nil, fmt.Errorf("collect accounts:\n%w", err)
	}

	executed, err := collectExecuted(l)
	if err != nil {
		return nil, nil, fmt.Errorf("collect executed hashes:\n%w", err)
	}

	raw := build(now.UnixMilli(), entries, executed)

	compressed, err := Compress(raw)
	if err != nil {
		return nil, nil, err
	}

	info := &Info{
		Version:   formatVersion,
		CreatedAt: time.UnixMilli(now.UnixMilli()),
		Accounts:  len(entries),
		Executed:  len(executed),
	}

	return compressed, info, nil
}

// Restore verifies a compressed snapshot and writes its accounts and consumed
// hashes into db in one batch. db must not hold any accounts yet.
func Restore(db *storage.Storage, compressed []byte) (*Info, error) {
	raw, err := Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress:\n%w", err)
	}

	entries, executed, info, err := parse(raw)
	if err != nil {
		return nil, err
	}

	empty := true
	err = db.IteratePrefix(ledger.AccountKeyPrefix, func(_, _ []byte) error {
		empty = false
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, fmt.Errorf("scan ledger:\n%w", err)
	}

	if !empty {
		return nil, ErrNotEmpty
	}

	pairs := make([]storage.KeyValue, 0, len(entries)+len(executed))
	for _, e := range entries {
		pairs = append(pairs, storage.KeyValue{Key: ledger.AccountKey(e.addr), Value: e.data})
	}

	for _, h := range executed {
		pairs = append(pairs, storage.KeyValue{Key: ledger.ExecutedKey(h), Value: []byte{}})
	}

	if err := db.SetBatch(pairs); err != nil {
		return nil, fmt.Errorf("write accounts:\n%w", err)
	}

	return info, nil
}

// errStop ends an iteration early.
var errStop = errors.New("stop")

// collect reads all accounts in address order.
func collect(l *ledger.Ledger) ([]entry, error) {
	var entries []entry

	err := l.Each(func(addr address.Address, acc *ledger.Account) error {
		entries = append(entries, entry{addr: addr, data: ledger.EncodeAccount(acc)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortEntries(entries)

	return entries, nil
}

// collectExecuted reads all consumed transaction hashes in byte order.
func collectExecuted(l *ledger.Ledger) ([][32]byte, error) {
	var executed [][32]byte

	err := l.EachExecuted(func(hash [32]byte) error {
		executed = append(executed, hash)
		return nil
	})

	return executed, err
}

// build creates the FlatBuffers snapshot with checksum.
func build(createdAt int64, entries []entry, executed [][32]byte) []byte {
	checksum := computeChecksum(formatVersion, createdAt, entries, executed)

	builder := flatbuffers.NewBuilder(1024)

	offsets := make([]flatbuffers.UOffsetT, len(entries))
	for i, e := range entries {
		addrOffset := builder.CreateByteVector(e.addr[:])
		dataOffset := builder.CreateByteVector(e.data)

		types.SnapshotAccountStart(builder)
		types.SnapshotAccountAddAddress(builder, addrOffset)
		types.SnapshotAccountAddData(builder, dataOffset)
		offsets[i] = types.SnapshotAccountEnd(builder)
	}

	types.SnapshotStartAccountsVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	accountsVector := builder.EndVector(len(offsets))

	checksumOffset := builder.CreateByteVector(checksum[:])

	hashes := make([]byte, 0, len(executed)*32)
	for _, h := range executed {
		hashes = append(hashes, h[:]...)
	}
	executedOffset := builder.CreateByteVector(hashes)

	types.SnapshotStart(builder)
	types.SnapshotAddVersion(builder, formatVersion)
	types.SnapshotAddCreatedAt(builder, createdAt)
	types.SnapshotAddAccounts(builder, accountsVector)
	types.SnapshotAddChecksum(builder, checksumOffset)
	types.SnapshotAddExecuted(builder, executedOffset)
	builder.Finish(types.SnapshotEnd(builder))

	return builder.FinishedBytes()
}

// parse reads and verifies a raw snapshot.
func parse(raw []byte) (entries []entry, executed [][32]byte, info *Info, retErr error) {
	// FlatBuffers panics on malformed data, recover gracefully
	defer func() {
		if r := recover(); r != nil {
			entries, executed, info = nil, nil, nil
			retErr = fmt.Errorf("malformed snapshot: %v", r)
		}
	}()

	if len(raw) < 8 {
		return nil, nil, nil, fmt.Errorf("malformed snapshot: %d bytes", len(raw))
	}

	snap := types.GetRootAsSnapshot(raw, 0)

	if v := snap.Version(); v != formatVersion {
		return nil, nil, nil, fmt.Errorf("unsupported snapshot version %d", v)
	}

	stored := snap.ChecksumBytes()
	if len(stored) != 32 {
		return nil, nil, nil, fmt.Errorf("invalid checksum length: %d", len(stored))
	}

	entries = make([]entry, snap.AccountsLength())
	var acc types.SnapshotAccount

	for i := range entries {
		if !snap.Accounts(&acc, i) {
			return nil, nil, nil, fmt.Errorf("read account %d", i)
		}

		addr, err := address.FromBytes(acc.AddressBytes())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("account %d:\n%w", i, err)
		}

		data := append([]byte(nil), acc.DataBytes()...)
		if _, err := ledger.DecodeAccount(data); err != nil {
			return nil, nil, nil, fmt.Errorf("account %s:\n%w", addr.Short(), err)
		}

		entries[i] = entry{addr: addr, data: data}
	}

	sortEntries(entries)

	hashes := snap.ExecutedBytes()
	if len(hashes)%32 != 0 {
		return nil, nil, nil, fmt.Errorf("executed hashes: %d bytes is not a multiple of 32", len(hashes))
	}

	executed = make([][32]byte, len(hashes)/32)
	for i := range executed {
		copy(executed[i][:], hashes[i*32:])
	}

	computed := computeChecksum(snap.Version(), snap.CreatedAt(), entries, executed)
	if !bytes.Equal(computed[:], stored) {
		return nil, nil, nil, ErrChecksum
	}

	info = &Info{
		Version:   snap.Version(),
		CreatedAt: time.UnixMilli(snap.CreatedAt()),
		Accounts:  len(entries),
		Executed:  len(executed),
	}

	return entries, executed, info, nil
}

// sortEntries sorts entries by address for a deterministic checksum.
func sortEntries(entries []entry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].addr[:], entries[j].addr[:]) < 0
	})
}

// computeChecksum computes a blake3 checksum over canonical snapshot data.
// Format: version (4 bytes) + createdAt (8 bytes) + per account: address + u32 len + data,
// then u32 hash count + hashes in snapshot order.
func computeChecksum(version uint32, createdAt int64, entries []entry, executed [][32]byte) [32]byte {
	hasher := blake3.New()

	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], version)
	hasher.Write(buf[:4])

	binary.BigEndian.PutUint64(buf[:], uint64(createdAt))
	hasher.Write(buf[:])

	for _, e := range entries {
		hasher.Write(e.addr[:])
		binary.BigEndian.PutUint32(buf[:4], uint32(len(e.data)))
		hasher.Write(buf[:4])
		hasher.Write(e.data)
	}

	binary.BigEndian.PutUint32(buf[:4], uint32(len(executed)))
	hasher.Write(buf[:4])

	for _, h := range executed {
		hasher.Write(h[:])
	}

	var checksum [32]byte
	hasher.Sum(checksum[:0])

	return checksum
}

// Compress compresses snapshot data using zstd.
func Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// Decompress decompresses zstd-compressed snapshot data.
func Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}
